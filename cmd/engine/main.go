package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"tradecore/internal/api"
	"tradecore/internal/api/handlers"
	"tradecore/internal/config"
	"tradecore/internal/engine"
	"tradecore/internal/exchange"
	"tradecore/internal/models"
	"tradecore/internal/repository"
	"tradecore/pkg/crypto"
	"tradecore/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer log.Sync()

	log.Info("starting trade core",
		utils.String("host", cfg.Server.Host),
		utils.Int("port", cfg.Server.Port))

	// База данных опциональна: без неё ядро работает, аудит и журнал
	// уведомлений становятся no-op
	var (
		eventRepo        *repository.OrderEventRepository
		notificationRepo *repository.NotificationRepository
	)
	db, err := initDatabase(cfg)
	if err != nil {
		log.Warn("database unavailable, audit trail disabled", utils.Err(err))
	} else {
		defer db.Close()
		eventRepo = repository.NewOrderEventRepository(db)
		notificationRepo = repository.NewNotificationRepository(db)
		log.Info("connected to database",
			utils.String("dsn", cfg.Database.DSNWithoutPassword()))
	}

	// Избегаем typed-nil в интерфейсе аудита
	var audit engine.AuditSink
	if eventRepo != nil {
		audit = eventRepo
	}

	notifications := make(chan *models.Notification, cfg.Engine.NotificationBuffer)

	store := engine.NewAccountStore()
	gate := engine.NewRiskGate(gateConfig(cfg.Risk), store, nil, log)
	pipeline := engine.NewFillPipeline(store, audit, notifications, cfg.Risk.QuoteAsset, log)

	restClient := exchange.NewRESTClient(exchange.RESTClientConfig{
		Name:           "exchange",
		BaseURL:        cfg.Stream.RESTBaseURL,
		APIKey:         cfg.Stream.APIKey,
		APISecret:      apiSecret(cfg, log),
		OrderRateLimit: cfg.Stream.OrderRateLimit,
		QueryRateLimit: cfg.Stream.QueryRateLimit,
	}, log)
	defer restClient.Close()

	coordinator := engine.NewCoordinator(engine.CoordinatorConfig{
		RebuildTimeout: cfg.Engine.RebuildTimeout,
	}, store, restClient, notifications, log)

	orchestrator := engine.NewOrchestrator(gate, pipeline, restClient, coordinator, audit, notifications, log)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Дренаж уведомлений: персист в БД или лог, если БД нет
	go drainNotifications(rootCtx, notifications, notificationRepo, log)

	// Первичная загрузка состояния; частичный успех допустим,
	// полный провал оставит координатор в UNINITIALIZED до реконнекта
	if cfg.Stream.RESTBaseURL != "" {
		if _, err := coordinator.Rebuild(rootCtx); err != nil {
			log.Error("initial state rebuild failed", utils.Err(err))
		}
	}

	// Sweeper протухших ордеров (ORDER_TTL=0 отключает)
	sweeper := engine.NewTimeoutSweeper(engine.SweeperConfig{
		OrderTTL: cfg.Engine.OrderTTL,
		Interval: cfg.Engine.SweepInterval,
	}, store, audit, notifications, log)
	if sweeper.Enabled() {
		go sweeper.Run(rootCtx)
	}

	// Стрим событий исполнения
	var stream *exchange.ExecutionStream
	if cfg.Stream.URL != "" {
		streamCfg := exchange.DefaultStreamConfig(cfg.Stream.URL)
		streamCfg.InitialDelay = cfg.Stream.ReconnectDelay
		streamCfg.PingInterval = cfg.Stream.PingInterval

		stream = exchange.NewExecutionStream(streamCfg, exchange.EventHandlers{
			OnAccepted: pipeline.OnOrderAccepted,
			OnFill:     pipeline.OnExecutionFill,
			OnCanceled: pipeline.OnOrderCanceled,
		}, log)
		stream.OnReconnect = coordinator.NotifyReconnect

		if err := stream.Connect(); err != nil {
			// Реконнект-цикл поднимет соединение позже
			log.Error("initial stream connect failed", utils.Err(err))
		}
		defer stream.Close()
	}

	router := api.SetupRoutes(api.Dependencies{
		Coordinator:   coordinator,
		Gate:          gate,
		Orders:        orchestrator,
		Events:        eventSource(eventRepo),
		Notifications: notificationSource(notificationRepo),
		OpsTokenHash:  cfg.Security.OpsTokenHash,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("ops server listening", utils.String("addr", server.Addr))
		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", utils.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	stop()
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", utils.Err(err))
	}

	log.Info("trade core stopped")
}

// gateConfig транслирует конфигурацию риска в настройки риск-шлюза
func gateConfig(r config.RiskConfig) engine.GateConfig {
	return engine.GateConfig{
		TradingEnabled:         r.TradingEnabled,
		SymbolWhitelist:        r.SymbolWhitelist,
		MinOrderQty:            r.MinOrderQty,
		MaxOrderQty:            r.MaxOrderQty,
		MaxOrderNotional:       r.MaxOrderNotional,
		MaxBalanceUsageRatio:   r.MaxBalanceUsageRatio,
		QuoteAsset:             r.QuoteAsset,
		MaxPositionPerSymbol:   r.MaxPositionPerSymbol,
		MaxOpenOrdersPerSymbol: r.MaxOpenOrdersPerSymbol,
		MaxOpenOrdersTotal:     r.MaxOpenOrdersTotal,
		MaxTotalExposure:       r.MaxTotalExposure,
		MaxMarketOrderNotional: r.MaxMarketOrderNotional,
		MarketEstimatePrice:    r.MarketEstimatePrice,
		MinOrderSpacing:        r.MinOrderSpacing,
	}
}

// apiSecret возвращает секрет биржевого API, расшифровывая его при
// необходимости. Зашифрованный вариант имеет приоритет.
func apiSecret(cfg *config.Config, log *utils.Logger) string {
	if cfg.Stream.APISecretEncrypted == "" {
		return cfg.Stream.APISecret
	}
	secret, err := crypto.DecryptWithKeyString(cfg.Stream.APISecretEncrypted, cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatal("failed to decrypt exchange API secret", utils.Err(err))
	}
	return secret
}

// eventSource оборачивает репозиторий, избегая typed-nil в интерфейсе
func eventSource(repo *repository.OrderEventRepository) handlers.OrderEventSource {
	if repo == nil {
		return nil
	}
	return repo
}

// notificationSource аналогично для журнала уведомлений
func notificationSource(repo *repository.NotificationRepository) handlers.NotificationSource {
	if repo == nil {
		return nil
	}
	return repo
}

// drainNotifications переливает уведомления из канала в БД.
// Без БД уведомления только логируются - канал всё равно надо читать,
// иначе продюсеры начнут их ронять.
func drainNotifications(ctx context.Context, ch chan *models.Notification, repo *repository.NotificationRepository, log *utils.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-ch:
			if n == nil {
				continue
			}
			if repo != nil {
				if err := repo.Create(n); err != nil {
					log.Error("failed to persist notification",
						utils.String("type", n.Type), utils.Err(err))
				}
				continue
			}
			log.Info("notification",
				utils.String("type", n.Type),
				utils.String("severity", n.Severity),
				utils.String("message", n.Message))
		}
	}
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
