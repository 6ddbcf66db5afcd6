package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"tradecore/internal/exchange"
	"tradecore/internal/models"
	"tradecore/pkg/retry"
	"tradecore/pkg/utils"
)

// Итог перестройки: все секции, часть секций, ни одной
const (
	RebuildOutcomeFull    = "full"
	RebuildOutcomePartial = "partial"
	RebuildOutcomeFailed  = "failed"
)

// RebuildResult - итог одной перестройки состояния
type RebuildResult struct {
	BalancesOK  bool
	PositionsOK bool
	OrdersOK    bool
	Errors      []error
	Duration    time.Duration
}

// Outcome классифицирует результат перестройки
func (r *RebuildResult) Outcome() string {
	ok := 0
	if r.BalancesOK {
		ok++
	}
	if r.PositionsOK {
		ok++
	}
	if r.OrdersOK {
		ok++
	}
	switch ok {
	case 3:
		return RebuildOutcomeFull
	case 0:
		return RebuildOutcomeFailed
	default:
		return RebuildOutcomePartial
	}
}

// CoordinatorConfig - параметры координатора ресинхронизации
type CoordinatorConfig struct {
	// Таймаут одной перестройки целиком
	RebuildTimeout time.Duration

	// Параметры повторов REST-запросов к бирже
	Retry retry.Config
}

// Coordinator перестраивает локальное состояние аккаунта из REST-снимка
// биржи при старте и после каждого разрыва стрима.
//
// Секции (балансы, позиции, ордера) запрашиваются параллельно и
// независимо: отказ одной секции не отменяет остальные, успешные секции
// замещаются целиком. Перестройки сериализованы - конкурентные вызовы
// выполняются по очереди, каждая перестройка видит консистентный клиент.
type Coordinator struct {
	cfg    CoordinatorConfig
	store  *AccountStore
	client exchange.QueryClient
	log    *utils.Logger

	notifications chan *models.Notification

	stateMu sync.RWMutex
	state   string

	// Сериализация перестроек
	rebuildMu sync.Mutex
}

// NewCoordinator создаёт координатор в состоянии UNINITIALIZED
func NewCoordinator(cfg CoordinatorConfig, store *AccountStore, client exchange.QueryClient, notifications chan *models.Notification, log *utils.Logger) *Coordinator {
	if cfg.RebuildTimeout <= 0 {
		cfg.RebuildTimeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.ConservativeConfig()
	}
	if log == nil {
		log = utils.GetGlobalLogger()
	}
	c := &Coordinator{
		cfg:           cfg,
		store:         store,
		client:        client,
		notifications: notifications,
		state:         StateUninitialized,
		log:           log.WithComponent("reconcile_coordinator"),
	}
	CoordinatorState.Set(stateGaugeValue(c.state))
	return c
}

// State возвращает текущее состояние координатора
func (c *Coordinator) State() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Ready сообщает, достоверен ли локальный снимок
func (c *Coordinator) Ready() bool {
	return c.State() == StateReady
}

// GetSnapshot возвращает консистентный снимок состояния аккаунта
func (c *Coordinator) GetSnapshot() *models.AccountSnapshot {
	return c.store.Snapshot()
}

func (c *Coordinator) setState(to string) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if !CanTransition(c.state, to) {
		return &StateTransitionError{From: c.state, To: to}
	}

	c.log.Info("coordinator state changed",
		utils.String("from", c.state),
		utils.String("to", to))
	c.state = to
	CoordinatorState.Set(stateGaugeValue(to))
	return nil
}

// Rebuild выполняет одну перестройку состояния из REST-снимка биржи.
//
// Возвращает ошибку только если ни одна секция не загрузилась -
// состояние остаётся недостоверным. Частичный успех оставляет
// координатор в READY: успешные секции свежие, остальные сохраняют
// прежние данные до следующей перестройки.
func (c *Coordinator) Rebuild(ctx context.Context) (*RebuildResult, error) {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()

	started := time.Now()
	if err := c.setState(StateInitializing); err != nil {
		// UNINITIALIZED и READY оба допускают вход в перестройку;
		// сюда попадаем только из несериализованного кода
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RebuildTimeout)
	defer cancel()

	result := &RebuildResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	section := func(name string, fetch func(context.Context) error, ok *bool) {
		defer wg.Done()
		err := retry.Do(ctx, func() error {
			return fetch(ctx)
		}, c.cfg.Retry)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Errors = append(result.Errors, errors.New(name+": "+err.Error()))
			ReconcileSectionErrors.WithLabelValues(name).Inc()
			c.log.Error("reconcile section failed", utils.String("section", name), utils.Err(err))
			return
		}
		*ok = true
	}

	wg.Add(3)
	go section("balances", c.rebuildBalances, &result.BalancesOK)
	go section("positions", c.rebuildPositions, &result.PositionsOK)
	go section("orders", c.rebuildOrders, &result.OrdersOK)
	wg.Wait()

	result.Duration = time.Since(started)
	outcome := result.Outcome()
	RecordReconcile(outcome, result.Duration.Seconds())

	if outcome == RebuildOutcomeFailed {
		if err := c.setState(StateUninitialized); err != nil {
			c.log.Error("state rollback failed", utils.Err(err))
		}
		tryEnqueueNotification(c.notifications, &models.Notification{
			Timestamp: time.Now().UTC(),
			Type:      models.NotificationTypeReconcile,
			Severity:  models.SeverityError,
			Message:   "state rebuild failed: no section loaded",
		})
		return result, errors.Join(result.Errors...)
	}

	if err := c.setState(StateReady); err != nil {
		return result, err
	}

	severity := models.SeverityInfo
	if outcome == RebuildOutcomePartial {
		severity = models.SeverityWarn
	}
	tryEnqueueNotification(c.notifications, &models.Notification{
		Timestamp: time.Now().UTC(),
		Type:      models.NotificationTypeReconcile,
		Severity:  severity,
		Message:   "state rebuild " + outcome,
		Meta: map[string]interface{}{
			"balances_ok":  result.BalancesOK,
			"positions_ok": result.PositionsOK,
			"orders_ok":    result.OrdersOK,
			"duration_ms":  result.Duration.Milliseconds(),
		},
	})

	c.log.Info("state rebuild finished",
		utils.String("outcome", outcome),
		utils.Bool("balances_ok", result.BalancesOK),
		utils.Bool("positions_ok", result.PositionsOK),
		utils.Bool("orders_ok", result.OrdersOK),
		utils.Latency(float64(result.Duration.Milliseconds())))

	return result, nil
}

// NotifyReconnect запускает перестройку после восстановления стрима.
//
// Никогда не возвращает и не пробрасывает ошибку: потребитель - колбэк
// переподключения, ему некуда её девать. Провал логируется, состояние
// остаётся недостоверным до следующего вызова.
func (c *Coordinator) NotifyReconnect() {
	c.log.Warn("stream reconnected, scheduling state rebuild")

	tryEnqueueNotification(c.notifications, &models.Notification{
		Timestamp: time.Now().UTC(),
		Type:      models.NotificationTypeReconnect,
		Severity:  models.SeverityWarn,
		Message:   "stream reconnected, rebuilding account state",
	})

	go func() {
		if _, err := c.Rebuild(context.Background()); err != nil {
			c.log.Error("post-reconnect rebuild failed", utils.Err(err))
		}
	}()
}

// ============================================================
// Секции перестройки
// ============================================================

func (c *Coordinator) rebuildBalances(ctx context.Context) error {
	raw, err := c.client.GetBalances(ctx)
	if err != nil {
		return err
	}

	balances := make([]models.AssetBalance, 0, len(raw))
	for _, b := range raw {
		balances = append(balances, models.AssetBalance{
			Asset:  b.Asset,
			Free:   b.Free,
			Locked: b.Locked,
		})
	}
	c.store.ReplaceBalances(balances)
	return nil
}

func (c *Coordinator) rebuildPositions(ctx context.Context) error {
	raw, err := c.client.GetPositions(ctx)
	if err != nil {
		return err
	}

	positions := make([]models.Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, models.Position{
			Symbol:        p.Symbol,
			Quantity:      p.SignedQty(),
			EntryPrice:    p.EntryPrice,
			UnrealizedPnl: p.UnrealizedPnl,
		})
	}
	c.store.ReplacePositions(positions)
	return nil
}

func (c *Coordinator) rebuildOrders(ctx context.Context) error {
	raw, err := c.client.GetOpenOrders(ctx)
	if err != nil {
		return err
	}

	orders := make([]models.OpenOrder, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, models.OpenOrder{
			OrderID:   o.ID,
			Symbol:    o.Symbol,
			Side:      o.Side,
			Type:      o.Type,
			Quantity:  o.Quantity,
			Price:     o.Price,
			CreatedAt: o.CreatedAt,
		})
	}
	c.store.ReplaceOpenOrders(orders)
	return nil
}
