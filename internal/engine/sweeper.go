package engine

import (
	"context"
	"sync"
	"time"

	"tradecore/internal/models"
	"tradecore/pkg/utils"
)

// SweeperConfig - параметры выселения зависших ордеров
type SweeperConfig struct {
	// TTL <= 0 отключает sweeper
	OrderTTL time.Duration

	// Период обхода открытых ордеров
	Interval time.Duration
}

// TimeoutSweeper периодически выселяет открытые ордера, чей возраст
// строго превысил TTL. Выселение локально: sweeper чистит внутреннее
// состояние, не отправляя отмену на биржу - ордер, живой на бирже,
// вернётся при следующей ресинхронизации.
//
// Гонка с терминальным событием по тому же ордеру безопасна: удаление
// атомарно, выселение репортится только если ордер ещё был открыт.
type TimeoutSweeper struct {
	cfg   SweeperConfig
	store *AccountStore
	audit AuditSink
	log   *utils.Logger

	notifications chan *models.Notification

	// Вызывается для каждого выселенного ордера (может быть nil)
	OnExpired func(expired models.ExpiredOrder)

	stopOnce sync.Once
	stopCh   chan struct{}

	// Подменяется в тестах
	now func() time.Time
}

// NewTimeoutSweeper создаёт sweeper. audit и notifications могут быть nil.
func NewTimeoutSweeper(cfg SweeperConfig, store *AccountStore, audit AuditSink, notifications chan *models.Notification, log *utils.Logger) *TimeoutSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if log == nil {
		log = utils.GetGlobalLogger()
	}
	return &TimeoutSweeper{
		cfg:           cfg,
		store:         store,
		audit:         audit,
		notifications: notifications,
		log:           log.WithComponent("timeout_sweeper"),
		stopCh:        make(chan struct{}),
		now:           time.Now,
	}
}

// Enabled сообщает, активен ли sweeper
func (s *TimeoutSweeper) Enabled() bool {
	return s.cfg.OrderTTL > 0
}

// Run запускает периодический обход до отмены контекста или Stop.
// При выключенном TTL возвращается сразу.
func (s *TimeoutSweeper) Run(ctx context.Context) {
	if !s.Enabled() {
		s.log.Info("order timeout sweeper disabled")
		return
	}

	s.log.Info("order timeout sweeper started",
		utils.String("ttl", s.cfg.OrderTTL.String()),
		utils.String("interval", s.cfg.Interval.String()))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("order timeout sweeper stopped", utils.Reason("context canceled"))
			return
		case <-s.stopCh:
			s.log.Info("order timeout sweeper stopped", utils.Reason("stop requested"))
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// Stop останавливает цикл Run. Повторный вызов безопасен.
func (s *TimeoutSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// SweepOnce делает один обход и возвращает количество выселенных ордеров.
//
// Возраст сравнивается строго: ордер с age == TTL ещё жив.
func (s *TimeoutSweeper) SweepOnce() int {
	if !s.Enabled() {
		return 0
	}

	now := s.now()
	snap := s.store.Snapshot()

	expired := 0
	for _, order := range snap.OpenOrders {
		if now.Sub(order.CreatedAt) <= s.cfg.OrderTTL {
			continue
		}

		// Терминальное событие могло убрать ордер между снимком и
		// удалением - репортим только реально выселенный
		removed, ok := s.store.RemoveOpenOrder(order.OrderID)
		if !ok {
			continue
		}
		expired++

		record := models.ExpiredOrder{
			OrderID:   removed.OrderID,
			Symbol:    removed.Symbol,
			Side:      removed.Side,
			Quantity:  removed.Quantity,
			CreatedAt: removed.CreatedAt,
			ExpiredAt: now,
		}

		OrdersExpired.WithLabelValues(removed.Symbol).Inc()

		if s.audit != nil {
			if err := s.audit.RecordExpired(record); err != nil {
				s.log.Error("audit write failed", utils.OrderID(removed.OrderID), utils.Err(err))
			}
		}

		tryEnqueueNotification(s.notifications, &models.Notification{
			Timestamp: now.UTC(),
			Type:      models.NotificationTypeExpired,
			Severity:  models.SeverityWarn,
			Symbol:    removed.Symbol,
			OrderID:   removed.OrderID,
			Message:   "order evicted by timeout sweeper",
			Meta: map[string]interface{}{
				"age_seconds": now.Sub(removed.CreatedAt).Seconds(),
				"ttl_seconds": s.cfg.OrderTTL.Seconds(),
			},
		})

		if s.OnExpired != nil {
			s.OnExpired(record)
		}

		s.log.Warn("stale order evicted",
			utils.OrderID(removed.OrderID),
			utils.Symbol(removed.Symbol),
			utils.Side(removed.Side),
			utils.Quantity(removed.Quantity),
			utils.Float64("age_seconds", now.Sub(removed.CreatedAt).Seconds()))
	}

	return expired
}
