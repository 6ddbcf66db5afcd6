package engine

import (
	"testing"
	"time"

	"tradecore/internal/models"
)

func newTestSweeper(ttl time.Duration) (*TimeoutSweeper, *AccountStore) {
	store := NewAccountStore()
	sweeper := NewTimeoutSweeper(SweeperConfig{OrderTTL: ttl, Interval: time.Second}, store, nil, nil, nil)
	return sweeper, store
}

func openOrderAt(id string, createdAt time.Time) models.OpenOrder {
	return models.OpenOrder{
		OrderID:   id,
		Symbol:    "BTCUSDT",
		Side:      models.SideBuy,
		Type:      models.OrderTypeLimit,
		Quantity:  0.1,
		Price:     50000,
		CreatedAt: createdAt,
	}
}

func TestSweeper_EvictsOnlyStale(t *testing.T) {
	sweeper, store := newTestSweeper(time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return base }

	store.AddOpenOrder(openOrderAt("fresh", base.Add(-30*time.Second)))
	store.AddOpenOrder(openOrderAt("stale", base.Add(-2*time.Minute)))

	if n := sweeper.SweepOnce(); n != 1 {
		t.Fatalf("выселено %d, ожидался 1", n)
	}

	snap := store.Snapshot()
	if _, ok := snap.OpenOrders["fresh"]; !ok {
		t.Error("свежий ордер не должен выселяться")
	}
	if _, ok := snap.OpenOrders["stale"]; ok {
		t.Error("просроченный ордер должен быть выселен")
	}
}

// Граница строгая: возраст ровно TTL не считается просроченным
func TestSweeper_ExactTTLNotExpired(t *testing.T) {
	sweeper, store := newTestSweeper(time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return base }

	store.AddOpenOrder(openOrderAt("boundary", base.Add(-time.Minute)))

	if n := sweeper.SweepOnce(); n != 0 {
		t.Errorf("ордер с возрастом ровно TTL выселен, выселено %d", n)
	}

	// На наносекунду старше - выселяется
	store.AddOpenOrder(openOrderAt("over", base.Add(-time.Minute-time.Nanosecond)))
	if n := sweeper.SweepOnce(); n != 1 {
		t.Errorf("ордер старше TTL не выселен, выселено %d", n)
	}
}

func TestSweeper_DisabledByZeroTTL(t *testing.T) {
	sweeper, store := newTestSweeper(0)

	if sweeper.Enabled() {
		t.Error("нулевой TTL должен отключать sweeper")
	}

	base := time.Now()
	store.AddOpenOrder(openOrderAt("ancient", base.Add(-24*time.Hour)))

	if n := sweeper.SweepOnce(); n != 0 {
		t.Errorf("выключенный sweeper выселил %d ордеров", n)
	}
	if store.Snapshot().OpenOrderCount("") != 1 {
		t.Error("ордер не должен быть тронут")
	}
}

// Выселение не трогает позиции и балансы
func TestSweeper_DoesNotTouchPositionsOrBalances(t *testing.T) {
	sweeper, store := newTestSweeper(time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return base }

	store.SetBalance("USDT", 10000, 0)
	store.UpdatePosition("BTCUSDT", 0.4, 48000)
	store.AddOpenOrder(openOrderAt("stale", base.Add(-2*time.Minute)))

	sweeper.SweepOnce()

	snap := store.Snapshot()
	if snap.FreeBalance("USDT") != 10000 {
		t.Errorf("баланс изменён: %v", snap.FreeBalance("USDT"))
	}
	if !floatEquals(snap.PositionQty("BTCUSDT"), 0.4) {
		t.Errorf("позиция изменена: %v", snap.PositionQty("BTCUSDT"))
	}
}

// Каждое выселение репортится ровно один раз
func TestSweeper_ReportsEachEvictionOnce(t *testing.T) {
	sweeper, store := newTestSweeper(time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return base }

	var reported []models.ExpiredOrder
	sweeper.OnExpired = func(e models.ExpiredOrder) { reported = append(reported, e) }

	store.AddOpenOrder(openOrderAt("s1", base.Add(-2*time.Minute)))
	store.AddOpenOrder(openOrderAt("s2", base.Add(-3*time.Minute)))

	sweeper.SweepOnce()
	sweeper.SweepOnce() // повторный обход пустого множества

	if len(reported) != 2 {
		t.Fatalf("репортов %d, ожидалось 2", len(reported))
	}
	for _, e := range reported {
		if e.Symbol != "BTCUSDT" || !e.ExpiredAt.Equal(base) {
			t.Errorf("некорректная запись о выселении: %+v", e)
		}
	}
}

func TestSweeper_ExpiredNotification(t *testing.T) {
	store := NewAccountStore()
	notifications := make(chan *models.Notification, 4)
	sweeper := NewTimeoutSweeper(SweeperConfig{OrderTTL: time.Minute, Interval: time.Second}, store, nil, notifications, nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return base }

	store.AddOpenOrder(openOrderAt("stale", base.Add(-5*time.Minute)))
	sweeper.SweepOnce()

	select {
	case n := <-notifications:
		if n.Type != models.NotificationTypeExpired || n.OrderID != "stale" {
			t.Errorf("некорректное уведомление: %+v", n)
		}
		if n.Severity != models.SeverityWarn {
			t.Errorf("Severity = %s", n.Severity)
		}
	default:
		t.Fatal("уведомление о выселении не отправлено")
	}
}
