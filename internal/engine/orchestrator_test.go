package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradecore/internal/exchange"
	"tradecore/internal/models"
)

// fakeExecClient фиксирует отправленные ордера
type fakeExecClient struct {
	submitted []exchange.OrderRequest
	submitErr error
	calls     int
}

func (f *fakeExecClient) SubmitOrder(_ context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	f.calls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return &exchange.Order{
		ID:        "ex-1",
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Status:    exchange.OrderStatusNew,
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeExecClient) CancelOrder(context.Context, string, string) error { return nil }

// recordingAudit фиксирует записи аудита
type recordingAudit struct {
	accepted   []models.OrderAccepted
	rejections []models.RiskDecision
}

func (a *recordingAudit) RecordAccepted(evt models.OrderAccepted) error {
	a.accepted = append(a.accepted, evt)
	return nil
}
func (a *recordingAudit) RecordFill(models.ExecutionFill) error { return nil }
func (a *recordingAudit) RecordCancel(models.OrderCanceled) error {
	return nil
}
func (a *recordingAudit) RecordExpired(models.ExpiredOrder) error { return nil }
func (a *recordingAudit) RecordRejection(_ models.OrderIntent, d models.RiskDecision) error {
	a.rejections = append(a.rejections, d)
	return nil
}

// staticStrategy возвращает одно и то же намерение на каждое событие
type staticStrategy struct {
	name    string
	intents []models.OrderIntent
	events  int
}

func (s *staticStrategy) Name() string { return s.name }
func (s *staticStrategy) OnMarketEvent(models.MarketEvent) []models.OrderIntent {
	s.events++
	return s.intents
}

func newTestOrchestrator(cfg GateConfig, exec exchange.ExecutionClient) (*Orchestrator, *AccountStore, *recordingAudit, chan *models.Notification) {
	store := NewAccountStore()
	audit := &recordingAudit{}
	notifications := make(chan *models.Notification, 16)
	gate := NewRiskGate(cfg, store, nil, nil)
	pipeline := NewFillPipeline(store, audit, notifications, "USDT", nil)
	orch := NewOrchestrator(gate, pipeline, exec, nil, audit, notifications, nil)
	orch.retryCfg = fastRetry()
	return orch, store, audit, notifications
}

func TestOrchestrator_AcceptedIntentReachesExchange(t *testing.T) {
	exec := &fakeExecClient{}
	orch, store, audit, _ := newTestOrchestrator(permissiveGateConfig(), exec)

	decision, err := orch.Submit(context.Background(), buyIntent("BTCUSDT", 0.1, 50000))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("намерение отклонено: %+v", decision)
	}

	if len(exec.submitted) != 1 {
		t.Fatalf("отправлено %d ордеров", len(exec.submitted))
	}
	if exec.submitted[0].Type != models.OrderTypeLimit {
		t.Errorf("Type = %s", exec.submitted[0].Type)
	}

	// Принятый ордер немедленно зарегистрирован как открытый
	snap := store.Snapshot()
	if _, ok := snap.OpenOrders["ex-1"]; !ok {
		t.Error("принятый ордер не зарегистрирован в сторе")
	}
	if len(audit.accepted) != 1 {
		t.Errorf("записей аудита %d", len(audit.accepted))
	}
}

// Отклонение никогда не молчаливое: аудит, уведомление, ордер не отправлен
func TestOrchestrator_RejectionIsRecorded(t *testing.T) {
	cfg := permissiveGateConfig()
	cfg.TradingEnabled = false
	exec := &fakeExecClient{}
	orch, _, audit, notifications := newTestOrchestrator(cfg, exec)

	decision, err := orch.Submit(context.Background(), buyIntent("BTCUSDT", 0.1, 50000))
	if err != nil {
		t.Fatalf("отклонение не ошибка: %v", err)
	}
	if decision.Allowed {
		t.Fatal("ожидалось отклонение")
	}

	if exec.calls != 0 {
		t.Error("отклонённое намерение не должно достигать биржи")
	}
	if len(audit.rejections) != 1 || audit.rejections[0].Code != models.RejectTradingDisabled {
		t.Errorf("аудит отклонений: %+v", audit.rejections)
	}

	select {
	case n := <-notifications:
		if n.Type != models.NotificationTypeReject {
			t.Errorf("Type = %s", n.Type)
		}
	default:
		t.Error("уведомление об отклонении не отправлено")
	}
}

// Отказ биржи после одобрения: ошибка возвращается, ордер не регистрируется
func TestOrchestrator_SubmitFailure(t *testing.T) {
	exec := &fakeExecClient{submitErr: errors.New("exchange unavailable")}
	orch, store, _, _ := newTestOrchestrator(permissiveGateConfig(), exec)

	decision, err := orch.Submit(context.Background(), buyIntent("BTCUSDT", 0.1, 50000))
	if err == nil {
		t.Fatal("ожидалась ошибка исполнения")
	}
	if !decision.Allowed {
		t.Error("решение шлюза было одобряющим")
	}
	if exec.calls != 2 {
		t.Errorf("отправка повторена %d раз, ожидалось 2", exec.calls)
	}
	if store.Snapshot().OpenOrderCount("") != 0 {
		t.Error("неотправленный ордер не должен регистрироваться")
	}
}

func TestOrchestrator_MarketOrderType(t *testing.T) {
	exec := &fakeExecClient{}
	orch, _, _, _ := newTestOrchestrator(permissiveGateConfig(), exec)

	orch.Submit(context.Background(), buyIntent("BTCUSDT", 0.1, 0))

	if len(exec.submitted) != 1 || exec.submitted[0].Type != models.OrderTypeMarket {
		t.Errorf("намерение без цены должно отправляться рыночным: %+v", exec.submitted)
	}
}

// События не раздаются стратегиям, пока состояние недостоверно
func TestOrchestrator_DropsEventsUntilReady(t *testing.T) {
	exec := &fakeExecClient{}
	client := &fakeQueryClient{balances: []exchange.Balance{{Asset: "USDT", Free: 10000}}}
	coord, store := newTestCoordinator(client)

	gate := NewRiskGate(permissiveGateConfig(), store, nil, nil)
	pipeline := NewFillPipeline(store, nil, nil, "USDT", nil)
	orch := NewOrchestrator(gate, pipeline, exec, coord, nil, nil, nil)
	orch.retryCfg = fastRetry()

	strategy := &staticStrategy{
		name:    "momentum",
		intents: []models.OrderIntent{buyIntent("BTCUSDT", 0.1, 50000)},
	}
	orch.RegisterStrategy(strategy)

	evt := models.MarketEvent{Symbol: "BTCUSDT", LastPrice: 50000, Timestamp: time.Now()}

	orch.OnMarketEvent(context.Background(), evt)
	if strategy.events != 0 {
		t.Error("до READY события не должны доходить до стратегий")
	}

	if _, err := coord.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	orch.OnMarketEvent(context.Background(), evt)
	if strategy.events != 1 {
		t.Errorf("после READY событие должно дойти до стратегии, дошло %d", strategy.events)
	}
	if len(exec.submitted) != 1 {
		t.Errorf("намерение стратегии должно быть исполнено, отправлено %d", len(exec.submitted))
	}
}

// StrategyID проставляется именем стратегии, если пуст
func TestOrchestrator_FillsStrategyID(t *testing.T) {
	exec := &fakeExecClient{}
	orch, _, audit, _ := newTestOrchestrator(permissiveGateConfig(), exec)

	intent := buyIntent("BTCUSDT", 0.1, 50000)
	intent.StrategyID = ""
	strategy := &staticStrategy{name: "grid", intents: []models.OrderIntent{intent}}
	orch.RegisterStrategy(strategy)

	orch.OnMarketEvent(context.Background(), models.MarketEvent{Symbol: "BTCUSDT"})

	if len(audit.accepted) != 1 {
		t.Fatalf("записей аудита %d", len(audit.accepted))
	}
	if len(exec.submitted) != 1 {
		t.Fatalf("отправлено %d", len(exec.submitted))
	}
}
