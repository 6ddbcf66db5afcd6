package engine

import (
	"context"
	"time"

	"tradecore/internal/exchange"
	"tradecore/internal/models"
	"tradecore/pkg/retry"
	"tradecore/pkg/utils"
)

// Strategy - источник торговых намерений.
// Реализуется снаружи ядра; оркестратор не интерпретирует сигналы,
// только прогоняет их через риск-шлюз и исполняет.
type Strategy interface {
	Name() string
	OnMarketEvent(evt models.MarketEvent) []models.OrderIntent
}

// Orchestrator связывает стратегии, риск-шлюз, исполнение и пайплайн.
//
// Единственный путь намерения к бирже: каждое намерение проходит через
// шлюз, каждое отклонение записывается в аудит и метрики - молчаливых
// отбрасываний нет. Принятый биржей ордер немедленно регистрируется
// в пайплайне как открытый.
type Orchestrator struct {
	gate     *RiskGate
	pipeline *FillPipeline
	exec     exchange.ExecutionClient
	coord    *Coordinator
	audit    AuditSink
	log      *utils.Logger

	notifications chan *models.Notification
	strategies    []Strategy

	// Параметры повторов отправки ордера
	retryCfg retry.Config
}

// NewOrchestrator создаёт оркестратор. audit и notifications могут быть nil.
func NewOrchestrator(gate *RiskGate, pipeline *FillPipeline, exec exchange.ExecutionClient, coord *Coordinator, audit AuditSink, notifications chan *models.Notification, log *utils.Logger) *Orchestrator {
	if log == nil {
		log = utils.GetGlobalLogger()
	}
	return &Orchestrator{
		gate:          gate,
		pipeline:      pipeline,
		exec:          exec,
		coord:         coord,
		audit:         audit,
		notifications: notifications,
		retryCfg:      retry.AggressiveConfig(),
		log:           log.WithComponent("orchestrator"),
	}
}

// RegisterStrategy добавляет стратегию. Не потокобезопасно,
// вызывается до запуска обработки событий.
func (o *Orchestrator) RegisterStrategy(s Strategy) {
	o.strategies = append(o.strategies, s)
}

// OnMarketEvent раздаёт рыночное событие стратегиям и обрабатывает
// их намерения. Пока состояние недостоверно, намерения не порождаются.
func (o *Orchestrator) OnMarketEvent(ctx context.Context, evt models.MarketEvent) {
	if o.coord != nil && !o.coord.Ready() {
		o.log.Debug("market event dropped, account state not ready",
			utils.Symbol(evt.Symbol),
			utils.State(o.coord.State()))
		return
	}

	for _, strategy := range o.strategies {
		for _, intent := range strategy.OnMarketEvent(evt) {
			if intent.StrategyID == "" {
				intent.StrategyID = strategy.Name()
			}
			o.Submit(ctx, intent)
		}
	}
}

// Submit прогоняет намерение через риск-шлюз и исполняет его.
//
// Возвращает решение шлюза; err != nil только при отказе исполнения
// уже одобренного намерения.
func (o *Orchestrator) Submit(ctx context.Context, intent models.OrderIntent) (models.RiskDecision, error) {
	decision := o.gate.Check(intent)
	if !decision.Allowed {
		o.recordRejection(intent, decision)
		return decision, nil
	}

	orderType := models.OrderTypeLimit
	if intent.IsMarket() {
		orderType = models.OrderTypeMarket
	}

	var placed *exchange.Order
	err := retry.Do(ctx, func() error {
		var opErr error
		placed, opErr = o.exec.SubmitOrder(ctx, exchange.OrderRequest{
			Symbol:   intent.Symbol,
			Side:     intent.Side,
			Type:     orderType,
			Quantity: intent.Quantity,
			Price:    intent.Price,
		})
		return opErr
	}, o.retryCfg)

	if err != nil {
		o.log.Error("order submission failed",
			utils.Symbol(intent.Symbol),
			utils.Side(intent.Side),
			utils.Quantity(intent.Quantity),
			utils.StrategyID(intent.StrategyID),
			utils.Err(err))

		tryEnqueueNotification(o.notifications, &models.Notification{
			Timestamp: time.Now().UTC(),
			Type:      models.NotificationTypeError,
			Severity:  models.SeverityError,
			Symbol:    intent.Symbol,
			Message:   "order submission failed: " + err.Error(),
		})
		return decision, err
	}

	o.pipeline.OnOrderAccepted(models.OrderAccepted{
		OrderID:    placed.ID,
		Symbol:     placed.Symbol,
		Side:       placed.Side,
		OrderType:  placed.Type,
		Quantity:   placed.Quantity,
		Price:      placed.Price,
		AcceptedAt: placed.CreatedAt,
	})

	return decision, nil
}

// recordRejection фиксирует отклонение во всех каналах наблюдаемости
func (o *Orchestrator) recordRejection(intent models.OrderIntent, decision models.RiskDecision) {
	if o.audit != nil {
		if err := o.audit.RecordRejection(intent, decision); err != nil {
			o.log.Error("audit write failed", utils.Symbol(intent.Symbol), utils.Err(err))
		}
	}

	tryEnqueueNotification(o.notifications, &models.Notification{
		Timestamp: time.Now().UTC(),
		Type:      models.NotificationTypeReject,
		Severity:  models.SeverityWarn,
		Symbol:    intent.Symbol,
		Message:   decision.Code + ": " + decision.Message,
		Meta: map[string]interface{}{
			"strategy_id": intent.StrategyID,
			"current":     decision.Operands.Current,
			"requested":   decision.Operands.Requested,
			"limit":       decision.Operands.Limit,
		},
	})
}
