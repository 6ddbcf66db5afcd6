package engine

import (
	"sync"
	"time"

	"tradecore/internal/models"
	"tradecore/pkg/utils"
)

// AuditSink - необязательный приёмник журнала событий исполнения.
// Реализуется репозиторием поверх PostgreSQL; nil отключает аудит.
type AuditSink interface {
	RecordAccepted(evt models.OrderAccepted) error
	RecordFill(fill models.ExecutionFill) error
	RecordCancel(evt models.OrderCanceled) error
	RecordExpired(evt models.ExpiredOrder) error
	RecordRejection(intent models.OrderIntent, decision models.RiskDecision) error
}

// Параметры дедупликации филлов по trade_id.
// Память под дедуп ограничена: записи старше TTL вычищаются при вставке,
// при превышении жёсткого лимита вычищаются самые старые.
const (
	dedupTTL        = 24 * time.Hour
	dedupMaxEntries = 100_000
)

// FillPipeline - последовательное применение событий исполнения к состоянию.
//
// Единственный легитимный мутатор стора в ответ на события биржи.
// Каждое событие применяется атомарно; повторная доставка филла с тем же
// trade_id - тихий no-op.
type FillPipeline struct {
	store *AccountStore
	audit AuditSink
	log   *utils.Logger

	// Канал уведомлений (может быть nil)
	notifications chan *models.Notification

	// Котируемый актив для дебета/кредита стоимости (обычно USDT)
	quoteAsset string

	// Дедупликация по trade_id
	dedupMu sync.Mutex
	applied map[string]time.Time // trade_id → время применения

	// Подменяется в тестах
	now func() time.Time
}

// NewFillPipeline создаёт пайплайн применения событий.
// audit может быть nil - журнал отключён.
func NewFillPipeline(store *AccountStore, audit AuditSink, notifications chan *models.Notification, quoteAsset string, log *utils.Logger) *FillPipeline {
	if quoteAsset == "" {
		quoteAsset = "USDT"
	}
	if log == nil {
		log = utils.GetGlobalLogger()
	}
	return &FillPipeline{
		store:         store,
		audit:         audit,
		notifications: notifications,
		quoteAsset:    quoteAsset,
		applied:       make(map[string]time.Time),
		log:           log.WithComponent("fill_pipeline"),
		now:           time.Now,
	}
}

// ============================================================
// Обработчики событий
// ============================================================

// OnOrderAccepted регистрирует принятый биржей ордер как открытый
func (p *FillPipeline) OnOrderAccepted(evt models.OrderAccepted) {
	if evt.OrderID == "" || evt.Symbol == "" || evt.Quantity <= 0 {
		RecordMalformedEvent("accepted")
		p.log.Warn("malformed order accepted event skipped",
			utils.OrderID(evt.OrderID),
			utils.Symbol(evt.Symbol),
			utils.Quantity(evt.Quantity))
		return
	}

	p.store.AddOpenOrder(models.OpenOrder{
		OrderID:   evt.OrderID,
		Symbol:    evt.Symbol,
		Side:      evt.Side,
		Type:      evt.OrderType,
		Quantity:  evt.Quantity,
		Price:     evt.Price,
		CreatedAt: evt.AcceptedAt,
	})

	if p.audit != nil {
		if err := p.audit.RecordAccepted(evt); err != nil {
			p.log.Error("audit write failed", utils.OrderID(evt.OrderID), utils.Err(err))
		}
	}

	p.log.Info("order accepted",
		utils.OrderID(evt.OrderID),
		utils.Symbol(evt.Symbol),
		utils.Side(evt.Side),
		utils.Quantity(evt.Quantity),
		utils.Price(evt.Price))
}

// OnExecutionFill применяет отчёт об исполнении к состоянию аккаунта.
//
// Порядок применения:
//  1. дедупликация по trade_id (повтор - тихий no-op)
//  2. позиция: дельта со знаком стороны, средневзвешенная цена входа
//  3. баланс котируемого актива: дебет при покупке, кредит при продаже
//  4. комиссия: дебет актива комиссии
//  5. при fill_type == full открытый ордер удаляется; partial оставляет его
func (p *FillPipeline) OnExecutionFill(fill models.ExecutionFill) {
	if fill.TradeID == "" || fill.OrderID == "" || fill.FilledQuantity <= 0 || fill.FillPrice <= 0 {
		RecordMalformedEvent("fill")
		p.log.Warn("malformed fill event skipped",
			utils.TradeID(fill.TradeID),
			utils.OrderID(fill.OrderID),
			utils.Quantity(fill.FilledQuantity),
			utils.Price(fill.FillPrice))
		return
	}

	if !p.markApplied(fill.TradeID) {
		FillsDeduplicated.Inc()
		p.log.Debug("duplicate fill skipped", utils.TradeID(fill.TradeID), utils.OrderID(fill.OrderID))
		return
	}

	// Позиция
	signedQty := models.SignedQty(fill.Side, fill.FilledQuantity)
	p.store.UpdatePosition(fill.Symbol, signedQty, fill.FillPrice)

	// Баланс котируемого актива: покупка списывает стоимость, продажа зачисляет
	notional := fill.FilledQuantity * fill.FillPrice
	if fill.Side == models.SideBuy {
		p.store.AdjustBalance(p.quoteAsset, -notional, 0)
	} else {
		p.store.AdjustBalance(p.quoteAsset, notional, 0)
	}

	// Комиссия списывается с актива комиссии
	if fill.Commission > 0 {
		asset := fill.CommissionAsset
		if asset == "" {
			asset = p.quoteAsset
		}
		p.store.AdjustBalance(asset, -fill.Commission, 0)
	}

	// Полное исполнение терминально - ордер закрывается.
	// Частичное оставляет ордер открытым с исходным количеством.
	if fill.FillType == models.FillTypeFull {
		p.store.RemoveOpenOrder(fill.OrderID)
	}

	RecordFill(fill.Symbol, fill.FillType)

	if p.audit != nil {
		if err := p.audit.RecordFill(fill); err != nil {
			p.log.Error("audit write failed", utils.TradeID(fill.TradeID), utils.Err(err))
		}
	}

	tryEnqueueNotification(p.notifications, &models.Notification{
		Timestamp: p.now().UTC(),
		Type:      models.NotificationTypeFill,
		Severity:  models.SeverityInfo,
		Symbol:    fill.Symbol,
		OrderID:   fill.OrderID,
		Message:   "fill applied: " + fill.FillType,
		Meta: map[string]interface{}{
			"trade_id": fill.TradeID,
			"quantity": fill.FilledQuantity,
			"price":    fill.FillPrice,
		},
	})

	p.log.Info("fill applied",
		utils.TradeID(fill.TradeID),
		utils.OrderID(fill.OrderID),
		utils.Symbol(fill.Symbol),
		utils.Side(fill.Side),
		utils.Quantity(fill.FilledQuantity),
		utils.Price(fill.FillPrice),
		utils.String("fill_type", fill.FillType))
}

// OnOrderCanceled убирает отменённый ордер из открытых.
// Отмена терминальна и не трогает позиции: ранее применённые частичные
// исполнения остаются в силе.
func (p *FillPipeline) OnOrderCanceled(evt models.OrderCanceled) {
	if evt.OrderID == "" {
		RecordMalformedEvent("canceled")
		p.log.Warn("malformed cancel event skipped", utils.Symbol(evt.Symbol))
		return
	}

	_, existed := p.store.RemoveOpenOrder(evt.OrderID)

	if p.audit != nil {
		if err := p.audit.RecordCancel(evt); err != nil {
			p.log.Error("audit write failed", utils.OrderID(evt.OrderID), utils.Err(err))
		}
	}

	tryEnqueueNotification(p.notifications, &models.Notification{
		Timestamp: p.now().UTC(),
		Type:      models.NotificationTypeCancel,
		Severity:  models.SeverityInfo,
		Symbol:    evt.Symbol,
		OrderID:   evt.OrderID,
		Message:   "order canceled: " + evt.Reason,
	})

	p.log.Info("order canceled",
		utils.OrderID(evt.OrderID),
		utils.Symbol(evt.Symbol),
		utils.Reason(evt.Reason),
		utils.Bool("was_open", existed))
}

// ============================================================
// Дедупликация
// ============================================================

// markApplied атомарно проверяет и помечает trade_id.
// Возвращает false, если филл уже применялся.
func (p *FillPipeline) markApplied(tradeID string) bool {
	p.dedupMu.Lock()
	defer p.dedupMu.Unlock()

	now := p.now()

	if _, seen := p.applied[tradeID]; seen {
		return false
	}

	// Вычищаем протухшие записи; память под дедуп не растёт бесконечно
	if len(p.applied) >= dedupMaxEntries {
		p.pruneLocked(now)
	}

	p.applied[tradeID] = now
	return true
}

// pruneLocked удаляет записи старше TTL; если этого мало,
// жертвует самыми старыми. Вызывается под dedupMu.
func (p *FillPipeline) pruneLocked(now time.Time) {
	cutoff := now.Add(-dedupTTL)
	for id, ts := range p.applied {
		if ts.Before(cutoff) {
			delete(p.applied, id)
		}
	}

	// TTL не освободил место - удаляем самые старые записи
	for len(p.applied) >= dedupMaxEntries {
		var oldestID string
		var oldestTS time.Time
		for id, ts := range p.applied {
			if oldestID == "" || ts.Before(oldestTS) {
				oldestID, oldestTS = id, ts
			}
		}
		delete(p.applied, oldestID)
	}
}

// DedupSize возвращает текущий размер карты дедупликации (для мониторинга)
func (p *FillPipeline) DedupSize() int {
	p.dedupMu.Lock()
	defer p.dedupMu.Unlock()
	return len(p.applied)
}
