package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"tradecore/internal/models"
)

// Типы записей журнала исполнения
const (
	EventAccepted  = "accepted"
	EventFill      = "fill"
	EventCancel    = "cancel"
	EventExpired   = "expired"
	EventRejection = "rejection"
)

// Ошибки репозитория журнала
var (
	ErrEventNotFound = errors.New("order event not found")
)

// OrderEvent - одна запись журнала исполнения
type OrderEvent struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	OrderID   string          `json:"order_id,omitempty"`
	TradeID   string          `json:"trade_id,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	Side      string          `json:"side,omitempty"`
	Quantity  float64         `json:"quantity,omitempty"`
	Price     float64         `json:"price,omitempty"`
	Code      string          `json:"code,omitempty"` // код отклонения для rejection
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderEventRepository - журнал событий исполнения в таблице order_events.
// Реализует приёмник аудита ядра: каждая запись - одно событие,
// подробности события лежат в payload (JSONB).
type OrderEventRepository struct {
	db *sql.DB
}

// NewOrderEventRepository создает новый экземпляр репозитория
func NewOrderEventRepository(db *sql.DB) *OrderEventRepository {
	return &OrderEventRepository{db: db}
}

const insertEventQuery = `
	INSERT INTO order_events (event_type, order_id, trade_id, symbol, side, quantity, price, code, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (r *OrderEventRepository) insert(evt OrderEvent) error {
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(insertEventQuery,
		evt.EventType,
		evt.OrderID,
		evt.TradeID,
		evt.Symbol,
		evt.Side,
		evt.Quantity,
		evt.Price,
		evt.Code,
		evt.Payload,
		evt.CreatedAt,
	)
	return err
}

// RecordAccepted записывает принятие ордера биржей
func (r *OrderEventRepository) RecordAccepted(evt models.OrderAccepted) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return r.insert(OrderEvent{
		EventType: EventAccepted,
		OrderID:   evt.OrderID,
		Symbol:    evt.Symbol,
		Side:      evt.Side,
		Quantity:  evt.Quantity,
		Price:     evt.Price,
		Payload:   payload,
		CreatedAt: evt.AcceptedAt,
	})
}

// RecordFill записывает исполнение
func (r *OrderEventRepository) RecordFill(fill models.ExecutionFill) error {
	payload, err := json.Marshal(fill)
	if err != nil {
		return err
	}
	return r.insert(OrderEvent{
		EventType: EventFill,
		OrderID:   fill.OrderID,
		TradeID:   fill.TradeID,
		Symbol:    fill.Symbol,
		Side:      fill.Side,
		Quantity:  fill.FilledQuantity,
		Price:     fill.FillPrice,
		Payload:   payload,
		CreatedAt: fill.FillTime,
	})
}

// RecordCancel записывает отмену ордера
func (r *OrderEventRepository) RecordCancel(evt models.OrderCanceled) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return r.insert(OrderEvent{
		EventType: EventCancel,
		OrderID:   evt.OrderID,
		Symbol:    evt.Symbol,
		Side:      evt.Side,
		Quantity:  evt.OriginalQuantity,
		Payload:   payload,
		CreatedAt: evt.CanceledAt,
	})
}

// RecordExpired записывает выселение ордера по TTL
func (r *OrderEventRepository) RecordExpired(evt models.ExpiredOrder) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return r.insert(OrderEvent{
		EventType: EventExpired,
		OrderID:   evt.OrderID,
		Symbol:    evt.Symbol,
		Side:      evt.Side,
		Quantity:  evt.Quantity,
		Payload:   payload,
		CreatedAt: evt.ExpiredAt,
	})
}

// rejectionPayload - намерение вместе с решением для журнала
type rejectionPayload struct {
	Intent   models.OrderIntent  `json:"intent"`
	Decision models.RiskDecision `json:"decision"`
}

// RecordRejection записывает отклонение намерения риск-шлюзом
func (r *OrderEventRepository) RecordRejection(intent models.OrderIntent, decision models.RiskDecision) error {
	payload, err := json.Marshal(rejectionPayload{Intent: intent, Decision: decision})
	if err != nil {
		return err
	}
	return r.insert(OrderEvent{
		EventType: EventRejection,
		Symbol:    intent.Symbol,
		Side:      intent.Side,
		Quantity:  intent.Quantity,
		Price:     intent.Price,
		Code:      decision.Code,
		Payload:   payload,
	})
}

const selectEventColumns = `id, event_type, order_id, trade_id, symbol, side, quantity, price, code, payload, created_at`

func scanEvents(rows *sql.Rows) ([]OrderEvent, error) {
	defer rows.Close()

	var events []OrderEvent
	for rows.Next() {
		var evt OrderEvent
		if err := rows.Scan(
			&evt.ID,
			&evt.EventType,
			&evt.OrderID,
			&evt.TradeID,
			&evt.Symbol,
			&evt.Side,
			&evt.Quantity,
			&evt.Price,
			&evt.Code,
			&evt.Payload,
			&evt.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// GetRecent возвращает последние limit событий журнала
func (r *OrderEventRepository) GetRecent(limit int) ([]OrderEvent, error) {
	query := `
		SELECT ` + selectEventColumns + `
		FROM order_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// GetRecentRejections возвращает последние отклонения риск-шлюза
func (r *OrderEventRepository) GetRecentRejections(limit int) ([]OrderEvent, error) {
	query := `
		SELECT ` + selectEventColumns + `
		FROM order_events
		WHERE event_type = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.Query(query, EventRejection, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// GetByOrderID возвращает все события одного ордера в хронологическом порядке
func (r *OrderEventRepository) GetByOrderID(orderID string) ([]OrderEvent, error) {
	query := `
		SELECT ` + selectEventColumns + `
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// DeleteOlderThan удаляет события старше отсечки, возвращает количество удалённых
func (r *OrderEventRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM order_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
