package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"tradecore/internal/models"
)

// NotificationRepository - работа с таблицей notifications.
// Хранит уведомления, выкачанные из канала ядра, для истории в ops API.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create сохраняет уведомление
func (r *NotificationRepository) Create(n *models.Notification) error {
	var metaJSON []byte
	if n.Meta != nil {
		var err error
		metaJSON, err = json.Marshal(n.Meta)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO notifications (timestamp, type, severity, symbol, order_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	return r.db.QueryRow(query,
		n.Timestamp,
		n.Type,
		n.Severity,
		n.Symbol,
		n.OrderID,
		n.Message,
		metaJSON,
	).Scan(&n.ID)
}

// GetRecent возвращает последние limit уведомлений
func (r *NotificationRepository) GetRecent(limit int) ([]models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, symbol, order_id, message, meta
		FROM notifications
		ORDER BY timestamp DESC, id DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var metaJSON []byte
		if err := rows.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &n.Symbol, &n.OrderID, &n.Message, &metaJSON); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &n.Meta); err != nil {
				return nil, err
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// GetByTypes возвращает последние уведомления заданных типов
func (r *NotificationRepository) GetByTypes(types []string, limit int) ([]models.Notification, error) {
	if len(types) == 0 {
		return r.GetRecent(limit)
	}

	typesJSON, err := json.Marshal(types)
	if err != nil {
		return nil, err
	}

	// jsonb-массив вместо динамического IN: один placeholder при любом
	// количестве типов
	query := `
		SELECT id, timestamp, type, severity, symbol, order_id, message, meta
		FROM notifications
		WHERE type = ANY(SELECT jsonb_array_elements_text($1::jsonb))
		ORDER BY timestamp DESC, id DESC
		LIMIT $2`

	rows, err := r.db.Query(query, typesJSON, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var metaJSON []byte
		if err := rows.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &n.Symbol, &n.OrderID, &n.Message, &metaJSON); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &n.Meta); err != nil {
				return nil, err
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// DeleteOlderThan удаляет уведомления старше отсечки
func (r *NotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
