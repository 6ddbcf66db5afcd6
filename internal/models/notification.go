package models

import "time"

// Notification представляет уведомление о событии торгового ядра
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`         // REJECT, FILL, CANCEL, EXPIRED, RECONCILE, RECONNECT, ERROR
	Severity  string                 `json:"severity" db:"severity"` // info, warn, error
	Symbol    string                 `json:"symbol,omitempty" db:"symbol"`
	OrderID   string                 `json:"order_id,omitempty" db:"order_id"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeReject    = "REJECT"    // отклонение риск-проверкой
	NotificationTypeFill      = "FILL"      // исполнение ордера
	NotificationTypeCancel    = "CANCEL"    // отмена ордера
	NotificationTypeExpired   = "EXPIRED"   // ордер выселен по TTL
	NotificationTypeReconcile = "RECONCILE" // ресинхронизация состояния
	NotificationTypeReconnect = "RECONNECT" // переподключение стрима
	NotificationTypeError     = "ERROR"     // ошибка инфраструктуры
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
