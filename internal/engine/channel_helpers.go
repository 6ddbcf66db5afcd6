package engine

import "tradecore/internal/models"

// tryEnqueueNotification отправляет уведомление в канал без блокировки.
// Переполненный буфер роняет уведомление и инкрементирует метрику.
// Возвращает true, если уведомление поставлено в очередь.
func tryEnqueueNotification(ch chan *models.Notification, notif *models.Notification) bool {
	if ch == nil || notif == nil {
		return false
	}

	select {
	case ch <- notif:
		return true
	default:
		RecordBufferOverflow("notification")
		return false
	}
}
