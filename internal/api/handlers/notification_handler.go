package handlers

import (
	"net/http"
	"strings"
	"time"

	"tradecore/internal/models"
)

// NotificationSource - срез журнала уведомлений, нужный API
type NotificationSource interface {
	GetRecent(limit int) ([]models.Notification, error)
	GetByTypes(types []string, limit int) ([]models.Notification, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// NotificationHandler отвечает за журнал уведомлений торгового ядра
//
// Endpoints:
// - GET /api/v1/notifications - последние уведомления
// - GET /api/v1/notifications?types=REJECT,ERROR - с фильтрацией по типам
// - DELETE /api/v1/notifications - очистка журнала
type NotificationHandler struct {
	notifications NotificationSource
}

// NewNotificationHandler создает новый NotificationHandler
func NewNotificationHandler(notifications NotificationSource) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int                   `json:"total"`
}

// GetNotifications возвращает список уведомлений с фильтрацией
//
// GET /api/v1/notifications
//
// Query параметры:
// - types (string): фильтр по типам через запятую (REJECT,FILL,CANCEL,EXPIRED,RECONCILE,RECONNECT,ERROR)
// - limit (int): количество записей (по умолчанию 100, максимум 500)
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100, 500)

	var types []string
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				types = append(types, strings.ToUpper(trimmed))
			}
		}
	}

	var (
		notifications []models.Notification
		err           error
	)
	if len(types) > 0 {
		notifications, err = h.notifications.GetByTypes(types, limit)
	} else {
		notifications, err = h.notifications.GetRecent(limit)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get notifications: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: notifications,
		Total:         len(notifications),
	})
}

// ClearNotificationsResponse представляет ответ очистки уведомлений
type ClearNotificationsResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// ClearNotifications очищает журнал уведомлений
//
// DELETE /api/v1/notifications
//
// Удаляет все накопленные уведомления. Действие необратимо.
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.notifications.DeleteOlderThan(time.Now())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to clear notifications: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, ClearNotificationsResponse{
		Message: "Notifications cleared successfully",
		Deleted: deleted,
	})
}
