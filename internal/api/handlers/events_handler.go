package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"tradecore/internal/repository"
)

// OrderEventSource - срез аудит-журнала, нужный API
type OrderEventSource interface {
	GetRecent(limit int) ([]repository.OrderEvent, error)
	GetRecentRejections(limit int) ([]repository.OrderEvent, error)
	GetByOrderID(orderID string) ([]repository.OrderEvent, error)
}

// EventsHandler отдаёт аудит-журнал событий жизненного цикла ордеров
//
// Endpoints:
// - GET /api/v1/events - последние события (accepted/filled/canceled/expired/rejected)
// - GET /api/v1/events/{order_id} - история конкретного ордера
// - GET /api/v1/rejections - последние отклонения риск-гейта
type EventsHandler struct {
	events OrderEventSource
}

// NewEventsHandler создает новый EventsHandler
func NewEventsHandler(events OrderEventSource) *EventsHandler {
	return &EventsHandler{events: events}
}

// EventsResponse представляет ответ журнала событий
type EventsResponse struct {
	Events []repository.OrderEvent `json:"events"`
	Total  int                     `json:"total"`
}

// GetEvents возвращает последние события журнала
//
// GET /api/v1/events
//
// Query параметры:
// - limit (int): количество записей (по умолчанию 100, максимум 500)
func (h *EventsHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100, 500)

	events, err := h.events.GetRecent(limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get events: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, EventsResponse{Events: events, Total: len(events)})
}

// GetRejections возвращает последние отклонения риск-гейта
//
// GET /api/v1/rejections
//
// Каждая запись содержит код причины и полный payload с намерением и
// операндами проверки - достаточно, чтобы воспроизвести решение.
func (h *EventsHandler) GetRejections(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100, 500)

	events, err := h.events.GetRecentRejections(limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get rejections: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, EventsResponse{Events: events, Total: len(events)})
}

// GetOrderEvents возвращает историю событий одного ордера
//
// GET /api/v1/events/{order_id}
//
// HTTP коды:
// - 200 OK: события найдены
// - 404 Not Found: по ордеру нет ни одной записи
func (h *EventsHandler) GetOrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]

	events, err := h.events.GetByOrderID(orderID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get order events: "+err.Error())
		return
	}
	if len(events) == 0 {
		respondWithError(w, http.StatusNotFound, "No events for order "+orderID)
		return
	}

	respondWithJSON(w, http.StatusOK, EventsResponse{Events: events, Total: len(events)})
}
