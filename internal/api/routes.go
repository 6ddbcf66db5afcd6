// Package api собирает операторский HTTP API торгового ядра.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradecore/internal/api/handlers"
	"tradecore/internal/api/middleware"
	"tradecore/internal/engine"
)

// Dependencies содержит зависимости для настройки маршрутов
type Dependencies struct {
	Coordinator *engine.Coordinator
	Gate        *engine.RiskGate

	// Опциональные источники: при nil соответствующие endpoints
	// не регистрируются (ядро может работать без Postgres)
	Events        handlers.OrderEventSource
	Notifications handlers.NotificationSource

	// Оркестратор для ручных намерений (nil отключает POST /orders)
	Orders handlers.OrderSubmitter

	// bcrypt-хеш операторского токена для Auth middleware
	OpsTokenHash string
}

// SetupRoutes настраивает все маршруты операторского API
//
// Структура:
// - /health - проверка живости (без аутентификации)
// - /metrics - Prometheus метрики (без аутентификации)
// - /api/v1/* - операторские endpoints за bearer-аутентификацией
func SetupRoutes(deps Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware: порядок важен - Recovery внешний,
	// чтобы паника в Logging тоже перехватывалась
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Операторские endpoints за аутентификацией
	apiV1 := router.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(middleware.Auth(deps.OpsTokenHash))

	if deps.Coordinator != nil {
		snapshotHandler := handlers.NewSnapshotHandler(deps.Coordinator)
		apiV1.HandleFunc("/snapshot", snapshotHandler.GetSnapshot).Methods(http.MethodGet)
		apiV1.HandleFunc("/state", snapshotHandler.GetState).Methods(http.MethodGet)
		apiV1.HandleFunc("/reconcile", snapshotHandler.Reconcile).Methods(http.MethodPost)
	}

	if deps.Gate != nil {
		limitsHandler := handlers.NewLimitsHandler(deps.Gate)
		apiV1.HandleFunc("/limits", limitsHandler.GetLimits).Methods(http.MethodGet)
	}

	if deps.Events != nil {
		eventsHandler := handlers.NewEventsHandler(deps.Events)
		apiV1.HandleFunc("/events", eventsHandler.GetEvents).Methods(http.MethodGet)
		apiV1.HandleFunc("/events/{order_id}", eventsHandler.GetOrderEvents).Methods(http.MethodGet)
		apiV1.HandleFunc("/rejections", eventsHandler.GetRejections).Methods(http.MethodGet)
	}

	if deps.Orders != nil {
		ordersHandler := handlers.NewOrdersHandler(deps.Orders)
		apiV1.HandleFunc("/orders", ordersHandler.SubmitOrder).Methods(http.MethodPost)
	}

	if deps.Notifications != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
		apiV1.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods(http.MethodGet)
		apiV1.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods(http.MethodDelete)
	}

	return router
}
