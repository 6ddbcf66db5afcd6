package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tradecore/internal/models"
)

// OrderSubmitter - срез оркестратора, нужный API
type OrderSubmitter interface {
	Submit(ctx context.Context, intent models.OrderIntent) (models.RiskDecision, error)
}

// OrdersHandler принимает ручные торговые намерения от оператора
//
// Endpoints:
// - POST /api/v1/orders - провести намерение через полный риск-путь
type OrdersHandler struct {
	submitter OrderSubmitter
}

// NewOrdersHandler создает новый OrdersHandler
func NewOrdersHandler(submitter OrderSubmitter) *OrdersHandler {
	return &OrdersHandler{submitter: submitter}
}

// SubmitOrderRequest представляет ручное торговое намерение
type SubmitOrderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price,omitempty"` // 0 = рыночный ордер
}

// SubmitOrderResponse представляет результат проведения намерения
type SubmitOrderResponse struct {
	Decision models.RiskDecision `json:"decision"`
}

// SubmitOrder проводит ручное намерение через риск-шлюз и отправляет
// на биржу при одобрении
//
// POST /api/v1/orders
//
// Ручное намерение проходит тот же путь, что и намерения стратегий:
// обходных дверей мимо риск-проверок нет.
//
// HTTP коды:
// - 200 OK: намерение одобрено и отправлено на биржу
// - 422 Unprocessable Entity: отклонено риск-шлюзом (решение в теле)
// - 502 Bad Gateway: одобрено, но биржа не приняла ордер
func (h *OrdersHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	intent := models.OrderIntent{
		StrategyID: "manual",
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Price:      req.Price,
		CreatedAt:  time.Now().UTC(),
	}

	decision, err := h.submitter.Submit(r.Context(), intent)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Order submission failed: "+err.Error())
		return
	}
	if !decision.Allowed {
		respondWithJSON(w, http.StatusUnprocessableEntity, SubmitOrderResponse{Decision: decision})
		return
	}

	respondWithJSON(w, http.StatusOK, SubmitOrderResponse{Decision: decision})
}
