package handlers

import (
	"net/http"

	"tradecore/internal/engine"
	"tradecore/internal/models"
)

// SnapshotHandler отдаёт состояние аккаунта и управляет ресинхронизацией
//
// Endpoints:
// - GET /api/v1/snapshot - консистентный снимок балансов, позиций и ордеров
// - GET /api/v1/state - текущее состояние координатора
// - POST /api/v1/reconcile - принудительная ресинхронизация с биржей
type SnapshotHandler struct {
	coordinator *engine.Coordinator
}

// NewSnapshotHandler создает новый SnapshotHandler
func NewSnapshotHandler(coordinator *engine.Coordinator) *SnapshotHandler {
	return &SnapshotHandler{coordinator: coordinator}
}

// SnapshotResponse представляет снимок аккаунта в API
type SnapshotResponse struct {
	State    string                  `json:"state"`
	Snapshot *models.AccountSnapshot `json:"snapshot"`
}

// GetSnapshot возвращает консистентный снимок состояния аккаунта
//
// GET /api/v1/snapshot
//
// HTTP коды:
// - 200 OK: снимок возвращён
// - 503 Service Unavailable: координатор ещё не в состоянии READY
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	state := h.coordinator.State()
	if state != engine.StateReady {
		respondWithError(w, http.StatusServiceUnavailable,
			"account state is not ready: "+state)
		return
	}

	respondWithJSON(w, http.StatusOK, SnapshotResponse{
		State:    state,
		Snapshot: h.coordinator.GetSnapshot(),
	})
}

// StateResponse представляет состояние координатора
type StateResponse struct {
	State       string `json:"state"`
	Description string `json:"description"`
}

// GetState возвращает текущее состояние координатора ресинхронизации
//
// GET /api/v1/state
func (h *SnapshotHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state := h.coordinator.State()
	respondWithJSON(w, http.StatusOK, StateResponse{
		State:       state,
		Description: engine.StateInfo(state),
	})
}

// ReconcileResponse представляет результат принудительной ресинхронизации
type ReconcileResponse struct {
	Outcome   string   `json:"outcome"`
	Balances  bool     `json:"balances_ok"`
	Positions bool     `json:"positions_ok"`
	Orders    bool     `json:"orders_ok"`
	Errors    []string `json:"errors,omitempty"`
}

// Reconcile запускает принудительную ресинхронизацию состояния с биржей
//
// POST /api/v1/reconcile
//
// Блокирует до завершения перестройки. Параллельный вызов дождётся
// окончания текущей перестройки.
//
// HTTP коды:
// - 200 OK: ресинхронизация завершена (возможно частично)
// - 502 Bad Gateway: все секции недоступны, состояние не перестроено
func (h *SnapshotHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.coordinator.Rebuild(r.Context())
	if result == nil {
		respondWithError(w, http.StatusConflict, "reconcile unavailable: "+err.Error())
		return
	}

	resp := ReconcileResponse{
		Outcome:   result.Outcome(),
		Balances:  result.BalancesOK,
		Positions: result.PositionsOK,
		Orders:    result.OrdersOK,
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}

	if err != nil {
		respondWithJSON(w, http.StatusBadGateway, resp)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}
