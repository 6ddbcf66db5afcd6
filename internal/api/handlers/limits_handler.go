package handlers

import (
	"net/http"

	"tradecore/internal/engine"
)

// LimitsHandler отдаёт действующую конфигурацию риск-лимитов
//
// Endpoints:
// - GET /api/v1/limits - текущие лимиты риск-гейта
type LimitsHandler struct {
	gate *engine.RiskGate
}

// NewLimitsHandler создает новый LimitsHandler
func NewLimitsHandler(gate *engine.RiskGate) *LimitsHandler {
	return &LimitsHandler{gate: gate}
}

// LimitsResponse представляет риск-лимиты в API
type LimitsResponse struct {
	TradingEnabled        bool     `json:"trading_enabled"`
	SymbolWhitelist       []string `json:"symbol_whitelist,omitempty"`
	MinOrderQty           float64  `json:"min_order_qty"`
	MaxOrderQty           float64  `json:"max_order_qty"`
	MaxOrderNotional      float64  `json:"max_order_notional"`
	MaxBalanceUsageRatio  float64  `json:"max_balance_usage_ratio"`
	QuoteAsset            string   `json:"quote_asset"`
	MaxPositionPerSymbol  float64  `json:"max_position_per_symbol"`
	MaxOpenOrdersSymbol   int      `json:"max_open_orders_per_symbol"`
	MaxOpenOrdersTotal    int      `json:"max_open_orders_total"`
	MaxTotalExposure      float64  `json:"max_total_exposure"`
	MaxMarketNotional     float64  `json:"max_market_order_notional"`
	MarketEstimatePrice   float64  `json:"market_estimate_price"`
	MinOrderSpacingMillis int64    `json:"min_order_spacing_ms"`
}

// GetLimits возвращает действующие риск-лимиты
//
// GET /api/v1/limits
//
// Лимиты задаются конфигурацией при старте и не меняются на лету -
// endpoint нужен операторам для сверки того, с чем реально работает ядро.
func (h *LimitsHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	cfg := h.gate.Config()

	respondWithJSON(w, http.StatusOK, LimitsResponse{
		TradingEnabled:        cfg.TradingEnabled,
		SymbolWhitelist:       cfg.SymbolWhitelist,
		MinOrderQty:           cfg.MinOrderQty,
		MaxOrderQty:           cfg.MaxOrderQty,
		MaxOrderNotional:      cfg.MaxOrderNotional,
		MaxBalanceUsageRatio:  cfg.MaxBalanceUsageRatio,
		QuoteAsset:            cfg.QuoteAsset,
		MaxPositionPerSymbol:  cfg.MaxPositionPerSymbol,
		MaxOpenOrdersSymbol:   cfg.MaxOpenOrdersPerSymbol,
		MaxOpenOrdersTotal:    cfg.MaxOpenOrdersTotal,
		MaxTotalExposure:      cfg.MaxTotalExposure,
		MaxMarketNotional:     cfg.MaxMarketOrderNotional,
		MarketEstimatePrice:   cfg.MarketEstimatePrice,
		MinOrderSpacingMillis: cfg.MinOrderSpacing.Milliseconds(),
	})
}
