package models

// Коды отклонения риск-проверок
const (
	RejectInvalidIntent    = "INVALID_INTENT"     // некорректное намерение (qty <= 0 и т.п.)
	RejectTradingDisabled  = "TRADING_DISABLED"   // торговля выключена глобально
	RejectSymbolNotAllowed = "SYMBOL_NOT_ALLOWED" // символ пуст или не в whitelist
	RejectQtyBelowMin      = "QTY_BELOW_MIN"
	RejectQtyAboveMax      = "QTY_ABOVE_MAX"
	RejectOrderNotional    = "ORDER_NOTIONAL"     // превышен лимит стоимости ордера
	RejectBalanceUsage     = "BALANCE_USAGE"      // превышена доля используемого баланса
	RejectPositionLimit    = "POSITION_LIMIT"     // превышен лимит позиции по символу
	RejectOpenOrdersSymbol = "OPEN_ORDERS_SYMBOL" // превышен лимит ордеров по символу
	RejectOpenOrdersTotal  = "OPEN_ORDERS_TOTAL"  // превышен глобальный лимит ордеров
	RejectExposureLimit    = "EXPOSURE_LIMIT"     // превышен глобальный лимит exposure
	RejectMarketEstimate   = "MARKET_ESTIMATE"    // рыночный ордер превышает оценочный лимит
	RejectOrderSpacing     = "ORDER_SPACING"      // не выдержан интервал между ордерами
)

// Operands - значения, участвовавшие в отклонённой проверке.
// Каждое отклонение несёт current/requested/limit для аудита.
type Operands struct {
	Current   float64 `json:"current"`
	Requested float64 `json:"requested"`
	Limit     float64 `json:"limit"`
}

// RiskDecision - результат риск-проверки: Pass или Reject с кодом и операндами.
// Никогда не голый bool.
type RiskDecision struct {
	Allowed  bool     `json:"allowed"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message,omitempty"`
	Operands Operands `json:"operands,omitempty"`
}

// Pass возвращает разрешающее решение
func Pass() RiskDecision {
	return RiskDecision{Allowed: true}
}

// Reject возвращает отклоняющее решение с кодом, сообщением и операндами
func Reject(code, message string, current, requested, limit float64) RiskDecision {
	return RiskDecision{
		Allowed: false,
		Code:    code,
		Message: message,
		Operands: Operands{
			Current:   current,
			Requested: requested,
			Limit:     limit,
		},
	}
}
