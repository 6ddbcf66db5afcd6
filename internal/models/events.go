package models

import "time"

// Стороны ордера
const (
	SideBuy  = "buy"  // покупка
	SideSell = "sell" // продажа
)

// Типы ордеров
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// Типы исполнения
const (
	FillTypePartial = "partial" // частичное исполнение
	FillTypeFull    = "full"    // полное исполнение (терминальное)
)

// SignedQty возвращает количество со знаком стороны:
// покупка положительная, продажа отрицательная.
func SignedQty(side string, qty float64) float64 {
	if side == SideSell {
		return -qty
	}
	return qty
}

// OrderAccepted - биржа приняла ордер, он считается открытым
type OrderAccepted struct {
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	OrderType  string    `json:"order_type"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price,omitempty"` // 0 для рыночных
	AcceptedAt time.Time `json:"accepted_at"`
}

// ExecutionFill - отчёт биржи об исполнении (частичном или полном)
//
// TradeID - ключ идемпотентности одного уведомления о сделке: повторная
// доставка того же TradeID должна быть no-op. Событие создаётся один раз
// и не мутируется после создания.
type ExecutionFill struct {
	OrderID            string    `json:"order_id"`
	TradeID            string    `json:"trade_id"`
	Symbol             string    `json:"symbol"`
	Side               string    `json:"side"`
	FillType           string    `json:"fill_type"`           // partial | full
	FilledQuantity     float64   `json:"filled_quantity"`     // этот инкремент
	FillPrice          float64   `json:"fill_price"`
	CumulativeQuantity float64   `json:"cumulative_quantity"` // всего исполнено по ордеру
	OriginalQuantity   float64   `json:"original_quantity"`
	Commission         float64   `json:"commission"`
	CommissionAsset    string    `json:"commission_asset"`
	FillTime           time.Time `json:"fill_time"`
}

// OrderCanceled - терминальное событие: ордер снят с биржи.
// Удаляет открытый ордер независимо от предыдущих частичных исполнений.
type OrderCanceled struct {
	OrderID          string    `json:"order_id"`
	Symbol           string    `json:"symbol"`
	Side             string    `json:"side"`
	OriginalQuantity float64   `json:"original_quantity"`
	FilledQuantity   float64   `json:"filled_quantity"` // исполнено на момент отмены
	Reason           string    `json:"reason"`
	CanceledAt       time.Time `json:"canceled_at"`
}

// MarketEvent - рыночное обновление, подаваемое стратегиям
type MarketEvent struct {
	Symbol    string    `json:"symbol"`
	BidPrice  float64   `json:"bid_price"`
	AskPrice  float64   `json:"ask_price"`
	LastPrice float64   `json:"last_price"`
	Timestamp time.Time `json:"timestamp"`
}

// ExpiredOrder - запись о принудительно выселенном ордере (TTL sweeper)
type ExpiredOrder struct {
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Quantity  float64   `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiredAt time.Time `json:"expired_at"`
}
