package exchange

import (
	"context"
	"time"
)

// QueryClient - REST-доступ к текущему состоянию аккаунта на бирже.
// Используется координатором для перестройки локального снимка.
type QueryClient interface {
	// GetBalances получает балансы спотового аккаунта
	GetBalances(ctx context.Context) ([]Balance, error)

	// GetPositions получает открытые фьючерсные позиции
	GetPositions(ctx context.Context) ([]Position, error)

	// GetOpenOrders получает активные ордера по всем символам
	GetOpenOrders(ctx context.Context) ([]Order, error)
}

// ExecutionClient - отправка ордеров на биржу
type ExecutionClient interface {
	// SubmitOrder размещает ордер и возвращает его биржевой идентификатор
	SubmitOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// CancelOrder снимает ордер с биржи
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// Client объединяет запросы состояния и исполнение
type Client interface {
	QueryClient
	ExecutionClient

	// GetName возвращает имя биржи
	GetName() string

	// Close закрывает соединения с биржей
	Close() error
}

// Balance - баланс одного актива на бирже
type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

// Position - открытая позиция на бирже
type Position struct {
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"` // "long" или "short"
	Size          float64   `json:"size"` // всегда положительный
	EntryPrice    float64   `json:"entry_price"`
	MarkPrice     float64   `json:"mark_price"`
	UnrealizedPnl float64   `json:"unrealized_pnl"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SignedQty возвращает размер позиции со знаком направления
func (p Position) SignedQty() float64 {
	if p.Side == SideShort {
		return -p.Size
	}
	return p.Size
}

// Order - ордер в представлении биржи
type Order struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"` // "buy" или "sell"
	Type         string    `json:"type"` // "market" или "limit"
	Quantity     float64   `json:"quantity"`
	FilledQty    float64   `json:"filled_qty"`
	Price        float64   `json:"price"` // 0 для рыночных
	AvgFillPrice float64   `json:"avg_fill_price"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OrderRequest - параметры размещаемого ордера
type OrderRequest struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Type          string  `json:"type"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price,omitempty"` // 0 для рыночных
	ClientOrderID string  `json:"client_order_id,omitempty"`
}

// ExchangeError представляет ошибку от биржи
type ExchangeError struct {
	Exchange string
	Code     string
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	return e.Exchange + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Side constants for orders
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Side constants for positions
const (
	SideLong  = "long"
	SideShort = "short"
)

// Order status constants
const (
	OrderStatusNew       = "new"
	OrderStatusFilled    = "filled"
	OrderStatusPartial   = "partial"
	OrderStatusCancelled = "cancelled"
	OrderStatusRejected  = "rejected"
)
