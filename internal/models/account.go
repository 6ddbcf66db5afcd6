package models

import "time"

// AssetBalance - баланс одного актива на аккаунте
type AssetBalance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`   // доступно для торговли
	Locked float64 `json:"locked"` // заблокировано в ордерах
}

// Position - открытая позиция по символу
//
// Quantity со знаком: > 0 лонг, < 0 шорт. Позиция с нулевым количеством
// не хранится - она удаляется из стора, а не лежит с Quantity = 0.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	EntryPrice    float64 `json:"entry_price"`    // средневзвешенная цена входа
	UnrealizedPnl float64 `json:"unrealized_pnl"`
}

// OpenOrder - ордер, принятый биржей и ещё не завершённый
type OpenOrder struct {
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Type      string    `json:"type"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"` // 0 для рыночных ордеров
	CreatedAt time.Time `json:"created_at"`
}

// Notional возвращает стоимость ордера в котируемой валюте.
// Для рыночных ордеров (Price == 0) используется переданная оценка цены.
func (o OpenOrder) Notional(estimatePrice float64) float64 {
	if o.Price > 0 {
		return o.Quantity * o.Price
	}
	return o.Quantity * estimatePrice
}

// AccountSnapshot - неизменяемая копия состояния аккаунта на момент времени
//
// Снимок всегда внутренне согласован: читатель никогда не видит
// частично применённое обновление. Снимок - копия, а не живое
// представление: после возврата он не отражает последующие мутации стора.
type AccountSnapshot struct {
	Balances   map[string]AssetBalance `json:"balances"`    // asset → баланс
	Positions  map[string]Position     `json:"positions"`   // symbol → позиция
	OpenOrders map[string]OpenOrder    `json:"open_orders"` // order_id → ордер
	TakenAt    time.Time               `json:"taken_at"`
}

// PositionQty возвращает текущее количество позиции по символу (0 если нет)
func (s *AccountSnapshot) PositionQty(symbol string) float64 {
	return s.Positions[symbol].Quantity
}

// FreeBalance возвращает свободный баланс актива (0 если нет)
func (s *AccountSnapshot) FreeBalance(asset string) float64 {
	return s.Balances[asset].Free
}

// OpenOrderCount возвращает количество открытых ордеров по символу.
// Пустой символ считает все открытые ордера.
func (s *AccountSnapshot) OpenOrderCount(symbol string) int {
	if symbol == "" {
		return len(s.OpenOrders)
	}
	count := 0
	for _, o := range s.OpenOrders {
		if o.Symbol == symbol {
			count++
		}
	}
	return count
}

// PendingQty возвращает суммарное количество открытых ордеров по символу
// со знаком: покупки прибавляются, продажи вычитаются.
// Используется для расчёта эффективной позиции в риск-проверках.
func (s *AccountSnapshot) PendingQty(symbol string) float64 {
	var pending float64
	for _, o := range s.OpenOrders {
		if o.Symbol != symbol {
			continue
		}
		pending += SignedQty(o.Side, o.Quantity)
	}
	return pending
}

// OpenNotional возвращает суммарную стоимость всех открытых ордеров.
// Рыночные ордера оцениваются по estimatePrice.
func (s *AccountSnapshot) OpenNotional(estimatePrice float64) float64 {
	var total float64
	for _, o := range s.OpenOrders {
		total += o.Notional(estimatePrice)
	}
	return total
}
