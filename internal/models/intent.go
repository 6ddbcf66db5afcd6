package models

import "time"

// OrderIntent - намерение стратегии разместить ордер
//
// Производится внешней стратегией, неизменяемо. Quantity всегда > 0,
// направление задаётся стороной. Price == 0 означает рыночный ордер.
type OrderIntent struct {
	StrategyID string    `json:"strategy_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price,omitempty"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsMarket возвращает true для рыночного намерения (без лимитной цены)
func (i OrderIntent) IsMarket() bool {
	return i.Price <= 0
}

// Notional возвращает стоимость намерения в котируемой валюте.
// Для рыночных намерений используется переданная оценка цены.
func (i OrderIntent) Notional(estimatePrice float64) float64 {
	if i.Price > 0 {
		return i.Quantity * i.Price
	}
	return i.Quantity * estimatePrice
}
