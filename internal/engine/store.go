package engine

import (
	"sync"
	"time"

	"tradecore/internal/models"
	"tradecore/pkg/utils"
)

// AccountStore - единственный in-memory источник правды о состоянии аккаунта
//
// Три группы данных защищены независимыми RWMutex: балансы, позиции и
// открытые ордера мутируются разными потоками событий и не конкурируют
// друг с другом за блокировку. Каждая операция атомарна в пределах своей
// группы: читатель никогда не видит частично применённое обновление.
//
// Прямой доступ к картам снаружи запрещён - наружу отдаются только
// глубокие копии через Snapshot().
type AccountStore struct {
	balancesMu sync.RWMutex
	balances   map[string]models.AssetBalance // asset → баланс

	positionsMu sync.RWMutex
	positions   map[string]models.Position // symbol → позиция

	ordersMu sync.RWMutex
	orders   map[string]models.OpenOrder // order_id → ордер
}

// NewAccountStore создаёт пустой стор
func NewAccountStore() *AccountStore {
	return &AccountStore{
		balances:  make(map[string]models.AssetBalance),
		positions: make(map[string]models.Position),
		orders:    make(map[string]models.OpenOrder),
	}
}

// ============================================================
// Снимок
// ============================================================

// Snapshot возвращает глубокую копию текущего состояния.
// Снимок не отражает последующие мутации стора.
func (s *AccountStore) Snapshot() *models.AccountSnapshot {
	snap := &models.AccountSnapshot{
		TakenAt: time.Now().UTC(),
	}

	s.balancesMu.RLock()
	snap.Balances = make(map[string]models.AssetBalance, len(s.balances))
	for asset, b := range s.balances {
		snap.Balances[asset] = b
	}
	s.balancesMu.RUnlock()

	s.positionsMu.RLock()
	snap.Positions = make(map[string]models.Position, len(s.positions))
	for symbol, p := range s.positions {
		snap.Positions[symbol] = p
	}
	s.positionsMu.RUnlock()

	s.ordersMu.RLock()
	snap.OpenOrders = make(map[string]models.OpenOrder, len(s.orders))
	for id, o := range s.orders {
		snap.OpenOrders[id] = o
	}
	s.ordersMu.RUnlock()

	return snap
}

// ============================================================
// Балансы
// ============================================================

// SetBalance устанавливает абсолютные значения баланса актива.
// Используется при ресинхронизации с биржей.
func (s *AccountStore) SetBalance(asset string, free, locked float64) {
	s.balancesMu.Lock()
	defer s.balancesMu.Unlock()

	s.balances[asset] = models.AssetBalance{
		Asset:  asset,
		Free:   utils.Max(0, free),
		Locked: utils.Max(0, locked),
	}
	FreeBalanceGauge.WithLabelValues(asset).Set(utils.Max(0, free))
}

// AdjustBalance атомарно изменяет баланс актива на дельту.
// Используется пайплайном исполнения (дебет/кредит стоимости, комиссии).
// Отрицательный результат обрезается до нуля: инварианты free >= 0 и
// locked >= 0 держатся даже при рассинхронизации с биржей.
func (s *AccountStore) AdjustBalance(asset string, freeDelta, lockedDelta float64) {
	s.balancesMu.Lock()
	defer s.balancesMu.Unlock()

	b := s.balances[asset]
	b.Asset = asset
	b.Free = utils.Max(0, b.Free+freeDelta)
	b.Locked = utils.Max(0, b.Locked+lockedDelta)
	s.balances[asset] = b

	FreeBalanceGauge.WithLabelValues(asset).Set(b.Free)
}

// ReplaceBalances заменяет всю группу балансов целиком.
// Единственный способ массовой загрузки - координатор ресинхронизации.
func (s *AccountStore) ReplaceBalances(balances []models.AssetBalance) {
	s.balancesMu.Lock()
	defer s.balancesMu.Unlock()

	s.balances = make(map[string]models.AssetBalance, len(balances))
	for _, b := range balances {
		s.balances[b.Asset] = models.AssetBalance{
			Asset:  b.Asset,
			Free:   utils.Max(0, b.Free),
			Locked: utils.Max(0, b.Locked),
		}
		FreeBalanceGauge.WithLabelValues(b.Asset).Set(utils.Max(0, b.Free))
	}
}

// ============================================================
// Позиции
// ============================================================

// UpdatePosition применяет дельту количества к позиции символа.
//
// Правила:
//   - qtyDelta со знаком: покупка > 0, продажа < 0
//   - новая или доливаемая в том же направлении позиция получает
//     средневзвешенную цену входа
//   - уменьшение позиции не меняет цену входа
//   - переворот через ноль открывает позицию в новом направлении
//     по цене исполнения
//   - результат с |qty| < эпсилон удаляется из стора, а не хранится нулём
func (s *AccountStore) UpdatePosition(symbol string, qtyDelta, price float64) {
	s.positionsMu.Lock()
	defer s.positionsMu.Unlock()

	cur, exists := s.positions[symbol]
	newQty := cur.Quantity + qtyDelta

	if utils.IsZeroQty(newQty) {
		delete(s.positions, symbol)
		PositionQtyGauge.WithLabelValues(symbol).Set(0)
		OpenPositionsGauge.Set(float64(len(s.positions)))
		return
	}

	pos := models.Position{
		Symbol:   symbol,
		Quantity: newQty,
	}

	switch {
	case !exists || utils.IsZeroQty(cur.Quantity):
		// Новая позиция: вход по цене исполнения
		pos.EntryPrice = price
	case cur.Quantity*qtyDelta > 0:
		// Доливка в том же направлении: средневзвешенная цена входа
		pos.EntryPrice = utils.WeightedEntryPrice(cur.Quantity, cur.EntryPrice, qtyDelta, price)
	case cur.Quantity*newQty < 0:
		// Переворот через ноль: новое направление открыто по цене исполнения
		pos.EntryPrice = price
	default:
		// Частичное сокращение: цена входа не меняется
		pos.EntryPrice = cur.EntryPrice
	}

	pos.UnrealizedPnl = utils.CalculatePNL(pos.Quantity, pos.EntryPrice, price)
	s.positions[symbol] = pos

	PositionQtyGauge.WithLabelValues(symbol).Set(pos.Quantity)
	OpenPositionsGauge.Set(float64(len(s.positions)))
}

// ReplacePositions заменяет всю группу позиций целиком.
// Позиции с нулевым количеством отбрасываются.
func (s *AccountStore) ReplacePositions(positions []models.Position) {
	s.positionsMu.Lock()
	defer s.positionsMu.Unlock()

	for symbol := range s.positions {
		PositionQtyGauge.WithLabelValues(symbol).Set(0)
	}

	s.positions = make(map[string]models.Position, len(positions))
	for _, p := range positions {
		if utils.IsZeroQty(p.Quantity) {
			continue
		}
		s.positions[p.Symbol] = p
		PositionQtyGauge.WithLabelValues(p.Symbol).Set(p.Quantity)
	}
	OpenPositionsGauge.Set(float64(len(s.positions)))
}

// ============================================================
// Открытые ордера
// ============================================================

// AddOpenOrder регистрирует принятый биржей ордер
func (s *AccountStore) AddOpenOrder(order models.OpenOrder) {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()

	s.orders[order.OrderID] = order
	OpenOrdersGauge.Set(float64(len(s.orders)))
}

// RemoveOpenOrder удаляет ордер по ID.
// Возвращает удалённый ордер и true, если он существовал: это гарантирует
// что гонка sweeper'а с финальным филлом не породит двойной отчёт.
func (s *AccountStore) RemoveOpenOrder(orderID string) (models.OpenOrder, bool) {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()

	order, exists := s.orders[orderID]
	if exists {
		delete(s.orders, orderID)
		OpenOrdersGauge.Set(float64(len(s.orders)))
	}
	return order, exists
}

// ReplaceOpenOrders заменяет всю группу открытых ордеров целиком
func (s *AccountStore) ReplaceOpenOrders(orders []models.OpenOrder) {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()

	s.orders = make(map[string]models.OpenOrder, len(orders))
	for _, o := range orders {
		s.orders[o.OrderID] = o
	}
	OpenOrdersGauge.Set(float64(len(s.orders)))
}
