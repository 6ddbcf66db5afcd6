package engine

import (
	"fmt"

	"tradecore/internal/models"
)

// Rule - одна независимая риск-проверка.
//
// Правило чистое: читает намерение и снимок, не мутирует состояние.
// Выключенное правило пропускается цепочкой без вычисления.
type Rule interface {
	Name() string
	Enabled() bool
	Check(intent models.OrderIntent, snap *models.AccountSnapshot) models.RiskDecision
}

// RuleChain - упорядоченная цепочка правил с коротким замыканием:
// первое отклонение завершает проверку, остальные правила не вычисляются.
type RuleChain struct {
	rules []Rule
}

// NewRuleChain создаёт цепочку из правил в порядке перечисления
func NewRuleChain(rules ...Rule) *RuleChain {
	return &RuleChain{rules: rules}
}

// Check прогоняет намерение через цепочку.
// Возвращает первое отклонение либо Pass, если все правила прошли.
func (c *RuleChain) Check(intent models.OrderIntent, snap *models.AccountSnapshot) models.RiskDecision {
	for _, rule := range c.rules {
		if !rule.Enabled() {
			continue
		}
		if decision := rule.Check(intent, snap); !decision.Allowed {
			return decision
		}
	}
	return models.Pass()
}

// Rules возвращает правила цепочки (для интроспекции через ops API)
func (c *RuleChain) Rules() []Rule {
	return c.rules
}

// ============================================================
// MaxPositionRule
// ============================================================

// MaxPositionRule ограничивает абсолютное количество позиции по символу.
// Проверяется эффективная позиция: текущая + знаковая дельта намерения.
type MaxPositionRule struct {
	cap     float64
	enabled bool
}

// NewMaxPositionRule создаёт правило лимита позиции.
// cap <= 0 означает отсутствие лимита.
func NewMaxPositionRule(cap float64, enabled bool) *MaxPositionRule {
	return &MaxPositionRule{cap: cap, enabled: enabled}
}

func (r *MaxPositionRule) Name() string { return "max_position" }

func (r *MaxPositionRule) Enabled() bool { return r.enabled && r.cap > 0 }

func (r *MaxPositionRule) Check(intent models.OrderIntent, snap *models.AccountSnapshot) models.RiskDecision {
	current := snap.PositionQty(intent.Symbol)
	projected := current + models.SignedQty(intent.Side, intent.Quantity)

	// Ровно на лимите - проходит; отклоняется только превышение
	if abs(projected) > r.cap {
		return models.Reject(
			models.RejectPositionLimit,
			fmt.Sprintf("position %s would reach %.8f, cap %.8f", intent.Symbol, projected, r.cap),
			current, intent.Quantity, r.cap,
		)
	}
	return models.Pass()
}

// ============================================================
// MaxOpenOrdersRule
// ============================================================

// MaxOpenOrdersRule ограничивает количество открытых ордеров:
// по символу намерения и суммарно по аккаунту.
// Отклоняет когда счётчик уже на потолке - новый ордер превысил бы его.
type MaxOpenOrdersRule struct {
	perSymbol int
	total     int
	enabled   bool
}

// NewMaxOpenOrdersRule создаёт правило лимита открытых ордеров.
// Нулевой или отрицательный лимит отключает соответствующую проверку.
func NewMaxOpenOrdersRule(perSymbol, total int, enabled bool) *MaxOpenOrdersRule {
	return &MaxOpenOrdersRule{perSymbol: perSymbol, total: total, enabled: enabled}
}

func (r *MaxOpenOrdersRule) Name() string { return "max_open_orders" }

func (r *MaxOpenOrdersRule) Enabled() bool { return r.enabled && (r.perSymbol > 0 || r.total > 0) }

func (r *MaxOpenOrdersRule) Check(intent models.OrderIntent, snap *models.AccountSnapshot) models.RiskDecision {
	if r.perSymbol > 0 {
		if count := snap.OpenOrderCount(intent.Symbol); count >= r.perSymbol {
			return models.Reject(
				models.RejectOpenOrdersSymbol,
				fmt.Sprintf("open orders for %s at ceiling %d", intent.Symbol, r.perSymbol),
				float64(count), 1, float64(r.perSymbol),
			)
		}
	}

	if r.total > 0 {
		if count := snap.OpenOrderCount(""); count >= r.total {
			return models.Reject(
				models.RejectOpenOrdersTotal,
				fmt.Sprintf("total open orders at ceiling %d", r.total),
				float64(count), 1, float64(r.total),
			)
		}
	}

	return models.Pass()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
