package engine

import (
	"testing"
	"time"

	"tradecore/internal/models"
)

// recordingRule фиксирует факт вызова Check
type recordingRule struct {
	name     string
	enabled  bool
	decision models.RiskDecision
	called   bool
}

func (r *recordingRule) Name() string  { return r.name }
func (r *recordingRule) Enabled() bool { return r.enabled }
func (r *recordingRule) Check(models.OrderIntent, *models.AccountSnapshot) models.RiskDecision {
	r.called = true
	return r.decision
}

func buyIntent(symbol string, qty, price float64) models.OrderIntent {
	return models.OrderIntent{
		StrategyID: "test",
		Symbol:     symbol,
		Side:       models.SideBuy,
		Quantity:   qty,
		Price:      price,
		CreatedAt:  time.Now(),
	}
}

func emptySnapshot() *models.AccountSnapshot {
	return &models.AccountSnapshot{
		Balances:   map[string]models.AssetBalance{},
		Positions:  map[string]models.Position{},
		OpenOrders: map[string]models.OpenOrder{},
		TakenAt:    time.Now(),
	}
}

// ============================================================
// Тесты RuleChain
// ============================================================

func TestRuleChain_AllPass(t *testing.T) {
	r1 := &recordingRule{name: "r1", enabled: true, decision: models.Pass()}
	r2 := &recordingRule{name: "r2", enabled: true, decision: models.Pass()}
	chain := NewRuleChain(r1, r2)

	decision := chain.Check(buyIntent("BTCUSDT", 0.1, 50000), emptySnapshot())

	if !decision.Allowed {
		t.Fatalf("ожидался Pass, получено %+v", decision)
	}
	if !r1.called || !r2.called {
		t.Error("оба правила должны быть вычислены")
	}
}

// Короткое замыкание: после первого отклонения правила не вычисляются
func TestRuleChain_ShortCircuit(t *testing.T) {
	r1 := &recordingRule{name: "r1", enabled: true, decision: models.Reject("FIRST", "reject", 0, 0, 0)}
	r2 := &recordingRule{name: "r2", enabled: true, decision: models.Reject("SECOND", "reject", 0, 0, 0)}
	chain := NewRuleChain(r1, r2)

	decision := chain.Check(buyIntent("BTCUSDT", 0.1, 50000), emptySnapshot())

	if decision.Allowed {
		t.Fatal("ожидалось отклонение")
	}
	if decision.Code != "FIRST" {
		t.Errorf("Code = %s, должно победить первое правило", decision.Code)
	}
	if r2.called {
		t.Error("после отклонения последующие правила не должны вычисляться")
	}
}

// Выключенное правило пропускается без вычисления
func TestRuleChain_DisabledRuleSkipped(t *testing.T) {
	r1 := &recordingRule{name: "r1", enabled: false, decision: models.Reject("DISABLED", "reject", 0, 0, 0)}
	r2 := &recordingRule{name: "r2", enabled: true, decision: models.Pass()}
	chain := NewRuleChain(r1, r2)

	decision := chain.Check(buyIntent("BTCUSDT", 0.1, 50000), emptySnapshot())

	if !decision.Allowed {
		t.Fatalf("выключенное правило не должно отклонять: %+v", decision)
	}
	if r1.called {
		t.Error("выключенное правило не должно вычисляться")
	}
}

func TestRuleChain_Empty(t *testing.T) {
	chain := NewRuleChain()
	if !chain.Check(buyIntent("BTCUSDT", 0.1, 50000), emptySnapshot()).Allowed {
		t.Error("пустая цепочка должна пропускать всё")
	}
}

// ============================================================
// Тесты MaxPositionRule
// ============================================================

func TestMaxPositionRule_Boundary(t *testing.T) {
	rule := NewMaxPositionRule(1.0, true)
	snap := emptySnapshot()
	snap.Positions["BTCUSDT"] = models.Position{Symbol: "BTCUSDT", Quantity: 0.5, EntryPrice: 50000}

	// Ровно до лимита - проходит
	if d := rule.Check(buyIntent("BTCUSDT", 0.5, 50000), snap); !d.Allowed {
		t.Errorf("позиция ровно на лимите должна проходить: %+v", d)
	}

	// Чуть сверх лимита - отклоняется
	d := rule.Check(buyIntent("BTCUSDT", 0.5+1e-6, 50000), snap)
	if d.Allowed {
		t.Fatal("превышение лимита должно отклоняться")
	}
	if d.Code != models.RejectPositionLimit {
		t.Errorf("Code = %s", d.Code)
	}
	if d.Operands.Current != 0.5 || d.Operands.Limit != 1.0 {
		t.Errorf("операнды отклонения: %+v", d.Operands)
	}
}

// Продажа уменьшает эффективную позицию и проходит даже у лимита
func TestMaxPositionRule_SellReducesExposure(t *testing.T) {
	rule := NewMaxPositionRule(1.0, true)
	snap := emptySnapshot()
	snap.Positions["BTCUSDT"] = models.Position{Symbol: "BTCUSDT", Quantity: 1.0, EntryPrice: 50000}

	intent := buyIntent("BTCUSDT", 0.5, 50000)
	intent.Side = models.SideSell
	if d := rule.Check(intent, snap); !d.Allowed {
		t.Errorf("продажа при длинной позиции должна проходить: %+v", d)
	}
}

// Шорт тоже ограничен по модулю
func TestMaxPositionRule_ShortAbsoluteCap(t *testing.T) {
	rule := NewMaxPositionRule(1.0, true)
	snap := emptySnapshot()
	snap.Positions["BTCUSDT"] = models.Position{Symbol: "BTCUSDT", Quantity: -0.8, EntryPrice: 50000}

	intent := buyIntent("BTCUSDT", 0.5, 50000)
	intent.Side = models.SideSell
	if d := rule.Check(intent, snap); d.Allowed {
		t.Error("наращивание шорта сверх лимита должно отклоняться")
	}
}

func TestMaxPositionRule_ZeroCapDisabled(t *testing.T) {
	rule := NewMaxPositionRule(0, true)
	if rule.Enabled() {
		t.Error("нулевой лимит отключает правило")
	}
}

// ============================================================
// Тесты MaxOpenOrdersRule
// ============================================================

func TestMaxOpenOrdersRule_PerSymbol(t *testing.T) {
	rule := NewMaxOpenOrdersRule(2, 0, true)
	snap := emptySnapshot()
	snap.OpenOrders["o1"] = models.OpenOrder{OrderID: "o1", Symbol: "BTCUSDT"}

	if d := rule.Check(buyIntent("BTCUSDT", 0.1, 50000), snap); !d.Allowed {
		t.Errorf("ниже потолка должно проходить: %+v", d)
	}

	snap.OpenOrders["o2"] = models.OpenOrder{OrderID: "o2", Symbol: "BTCUSDT"}
	d := rule.Check(buyIntent("BTCUSDT", 0.1, 50000), snap)
	if d.Allowed {
		t.Fatal("на потолке должно отклоняться")
	}
	if d.Code != models.RejectOpenOrdersSymbol {
		t.Errorf("Code = %s", d.Code)
	}

	// Другой символ не затронут лимитом по символу
	if d := rule.Check(buyIntent("ETHUSDT", 1, 3000), snap); !d.Allowed {
		t.Errorf("другой символ должен проходить: %+v", d)
	}
}

func TestMaxOpenOrdersRule_Total(t *testing.T) {
	rule := NewMaxOpenOrdersRule(0, 2, true)
	snap := emptySnapshot()
	snap.OpenOrders["o1"] = models.OpenOrder{OrderID: "o1", Symbol: "BTCUSDT"}
	snap.OpenOrders["o2"] = models.OpenOrder{OrderID: "o2", Symbol: "ETHUSDT"}

	d := rule.Check(buyIntent("XRPUSDT", 10, 1), snap)
	if d.Allowed {
		t.Fatal("глобальный потолок должен отклонять независимо от символа")
	}
	if d.Code != models.RejectOpenOrdersTotal {
		t.Errorf("Code = %s", d.Code)
	}
}
