package engine

import (
	"fmt"
	"sync"
	"time"

	"tradecore/internal/models"
	"tradecore/pkg/utils"
)

// GateConfig - пределы риск-шлюза.
// Нулевое значение числового лимита отключает соответствующую проверку.
type GateConfig struct {
	TradingEnabled bool

	// Пустой whitelist пропускает любой непустой символ
	SymbolWhitelist []string

	MinOrderQty float64
	MaxOrderQty float64

	// Лимит стоимости одного ордера (котируемая валюта)
	MaxOrderNotional float64

	// Максимальная доля свободного баланса котируемого актива
	// на один ордер покупки (0.25 = 25%)
	MaxBalanceUsageRatio float64

	QuoteAsset string

	// Лимит эффективной позиции по символу (абсолютное количество)
	MaxPositionPerSymbol float64

	MaxOpenOrdersPerSymbol int
	MaxOpenOrdersTotal     int

	// Глобальный лимит суммарной стоимости открытых ордеров
	MaxTotalExposure float64

	// Лимит оценочной стоимости рыночного ордера и цена для оценки
	MaxMarketOrderNotional float64
	MarketEstimatePrice    float64

	// Минимальный интервал между принятыми ордерами по одному символу
	MinOrderSpacing time.Duration
}

// RiskGate - единственная точка принятия решения по намерению.
//
// Композиция статических проверок и цепочки правил. Все проверки читают
// один снимок состояния: решение консистентно на момент снятия снимка.
// Проверка интервала и запись времени принятия выполняются под одной
// блокировкой - всплеск конкурентных намерений по символу не может
// пройти весь "без предыдущего ордера".
type RiskGate struct {
	cfg       GateConfig
	store     *AccountStore
	chain     *RuleChain
	whitelist map[string]struct{}
	log       *utils.Logger

	// Время последнего принятого намерения по символу
	spacingMu    sync.Mutex
	lastAccepted map[string]time.Time

	// Подменяется в тестах
	now func() time.Time
}

// NewRiskGate создаёт шлюз. chain может быть nil - без цепочки правил.
func NewRiskGate(cfg GateConfig, store *AccountStore, chain *RuleChain, log *utils.Logger) *RiskGate {
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if chain == nil {
		chain = NewRuleChain()
	}
	if log == nil {
		log = utils.GetGlobalLogger()
	}

	whitelist := make(map[string]struct{}, len(cfg.SymbolWhitelist))
	for _, s := range cfg.SymbolWhitelist {
		whitelist[utils.NormalizeSymbol(s)] = struct{}{}
	}

	return &RiskGate{
		cfg:          cfg,
		store:        store,
		chain:        chain,
		whitelist:    whitelist,
		lastAccepted: make(map[string]time.Time),
		log:          log.WithComponent("risk_gate"),
		now:          time.Now,
	}
}

// Check прогоняет намерение через все проверки.
//
// Порядок фиксирован: от дешёвых статических проверок к дорогим
// агрегирующим; первое нарушение завершает проверку. Каждое отклонение
// несёт код причины и операнды (current/requested/limit).
func (g *RiskGate) Check(intent models.OrderIntent) models.RiskDecision {
	started := g.now()
	decision := g.check(intent)

	RiskCheckLatency.Observe(float64(g.now().Sub(started).Microseconds()) / 1000.0)
	RecordRiskDecision(intent.Symbol, decision.Code, decision.Allowed)

	if !decision.Allowed {
		g.log.Warn("intent rejected",
			utils.Symbol(intent.Symbol),
			utils.Side(intent.Side),
			utils.Quantity(intent.Quantity),
			utils.Price(intent.Price),
			utils.Reason(decision.Code),
			utils.Float64("current", decision.Operands.Current),
			utils.Float64("requested", decision.Operands.Requested),
			utils.Float64("limit", decision.Operands.Limit))
	}

	return decision
}

func (g *RiskGate) check(intent models.OrderIntent) models.RiskDecision {
	// 0. Валидность намерения
	if intent.Quantity <= 0 || !utils.IsValidSide(intent.Side) {
		return models.Reject(models.RejectInvalidIntent,
			"intent quantity must be positive and side must be buy or sell",
			0, intent.Quantity, 0)
	}

	// 1. Глобальный выключатель торговли
	if !g.cfg.TradingEnabled {
		return models.Reject(models.RejectTradingDisabled, "trading is disabled", 0, intent.Quantity, 0)
	}

	// 2. Символ: непустой и в whitelist (если whitelist задан)
	if intent.Symbol == "" {
		return models.Reject(models.RejectSymbolNotAllowed, "empty symbol", 0, intent.Quantity, 0)
	}
	if len(g.whitelist) > 0 {
		if _, ok := g.whitelist[intent.Symbol]; !ok {
			return models.Reject(models.RejectSymbolNotAllowed,
				fmt.Sprintf("symbol %s is not whitelisted", intent.Symbol),
				0, intent.Quantity, 0)
		}
	}

	// 3. Границы количества
	if g.cfg.MinOrderQty > 0 && intent.Quantity < g.cfg.MinOrderQty {
		return models.Reject(models.RejectQtyBelowMin,
			fmt.Sprintf("quantity %.8f below minimum %.8f", intent.Quantity, g.cfg.MinOrderQty),
			0, intent.Quantity, g.cfg.MinOrderQty)
	}
	if g.cfg.MaxOrderQty > 0 && intent.Quantity > g.cfg.MaxOrderQty {
		return models.Reject(models.RejectQtyAboveMax,
			fmt.Sprintf("quantity %.8f above maximum %.8f", intent.Quantity, g.cfg.MaxOrderQty),
			0, intent.Quantity, g.cfg.MaxOrderQty)
	}

	// Один снимок на все агрегирующие проверки
	snap := g.store.Snapshot()

	// 4. Стоимость ордера с известной ценой + доля баланса для покупок
	if intent.Price > 0 {
		notional := intent.Quantity * intent.Price

		if g.cfg.MaxOrderNotional > 0 && notional > g.cfg.MaxOrderNotional {
			return models.Reject(models.RejectOrderNotional,
				fmt.Sprintf("order notional %.2f exceeds cap %.2f", notional, g.cfg.MaxOrderNotional),
				0, notional, g.cfg.MaxOrderNotional)
		}

		if intent.Side == models.SideBuy && g.cfg.MaxBalanceUsageRatio > 0 {
			free := snap.FreeBalance(g.cfg.QuoteAsset)
			allowed := free * g.cfg.MaxBalanceUsageRatio
			if notional > allowed {
				return models.Reject(models.RejectBalanceUsage,
					fmt.Sprintf("order notional %.2f exceeds %.0f%% of free %s balance %.2f",
						notional, g.cfg.MaxBalanceUsageRatio*100, g.cfg.QuoteAsset, free),
					free, notional, allowed)
			}
		}
	}

	// 5. Эффективная позиция: текущая + нетто открытых ордеров + намерение
	if g.cfg.MaxPositionPerSymbol > 0 {
		current := snap.PositionQty(intent.Symbol)
		pending := snap.PendingQty(intent.Symbol)
		projected := current + pending + models.SignedQty(intent.Side, intent.Quantity)

		if abs(projected) > g.cfg.MaxPositionPerSymbol {
			return models.Reject(models.RejectPositionLimit,
				fmt.Sprintf("effective position for %s would reach %.8f, cap %.8f",
					intent.Symbol, projected, g.cfg.MaxPositionPerSymbol),
				current+pending, intent.Quantity, g.cfg.MaxPositionPerSymbol)
		}
	}

	// 6. Количество открытых ордеров по символу
	if g.cfg.MaxOpenOrdersPerSymbol > 0 {
		if count := snap.OpenOrderCount(intent.Symbol); count >= g.cfg.MaxOpenOrdersPerSymbol {
			return models.Reject(models.RejectOpenOrdersSymbol,
				fmt.Sprintf("open orders for %s at ceiling %d", intent.Symbol, g.cfg.MaxOpenOrdersPerSymbol),
				float64(count), 1, float64(g.cfg.MaxOpenOrdersPerSymbol))
		}
	}

	// 7. Глобальный exposure и глобальный счётчик ордеров
	if g.cfg.MaxTotalExposure > 0 {
		open := snap.OpenNotional(g.cfg.MarketEstimatePrice)
		projected := open + intent.Notional(g.cfg.MarketEstimatePrice)
		if projected > g.cfg.MaxTotalExposure {
			return models.Reject(models.RejectExposureLimit,
				fmt.Sprintf("total exposure would reach %.2f, cap %.2f", projected, g.cfg.MaxTotalExposure),
				open, intent.Notional(g.cfg.MarketEstimatePrice), g.cfg.MaxTotalExposure)
		}
	}
	if g.cfg.MaxOpenOrdersTotal > 0 {
		if count := snap.OpenOrderCount(""); count >= g.cfg.MaxOpenOrdersTotal {
			return models.Reject(models.RejectOpenOrdersTotal,
				fmt.Sprintf("total open orders at ceiling %d", g.cfg.MaxOpenOrdersTotal),
				float64(count), 1, float64(g.cfg.MaxOpenOrdersTotal))
		}
	}

	// 8. Рыночный ордер: оценочная стоимость по консервативной цене
	if intent.IsMarket() && g.cfg.MaxMarketOrderNotional > 0 {
		estimate := intent.Quantity * g.cfg.MarketEstimatePrice
		if estimate > g.cfg.MaxMarketOrderNotional {
			return models.Reject(models.RejectMarketEstimate,
				fmt.Sprintf("market order estimate %.2f exceeds cap %.2f", estimate, g.cfg.MaxMarketOrderNotional),
				0, estimate, g.cfg.MaxMarketOrderNotional)
		}
	}

	// 9. Цепочка правил
	if decision := g.chain.Check(intent, snap); !decision.Allowed {
		return decision
	}

	// 10. Минимальный интервал между ордерами по символу.
	// Проверка и запись времени принятия атомарны: конкурентный всплеск
	// по одному символу пропускает максимум одно намерение за интервал.
	g.spacingMu.Lock()
	defer g.spacingMu.Unlock()

	now := g.now()
	if g.cfg.MinOrderSpacing > 0 {
		if last, ok := g.lastAccepted[intent.Symbol]; ok {
			if elapsed := now.Sub(last); elapsed < g.cfg.MinOrderSpacing {
				return models.Reject(models.RejectOrderSpacing,
					fmt.Sprintf("only %s since last accepted order for %s, minimum %s",
						elapsed, intent.Symbol, g.cfg.MinOrderSpacing),
					elapsed.Seconds(), 0, g.cfg.MinOrderSpacing.Seconds())
			}
		}
	}
	g.lastAccepted[intent.Symbol] = now

	return models.Pass()
}

// LastAccepted возвращает время последнего принятого намерения по символу
func (g *RiskGate) LastAccepted(symbol string) (time.Time, bool) {
	g.spacingMu.Lock()
	defer g.spacingMu.Unlock()
	ts, ok := g.lastAccepted[symbol]
	return ts, ok
}

// Config возвращает действующие лимиты (для ops API)
func (g *RiskGate) Config() GateConfig {
	return g.cfg
}
