package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах
// - Анализ поведения риск-проверок в production

// ============ Метрики риск-проверок ============

// RiskChecksTotal - количество риск-проверок по результату
var RiskChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "risk",
		Name:      "checks_total",
		Help:      "Total number of risk gate checks",
	},
	[]string{"result"}, // pass, reject
)

// RiskRejectionsTotal - отклонения по кодам причин
var RiskRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "risk",
		Name:      "rejections_total",
		Help:      "Risk gate rejections by reason code",
	},
	[]string{"code", "symbol"},
)

// RiskCheckLatency - латентность полной риск-проверки
var RiskCheckLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "tradecore",
		Subsystem: "risk",
		Name:      "check_latency_ms",
		Help:      "Risk gate check latency in milliseconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
)

// ============ Метрики событий исполнения ============

// FillsApplied - применённые отчёты об исполнении
var FillsApplied = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "fills",
		Name:      "applied_total",
		Help:      "Execution fills applied to account state",
	},
	[]string{"symbol", "fill_type"}, // fill_type: partial, full
)

// FillsDeduplicated - повторные доставки, отброшенные по trade_id
var FillsDeduplicated = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "fills",
		Name:      "deduplicated_total",
		Help:      "Duplicate fill deliveries skipped by trade_id",
	},
)

// MalformedEvents - события с невалидными полями, пропущенные пайплайном
var MalformedEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "fills",
		Name:      "malformed_events_total",
		Help:      "Malformed execution events skipped",
	},
	[]string{"event"}, // accepted, fill, canceled
)

// OrdersExpired - ордера, выселенные sweeper'ом по TTL
var OrdersExpired = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "sweeper",
		Name:      "orders_expired_total",
		Help:      "Open orders evicted by TTL sweeper",
	},
	[]string{"symbol"},
)

// ============ Метрики состояния аккаунта ============

// OpenOrdersGauge - текущее количество открытых ордеров
var OpenOrdersGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "state",
		Name:      "open_orders",
		Help:      "Current number of tracked open orders",
	},
)

// OpenPositionsGauge - текущее количество открытых позиций
var OpenPositionsGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "state",
		Name:      "open_positions",
		Help:      "Current number of open positions",
	},
)

// FreeBalanceGauge - свободный баланс по активам
var FreeBalanceGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "state",
		Name:      "free_balance",
		Help:      "Free balance by asset",
	},
	[]string{"asset"},
)

// PositionQtyGauge - количество позиции по символам (со знаком)
var PositionQtyGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "state",
		Name:      "position_quantity",
		Help:      "Signed position quantity by symbol",
	},
	[]string{"symbol"},
)

// ============ Метрики ресинхронизации ============

// ReconcileRunsTotal - запуски ресинхронизации по результату
var ReconcileRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Reconciliation runs by outcome",
	},
	[]string{"outcome"}, // full, partial, failed
)

// ReconcileSectionErrors - ошибки отдельных секций при ресинхронизации
var ReconcileSectionErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "reconcile",
		Name:      "section_errors_total",
		Help:      "Reconciliation fetch errors by section",
	},
	[]string{"section"}, // balances, positions, orders
)

// ReconcileDuration - длительность полной ресинхронизации
var ReconcileDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "tradecore",
		Subsystem: "reconcile",
		Name:      "duration_seconds",
		Help:      "Duration of a reconciliation run in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	},
)

// CoordinatorState - текущее состояние координатора
// (0=UNINITIALIZED, 1=INITIALIZING, 2=READY)
var CoordinatorState = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "reconcile",
		Name:      "coordinator_state",
		Help:      "Reconciliation coordinator state (0=uninitialized, 1=initializing, 2=ready)",
	},
)

// ============ Метрики производительности ============

// BufferOverflows - переполнения буферов каналов
var BufferOverflows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "runtime",
		Name:      "buffer_overflows_total",
		Help:      "Number of channel buffer overflows (events dropped)",
	},
	[]string{"buffer"}, // notification, expired
)

// ============ Вспомогательные функции ============

// RecordRiskDecision записывает результат риск-проверки
func RecordRiskDecision(symbol, code string, allowed bool) {
	if allowed {
		RiskChecksTotal.WithLabelValues("pass").Inc()
		return
	}
	RiskChecksTotal.WithLabelValues("reject").Inc()
	RiskRejectionsTotal.WithLabelValues(code, symbol).Inc()
}

// RecordFill записывает применённый отчёт об исполнении
func RecordFill(symbol, fillType string) {
	FillsApplied.WithLabelValues(symbol, fillType).Inc()
}

// RecordMalformedEvent записывает пропущенное невалидное событие
func RecordMalformedEvent(event string) {
	MalformedEvents.WithLabelValues(event).Inc()
}

// RecordBufferOverflow записывает переполнение буфера
func RecordBufferOverflow(bufferName string) {
	BufferOverflows.WithLabelValues(bufferName).Inc()
}

// RecordReconcile записывает итог ресинхронизации
func RecordReconcile(outcome string, durationSeconds float64) {
	ReconcileRunsTotal.WithLabelValues(outcome).Inc()
	ReconcileDuration.Observe(durationSeconds)
}
