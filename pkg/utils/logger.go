package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig содержит настройки логирования
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json | text
	Output      string // путь к файлу; пусто = stdout
	Development bool   // режим разработки (caller, stacktrace на warn)
}

// Logger - обёртка над zap.Logger с sugar-вариантом для форматированных вызовов
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// globalLogger - глобальный логгер приложения
var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// parseLevel преобразует строковый уровень в zapcore.Level.
// Неизвестные значения дают InfoLevel.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger создаёт новый логгер с заданной конфигурацией.
// Никогда не возвращает nil: при ошибке открытия файла
// происходит fallback на stderr.
func InitLogger(config LogConfig) *Logger {
	level := parseLevel(config.Level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if config.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	var encoder zapcore.Encoder
	if strings.ToLower(config.Format) == "text" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	// Выбор назначения: файл или stdout, fallback на stderr при ошибке
	var sink zapcore.WriteSyncer
	switch {
	case config.Output == "":
		sink = zapcore.AddSync(os.Stdout)
	default:
		file, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			sink = zapcore.AddSync(os.Stderr)
		} else {
			sink = zapcore.AddSync(file)
		}
	}

	core := zapcore.NewCore(encoder, sink, level)

	opts := []zap.Option{}
	if config.Development {
		opts = append(opts, zap.Development(), zap.AddCaller(), zap.AddStacktrace(zapcore.WarnLevel))
	}

	zapLogger := zap.New(core, opts...)

	return &Logger{
		Logger: zapLogger,
		sugar:  zapLogger.Sugar(),
	}
}

// InitGlobalLogger инициализирует глобальный логгер приложения
func InitGlobalLogger(config LogConfig) *Logger {
	logger := InitLogger(config)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный логгер
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger возвращает глобальный логгер.
// Если логгер не инициализирован, создаёт логгер по умолчанию.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	if globalLogger != nil {
		defer globalMu.RUnlock()
		return globalLogger
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{Level: "info", Format: "json"})
	}
	return globalLogger
}

// L - короткий алиас для GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// With возвращает новый логгер с дополнительными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	newLogger := l.Logger.With(fields...)
	return &Logger{
		Logger: newLogger,
		sugar:  newLogger.Sugar(),
	}
}

// WithComponent возвращает логгер с полем component
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(zap.String("component", component))
}

// WithSymbol возвращает логгер с полем symbol
func (l *Logger) WithSymbol(symbol string) *Logger {
	return l.With(zap.String("symbol", symbol))
}

// WithOrderID возвращает логгер с полем order_id
func (l *Logger) WithOrderID(orderID string) *Logger {
	return l.With(zap.String("order_id", orderID))
}

// WithStrategy возвращает логгер с полем strategy_id
func (l *Logger) WithStrategy(strategyID string) *Logger {
	return l.With(zap.String("strategy_id", strategyID))
}

// Sugar возвращает sugared-логгер для printf-style вызовов
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// ============================================================
// Глобальные функции логирования
// ============================================================

// Debug логирует сообщение уровня debug через глобальный логгер
func Debug(msg string, fields ...zap.Field) {
	GetGlobalLogger().Debug(msg, fields...)
}

// Info логирует сообщение уровня info через глобальный логгер
func Info(msg string, fields ...zap.Field) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn логирует сообщение уровня warn через глобальный логгер
func Warn(msg string, fields ...zap.Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

// Error логирует сообщение уровня error через глобальный логгер
func Error(msg string, fields ...zap.Field) {
	GetGlobalLogger().Error(msg, fields...)
}

// Fatal логирует сообщение и завершает процесс
func Fatal(msg string, fields ...zap.Field) {
	GetGlobalLogger().Fatal(msg, fields...)
}

// Debugf - printf-style debug через глобальный логгер
func Debugf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Debugf(template, args...)
}

// Infof - printf-style info через глобальный логгер
func Infof(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Infof(template, args...)
}

// Warnf - printf-style warn через глобальный логгер
func Warnf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Warnf(template, args...)
}

// Errorf - printf-style error через глобальный логгер
func Errorf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Errorf(template, args...)
}

// ============================================================
// Конструкторы доменных полей
// ============================================================

// Symbol - торговый символ
func Symbol(symbol string) zap.Field {
	return zap.String("symbol", symbol)
}

// OrderID - идентификатор ордера
func OrderID(id string) zap.Field {
	return zap.String("order_id", id)
}

// TradeID - идентификатор сделки (ключ идемпотентности филлов)
func TradeID(id string) zap.Field {
	return zap.String("trade_id", id)
}

// Side - сторона ордера (buy/sell)
func Side(side string) zap.Field {
	return zap.String("side", side)
}

// Price - цена
func Price(price float64) zap.Field {
	return zap.Float64("price", price)
}

// Quantity - количество
func Quantity(qty float64) zap.Field {
	return zap.Float64("quantity", qty)
}

// Notional - стоимость в котируемой валюте
func Notional(notional float64) zap.Field {
	return zap.Float64("notional", notional)
}

// Reason - причина события (код отклонения, причина отмены)
func Reason(reason string) zap.Field {
	return zap.String("reason", reason)
}

// State - состояние компонента
func State(state string) zap.Field {
	return zap.String("state", state)
}

// Component - имя компонента
func Component(name string) zap.Field {
	return zap.String("component", name)
}

// Latency - задержка в миллисекундах
func Latency(ms float64) zap.Field {
	return zap.Float64("latency_ms", ms)
}

// RequestID - идентификатор HTTP запроса
func RequestID(id string) zap.Field {
	return zap.String("request_id", id)
}

// StrategyID - идентификатор стратегии
func StrategyID(id string) zap.Field {
	return zap.String("strategy_id", id)
}

// ============================================================
// Переэкспорт стандартных конструкторов zap
// ============================================================

// String - строковое поле
func String(key, value string) zap.Field {
	return zap.String(key, value)
}

// Int - целочисленное поле
func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Int64 - поле int64
func Int64(key string, value int64) zap.Field {
	return zap.Int64(key, value)
}

// Float64 - поле float64
func Float64(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

// Bool - булево поле
func Bool(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}

// Err - поле ошибки
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Any - поле произвольного типа
func Any(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

// fieldsToInterface преобразует zap-поля в плоский список key/value
// для передачи в sugared-логгер
func fieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)
		result = append(result, f.Key, enc.Fields[f.Key])
	}
	return result
}
