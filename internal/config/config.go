package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию ядра
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Risk     RiskConfig
	Engine   EngineConfig
	Stream   StreamConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// bcrypt-хэш ops-токена для доступа к API ядра
	OpsTokenHash string

	// Ключ AES-256 для шифрования API-ключей биржи в БД
	EncryptionKey string
}

// RiskConfig - лимиты риск-шлюза
type RiskConfig struct {
	TradingEnabled bool

	// Пустой список пропускает любой символ
	SymbolWhitelist []string

	MinOrderQty float64
	MaxOrderQty float64

	MaxOrderNotional     float64
	MaxBalanceUsageRatio float64
	QuoteAsset           string

	MaxPositionPerSymbol   float64
	MaxOpenOrdersPerSymbol int
	MaxOpenOrdersTotal     int
	MaxTotalExposure       float64

	// Рыночные ордера оцениваются по консервативной цене
	MaxMarketOrderNotional float64
	MarketEstimatePrice    float64

	MinOrderSpacing time.Duration
}

// EngineConfig - параметры ядра
type EngineConfig struct {
	// TTL открытого ордера; 0 отключает sweeper
	OrderTTL      time.Duration
	SweepInterval time.Duration

	// Перестройка состояния
	RebuildTimeout time.Duration

	// Размер буфера уведомлений
	NotificationBuffer int
}

// StreamConfig - настройки стрима исполнения
type StreamConfig struct {
	URL            string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	ReadTimeout    time.Duration

	// REST API биржи
	RESTBaseURL string
	APIKey      string
	APISecret   string

	// Секрет в зашифрованном виде (AES-256-GCM, base64);
	// имеет приоритет над APISecret, расшифровывается при старте
	APISecretEncrypted string

	// Rate limits (запросов в секунду)
	OrderRateLimit float64
	QueryRateLimit float64
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "tradecore"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			OpsTokenHash:  getEnv("OPS_TOKEN_HASH", ""),
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Risk: RiskConfig{
			TradingEnabled:  getEnvAsBool("TRADING_ENABLED", true),
			SymbolWhitelist: getEnvAsList("SYMBOL_WHITELIST"),

			MinOrderQty: getEnvAsFloat("MIN_ORDER_QTY", 0),
			MaxOrderQty: getEnvAsFloat("MAX_ORDER_QTY", 0),

			MaxOrderNotional:     getEnvAsFloat("MAX_ORDER_NOTIONAL", 0),
			MaxBalanceUsageRatio: getEnvAsFloat("MAX_BALANCE_USAGE_RATIO", 0),
			QuoteAsset:           getEnv("QUOTE_ASSET", "USDT"),

			MaxPositionPerSymbol:   getEnvAsFloat("MAX_POSITION_PER_SYMBOL", 0),
			MaxOpenOrdersPerSymbol: getEnvAsInt("MAX_OPEN_ORDERS_PER_SYMBOL", 0),
			MaxOpenOrdersTotal:     getEnvAsInt("MAX_OPEN_ORDERS_TOTAL", 0),
			MaxTotalExposure:       getEnvAsFloat("MAX_TOTAL_EXPOSURE", 0),

			MaxMarketOrderNotional: getEnvAsFloat("MAX_MARKET_ORDER_NOTIONAL", 0),
			MarketEstimatePrice:    getEnvAsFloat("MARKET_ESTIMATE_PRICE", 100000),

			MinOrderSpacing: getEnvAsDuration("MIN_ORDER_SPACING", 0),
		},
		Engine: EngineConfig{
			OrderTTL:           getEnvAsDuration("ORDER_TTL", 0),
			SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", 30*time.Second),
			RebuildTimeout:     getEnvAsDuration("REBUILD_TIMEOUT", 30*time.Second),
			NotificationBuffer: getEnvAsInt("NOTIFICATION_BUFFER", 256),
		},
		Stream: StreamConfig{
			URL:            getEnv("STREAM_URL", ""),
			ReconnectDelay: getEnvAsDuration("WS_RECONNECT_DELAY", 1*time.Second),
			PingInterval:   getEnvAsDuration("WS_PING_INTERVAL", 15*time.Second),
			ReadTimeout:    getEnvAsDuration("WS_READ_TIMEOUT", 30*time.Second),

			RESTBaseURL: getEnv("REST_BASE_URL", ""),
			APIKey:      getEnv("EXCHANGE_API_KEY", ""),
			APISecret:   getEnv("EXCHANGE_API_SECRET", ""),

			APISecretEncrypted: getEnv("EXCHANGE_API_SECRET_ENC", ""),

			OrderRateLimit: getEnvAsFloat("ORDER_RATE_LIMIT", 10),
			QueryRateLimit: getEnvAsFloat("QUERY_RATE_LIMIT", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен для шифрования API ключей биржи
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for encrypting API keys")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	// Без хэша ops-токена защищённые эндпоинты недоступны
	if c.Security.OpsTokenHash == "" {
		return fmt.Errorf("OPS_TOKEN_HASH is required for ops API authentication")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Risk.MinOrderQty < 0 {
		return fmt.Errorf("MIN_ORDER_QTY cannot be negative, got %v", c.Risk.MinOrderQty)
	}

	if c.Risk.MaxOrderQty > 0 && c.Risk.MaxOrderQty < c.Risk.MinOrderQty {
		return fmt.Errorf("MAX_ORDER_QTY (%v) cannot be below MIN_ORDER_QTY (%v)",
			c.Risk.MaxOrderQty, c.Risk.MinOrderQty)
	}

	if c.Risk.MaxBalanceUsageRatio < 0 || c.Risk.MaxBalanceUsageRatio > 1 {
		return fmt.Errorf("MAX_BALANCE_USAGE_RATIO must be within [0, 1], got %v", c.Risk.MaxBalanceUsageRatio)
	}

	if c.Risk.MarketEstimatePrice <= 0 {
		return fmt.Errorf("MARKET_ESTIMATE_PRICE must be positive, got %v", c.Risk.MarketEstimatePrice)
	}

	if c.Engine.OrderTTL < 0 {
		return fmt.Errorf("ORDER_TTL cannot be negative, got %v", c.Engine.OrderTTL)
	}

	if c.Engine.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %v", c.Engine.SweepInterval)
	}

	if c.Engine.NotificationBuffer < 0 {
		return fmt.Errorf("NOTIFICATION_BUFFER cannot be negative, got %d", c.Engine.NotificationBuffer)
	}

	if c.Stream.ReadTimeout <= 0 {
		return fmt.Errorf("WS_READ_TIMEOUT must be positive, got %v", c.Stream.ReadTimeout)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList разбирает список, разделённый запятыми
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
