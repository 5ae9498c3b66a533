package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway.
type Config struct {
	Server        ServerConfig
	Redis         RedisConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
	Security      SecurityConfig
	Gateway       GatewayConfig
	MarketSource  MarketSourceConfig
	Notify        NotifyConfig
}

// MarketSourceConfig configures the upstream OKX-shaped swap market client.
type MarketSourceConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// NotifyConfig configures the Telegram delivery transport.
type NotifyConfig struct {
	TelegramBotToken string
	TelegramChatID   string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	URL             string
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	EnableMetrics   bool
}

type ObservabilityConfig struct {
	ServiceName string
	LogLevel    string
	LogFormat   string
	MetricsPort int
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

type SecurityConfig struct {
	CORSAllowedOrigins []string
	SharedSecret       string
}

// GatewayConfig carries every gating threshold and default named in §6.4.
type GatewayConfig struct {
	CooldownMinutes    int
	DefaultMode        string
	DefaultModes       []string
	DefaultRiskProfile string

	MomentumMin        float64 // percent, default 0.10
	ShockOIMin         float64 // percent, default 0.50
	ShockPriceMin      float64 // percent, default 0.20
	EdgePct1h          float64 // default 0.15
	SwingMinOIPct      float64 // default -0.50
	SwingReversalMin5m float64 // default 0.05
	ScalpSweepLookback int     // default 3

	MacroEnabled       bool
	MacroBTCSymbol     string
	MacroBTC4hPriceMin float64 // default 2.0
	MacroBTC4hOIMin    float64 // default 0.5
	MacroBlockShorts   bool

	RegimeEnabled               bool
	RegimeExpansionPriceMin     float64
	RegimeContractionPriceMax   float64
	RegimeContractionOIMax      float64
	RegimeEdgeContractionFactor float64 // default 1.5

	LeverageMaxCap          int
	LeverageRiskBudgetPct   float64
	LeverageInstabilityHigh float64
	LeverageFundingHigh     float64

	HeartbeatKey        string
	HeartbeatTTLSeconds int

	Symbols []string
}

// DefaultModeList returns the mode set to use when a request omits &mode=,
// preferring the plural DEFAULT_MODES list over the singular DEFAULT_MODE
// and finally "scalp" if neither is configured.
func (g GatewayConfig) DefaultModeList() []string {
	if len(g.DefaultModes) > 0 {
		return g.DefaultModes
	}
	if g.DefaultMode != "" {
		return []string{g.DefaultMode}
	}
	return []string{"scalp"}
}

// Load loads configuration from environment variables, with a best-effort
// .env load first (no-op if the file is absent).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			ReadTimeout:  getDurationEnv("READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			URL:             getEnv("REDIS_URL", "redis://localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getIntEnv("REDIS_DB", 0),
			PoolSize:        getIntEnv("REDIS_POOL_SIZE", 20),
			MinIdleConns:    getIntEnv("REDIS_MIN_IDLE_CONNS", 5),
			PoolTimeout:     getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			MaxRetries:      getIntEnv("REDIS_MAX_RETRIES", 3),
			MinRetryBackoff: getDurationEnv("REDIS_MIN_RETRY_BACKOFF", 8*time.Millisecond),
			MaxRetryBackoff: getDurationEnv("REDIS_MAX_RETRY_BACKOFF", 512*time.Millisecond),
			EnableMetrics:   getBoolEnv("REDIS_ENABLE_METRICS", true),
		},
		Observability: ObservabilityConfig{
			ServiceName: getEnv("OTEL_SERVICE_NAME", "perpgate"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "json"),
			MetricsPort: getIntEnv("METRICS_PORT", 9090),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntEnv("RATE_LIMIT_REQUESTS_PER_MINUTE", 100),
			Burst:             getIntEnv("RATE_LIMIT_BURST", 20),
		},
		Security: SecurityConfig{
			CORSAllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			SharedSecret:       getEnv("ALERT_SHARED_SECRET", ""),
		},
		Gateway: GatewayConfig{
			CooldownMinutes:    getIntEnv("COOLDOWN_MINUTES", 20),
			DefaultMode:        getEnv("DEFAULT_MODE", "scalp"),
			DefaultModes:       getSliceEnv("DEFAULT_MODES", nil),
			DefaultRiskProfile: getEnv("DEFAULT_RISK_PROFILE", "standard"),

			MomentumMin:        getFloatEnv("MOMENTUM_MIN", 0.10),
			ShockOIMin:         getFloatEnv("SHOCK_OI_MIN", 0.50),
			ShockPriceMin:      getFloatEnv("SHOCK_PRICE_MIN", 0.20),
			EdgePct1h:          getFloatEnv("EDGE_PCT_1H", 0.15),
			SwingMinOIPct:      getFloatEnv("SWING_MIN_OI_PCT", -0.50),
			SwingReversalMin5m: getFloatEnv("SWING_REVERSAL_MIN_5M", 0.05),
			ScalpSweepLookback: getIntEnv("SCALP_SWEEP_LOOKBACK", 3),

			MacroEnabled:       getBoolEnv("MACRO_ENABLED", true),
			MacroBTCSymbol:     getEnv("MACRO_BTC_SYMBOL", "BTCUSDT"),
			MacroBTC4hPriceMin: getFloatEnv("MACRO_BTC_4H_PRICE_MIN", 2.0),
			MacroBTC4hOIMin:    getFloatEnv("MACRO_BTC_4H_OI_MIN", 0.5),
			MacroBlockShorts:   getBoolEnv("MACRO_BLOCK_SHORTS", true),

			RegimeEnabled:               getBoolEnv("REGIME_ENABLED", false),
			RegimeExpansionPriceMin:     getFloatEnv("REGIME_EXPANSION_PRICE_MIN", 3.0),
			RegimeContractionPriceMax:   getFloatEnv("REGIME_CONTRACTION_PRICE_MAX", 0.5),
			RegimeContractionOIMax:      getFloatEnv("REGIME_CONTRACTION_OI_MAX", -1.0),
			RegimeEdgeContractionFactor: getFloatEnv("REGIME_EDGE_CONTRACTION_FACTOR", 1.5),

			LeverageMaxCap:          getIntEnv("LEVERAGE_MAX_CAP", 10),
			LeverageRiskBudgetPct:   getFloatEnv("LEVERAGE_RISK_BUDGET_PCT", 1.0),
			LeverageInstabilityHigh: getFloatEnv("LEVERAGE_INSTABILITY_HIGH", 1.0),
			LeverageFundingHigh:     getFloatEnv("LEVERAGE_FUNDING_HIGH", 0.03),

			HeartbeatKey:        getEnv("HEARTBEAT_KEY", "alert:lastRun"),
			HeartbeatTTLSeconds: getIntEnv("HEARTBEAT_TTL_SECONDS", 24*60*60),

			Symbols: getSliceEnv("GATEWAY_SYMBOLS", []string{}),
		},
		MarketSource: MarketSourceConfig{
			BaseURL:           getEnv("MARKET_SOURCE_BASE_URL", "https://www.okx.com"),
			Timeout:           getDurationEnv("MARKET_SOURCE_TIMEOUT", 8*time.Second),
			RequestsPerSecond: getFloatEnv("MARKET_SOURCE_REQUESTS_PER_SECOND", 10),
			Burst:             getIntEnv("MARKET_SOURCE_BURST", 5),
		},
		Notify: NotifyConfig{
			TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},
	}

	if path := getEnv("SYMBOL_UNIVERSE_FILE", ""); path != "" {
		universe, err := loadSymbolUniverseFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading SYMBOL_UNIVERSE_FILE: %w", err)
		}
		cfg.Gateway.Symbols = universe
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// symbolUniverseFile is the YAML shape of an optional static symbol list.
// When SYMBOL_UNIVERSE_FILE is set, its list replaces GATEWAY_SYMBOLS
// outright; it is for an operator who wants the tracked universe checked into version control
// rather than passed as a single long environment variable.
type symbolUniverseFile struct {
	Symbols []string `yaml:"symbols"`
}

// loadSymbolUniverseFile reads and parses path into a symbol list. Symbols
// are upper-cased and trimmed the same way GATEWAY_SYMBOLS entries are.
func loadSymbolUniverseFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading symbol universe file: %w", err)
	}

	var doc symbolUniverseFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing symbol universe YAML: %w", err)
	}

	out := make([]string, 0, len(doc.Symbols))
	for _, s := range doc.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Config) validate() error {
	if c.Security.SharedSecret == "" {
		return fmt.Errorf("ALERT_SHARED_SECRET is required")
	}
	if c.Gateway.CooldownMinutes <= 0 {
		return fmt.Errorf("COOLDOWN_MINUTES must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
