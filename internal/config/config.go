package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SignatureModeRequired   = "required"
	SignatureModePermissive = "permissive"
)

type Config struct {
	Env  string
	Port string

	DatabaseDriver  string
	DatabaseURL     string
	DBMaxOpenConns  int
	StoreTimeout    time.Duration
	RedisURL        string
	RedisPass       string
	RedisDB         int
	JWTSecret       string
	JWTTTL          time.Duration
	RPCURL          string
	RandomnessWait  time.Duration
	StrictRandom    bool
	SignatureMode   string
	SignatureMaxAge time.Duration
	AMMAddress      string
	AMMFeeBps       int64

	LogLevel    string
	LogFormat   string
	LogFile     string
	CORSOrigins []string
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment. Call godotenv.Load first if a
// .env file should be honoured.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 50)
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RPC_URL", "")
	v.SetDefault("RANDOMNESS_TIMEOUT", "2s")
	v.SetDefault("RANDOMNESS_STRICT", false)
	v.SetDefault("SIGNATURE_MODE", "")
	v.SetDefault("SIGNATURE_MAX_AGE", "5m")
	v.SetDefault("AMM_ADDRESS", "")
	v.SetDefault("AMM_FEE_BPS", 100)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("CORS_ORIGINS", "*")

	cfg := &Config{
		Env:             strings.ToLower(v.GetString("ENV")),
		Port:            v.GetString("PORT"),
		DatabaseDriver:  strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		DBMaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		StoreTimeout:    v.GetDuration("STORE_TIMEOUT"),
		RedisURL:        v.GetString("REDIS_URL"),
		RedisPass:       v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		JWTTTL:          v.GetDuration("JWT_TTL"),
		RPCURL:          v.GetString("RPC_URL"),
		RandomnessWait:  v.GetDuration("RANDOMNESS_TIMEOUT"),
		StrictRandom:    v.GetBool("RANDOMNESS_STRICT"),
		SignatureMode:   strings.ToLower(v.GetString("SIGNATURE_MODE")),
		SignatureMaxAge: v.GetDuration("SIGNATURE_MAX_AGE"),
		AMMAddress:      v.GetString("AMM_ADDRESS"),
		AMMFeeBps:       v.GetInt64("AMM_FEE_BPS"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		LogFile:         v.GetString("LOG_FILE"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
	}

	if cfg.SignatureMode == "" {
		cfg.SignatureMode = SignatureModePermissive
		if cfg.IsProduction() {
			cfg.SignatureMode = SignatureModeRequired
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.SignatureMode {
	case SignatureModeRequired, SignatureModePermissive:
	default:
		return fmt.Errorf("unsupported SIGNATURE_MODE %q", c.SignatureMode)
	}

	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.AMMFeeBps < 0 || c.AMMFeeBps >= 10000 {
		return fmt.Errorf("AMM_FEE_BPS must be in [0, 10000)")
	}

	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
