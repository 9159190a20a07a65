package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Pending rule identifiers accepted by PENDING_RULE.
const (
	PendingRuleZero = "zero"
	PendingRuleFlag = "flag"
)

type Config struct {
	Env string

	Database DatabaseConfig
	Log      LogConfig
	Exports  ExportsConfig
	Metrics  MetricsConfig
	Lock     LockConfig
	Grading  GradingConfig
}

type DatabaseConfig struct {
	Path        string
	BusyTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// ExportsConfig controls where rendered CSV and PDF files land.
type ExportsConfig struct {
	Dir string
	TTL time.Duration
}

// MetricsConfig toggles the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string
}

// LockConfig governs the PIN lock screen.
type LockConfig struct {
	RequirePIN  bool
	MaxAttempts int
	Lockout     time.Duration
}

// GradingConfig tunes how the grading engine treats unentered scores.
type GradingConfig struct {
	PendingRule string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Database = DatabaseConfig{
		Path:        v.GetString("DB_PATH"),
		BusyTimeout: parseDuration(v.GetString("DB_BUSY_TIMEOUT"), 5*time.Second),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Exports = ExportsConfig{
		Dir: v.GetString("EXPORTS_DIR"),
		TTL: parseDuration(v.GetString("EXPORTS_TTL"), 7*24*time.Hour),
	}

	cfg.Metrics = MetricsConfig{
		Textfile: v.GetString("METRICS_TEXTFILE"),
	}

	maxAttempts := v.GetInt("PIN_MAX_ATTEMPTS")
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	cfg.Lock = LockConfig{
		RequirePIN:  v.GetBool("REQUIRE_PIN"),
		MaxAttempts: maxAttempts,
		Lockout:     parseDuration(v.GetString("PIN_LOCKOUT"), 15*time.Minute),
	}

	rule := strings.ToLower(strings.TrimSpace(v.GetString("PENDING_RULE")))
	if rule != PendingRuleFlag {
		rule = PendingRuleZero
	}
	cfg.Grading = GradingConfig{PendingRule: rule}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_PATH", "./reportcard.db")
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("EXPORTS_DIR", "./exports")
	v.SetDefault("EXPORTS_TTL", "168h")

	v.SetDefault("METRICS_TEXTFILE", "")

	v.SetDefault("REQUIRE_PIN", false)
	v.SetDefault("PIN_MAX_ATTEMPTS", 5)
	v.SetDefault("PIN_LOCKOUT", "15m")

	v.SetDefault("PENDING_RULE", PendingRuleZero)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
