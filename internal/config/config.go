// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes bot settings such as
// the gateway token, database path, logging, sweep intervals, wizard and
// dedup-guard timeouts, the admin HTTP surface, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// AdminConfig defines the operator-facing HTTP surface (health + metrics).
type AdminConfig struct {
	Enabled bool   // ADMIN_ENABLED
	Port    string // ADMIN_PORT (just the number)
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "guildkeeper")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Discord
	BotToken string // BOT_TOKEN (required)
	OwnerID  string // OWNER_ID (optional, enables owner-only commands)

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath string // SQLite path

	// Interaction dispatcher
	GuardTTL        time.Duration // how long an interaction id stays in the dedup guard
	GuardSweepEvery time.Duration // guard sweep cadence

	// Wizard sessions
	WizardTTL        time.Duration // idle timeout for in-progress wizard sessions
	WizardSweepEvery time.Duration // wizard sweep cadence

	// Scheduled feature sweeps
	GiveawaySweepEvery time.Duration // giveaway expiry cadence
	BirthdaySweepEvery time.Duration // birthday announcer cadence

	// Bounded confirmation waits (e.g. economy rob, ticket close)
	ConfirmTimeout time.Duration

	// Outbound send rate limiting (sweep jobs)
	SendRPS   float64 // messages per second (>= 0)
	SendBurst int     // bucket size (>= 1)

	// Operator surfaces
	Admin AdminConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Discord
		BotToken: getenv("BOT_TOKEN", ""),
		OwnerID:  getenv("OWNER_ID", ""),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath: getenv("DB_PATH", "guildkeeper.db"),

		// Dispatcher
		GuardTTL:        getdur("GUARD_TTL", 15*time.Second),
		GuardSweepEvery: getdur("GUARD_SWEEP_EVERY", 10*time.Second),

		// Wizard
		WizardTTL:        getdur("WIZARD_TTL", 30*time.Minute),
		WizardSweepEvery: getdur("WIZARD_SWEEP_EVERY", time.Minute),

		// Feature sweeps
		GiveawaySweepEvery: getdur("GIVEAWAY_SWEEP_EVERY", 30*time.Second),
		BirthdaySweepEvery: getdur("BIRTHDAY_SWEEP_EVERY", 15*time.Minute),

		// Confirmation waits
		ConfirmTimeout: getdur("CONFIRM_TIMEOUT", 30*time.Second),

		// Outbound rate limiting
		SendRPS:   getfloat("SEND_RPS", 5.0),
		SendBurst: getint("SEND_BURST", 5),

		// Admin HTTP
		Admin: AdminConfig{
			Enabled: getbool("ADMIN_ENABLED", true),
			Port:    getenv("ADMIN_PORT", "8090"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "guildkeeper"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	if strings.TrimSpace(cfg.BotToken) == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.GuardTTL <= 0 || cfg.GuardSweepEvery <= 0 {
		return cfg, errors.New("guard TTL and sweep interval must be positive durations")
	}
	if cfg.WizardTTL <= 0 || cfg.WizardSweepEvery <= 0 {
		return cfg, errors.New("wizard TTL and sweep interval must be positive durations")
	}
	if cfg.GiveawaySweepEvery <= 0 || cfg.BirthdaySweepEvery <= 0 {
		return cfg, errors.New("feature sweep intervals must be positive durations")
	}
	if cfg.ConfirmTimeout <= 0 {
		return cfg, errors.New("CONFIRM_TIMEOUT must be > 0")
	}
	if cfg.SendRPS < 0 {
		return cfg, errors.New("SEND_RPS must be >= 0")
	}
	if cfg.SendBurst < 1 {
		return cfg, errors.New("SEND_BURST must be >= 1")
	}
	if cfg.Admin.Enabled && strings.TrimSpace(cfg.Admin.Port) == "" {
		return cfg, errors.New("ADMIN_PORT must not be empty when ADMIN_ENABLED")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
