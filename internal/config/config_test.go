package config

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "") // required -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// t.Setenv isolates per test.
	t.Setenv("BOT_TOKEN", "tok")
	t.Setenv("OWNER_ID", "42")

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")

	// App
	t.Setenv("DB_PATH", "bot.sqlite")

	// Dispatcher + wizard
	t.Setenv("GUARD_TTL", "20s")
	t.Setenv("GUARD_SWEEP_EVERY", "5s")
	t.Setenv("WIZARD_TTL", "10m")
	t.Setenv("WIZARD_SWEEP_EVERY", "30s")

	// Feature sweeps
	t.Setenv("GIVEAWAY_SWEEP_EVERY", "45s")
	t.Setenv("BIRTHDAY_SWEEP_EVERY", "1h")

	// Confirmations
	t.Setenv("CONFIRM_TIMEOUT", "90s")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("SEND_RPS", "x")     // -> default 5.0
	t.Setenv("SEND_BURST", "nop") // -> default 5

	// Admin
	t.Setenv("ADMIN_ENABLED", "off")
	t.Setenv("ADMIN_PORT", "9100")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Discord
	if cfg.BotToken != "tok" || cfg.OwnerID != "42" {
		t.Fatalf("discord fields unexpected: %+v", cfg)
	}

	// Logging
	if cfg.LogLevel != "warn" || !cfg.LogPretty {
		t.Fatalf("logging unexpected: %+v", cfg)
	}

	// App
	if cfg.DBPath != "bot.sqlite" {
		t.Fatalf("db path unexpected: %q", cfg.DBPath)
	}

	// Dispatcher + wizard
	if cfg.GuardTTL != 20*time.Second ||
		cfg.GuardSweepEvery != 5*time.Second ||
		cfg.WizardTTL != 10*time.Minute ||
		cfg.WizardSweepEvery != 30*time.Second {
		t.Fatalf("guard/wizard fields unexpected: %+v", cfg)
	}

	// Feature sweeps + confirmations
	if cfg.GiveawaySweepEvery != 45*time.Second ||
		cfg.BirthdaySweepEvery != time.Hour ||
		cfg.ConfirmTimeout != 90*time.Second {
		t.Fatalf("sweep/confirm fields unexpected: %+v", cfg)
	}

	// Rate limiting (parse fallback to defaults)
	if cfg.SendRPS != 5.0 || cfg.SendBurst != 5 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}

	// Admin
	if cfg.Admin.Enabled || cfg.Admin.Port != "9100" {
		t.Fatalf("admin unexpected: %+v", cfg.Admin)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	// Each subtest sets a valid token first so only the targeted field fails.
	t.Run("missing BOT_TOKEN", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "BOT_TOKEN") {
			t.Fatalf("expected BOT_TOKEN validation error, got: %v", err)
		}
	})
	t.Run("invalid LOG_LEVEL", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("LOG_LEVEL", "verbose")
		if _, err := Load(); err == nil || !containsErr(err, "LOG_LEVEL") {
			t.Fatalf("expected LOG_LEVEL validation error, got: %v", err)
		}
	})
	t.Run("empty DB_PATH", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("DB_PATH", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "DB_PATH must not be empty") {
			t.Fatalf("expected DB_PATH validation error, got: %v", err)
		}
	})
	t.Run("non-positive guard durations", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("GUARD_TTL", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "guard TTL") {
			t.Fatalf("expected guard validation error, got: %v", err)
		}
	})
	t.Run("non-positive wizard durations", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("WIZARD_SWEEP_EVERY", "-1s")
		if _, err := Load(); err == nil || !containsErr(err, "wizard TTL") {
			t.Fatalf("expected wizard validation error, got: %v", err)
		}
	})
	t.Run("non-positive feature sweeps", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("GIVEAWAY_SWEEP_EVERY", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "sweep intervals") {
			t.Fatalf("expected sweep validation error, got: %v", err)
		}
	})
	t.Run("confirm timeout non-positive", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("CONFIRM_TIMEOUT", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "CONFIRM_TIMEOUT") {
			t.Fatalf("expected CONFIRM_TIMEOUT validation error, got: %v", err)
		}
	})
	t.Run("send rps negative", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("SEND_RPS", "-1")
		if _, err := Load(); err == nil || !containsErr(err, "SEND_RPS") {
			t.Fatalf("expected SEND_RPS validation error, got: %v", err)
		}
	})
	t.Run("send burst < 1", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("SEND_BURST", "0")
		if _, err := Load(); err == nil || !containsErr(err, "SEND_BURST") {
			t.Fatalf("expected SEND_BURST validation error, got: %v", err)
		}
	})
	t.Run("empty ADMIN_PORT while enabled", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("ADMIN_ENABLED", "true")
		t.Setenv("ADMIN_PORT", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "ADMIN_PORT") {
			t.Fatalf("expected ADMIN_PORT validation error, got: %v", err)
		}
	})
	t.Run("otel sample ratio out of range", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")
		if _, err := Load(); err == nil || !containsErr(err, "OTEL_TRACES_SAMPLER_ARG") {
			t.Fatalf("expected OTEL_TRACES_SAMPLER_ARG validation error, got: %v", err)
		}
	})
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	trueVals := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	for i, v := range trueVals {
		k := "B_T_" + strconv.Itoa(i)
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	falseVals := []string{"0", "false", "FALSE", " no ", "N", "off", "Off"}
	for i, v := range falseVals {
		k := "B_F_" + strconv.Itoa(i)
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	// default on unset/empty
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	return err != nil && strings.Contains(err.Error(), want)
}
