package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	t.Setenv(key, "")
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestLoadDefaultsToMemoryMode(t *testing.T) {
	t.Setenv("APP_PORT", "1234")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("ENABLE_CRON", "false")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("WAF_TTL", "")

	cfg := Load()
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if !cfg.MemoryMode() {
		t.Fatalf("empty POSTGRES_DSN should mean memory mode")
	}
	if cfg.EnableCron {
		t.Fatalf("ENABLE_CRON=false not honoured")
	}
	if cfg.FetchTimeout != 3*time.Second || cfg.WAFTTL != 5*time.Minute {
		t.Fatalf("durations not loaded correctly: %+v", cfg)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "-1s")
	t.Setenv("X_INT", "zero")

	if !getBool("X_BOOL", true) {
		t.Fatalf("invalid bool should fall back to default")
	}
	if getDuration("X_DUR", time.Minute) != time.Minute {
		t.Fatalf("non-positive duration should fall back to default")
	}
	if getInt("X_INT", 8) != 8 {
		t.Fatalf("invalid int should fall back to default")
	}
}

func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	SetupLogging("debug")
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("level = %v, want debug", log.GetLevel())
	}
	SetupLogging("loud")
	if log.GetLevel() != log.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %v", log.GetLevel())
	}
}
