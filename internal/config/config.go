package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type Config struct {
	AppPort string

	// 为空时以内存模式运行，不连接数据库
	PostgresDSN string
	RedisAddr   string

	EnableCron       bool
	FetchTimeout     time.Duration
	FetchConcurrency int

	LogLevel string
	WAFTTL   time.Duration
	WebRoot  string
}

func Load() *Config {
	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "9000"),
		PostgresDSN:      getEnv("POSTGRES_DSN", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		EnableCron:       getBool("ENABLE_CRON", true),
		FetchTimeout:     getDuration("FETCH_TIMEOUT", 15*time.Second),
		FetchConcurrency: getInt("FETCH_CONCURRENCY", 8),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		WAFTTL:           getDuration("WAF_TTL", 5*time.Minute),
		WebRoot:          getEnv("WEB_ROOT", ""),
	}

	log.Printf("config loaded: port=%s cron=%v memory=%v redis=%q", cfg.AppPort, cfg.EnableCron, cfg.MemoryMode(), cfg.RedisAddr)
	return cfg
}

// MemoryMode 未配置数据库时快照与偏好都只保存在进程内
func (c *Config) MemoryMode() bool {
	return c.PostgresDSN == ""
}

// SetupLogging 按 LOG_LEVEL 设置全局日志级别，无法识别时保持 info
func SetupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, fallback to info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnf("invalid %s=%q, use default %v", key, v, def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warnf("invalid %s=%q, use default %s", key, v, def)
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warnf("invalid %s=%q, use default %d", key, v, def)
		return def
	}
	return n
}
