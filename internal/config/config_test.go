package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ADMIN_USER", "APP_LISTEN_ADDR", "APP_RETENTION_DAYS", "APP_LOG_LEVEL",
		"APP_REDIS_ADDR", "APP_REPORT_CACHE_TTL", "APP_MQTT_TOPIC", "APP_ANALYSIS_INTERVAL",
		"APP_CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "admin", cfg.AdminUser)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, "gait/+/samples", cfg.MQTTTopic)
	assert.Equal(t, time.Hour, cfg.AnalysisInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_RETENTION_DAYS", "7")
	t.Setenv("APP_LOG_LEVEL", "DEBUG")
	t.Setenv("APP_REDIS_ADDR", "localhost:6379")
	t.Setenv("APP_REDIS_DB", "2")
	t.Setenv("APP_REPORT_CACHE_TTL", "90s")
	t.Setenv("APP_ANALYSIS_INTERVAL", "0")
	t.Setenv("APP_FOOT_LEFT_DEVICE", "WT901BLE67(D6:2A:1C:8E:0F:31)")
	t.Setenv("APP_CORS_ORIGINS", "https://a.example, https://b.example ,")

	cfg := Load()
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 90*time.Second, cfg.ReportCacheTTL)
	assert.Zero(t, cfg.AnalysisInterval)
	assert.Equal(t, "WT901BLE67(D6:2A:1C:8E:0F:31)", cfg.LeftFootDevice)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("APP_RETENTION_DAYS", "-3")
	t.Setenv("APP_REDIS_DB", "two")
	t.Setenv("APP_REPORT_CACHE_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
}
