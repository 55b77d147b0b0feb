package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	AdminUser     string
	AdminPassword string

	DatabaseURL string

	// RetentionDays is the maximum retention (in days) any uploader key may
	// request for its samples. Per-key settings are clamped to this value.
	RetentionDays int

	ListenAddr string

	// InternalAPIKey is provisioned for the admin user at startup so the
	// bundled import tools can upload without a manual key. Empty disables it.
	InternalAPIKey string

	LogLevel  string
	LogFormat string

	// Redis report cache. Empty RedisAddr disables caching.
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ReportCacheTTL time.Duration

	// MQTT live sample stream. Empty MQTTBroker disables the consumer.
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string

	// GaitConfigPath points at an optional JSON tuning file.
	GaitConfigPath string

	// Explicit device ids for each foot; empty means first-seen order.
	LeftFootDevice  string
	RightFootDevice string

	// AnalysisInterval is the period of the background analysis worker.
	// Zero disables it.
	AnalysisInterval time.Duration

	CORSOrigins []string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		AdminUser:      getenv("APP_ADMIN_USER", "admin"),
		AdminPassword:  getenv("APP_ADMIN_PASSWORD", "changeme"),
		DatabaseURL:    os.Getenv("APP_DATABASE_URL"),
		ListenAddr:     getenv("APP_LISTEN_ADDR", ":8080"),
		RetentionDays:  30,
		InternalAPIKey: getenv("APP_INTERNAL_API_KEY", ""),

		LogLevel:  strings.ToLower(getenv("APP_LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenv("APP_LOG_FORMAT", "json")),

		RedisAddr:      os.Getenv("APP_REDIS_ADDR"),
		RedisPassword:  os.Getenv("APP_REDIS_PASSWORD"),
		RedisDB:        getenvInt("APP_REDIS_DB", 0),
		ReportCacheTTL: getenvDuration("APP_REPORT_CACHE_TTL", 10*time.Minute),

		MQTTBroker:   os.Getenv("APP_MQTT_BROKER"),
		MQTTClientID: getenv("APP_MQTT_CLIENT_ID", "feetfit"),
		MQTTUsername: os.Getenv("APP_MQTT_USERNAME"),
		MQTTPassword: os.Getenv("APP_MQTT_PASSWORD"),
		MQTTTopic:    getenv("APP_MQTT_TOPIC", "gait/+/samples"),

		GaitConfigPath:  os.Getenv("APP_GAIT_CONFIG"),
		LeftFootDevice:  os.Getenv("APP_FOOT_LEFT_DEVICE"),
		RightFootDevice: os.Getenv("APP_FOOT_RIGHT_DEVICE"),

		AnalysisInterval: getenvDuration("APP_ANALYSIS_INTERVAL", time.Hour),

		CORSOrigins: splitList(getenv("APP_CORS_ORIGINS", "*")),
	}

	if v := os.Getenv("APP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// getenvDuration accepts Go duration strings ("90s", "1h"). Invalid or
// negative values fall back to def; "0" disables.
func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
