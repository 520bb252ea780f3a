package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds application-level configuration.
type AppConfig struct {
	Redis        RedisConfig
	AppConfig    AppConfigSettings
	Worker       WorkerConfig
	WhatsApp     WhatsAppConfig
	Channel      ChannelConfig
	HTTP         HTTPConfig
	Store        string // "redis" or "memory"
	Organization string
}

// RedisConfig holds Redis connection settings.
// Supports standalone, cluster, and sentinel deployments (ElastiCache).
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PoolSize      int
	MinIdleConns  int
	ClusterMode   bool
	SentinelAddrs []string
	MasterName    string
}

// AppConfigSettings holds AWS AppConfig settings.
type AppConfigSettings struct {
	Endpoint      string
	ApplicationID string
	EnvironmentID string
	Profile       string // notification document, e.g. "tasknotify.templates"
}

// WorkerConfig holds reminder worker settings.
type WorkerConfig struct {
	ScanCount      int64
	StateTTL       time.Duration // 0 keeps task state forever
	ReminderWindow time.Duration // tasks due within this window get a reminder
	Interval       time.Duration // local ticker interval
}

// WhatsAppConfig holds WhatsApp Business API configuration.
type WhatsAppConfig struct {
	APIEndpoint   string
	PhoneNumberID string
	AccessToken   string
	STSEndpoint   string
	SecretName    string // Secrets Manager secret with client_id/client_secret
	MaxRetries    int
	RetryDelay    time.Duration
}

// ChannelConfig selects and tunes the dispatch channel.
type ChannelConfig struct {
	Name             string
	Sender           string // "simulated" or "whatsapp"
	HandshakeLatency time.Duration
	SendLatency      time.Duration
	SuccessRate      float64
	Seed             uint64
	AutoConnect      bool
}

// HTTPConfig holds the local HTTP server settings.
type HTTPConfig struct {
	Addr string
}

// Sender kinds.
const (
	SenderSimulated = "simulated"
	SenderWhatsApp  = "whatsapp"
)

// Store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// LoadFromEnv loads configuration from environment variables with sensible defaults.
func LoadFromEnv() (*AppConfig, error) {
	redisAddr := getEnvOrDefault("REDIS_ADDR", "localhost:6379")

	// Check for ElastiCache configuration
	if elasticacheEndpoint := os.Getenv("ELASTICACHE_ENDPOINT"); elasticacheEndpoint != "" {
		redisAddr = elasticacheEndpoint
	}

	redisCfg := RedisConfig{
		Addr:         redisAddr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           getEnvInt("REDIS_DB", 0),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		ClusterMode:  os.Getenv("ELASTICACHE_CLUSTER_MODE") == "true",
	}

	if sentinelAddrs := os.Getenv("ELASTICACHE_SENTINEL_ADDRS"); sentinelAddrs != "" {
		redisCfg.SentinelAddrs = strings.Split(sentinelAddrs, ",")
		redisCfg.MasterName = os.Getenv("ELASTICACHE_MASTER_NAME")
	}

	cfg := &AppConfig{
		Redis: redisCfg,
		AppConfig: AppConfigSettings{
			Endpoint:      os.Getenv("APPCONFIG_ENDPOINT"),
			ApplicationID: os.Getenv("APPCONFIG_APP_ID"),
			EnvironmentID: os.Getenv("APPCONFIG_ENV_ID"),
			Profile:       getEnvOrDefault("APPCONFIG_PROFILE", "tasknotify.templates"),
		},
		Worker: WorkerConfig{
			ScanCount:      100,
			StateTTL:       getEnvDuration("TASK_STATE_TTL", 0),
			ReminderWindow: getEnvDuration("REMINDER_WINDOW", 24*time.Hour),
			Interval:       getEnvDuration("REMINDER_INTERVAL", time.Hour),
		},
		WhatsApp: WhatsAppConfig{
			APIEndpoint:   getEnvOrDefault("WHATSAPP_API_ENDPOINT", "http://localhost:8081"),
			PhoneNumberID: getEnvOrDefault("WHATSAPP_PHONE_NUMBER_ID", "tasknotify"),
			AccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
			STSEndpoint:   os.Getenv("WHATSAPP_STS_ENDPOINT"),
			SecretName:    os.Getenv("WHATSAPP_SECRET_NAME"),
			MaxRetries:    getEnvInt("WHATSAPP_MAX_RETRIES", 2),
			RetryDelay:    getEnvDuration("WHATSAPP_RETRY_DELAY", 500*time.Millisecond),
		},
		Channel: ChannelConfig{
			Name:             getEnvOrDefault("CHANNEL_NAME", "whatsapp"),
			Sender:           getEnvOrDefault("CHANNEL_SENDER", SenderSimulated),
			HandshakeLatency: getEnvDuration("CHANNEL_HANDSHAKE_LATENCY", time.Second),
			SendLatency:      getEnvDuration("CHANNEL_SEND_LATENCY", 500*time.Millisecond),
			SuccessRate:      getEnvFloat("CHANNEL_SUCCESS_RATE", 0.9),
			Seed:             uint64(getEnvInt("CHANNEL_SEED", 1)),
			AutoConnect:      getEnvOrDefault("CHANNEL_AUTO_CONNECT", "true") == "true",
		},
		HTTP: HTTPConfig{
			Addr: getEnvOrDefault("HTTP_ADDR", ":8080"),
		},
		Store:        getEnvOrDefault("STORE_BACKEND", StoreRedis),
		Organization: getEnvOrDefault("ORGANIZATION_NAME", "Task Management Team"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
