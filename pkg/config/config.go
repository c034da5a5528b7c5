package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	ObjectStore ObjectStoreConfig
	Kafka       KafkaConfig
	Pinterest   PinterestConfig
	Mockups     MockupProviderConfig
	Pipeline    PipelineConfig
	CORS        CORSConfig
	Log         LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ObjectStoreConfig points at the S3-compatible bucket holding rendered images.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// KafkaConfig wires the optional pipeline event stream. An empty broker
// disables event publishing.
type KafkaConfig struct {
	Broker string
	Topic  string
}

// PinterestConfig covers the external publish API.
type PinterestConfig struct {
	BaseURL     string
	CallTimeout time.Duration
}

// MockupProviderConfig covers the external mockup render service.
type MockupProviderConfig struct {
	BaseURL     string
	APIKey      string
	CallTimeout time.Duration
}

// PipelineConfig carries the content-pipeline policy knobs.
type PipelineConfig struct {
	PublishInterval   time.Duration
	PublishBatchSize  int
	RetryInterval     time.Duration
	RetryCooldown     time.Duration
	MaxPublishRetries int
	QualityThreshold  float64
	WinnerCacheTTL    time.Duration
	RenderWorkers     int
	RenderQueueBuffer int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.ObjectStore = ObjectStoreConfig{
		Endpoint:  v.GetString("STORE_ENDPOINT"),
		AccessKey: v.GetString("STORE_ACCESS_KEY"),
		SecretKey: v.GetString("STORE_SECRET_KEY"),
		Bucket:    v.GetString("STORE_BUCKET"),
		UseSSL:    v.GetBool("STORE_USE_SSL"),
		PublicURL: v.GetString("STORE_PUBLIC_URL"),
	}

	cfg.Kafka = KafkaConfig{
		Broker: v.GetString("KAFKA_BROKER"),
		Topic:  v.GetString("KAFKA_TOPIC"),
	}

	cfg.Pinterest = PinterestConfig{
		BaseURL:     v.GetString("PINTEREST_BASE_URL"),
		CallTimeout: parseDuration(v.GetString("PINTEREST_CALL_TIMEOUT"), 30*time.Second),
	}

	cfg.Mockups = MockupProviderConfig{
		BaseURL:     v.GetString("MOCKUP_PROVIDER_BASE_URL"),
		APIKey:      v.GetString("MOCKUP_PROVIDER_API_KEY"),
		CallTimeout: parseDuration(v.GetString("MOCKUP_PROVIDER_CALL_TIMEOUT"), 60*time.Second),
	}

	cfg.Pipeline = PipelineConfig{
		PublishInterval:   parseDuration(v.GetString("PUBLISH_INTERVAL"), 15*time.Minute),
		PublishBatchSize:  v.GetInt("PUBLISH_BATCH_SIZE"),
		RetryInterval:     parseDuration(v.GetString("PUBLISH_RETRY_INTERVAL"), 6*time.Hour),
		RetryCooldown:     parseDuration(v.GetString("PUBLISH_RETRY_COOLDOWN"), 6*time.Hour),
		MaxPublishRetries: v.GetInt("PUBLISH_MAX_RETRIES"),
		QualityThreshold:  v.GetFloat64("QUALITY_THRESHOLD"),
		WinnerCacheTTL:    parseDuration(v.GetString("WINNER_CACHE_TTL"), 10*time.Minute),
		RenderWorkers:     v.GetInt("RENDER_WORKERS"),
		RenderQueueBuffer: v.GetInt("RENDER_QUEUE_BUFFER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "haven_hub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("STORE_ENDPOINT", "localhost:9000")
	v.SetDefault("STORE_ACCESS_KEY", "")
	v.SetDefault("STORE_SECRET_KEY", "")
	v.SetDefault("STORE_BUCKET", "creative-assets")
	v.SetDefault("STORE_USE_SSL", false)
	v.SetDefault("STORE_PUBLIC_URL", "")

	v.SetDefault("KAFKA_BROKER", "")
	v.SetDefault("KAFKA_TOPIC", "content-pipeline-events")

	v.SetDefault("PINTEREST_BASE_URL", "https://api.pinterest.com/v5")
	v.SetDefault("PINTEREST_CALL_TIMEOUT", "30s")

	v.SetDefault("MOCKUP_PROVIDER_BASE_URL", "https://app.dynamicmockups.com/api/v1")
	v.SetDefault("MOCKUP_PROVIDER_API_KEY", "")
	v.SetDefault("MOCKUP_PROVIDER_CALL_TIMEOUT", "60s")

	v.SetDefault("PUBLISH_INTERVAL", "15m")
	v.SetDefault("PUBLISH_BATCH_SIZE", 20)
	v.SetDefault("PUBLISH_RETRY_INTERVAL", "6h")
	v.SetDefault("PUBLISH_RETRY_COOLDOWN", "6h")
	v.SetDefault("PUBLISH_MAX_RETRIES", 3)
	v.SetDefault("QUALITY_THRESHOLD", 0.8)
	v.SetDefault("WINNER_CACHE_TTL", "10m")
	v.SetDefault("RENDER_WORKERS", 2)
	v.SetDefault("RENDER_QUEUE_BUFFER", 16)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
