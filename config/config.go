package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultTokenTTL       = 30 * time.Minute
	defaultLoginRateLimit = 5
	defaultEventsChannel  = "identity-events"
)

// Config is the process-wide configuration. It is loaded once at startup
// and passed to constructors; nothing mutates it afterwards.
type Config struct {
	ServerPort int
	LogLevel   string
	Database   DatabaseConfig
	Auth       AuthConfig
	Redis      RedisConfig
	MQ         MQConfig
	Storage    StorageConfig
	CORS       CORSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// AuthConfig holds the token signing secret and credential parameters.
type AuthConfig struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

type RedisConfig struct {
	URL                    string
	LoginAttemptsPerMinute int
}

// MQConfig selects the identity event backend. An empty Backend disables publishing.
type MQConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

// StorageConfig selects the KYC document backend (minio, gcs or memory).
// An empty Backend disables KYC uploads.
type StorageConfig struct {
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getEnvBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     intVar("DB_PORT", 5432),
		User:     getEnv("DB_USER", "warenvoyage"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "warenvoyage"),
		UseSSL:   boolVar("DB_USE_SSL", false),
	}

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("SECRET_KEY"))
	}
	ttlMinutes := intVar("ACCESS_TOKEN_EXPIRE_MINUTES", int(defaultTokenTTL/time.Minute))
	if ttlMinutes <= 0 {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	authConfig := AuthConfig{
		Secret:     secret,
		TokenTTL:   time.Duration(ttlMinutes) * time.Minute,
		BcryptCost: intVar("BCRYPT_COST", 0),
	}

	cfg := Config{
		ServerPort: intVar("SERVER_PORT", 8080),
		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Database:   dbConfig,
		Auth:       authConfig,
		Redis: RedisConfig{
			URL:                    strings.TrimSpace(os.Getenv("REDIS_URL")),
			LoginAttemptsPerMinute: intVar("LOGIN_RATE_LIMIT_PER_MINUTE", defaultLoginRateLimit),
		},
		MQ: MQConfig{
			Backend: strings.ToLower(strings.TrimSpace(os.Getenv("MQ_BACKEND"))),
			Channel: getEnv("EVENTS_CHANNEL", defaultEventsChannel),
			RabbitMQ: RabbitMQConfig{
				URL:             os.Getenv("RABBITMQ_URL"),
				QueueDurable:    boolVar("RABBITMQ_QUEUE_DURABLE", true),
				QueueAutoDelete: boolVar("RABBITMQ_QUEUE_AUTO_DELETE", false),
			},
			PubSub: PubSubConfig{
				ProjectID:       os.Getenv("PUBSUB_PROJECT_ID"),
				CredentialsFile: os.Getenv("PUBSUB_CREDENTIALS_FILE"),
			},
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_BACKEND"))),
			Minio: MinioConfig{
				Endpoint:  os.Getenv("MINIO_ENDPOINT"),
				AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				Bucket:    os.Getenv("MINIO_BUCKET"),
				UseSSL:    boolVar("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          os.Getenv("GCS_BUCKET"),
				ProjectID:       os.Getenv("GCS_PROJECT_ID"),
				CredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate reports settings the HTTP server cannot run without.
func (c Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.MQ.Backend {
	case "", "rabbitmq", "pubsub":
	default:
		return fmt.Errorf("unsupported MQ_BACKEND %q", c.MQ.Backend)
	}
	switch c.Storage.Backend {
	case "", "minio", "gcs", "memory":
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
