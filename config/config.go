package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	ServerPort int
	Log        LogConfig
	Database   DatabaseConfig
	Hash       HashConfig
	Seed       SeedConfig
	Events     EventsConfig
	Archive    ArchiveConfig
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type DatabaseConfig struct {
	Driver      string
	Path        string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	UseSSL      bool
	AutoMigrate bool
}

// HashConfig controls bcrypt cost and how many hashes may run at once.
type HashConfig struct {
	Cost        int
	Concurrency int
}

// SeedConfig describes the records inserted on first start. The admin user
// is only seeded when both username and password are set.
type SeedConfig struct {
	AdminRole     string
	AdminUsername string
	AdminPassword string
}

type EventsConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	PrefetchCount   int
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type ArchiveConfig struct {
	Backend string
	Prefix  string
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

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Driver:      strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		Path:        getEnv("DB_PATH", "./data.db"),
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnvInt("DB_PORT", 5432),
		User:        getEnv("DB_USER", "adminpanel"),
		Password:    getEnv("DB_PASSWORD", "password"),
		DBName:      getEnv("DB_NAME", "adminpanel"),
		UseSSL:      getEnvBool("DB_SSL", false),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 5089),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Database: dbConfig,
		Hash: HashConfig{
			Cost:        getEnvInt("HASH_COST", 10),
			Concurrency: getEnvInt("HASH_CONCURRENCY", runtime.NumCPU()),
		},
		Seed: SeedConfig{
			AdminRole:     getEnv("SEED_ADMIN_ROLE", "Admin"),
			AdminUsername: strings.TrimSpace(getEnv("SEED_ADMIN_USERNAME", "")),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
		Events: EventsConfig{
			Backend: strings.ToLower(getEnv("EVENTS_BACKEND", "")),
			Channel: getEnv("EVENTS_CHANNEL", "admin.audit"),
			RabbitMQ: RabbitMQConfig{
				URL:             getEnv("RABBITMQ_URL", ""),
				PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
				QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
				QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			},
			PubSub: PubSubConfig{
				ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
				SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
			},
		},
		Archive: ArchiveConfig{
			Backend: strings.ToLower(getEnv("ARCHIVE_BACKEND", "")),
			Prefix:  getEnv("ARCHIVE_PREFIX", "audit"),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "adminpanel"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
