package config

import (
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the ciphertext blob store.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// VaultConfig holds envelope encryption settings.
// MasterKey is a base64-encoded 32-byte key used to wrap per-document data keys.
type VaultConfig struct {
	MasterKey    string
	BackupCopies bool
}

// RedisConfig holds settings for the distributed upload lock. When disabled,
// an in-process lock is used instead (single-instance deployments).
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds settings for publishing domain events to Kafka. When
// disabled, events fan out on the in-process bus only.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
}

// AuditConfig tunes the asynchronous audit queue.
type AuditConfig struct {
	BatchSize        int
	DrainIntervalSec int
	BufferCapacity   int
}

// IntakeConfig tunes the document intake pipeline.
type IntakeConfig struct {
	ScoreThreshold  int
	StageTimeoutSec int
	RequiredRole    string
}

// ProfileConfig points at the profile domain's completeness endpoint.
type ProfileConfig struct {
	BaseURL    string
	TimeoutSec int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	MetricsPort string
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Vault       VaultConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Audit       AuditConfig
	Intake      IntakeConfig
	Profile     ProfileConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9091"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Vault: VaultConfig{
			MasterKey:    getEnv("VAULT_MASTER_KEY", ""),
			BackupCopies: getEnvBool("VAULT_BACKUP_COPIES", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvList("KAFKA_BROKERS", "localhost:9092"),
		},
		Audit: AuditConfig{
			BatchSize:        getEnvInt("AUDIT_BATCH_SIZE", 50),
			DrainIntervalSec: getEnvInt("AUDIT_DRAIN_INTERVAL_SEC", 5),
			BufferCapacity:   getEnvInt("AUDIT_BUFFER_CAPACITY", 10000),
		},
		Intake: IntakeConfig{
			ScoreThreshold:  getEnvInt("INTAKE_SCORE_THRESHOLD", 60),
			StageTimeoutSec: getEnvInt("INTAKE_STAGE_TIMEOUT_SEC", 30),
			RequiredRole:    getEnv("INTAKE_REQUIRED_ROLE", "contractor"),
		},
		Profile: ProfileConfig{
			BaseURL:    getEnv("PROFILE_SERVICE_URL", ""),
			TimeoutSec: getEnvInt("PROFILE_TIMEOUT_SEC", 5),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvList(key, def string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
