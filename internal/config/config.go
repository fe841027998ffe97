package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint    string
	MetricsEnabled  bool
	MetricsExporter string
	TracingEnabled  bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	DefaultCurrency string

	// SnowflakeNode identifies this replica in generated ids; replicas
	// sharing a database need distinct values.
	SnowflakeNode int64

	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis endpoint is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// RateLimitConfig caps observation submissions per source. It needs Redis.
type RateLimitConfig struct {
	Enabled     bool
	SourceRate  float64
	SourceBurst int
}

type KafkaConfig struct {
	Brokers          []string
	GroupID          string
	ObservationTopic string
	CandidateTopic   string
	MaxWait          time.Duration
}

// Enabled reports whether queue ingest should run.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

const (
	DBTypePostgres = "postgres"
	DBTypeSQLite   = "sqlite"

	DefaultCurrency = "EUR"

	MaxSnowflakeNode = 1023
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:         getenv("APP_SERVICE", "pricewatch"),
		AppVersion:      getenv("APP_VERSION", "0.1.0"),
		Environment:     getenv("ENVIRONMENT", "development"),
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:    getenv("OTLP_ENDPOINT", "localhost:4317"),
		MetricsEnabled:  getenvBool("METRICS_ENABLED", false),
		MetricsExporter: strings.ToLower(getenv("METRICS_EXPORTER", "otlp_grpc")),
		TracingEnabled:  getenvBool("TRACING_ENABLED", false),

		DBType:            normalizeDBType(getenv("DATABASE_TYPE", DBTypePostgres)),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pricewatch"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "pricewatch.db"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 300)),

		DefaultCurrency: strings.ToUpper(strings.TrimSpace(getenv("DEFAULT_CURRENCY", DefaultCurrency))),
		SnowflakeNode:   getenvInt64("SNOWFLAKE_NODE", 1),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Kafka: KafkaConfig{
			Brokers:          splitList(getenv("KAFKA_BROKERS", "")),
			GroupID:          getenv("KAFKA_GROUP_ID", "pricewatch"),
			ObservationTopic: getenv("KAFKA_OBSERVATION_TOPIC", "price.observations"),
			CandidateTopic:   getenv("KAFKA_CANDIDATE_TOPIC", "price.candidates"),
			MaxWait:          time.Duration(getenvInt64("KAFKA_MAX_WAIT_MS", 500)) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			SourceRate:  getenvFloat("RATE_LIMIT_SOURCE_RATE", 50),
			SourceBurst: int(getenvInt64("RATE_LIMIT_SOURCE_BURST", 200)),
		},
	}

	return cfg
}

// ValidCurrency reports whether code looks like an upper-case ISO-4217 code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// IsSQLite reports whether the configured database is SQLite.
func (c Config) IsSQLite() bool {
	return c.DBType == DBTypeSQLite
}

func normalizeDBType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqlite", "sqlite3":
		return DBTypeSQLite
	default:
		return DBTypePostgres
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
