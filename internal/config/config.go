// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	AWS         AWSConfig
	Storage     StorageConfig
	Payment     PaymentConfig
	Email       EmailConfig
	Telegram    TelegramConfig
	Admin       AdminConfig
	I18n        I18nConfig
	Club        ClubConfig
	Queue       QueueConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	ReadTimeout    int
	WriteTimeout   int
	IdleTimeout    int
	AllowedOrigins []string
	PublicBaseURL  string
	RateLimit      bool
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	AutoMigrate  bool
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

// Redis is optional; an empty Addr disables task dedup in the notifier.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Kafka is optional; with no brokers deferred tasks run in-process.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

type StorageConfig struct {
	UploadDir string
	PublicURL string
}

type PaymentConfig struct {
	StripeSecretKey      string
	StripePublishableKey string
	Currency             string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

type TelegramConfig struct {
	BotToken   string
	ChatID     string
	APIBaseURL string
}

type AdminConfig struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type I18nConfig struct {
	DefaultLocale string
}

type ClubConfig struct {
	Name     string
	Address  string
	Phone    string
	TimeZone string
}

// Location is the club's local zone; event days are counted in it.
func (c ClubConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type QueueConfig struct {
	Workers int
	Buffer  int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8000"),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:    getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			PublicBaseURL:  getEnv("PUBLIC_BASE_URL", ""),
			RateLimit:      getEnvAsBool("RATE_LIMIT_ENABLED", true),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "club_ciclismo"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "club.tasks"),
			GroupID: getEnv("KAFKA_GROUP_ID", "club-notifier"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "club-ciclismo-uploads"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Storage: StorageConfig{
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
			PublicURL: getEnv("UPLOAD_PUBLIC_URL", "/uploads"),
		},
		Payment: PaymentConfig{
			StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			Currency:             getEnv("PAYMENT_CURRENCY", "usd"),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@clubciclismo.ec"),
			FromName:     getEnv("FROM_NAME", "Club de Ciclismo"),
		},
		Telegram: TelegramConfig{
			BotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:     getEnv("TELEGRAM_CHAT_ID", ""),
			APIBaseURL: getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		},
		Admin: AdminConfig{
			Email:     getEnv("ADMIN_EMAIL", "admin@clubciclismo.ec"),
			Password:  getEnv("ADMIN_PASSWORD", "Admin123!"),
			FirstName: getEnv("ADMIN_FIRST_NAME", "Administrador"),
			LastName:  getEnv("ADMIN_LAST_NAME", "Club"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "es"),
		},
		Club: ClubConfig{
			Name:     getEnv("CLUB_NAME", "Club de Ciclismo"),
			Address:  getEnv("CLUB_ADDRESS", "Quito, Ecuador"),
			Phone:    getEnv("CLUB_PHONE", ""),
			TimeZone: getEnv("CLUB_TIMEZONE", "America/Guayaquil"),
		},
		Queue: QueueConfig{
			Workers: getEnvAsInt("QUEUE_WORKERS", 2),
			Buffer:  getEnvAsInt("QUEUE_BUFFER", 256),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Database.URL == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Admin.Password == "Admin123!" && c.Environment == "production" {
		return fmt.Errorf("ADMIN_PASSWORD must be changed in production")
	}

	if c.Queue.Workers < 1 {
		return fmt.Errorf("QUEUE_WORKERS must be at least 1")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesKafka reports whether deferred tasks go through Kafka.
func (c *Config) UsesKafka() bool {
	return len(c.Kafka.Brokers) > 0
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
