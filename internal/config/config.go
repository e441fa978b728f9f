package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Logging      LoggingConfig
	Feed         FeedConfig
	Messaging    MessagingConfig
	Realtime     RealtimeConfig
	Reconcile    ReconcileConfig
	CORS         CORSConfig
	GeminiAPIKey string
	GeminiModel  string
}

type ServerConfig struct {
	Host            string
	Port            int
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
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

type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type FeedConfig struct {
	PageSize int
}

type MessagingConfig struct {
	DefaultFetchLimit int
	MaxFetchLimit     int
	MaxContentLength  int
}

const (
	PresenceMemory = "memory"
	PresenceRedis  = "redis"
)

type RealtimeConfig struct {
	PresenceBackend string
	PresenceTTL     time.Duration
}

type ReconcileConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ISSUER", "soundmatch")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FEED_PAGE_SIZE", 10)

	v.SetDefault("MESSAGES_DEFAULT_LIMIT", 50)
	v.SetDefault("MESSAGES_MAX_LIMIT", 100)
	v.SetDefault("MESSAGES_MAX_LENGTH", 4000)

	v.SetDefault("PRESENCE_BACKEND", PresenceMemory)
	v.SetDefault("PRESENCE_TTL", "2m")

	v.SetDefault("RECONCILE_ENABLED", true)
	v.SetDefault("RECONCILE_INTERVAL", "1m")
	v.SetDefault("RECONCILE_BATCH_SIZE", 100)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = v.ReadInConfig()

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	config := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			Env:             v.GetString("ENV"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSL_MODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			Issuer:       v.GetString("JWT_ISSUER"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Feed: FeedConfig{
			PageSize: v.GetInt("FEED_PAGE_SIZE"),
		},
		Messaging: MessagingConfig{
			DefaultFetchLimit: v.GetInt("MESSAGES_DEFAULT_LIMIT"),
			MaxFetchLimit:     v.GetInt("MESSAGES_MAX_LIMIT"),
			MaxContentLength:  v.GetInt("MESSAGES_MAX_LENGTH"),
		},
		Realtime: RealtimeConfig{
			PresenceBackend: strings.ToLower(v.GetString("PRESENCE_BACKEND")),
			PresenceTTL:     v.GetDuration("PRESENCE_TTL"),
		},
		Reconcile: ReconcileConfig{
			Enabled:   v.GetBool("RECONCILE_ENABLED"),
			Interval:  v.GetDuration("RECONCILE_INTERVAL"),
			BatchSize: v.GetInt("RECONCILE_BATCH_SIZE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
		GeminiModel:  v.GetString("GEMINI_MODEL"),
	}

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT access secret is required")
	}
	if len(c.JWT.AccessSecret) < 32 {
		return fmt.Errorf("JWT access secret must be at least 32 characters")
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed page size must be positive")
	}
	if c.Messaging.DefaultFetchLimit <= 0 || c.Messaging.MaxFetchLimit < c.Messaging.DefaultFetchLimit {
		return fmt.Errorf("message fetch limits are invalid: default %d, max %d",
			c.Messaging.DefaultFetchLimit, c.Messaging.MaxFetchLimit)
	}
	switch c.Realtime.PresenceBackend {
	case PresenceMemory, PresenceRedis:
	default:
		return fmt.Errorf("unknown presence backend %q", c.Realtime.PresenceBackend)
	}
	if c.Reconcile.Enabled && c.Reconcile.Interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive")
	}
	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
