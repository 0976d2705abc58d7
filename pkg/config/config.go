package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// ImportConfig controls the bulk CSV upload pipeline
type ImportConfig struct {
	BatchSize   int
	UploadDir   string
	MaxUploadMB int
}

// QueryConfig controls lead listing limits
type QueryConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	ExportLimit     int
}

// RetryConfig controls retries of transient database connection errors
type RetryConfig struct {
	Attempts     int
	InitialDelay time.Duration
}

// BootstrapConfig describes the admin account created on an empty install
type BootstrapConfig struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Import      ImportConfig
	Query       QueryConfig
	Retry       RetryConfig
	Bootstrap   BootstrapConfig
}

// Load loads configuration from the optional .env file and environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		ServiceName: serviceName,
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "visor_leads"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "3000"),
			Env:  getEnv("APP_ENV", "development"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SECRET", ""),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 12),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", serviceName),
		},
		Import: ImportConfig{
			BatchSize:   getEnvAsInt("IMPORT_BATCH_SIZE", 100),
			UploadDir:   getEnv("UPLOAD_DIR", os.TempDir()),
			MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", 50),
		},
		Query: QueryConfig{
			DefaultPageSize: getEnvAsInt("DEFAULT_PAGE_SIZE", 50),
			MaxPageSize:     getEnvAsInt("MAX_PAGE_SIZE", 500),
			ExportLimit:     getEnvAsInt("EXPORT_LIMIT", 10000),
		},
		Retry: RetryConfig{
			Attempts:     getEnvAsInt("DB_RETRY_ATTEMPTS", 3),
			InitialDelay: getEnvAsDuration("DB_RETRY_DELAY", 1*time.Second),
		},
		Bootstrap: BootstrapConfig{
			AdminName:     getEnv("ADMIN_NAME", "Administrador"),
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configurations the service cannot run safely with
func (c *Config) Validate() error {
	if c.JWT.SigningKey == "" {
		if c.Server.Env == "production" {
			return errors.New("JWT_SECRET must be set in production")
		}
		c.JWT.SigningKey = "development-only-secret"
	}
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be positive, got %d", c.Import.BatchSize)
	}
	if c.Query.MaxPageSize <= 0 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive, got %d", c.Query.MaxPageSize)
	}
	if c.Query.DefaultPageSize <= 0 || c.Query.DefaultPageSize > c.Query.MaxPageSize {
		c.Query.DefaultPageSize = c.Query.MaxPageSize
	}
	if c.Retry.Attempts < 1 {
		c.Retry.Attempts = 1
	}
	return nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_user", c.DB.User),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.Int("import_batch_size", c.Import.BatchSize),
		zap.Int("max_page_size", c.Query.MaxPageSize),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
