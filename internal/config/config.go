package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/infra/retry"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config represents application configuration
type Config struct {
	App      AppConfig      `json:"app"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Logging  LoggingConfig  `json:"logging"`
	Workflow WorkflowConfig `json:"workflow"`
}

// AppConfig represents process level configuration
type AppConfig struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Debug       bool   `json:"debug"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"dbname"`
	SSLMode        string        `json:"sslmode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleTime    time.Duration `json:"max_idle_time"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	MigrationsPath string        `json:"migrations_path"`
}

// RedisConfig represents Redis configuration. Redis backs the identity label
// cache and the event channel; without it both fall back to in-process
// behaviour.
type RedisConfig struct {
	Enabled  bool          `json:"enabled"`
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	PoolSize int           `json:"pool_size"`
	Timeout  time.Duration `json:"timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stderr, stdout
}

// WorkflowConfig represents the lead status workflow configuration
type WorkflowConfig struct {
	StorageDriver       string        `json:"storage_driver"` // memory, postgres
	SeedFile            string        `json:"seed_file"`      // memory driver leads and identities
	LogRejections       bool          `json:"log_rejections"`
	RedApproverRole     string        `json:"red_approver_role"`
	DefaultApproverRole string        `json:"default_approver_role"`
	ReconcileInterval   time.Duration `json:"reconcile_interval"`
	RetryEnabled        bool          `json:"retry_enabled"`
	RetryMaxAttempts    int           `json:"retry_max_attempts"`
	RetryInitialDelay   time.Duration `json:"retry_initial_delay"`
	RetryMaxDelay       time.Duration `json:"retry_max_delay"`
	IdentityCacheTTL    time.Duration `json:"identity_cache_ttl"`
	EventChannel        string        `json:"event_channel"`
}

// Load loads configuration from environment variables and defaults
func Load() (*Config, error) {
	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "leadflow"),
			Environment: getEnv("ENVIRONMENT", "development"),
			Debug:       getEnvBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "leadflow"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 20),
			MaxIdleTime:    getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
			Timeout:  getEnvDuration("REDIS_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stderr"),
		},
		Workflow: WorkflowConfig{
			StorageDriver:       strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
			SeedFile:            getEnv("MEMORY_SEED_FILE", ""),
			LogRejections:       getEnvBool("WORKFLOW_LOG_REJECTIONS", false),
			RedApproverRole:     getEnv("WORKFLOW_RED_APPROVER_ROLE", string(domain.RoleManager)),
			DefaultApproverRole: getEnv("WORKFLOW_DEFAULT_APPROVER_ROLE", string(domain.RoleTeamLead)),
			ReconcileInterval:   getEnvDuration("WORKFLOW_RECONCILE_INTERVAL", time.Minute),
			RetryEnabled:        getEnvBool("WORKFLOW_RETRY_ENABLED", true),
			RetryMaxAttempts:    getEnvInt("WORKFLOW_RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay:   getEnvDuration("WORKFLOW_RETRY_INITIAL_DELAY", 200*time.Millisecond),
			RetryMaxDelay:       getEnvDuration("WORKFLOW_RETRY_MAX_DELAY", 5*time.Second),
			IdentityCacheTTL:    getEnvDuration("IDENTITY_CACHE_TTL", 5*time.Minute),
			EventChannel:        getEnv("EVENT_CHANNEL", "leadflow:events"),
		},
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Workflow.StorageDriver {
	case StorageMemory:
		if c.IsProduction() {
			return fmt.Errorf("memory storage driver is not allowed in production")
		}
	case StoragePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Workflow.StorageDriver)
	}

	if _, err := c.ApproverPolicy(); err != nil {
		return err
	}

	if c.Workflow.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1")
	}

	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("redis host is required when redis is enabled")
	}

	return nil
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
		int(c.Database.ConnectTimeout.Seconds()),
	)
}

// GetRedisAddr returns the Redis host:port address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ApproverPolicy builds the policy that picks the minimum approver role
// for a requested status
func (c *Config) ApproverPolicy() (domain.ApproverPolicy, error) {
	red, err := domain.ParseRole(c.Workflow.RedApproverRole)
	if err != nil {
		return nil, fmt.Errorf("invalid red approver role: %w", err)
	}
	other, err := domain.ParseRole(c.Workflow.DefaultApproverRole)
	if err != nil {
		return nil, fmt.Errorf("invalid default approver role: %w", err)
	}

	return func(requested domain.LeadStatus) domain.Role {
		if requested == domain.LeadStatusRed {
			return red
		}
		return other
	}, nil
}

// ToRetryConfig converts to retry.Config. MaxRetries counts retries after
// the first attempt.
func (c *Config) ToRetryConfig() retry.Config {
	return retry.Config{
		Enabled:      c.Workflow.RetryEnabled,
		MaxRetries:   c.Workflow.RetryMaxAttempts - 1,
		InitialDelay: c.Workflow.RetryInitialDelay,
		MaxDelay:     c.Workflow.RetryMaxDelay,
	}
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
