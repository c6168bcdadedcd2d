package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all configuration for the migration service
type Config struct {
	Telegram  TelegramConfig
	Migration MigrationConfig
	Filter    FilterConfig
	Logging   LoggingConfig
	Service   ServiceConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	S3        S3Config
	Export    ExportConfig
}

// TelegramConfig holds Telegram MTProto configuration
type TelegramConfig struct {
	APIID               int
	APIHash             string
	SessionDir          string
	Accounts            []string // phone numbers, the first one is the main account
	MinRequiredAccounts int
	ConnectTimeout      time.Duration
	RequestsPerSecond   int
}

// MigrationConfig holds invitation engine configuration
type MigrationConfig struct {
	MaxInvitesPerAccount    int
	DefaultSpeed            string
	ProgressInterval        time.Duration
	PollTimeout             time.Duration
	TooManyRequestsCooldown time.Duration
	MaxFloodWait            time.Duration // 0 disables the ceiling
	SpeedProfilesFile       string
	SpeedProfiles           map[string]SpeedProfileConfig
}

// FilterConfig holds activity filter configuration
type FilterConfig struct {
	Strategy         string
	LookupsPerWindow int
	Window           time.Duration
	MaxRetries       int
	ActiveWithin     time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name            string
	Port            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicProgress  string
	TopicCompleted string
}

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// ExportConfig holds failure report configuration
type ExportConfig struct {
	Enabled bool
	Dir     string
}

// Result is fx.Out struct for providing config dependencies
type Result struct {
	fx.Out

	Config          *Config
	TelegramConfig  *TelegramConfig
	MigrationConfig *MigrationConfig
	FilterConfig    *FilterConfig
	LoggingConfig   *LoggingConfig
	ServiceConfig   *ServiceConfig
	DatabaseConfig  *DatabaseConfig
	KafkaConfig     *KafkaConfig
	S3Config        *S3Config
	ExportConfig    *ExportConfig
}

// Out returns fx-compatible config result
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:          cfg,
		TelegramConfig:  &cfg.Telegram,
		MigrationConfig: &cfg.Migration,
		FilterConfig:    &cfg.Filter,
		LoggingConfig:   &cfg.Logging,
		ServiceConfig:   &cfg.Service,
		DatabaseConfig:  &cfg.Database,
		KafkaConfig:     &cfg.Kafka,
		S3Config:        &cfg.S3,
		ExportConfig:    &cfg.Export,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiID, err := strconv.Atoi(getEnv("TELEGRAM_API_ID", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_API_ID: %w", err)
	}

	accounts := []string{}
	if accountsStr := getEnv("TELEGRAM_ACCOUNTS", ""); accountsStr != "" {
		for _, phone := range strings.Split(accountsStr, ",") {
			if phone = strings.TrimSpace(phone); phone != "" {
				accounts = append(accounts, phone)
			}
		}
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			APIID:               apiID,
			APIHash:             getEnv("TELEGRAM_API_HASH", ""),
			SessionDir:          getEnv("TELEGRAM_SESSION_DIR", "./sessions"),
			Accounts:            accounts,
			MinRequiredAccounts: getEnvInt("TELEGRAM_MIN_REQUIRED_ACCOUNTS", 1),
			ConnectTimeout:      getEnvDuration("TELEGRAM_CONNECT_TIMEOUT", 30*time.Second),
			RequestsPerSecond:   getEnvInt("TELEGRAM_REQUESTS_PER_SECOND", 10),
		},
		Migration: MigrationConfig{
			MaxInvitesPerAccount:    getEnvInt("MIGRATION_MAX_INVITES_PER_ACCOUNT", 200),
			DefaultSpeed:            strings.ToLower(getEnv("MIGRATION_DEFAULT_SPEED", "normal")),
			ProgressInterval:        getEnvDuration("MIGRATION_PROGRESS_INTERVAL", 5*time.Second),
			PollTimeout:             getEnvDuration("MIGRATION_POLL_TIMEOUT", time.Second),
			TooManyRequestsCooldown: getEnvDuration("MIGRATION_TOO_MANY_REQUESTS_COOLDOWN", 60*time.Second),
			MaxFloodWait:            getEnvDuration("MIGRATION_MAX_FLOOD_WAIT", 0),
			SpeedProfilesFile:       getEnv("MIGRATION_SPEED_PROFILES_FILE", ""),
		},
		Filter: FilterConfig{
			Strategy:         strings.ToLower(getEnv("FILTER_STRATEGY", "basic")),
			LookupsPerWindow: getEnvInt("FILTER_LOOKUPS_PER_WINDOW", 30),
			Window:           getEnvDuration("FILTER_WINDOW", time.Minute),
			MaxRetries:       getEnvInt("FILTER_MAX_RETRIES", 3),
			ActiveWithin:     getEnvDuration("FILTER_ACTIVE_WITHIN", 7*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name:            getEnv("SERVICE_NAME", "migration-service"),
			Port:            getEnv("SERVICE_PORT", "8085"),
			ShutdownTimeout: getEnvDuration("SERVICE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DATABASE_ENABLED", false),
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "migration_user"),
			Password: getEnv("DATABASE_PASSWORD", "migration_pass"),
			DBName:   getEnv("DATABASE_NAME", "migration_db"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Enabled:        getEnvBool("KAFKA_ENABLED", false),
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9093"), ","),
			TopicProgress:  getEnv("KAFKA_TOPIC_PROGRESS", "migration.progress"),
			TopicCompleted: getEnv("KAFKA_TOPIC_COMPLETED", "migration.completed"),
		},
		S3: S3Config{
			Enabled:   getEnvBool("S3_ENABLED", false),
			Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "migration-reports"),
			UseSSL:    getEnvBool("S3_USE_SSL", false),
			PublicURL: getEnv("S3_PUBLIC_URL", "http://localhost:9000"),
		},
		Export: ExportConfig{
			Enabled: getEnvBool("EXPORT_ENABLED", true),
			Dir:     getEnv("EXPORT_DIR", "./reports"),
		},
	}

	cfg.Migration.SpeedProfiles = DefaultSpeedProfiles()
	if cfg.Migration.SpeedProfilesFile != "" {
		profiles, err := LoadSpeedProfiles(cfg.Migration.SpeedProfilesFile)
		if err != nil {
			return nil, err
		}
		for name, profile := range profiles {
			cfg.Migration.SpeedProfiles[name] = profile
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.APIID == 0 {
		return fmt.Errorf("TELEGRAM_API_ID is required")
	}

	if c.Telegram.APIHash == "" {
		return fmt.Errorf("TELEGRAM_API_HASH is required")
	}

	if c.Migration.MaxInvitesPerAccount <= 0 {
		return fmt.Errorf("MIGRATION_MAX_INVITES_PER_ACCOUNT must be positive")
	}

	if _, ok := c.Migration.SpeedProfiles[c.Migration.DefaultSpeed]; !ok {
		return fmt.Errorf("MIGRATION_DEFAULT_SPEED %q is not a known speed profile", c.Migration.DefaultSpeed)
	}

	for name, profile := range c.Migration.SpeedProfiles {
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("speed profile %q: %w", name, err)
		}
	}

	if c.Filter.Strategy != "basic" && c.Filter.Strategy != "advanced" {
		return fmt.Errorf("FILTER_STRATEGY must be basic or advanced, got %q", c.Filter.Strategy)
	}

	if c.Filter.LookupsPerWindow <= 0 {
		return fmt.Errorf("FILTER_LOOKUPS_PER_WINDOW must be positive")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
	}

	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required when database is enabled")
	}

	return nil
}

// GetDSN returns database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvBool gets environment variable as bool with default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvDuration gets environment variable as duration with default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
