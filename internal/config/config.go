package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sequence SequenceConfig `mapstructure:"sequence"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// StorageConfig holds attachment storage configuration
type StorageConfig struct {
	BaseDir    string `mapstructure:"base_dir"`
	URLPrefix  string `mapstructure:"url_prefix"`
	SigningKey string `mapstructure:"signing_key"`
}

// SequenceConfig holds document number allocation configuration
type SequenceConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// OutboxConfig holds outbox relay configuration
type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

// ReminderConfig holds approval reminder configuration
type ReminderConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	WaitThreshold time.Duration `mapstructure:"wait_threshold"`
	BatchSize     int           `mapstructure:"batch_size"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/approval.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Storage defaults
	viper.SetDefault("storage.base_dir", "data/attachments")
	viper.SetDefault("storage.url_prefix", "http://localhost:8080/files")

	// Sequence defaults
	viper.SetDefault("sequence.prefix", "HERO")

	// Outbox defaults
	viper.SetDefault("outbox.poll_interval", 2*time.Second)
	viper.SetDefault("outbox.batch_size", 50)

	// Reminder defaults
	viper.SetDefault("reminder.sweep_interval", 24*time.Hour)
	viper.SetDefault("reminder.wait_threshold", 72*time.Hour)
	viper.SetDefault("reminder.batch_size", 100)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("storage.signing_key", "STORAGE_SIGNING_KEY")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("sequence.prefix", "SEQUENCE_PREFIX")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Storage.SigningKey == "" {
		return fmt.Errorf("storage.signing_key is required")
	}

	if c.Sequence.Prefix == "" {
		return fmt.Errorf("sequence.prefix is required")
	}

	if c.Outbox.PollInterval <= 0 {
		return fmt.Errorf("outbox.poll_interval must be positive")
	}

	if c.Reminder.WaitThreshold <= 0 {
		return fmt.Errorf("reminder.wait_threshold must be positive")
	}

	return nil
}
