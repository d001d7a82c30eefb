package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Backend modes.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Config holds all configuration for our application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Study    StudyConfig    `mapstructure:"study"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	HTTPPort       int      `mapstructure:"http_port"`
	Path           string   `mapstructure:"path"`
	Nonce          string   `mapstructure:"nonce"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	LogSQL   bool   `mapstructure:"log_sql"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BackendConfig selects the study backend used by client commands.
type BackendConfig struct {
	Mode      string        `mapstructure:"mode"`
	Endpoint  string        `mapstructure:"endpoint"`
	Nonce     string        `mapstructure:"nonce"`
	Timeout   time.Duration `mapstructure:"timeout"`
	WordsetID int64         `mapstructure:"wordset_id"`
}

// StudyConfig tunes session orchestration.
type StudyConfig struct {
	ChunkSize            int           `mapstructure:"chunk_size"`
	LearningMinChunkSize int           `mapstructure:"learning_min_chunk_size"`
	HardThreshold        float64       `mapstructure:"hard_threshold"`
	PrefetchRatio        float64       `mapstructure:"prefetch_ratio"`
	PrefetchFallback     int           `mapstructure:"prefetch_fallback"`
	SaveDebounce         time.Duration `mapstructure:"save_debounce"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	setDefaults()

	// Enable reading from environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.path", "/ajax")
	viper.SetDefault("server.nonce", "")
	viper.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	viper.SetDefault("database.driver", DriverSQLite)
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "flashdeck")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.log_sql", false)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	// Backend defaults
	viper.SetDefault("backend.mode", BackendLocal)
	viper.SetDefault("backend.endpoint", "")
	viper.SetDefault("backend.nonce", "")
	viper.SetDefault("backend.timeout", 15*time.Second)
	viper.SetDefault("backend.wordset_id", 1)

	// Study defaults
	viper.SetDefault("study.chunk_size", 15)
	viper.SetDefault("study.learning_min_chunk_size", 8)
	viper.SetDefault("study.hard_threshold", 4.0)
	viper.SetDefault("study.prefetch_ratio", 0.8)
	viper.SetDefault("study.prefetch_fallback", 8)
	viper.SetDefault("study.save_debounce", 300*time.Millisecond)
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.DatabaseDriver() {
	case DriverSQLite, DriverPostgres, DriverPgx:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.BackendMode() {
	case BackendLocal:
	case BackendRemote:
		if strings.TrimSpace(c.Backend.Endpoint) == "" {
			return fmt.Errorf("backend.endpoint is required in %s mode", BackendRemote)
		}
	default:
		return fmt.Errorf("unsupported backend mode %q", c.Backend.Mode)
	}
	return nil
}

// DatabaseDriver returns the normalized driver name.
func (c *Config) DatabaseDriver() string {
	driver := strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch driver {
	case "", "sqlite":
		return DriverSQLite
	case "postgresql":
		return DriverPostgres
	default:
		return driver
	}
}

// BackendMode returns the normalized backend mode.
func (c *Config) BackendMode() string {
	mode := strings.ToLower(strings.TrimSpace(c.Backend.Mode))
	if mode == "" {
		return BackendLocal
	}
	return mode
}

// DatabaseURL returns the configured DSN, falling back to a PostgreSQL URL
// built from the discrete settings, or a local SQLite file.
func (c *Config) DatabaseURL() string {
	if dsn := strings.TrimSpace(c.Database.DSN); dsn != "" {
		return dsn
	}
	if c.DatabaseDriver() == DriverSQLite {
		return "file:flashdeck.db?cache=shared&_fk=1"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

// HTTPAddr returns the listen address of the HTTP server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}
