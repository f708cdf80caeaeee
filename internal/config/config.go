package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Scanner  ScannerConfig  `yaml:"scanner" json:"scanner"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	EnableCORS   bool          `yaml:"enable_cors" json:"enable_cors"`
}

// DatabaseConfig holds catalog database configuration
type DatabaseConfig struct {
	Type         string `yaml:"type" json:"type"` // "sqlite" or "postgres"
	DatabasePath string `yaml:"database_path" json:"database_path"`
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	Database     string `yaml:"database" json:"database"`
	LogQueries   bool   `yaml:"log_queries" json:"log_queries"`
}

// ScannerConfig holds scanner configuration
type ScannerConfig struct {
	// TagParser selects the tag extraction backend: "taglib" or "dhowden".
	TagParser string `yaml:"tag_parser" json:"tag_parser"`
	// WatchLibraries enables filesystem watching of library roots; a change
	// to an audio file requests an immediate scan.
	WatchLibraries bool `yaml:"watch_libraries" json:"watch_libraries"`
	// WatchDebounce is how long to wait after the last filesystem event
	// before triggering the scan.
	WatchDebounce time.Duration `yaml:"watch_debounce" json:"watch_debounce"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // "text" or "json"
}

var (
	mu  sync.RWMutex
	cfg *Config
)

// Default returns a configuration with all default values set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5082,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			EnableCORS:   true,
		},
		Database: DatabaseConfig{
			Type:         "sqlite",
			DatabasePath: "./lms-data/lms.db",
			Host:         "localhost",
			Port:         5432,
			Username:     "lms",
			Database:     "lms",
		},
		Scanner: ScannerConfig{
			TagParser:      "taglib",
			WatchLibraries: false,
			WatchDebounce:  2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file at path (optional, may be empty) and
// applies environment-variable overrides on top of the defaults.
func Load(path string) error {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(c)

	if err := c.Validate(); err != nil {
		return err
	}

	mu.Lock()
	cfg = c
	mu.Unlock()
	return nil
}

// Get returns the current configuration, loading defaults if Load was
// never called.
func Get() *Config {
	mu.RLock()
	c := cfg
	mu.RUnlock()
	if c != nil {
		return c
	}

	mu.Lock()
	defer mu.Unlock()
	if cfg == nil {
		cfg = Default()
		applyEnvOverrides(cfg)
	}
	return cfg
}

func applyEnvOverrides(c *Config) {
	setString(&c.Server.Host, "LMS_HOST")
	setInt(&c.Server.Port, "LMS_PORT")
	setString(&c.Database.Type, "DATABASE_TYPE")
	setString(&c.Database.DatabasePath, "LMS_DATABASE_PATH")
	setString(&c.Database.Host, "POSTGRES_HOST")
	setInt(&c.Database.Port, "POSTGRES_PORT")
	setString(&c.Database.Username, "POSTGRES_USER")
	setString(&c.Database.Password, "POSTGRES_PASSWORD")
	setString(&c.Database.Database, "POSTGRES_DB")
	setString(&c.Scanner.TagParser, "LMS_TAG_PARSER")
	setBool(&c.Scanner.WatchLibraries, "LMS_WATCH_LIBRARIES")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return &ValidationError{Field: "database.type", Message: "must be sqlite or postgres"}
	}
	switch c.Scanner.TagParser {
	case "taglib", "dhowden":
	default:
		return &ValidationError{Field: "scanner.tag_parser", Message: "must be taglib or dhowden"}
	}
	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error in field '" + e.Field + "': " + e.Message
}
