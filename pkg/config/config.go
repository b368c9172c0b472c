// Package config provides configuration management for the style engine.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Traversal TraversalConfig `mapstructure:"traversal"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
}

// TraversalConfig holds traversal engine tuning.
type TraversalConfig struct {
	// WorkUnitMax is the maximum nodes per work unit.
	WorkUnitMax int `mapstructure:"work_unit_max"`
	// RecursionDepthLimit bounds chained tail dispatches on one stack.
	RecursionDepthLimit int `mapstructure:"recursion_depth_limit"`
	// Workers is the pool size; 0 means the pool default.
	Workers int `mapstructure:"workers"`
	// DumpStatistics enables the per-traversal statistics report.
	DumpStatistics bool `mapstructure:"dump_statistics"`
}

// DatabaseConfig holds the benchmark-run store configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // sqlite, postgres or mysql
	Path     string `mapstructure:"path"` // sqlite database file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Determine config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/style-engine")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Check if it's a "file not found" error (either viper's type or os error)
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			// File specified but doesn't exist, use defaults
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Allow environment variables to override config
	v.SetEnvPrefix("STYLE_ENGINE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Traversal defaults. The batch and recursion limits are empirically
	// tuned values, see pkg/traversal.
	v.SetDefault("traversal.work_unit_max", 16)
	v.SetDefault("traversal.recursion_depth_limit", 150)
	v.SetDefault("traversal.workers", 0)
	v.SetDefault("traversal.dump_statistics", false)

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./style-engine.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Traversal.WorkUnitMax < 0 {
		return fmt.Errorf("work unit max must not be negative")
	}
	if c.Traversal.RecursionDepthLimit < 0 {
		return fmt.Errorf("recursion depth limit must not be negative")
	}
	if c.Traversal.Workers < 0 {
		return fmt.Errorf("worker count must not be negative")
	}

	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite database path is required")
		}
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	return nil
}
