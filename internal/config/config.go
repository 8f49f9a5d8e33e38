// Package config loads and validates fetcher configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// Store drivers understood by the app.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// mainSection is the INI section whose keys are read as top-level settings.
const mainSection = "main"

// Config captures every knob the fetcher reads.
type Config struct {
	DBName       string        `mapstructure:"db_name"`
	APIURL       string        `mapstructure:"api_url"`
	FileName     string        `mapstructure:"file_name"`
	Threads      int           `mapstructure:"threads"`
	FailOnErrors bool          `mapstructure:"fail_on_errors"`
	Store        StoreConfig   `mapstructure:"store"`
	HTTP         HTTPConfig    `mapstructure:"http"`
	Logging      LoggingConfig `mapstructure:"logging"`
	Metrics      MetricsConfig `mapstructure:"metrics"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	// DSN is only read by the postgres driver; sqlite uses DBName.
	DSN string `mapstructure:"dsn"`
}

// HTTPConfig configures the per-worker clients.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
	// File is a YAML zap config; LOG_CFG also sets it.
	File        string `mapstructure:"file"`
}

// MetricsConfig controls the optional Prometheus listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := v.BindEnv("logging.file", "JOBDATA_LOGGING_FILE", "LOG_CFG", "Log_CFG"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		if err := readConfigFile(v, path); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".ini") {
		values, err := readINI(path)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := v.MergeConfigMap(values); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// readINI flattens the DEFAULT and main sections to top-level keys and nests every other
// section under its own name, so [store] driver = x becomes store.driver.
func readINI(path string) (map[string]any, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for _, section := range file.Sections() {
		name := strings.ToLower(section.Name())
		if name == strings.ToLower(ini.DefaultSection) || name == mainSection {
			for _, key := range section.Keys() {
				out[strings.ToLower(key.Name())] = key.Value()
			}
			continue
		}
		nested, ok := out[name].(map[string]any)
		if !ok {
			nested = make(map[string]any)
			out[name] = nested
		}
		for _, key := range section.Keys() {
			nested[strings.ToLower(key.Name())] = key.Value()
		}
	}
	return out, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_name", "jobdata.db")
	v.SetDefault("api_url", "")
	v.SetDefault("file_name", "")
	v.SetDefault("threads", 4)
	v.SetDefault("fail_on_errors", false)
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.dsn", "")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "jobdata-fetcher/0.1")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.file", "logging.yaml")
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api_url must be set")
	}
	if strings.TrimSpace(c.FileName) == "" {
		return fmt.Errorf("file_name must be set")
	}
	if c.Threads <= 0 {
		return fmt.Errorf("threads must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.DBName) == "" {
			return fmt.Errorf("db_name must be set for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn must be set for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver %q is not one of sqlite, postgres, memory", c.Store.Driver)
	}
	return nil
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
