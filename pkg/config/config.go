// Package config loads process configuration from the environment (and an
// optional .env/config file) through viper, and ledger rule tables from a
// YAML or JSON rules file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config groups the application configuration.
type Config struct {
	App     AppConfig
	Log     LogConfig
	HTTP    HTTPConfig
	DB      DBConfig
	Storage StorageConfig
	Ledger  LedgerConfig
}

// AppConfig is general application settings.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// IsDevelopment reports whether the app runs in development mode.
func (c AppConfig) IsDevelopment() bool { return c.Env == "development" }

type LogConfig struct {
	Level string
}

// HTTPConfig is the listen address of the API.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DBConfig is the PostgreSQL connection.
type DBConfig struct {
	DatabaseURL string
	MaxConns    int
}

// StorageConfig selects the ledger store.
type StorageConfig struct {
	Driver string
	// FixturePath preloads the memory store from a JSON fixture.
	FixturePath string
}

// LedgerConfig is the engine's only configuration surface: decimals shown
// in reports and the rule tables.
type LedgerConfig struct {
	Precision      int
	RulesFile      string
	DefaultContext string
}

// Load reads configuration. Environment variables win over an optional
// .env file in the working directory.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("APP_ENV"),
			Name: v.GetString("APP_NAME"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			MaxConns:    v.GetInt("DB_MAX_CONNS"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(v.GetString("STORAGE_DRIVER")),
			FixturePath: v.GetString("LEDGER_FIXTURE"),
		},
		Ledger: LedgerConfig{
			Precision:      v.GetInt("LEDGER_PRECISION"),
			RulesFile:      v.GetString("LEDGER_RULES_FILE"),
			DefaultContext: v.GetString("LEDGER_DEFAULT_CONTEXT"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "stockledger")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("STORAGE_DRIVER", DriverMemory)
	v.SetDefault("LEDGER_PRECISION", types.DefaultPrecision)
	v.SetDefault("LEDGER_DEFAULT_CONTEXT", "finished_goods")
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.DB.DatabaseURL == "" {
			return apperror.NewConfiguration("DATABASE_URL is required for the postgres driver")
		}
	default:
		return apperror.NewConfiguration(fmt.Sprintf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Ledger.Precision < 0 || c.Ledger.Precision > 8 {
		return apperror.NewConfiguration("LEDGER_PRECISION must be between 0 and 8")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return apperror.NewConfiguration(fmt.Sprintf("invalid HTTP_PORT %d", c.HTTP.Port))
	}
	return nil
}
