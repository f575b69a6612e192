package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	StorageDriver         string
	SQLitePath            string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	SessionID             string
	AuthSecret            string
	AccessTokenTTLMinutes int
	WriteTimeoutSeconds   int
	LowStockDefault       int
	ReceiptLocale         string
	SeedAdminPassword     string
	SeedCashierPassword   string
	SeedDemoCatalog       bool
	LogLevel              string
	LogFormat             string
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads defaults, an optional sheetpos.toml and SHEETPOS_* environment
// variables, in increasing order of precedence.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("sheetpos")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/sheetpos")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHEETPOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	ttl := v.GetInt("access_token_ttl_minutes")
	if ttl < 1 {
		ttl = 480
	}
	writeTimeout := v.GetInt("write_timeout_seconds")
	if writeTimeout < 1 {
		writeTimeout = 5
	}
	lowStock := v.GetInt("low_stock_default")
	if lowStock < 0 {
		lowStock = 0
	}

	cfg := Config{
		Port:                  v.GetString("port"),
		AllowedOrigin:         v.GetString("allowed_origin"),
		StorageDriver:         strings.ToLower(strings.TrimSpace(v.GetString("storage_driver"))),
		SQLitePath:            v.GetString("sqlite_path"),
		DatabaseURL:           strings.TrimSpace(v.GetString("database_url")),
		RedisAddr:             strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword:         v.GetString("redis_password"),
		RedisDB:               v.GetInt("redis_db"),
		SessionID:             v.GetString("session_id"),
		AuthSecret:            strings.TrimSpace(v.GetString("auth_secret")),
		AccessTokenTTLMinutes: ttl,
		WriteTimeoutSeconds:   writeTimeout,
		LowStockDefault:       lowStock,
		ReceiptLocale:         v.GetString("receipt_locale"),
		SeedAdminPassword:     v.GetString("seed_admin_password"),
		SeedCashierPassword:   v.GetString("seed_cashier_password"),
		SeedDemoCatalog:       v.GetBool("seed_demo_catalog"),
		LogLevel:              v.GetString("log_level"),
		LogFormat:             v.GetString("log_format"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("allowed_origin", "http://127.0.0.1:3000")
	v.SetDefault("storage_driver", DriverSQLite)
	v.SetDefault("sqlite_path", "./sheetpos.db")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("session_id", "main-device")
	v.SetDefault("auth_secret", "")
	v.SetDefault("access_token_ttl_minutes", 480)
	v.SetDefault("write_timeout_seconds", 5)
	v.SetDefault("low_stock_default", 10)
	v.SetDefault("receipt_locale", "en-IN")
	v.SetDefault("seed_admin_password", "")
	v.SetDefault("seed_cashier_password", "")
	v.SetDefault("seed_demo_catalog", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
