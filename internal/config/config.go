// Package config loads go-edinet configuration from YAML files, .env files
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GOEDINET_API_PORT
const EnvPrefix = "GOEDINET"

// Config represents the complete application configuration.
type Config struct {
	EDINET   EDINETConfig   `mapstructure:"edinet"   yaml:"edinet"`
	Insights InsightsConfig `mapstructure:"insights" yaml:"insights"`
	Billing  BillingConfig  `mapstructure:"billing"  yaml:"billing"`
	Settings SettingsConfig `mapstructure:"settings" yaml:"settings"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// EDINETConfig holds EDINET API access and filing search settings.
type EDINETConfig struct {
	BaseURL          string  `mapstructure:"base_url"           yaml:"base_url"`
	SubscriptionKey  string  `mapstructure:"subscription_key"   yaml:"subscription_key"`
	Contact          string  `mapstructure:"contact"            yaml:"contact"` // appended to the User-Agent
	SearchWindowDays int     `mapstructure:"search_window_days" yaml:"search_window_days"`
	CacheTTL         int     `mapstructure:"cache_ttl"          yaml:"cache_ttl"` // seconds
	RateLimit        float64 `mapstructure:"rate_limit"         yaml:"rate_limit"` // requests per second, 0 disables
	Timeout          int     `mapstructure:"timeout"            yaml:"timeout"`    // seconds
}

// InsightsConfig holds AI insight generation settings.
type InsightsConfig struct {
	GeminiKey   string  `mapstructure:"gemini_key"   yaml:"gemini_key"`
	Model       string  `mapstructure:"model"        yaml:"model"`
	Temperature float64 `mapstructure:"temperature"  yaml:"temperature"`
	CacheTTL    int     `mapstructure:"cache_ttl"    yaml:"cache_ttl"` // seconds
	FMPKey      string  `mapstructure:"fmp_key"      yaml:"fmp_key"`
	FMPBaseURL  string  `mapstructure:"fmp_base_url" yaml:"fmp_base_url"`
	Concurrency int     `mapstructure:"concurrency"  yaml:"concurrency"`
}

// BillingConfig holds PAY.JP credentials.
type BillingConfig struct {
	PayJPSecretKey string `mapstructure:"payjp_secret_key" yaml:"payjp_secret_key"`
	PayJPPlanID    string `mapstructure:"payjp_plan_id"    yaml:"payjp_plan_id"`
	BaseURL        string `mapstructure:"base_url"         yaml:"base_url"`
}

// SettingsConfig holds the user settings store location.
type SettingsConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// CacheDuration returns the EDINET cache TTL
func (c EDINETConfig) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// TimeoutDuration returns the EDINET HTTP timeout
func (c EDINETConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// CacheDuration returns the insight cache TTL
func (c InsightsConfig) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Addr returns the listen address
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads the configuration from file and environment variables.
// A .env file in the working directory is loaded into the environment first.
// Config file search order:
//  1. ./config/config.yaml
//  2. ~/.goedinet/config.yaml
//  3. /etc/goedinet/config.yaml
//
// Environment variables override config file values.
// Format: GOEDINET_<SECTION>_<KEY>, e.g., GOEDINET_EDINET_SEARCH_WINDOW_DAYS
func Load() (*Config, error) {
	loadDotEnv(".env")

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".goedinet"))
	v.AddConfigPath("/etc/goedinet")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv(".env")

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs without overriding variables already set.
// A missing file is not an error.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// setDefaults sets defaults for all config values. Every key needs a default
// so that AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("edinet.base_url", "https://api.edinet-fsa.go.jp/api/v2")
	v.SetDefault("edinet.subscription_key", "")
	v.SetDefault("edinet.contact", "")
	v.SetDefault("edinet.search_window_days", 180)
	v.SetDefault("edinet.cache_ttl", 86400) // 24 hours
	v.SetDefault("edinet.rate_limit", 5.0)
	v.SetDefault("edinet.timeout", 30)

	v.SetDefault("insights.gemini_key", "")
	v.SetDefault("insights.model", "gemini-2.0-flash")
	v.SetDefault("insights.temperature", 0.7)
	v.SetDefault("insights.cache_ttl", 21600) // 6 hours
	v.SetDefault("insights.fmp_key", "")
	v.SetDefault("insights.fmp_base_url", "https://financialmodelingprep.com/api/v3")
	v.SetDefault("insights.concurrency", 3)

	v.SetDefault("billing.payjp_secret_key", "")
	v.SetDefault("billing.payjp_plan_id", "")
	v.SetDefault("billing.base_url", "https://api.pay.jp")

	v.SetDefault("settings.db_path", filepath.Join(homeDir(), ".goedinet", "settings.db"))

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv reads secrets from the unprefixed variable names that
// deployments already use
func overrideFromEnv(cfg *Config) {
	if key := firstEnv("EDINET_SUBSCRIPTION_KEY", "EDINET_API_KEY"); key != "" {
		cfg.EDINET.SubscriptionKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Insights.GeminiKey = key
	}
	if key := os.Getenv("FMP_API_KEY"); key != "" {
		cfg.Insights.FMPKey = key
	}
	if key := os.Getenv("PAYJP_SECRET_KEY"); key != "" {
		cfg.Billing.PayJPSecretKey = key
	}
	if plan := os.Getenv("PAYJP_PLAN_ID"); plan != "" {
		cfg.Billing.PayJPPlanID = plan
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
