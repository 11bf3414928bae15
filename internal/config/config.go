package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Shopify     ShopifyConfig
	Pricing     PricingConfig
	RFQ         RFQConfig
	Temporal    TemporalConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
}

// Enabled reports whether a Shopify store is configured. Without one the catalog
// is read from the database and checkout hand-off is unavailable.
func (c ShopifyConfig) Enabled() bool {
	return c.ShopDomain != "" && c.AccessToken != ""
}

type PricingConfig struct {
	PolicyFile  string
	StrictStock bool
}

type RFQConfig struct {
	ResponseSLA           time.Duration
	QuoteDefaultValidDays int
	AssignMaxRetries      int
	CartMaxRetries        int
}

type TemporalConfig struct {
	HostPort  string
	Namespace string
	TaskQueue string
	SweepCron string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	slaHours, err := getIntOrViper("RFQ_RESPONSE_SLA_HOURS", 0)
	if err != nil {
		return nil, err
	}
	validDays, err := getIntOrViper("QUOTE_DEFAULT_VALID_DAYS", 30)
	if err != nil {
		return nil, err
	}
	assignRetries, err := getIntOrViper("ASSIGN_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	cartRetries, err := getIntOrViper("CART_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:        getEnvOrViper("DB_HOST", "localhost"),
			Port:        getEnvOrViper("DB_PORT", "5432"),
			User:        getEnvOrViper("DB_USER", "postgres"),
			Password:    getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:      getEnvOrViper("DB_NAME", "b2bportal"),
			SSLMode:     getEnvOrViper("DB_SSLMODE", "disable"),
			AutoMigrate: getBoolOrViper("DB_AUTO_MIGRATE", true),
		},
		Shopify: ShopifyConfig{
			ShopDomain:  getEnvOrViper("SHOPIFY_SHOP_DOMAIN", ""),
			AccessToken: getEnvOrViper("SHOPIFY_ACCESS_TOKEN", ""),
			APIVersion:  getEnvOrViper("SHOPIFY_API_VERSION", "2024-01"),
		},
		Pricing: PricingConfig{
			PolicyFile:  getEnvOrViper("PRICING_CONFIG_FILE", ""),
			StrictStock: getBoolOrViper("STRICT_STOCK", false),
		},
		RFQ: RFQConfig{
			ResponseSLA:           time.Duration(slaHours) * time.Hour,
			QuoteDefaultValidDays: validDays,
			AssignMaxRetries:      assignRetries,
			CartMaxRetries:        cartRetries,
		},
		Temporal: TemporalConfig{
			HostPort:  getEnvOrViper("TEMPORAL_HOST_PORT", "localhost:7233"),
			Namespace: getEnvOrViper("TEMPORAL_NAMESPACE", "default"),
			TaskQueue: getEnvOrViper("EXPIRY_TASK_QUEUE", "rfq-expiry"),
			SweepCron: getEnvOrViper("EXPIRY_SWEEP_CRON", "*/15 * * * *"),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate
	if (cfg.Shopify.ShopDomain == "") != (cfg.Shopify.AccessToken == "") {
		return nil, fmt.Errorf("SHOPIFY_SHOP_DOMAIN and SHOPIFY_ACCESS_TOKEN must be set together")
	}
	if cfg.RFQ.ResponseSLA < 0 {
		return nil, fmt.Errorf("RFQ_RESPONSE_SLA_HOURS cannot be negative")
	}
	if cfg.RFQ.QuoteDefaultValidDays < 1 {
		return nil, fmt.Errorf("QUOTE_DEFAULT_VALID_DAYS must be at least 1")
	}
	if cfg.RFQ.AssignMaxRetries < 1 || cfg.RFQ.CartMaxRetries < 1 {
		return nil, fmt.Errorf("ASSIGN_MAX_RETRIES and CART_MAX_RETRIES must be at least 1")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getIntOrViper(key string, defaultValue int) (int, error) {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getBoolOrViper(key string, defaultValue bool) bool {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue
	}
	return v
}
