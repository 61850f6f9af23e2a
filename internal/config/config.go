package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"pricefinder/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Sources   SourcesConfig   `mapstructure:"sources"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig governs the inbound HTTP boundary.
type ServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitPeriod   time.Duration `mapstructure:"rate_limit_period"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// AggregateConfig tunes the fan-out engine.
type AggregateConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ExchangeConfig covers the exchange-rate provider.
type ExchangeConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	BaseCurrency   string        `mapstructure:"base_currency"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SourceConfig is the common shape of one vendor integration.
type SourceConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ThrottledSourceConfig extends SourceConfig with outbound pacing.
type ThrottledSourceConfig struct {
	SourceConfig `mapstructure:",squash"`
	MinInterval  time.Duration `mapstructure:"min_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BackoffCap   time.Duration `mapstructure:"backoff_cap"`
}

// SearchSourceConfig extends SourceConfig with a custom search engine id.
type SearchSourceConfig struct {
	SourceConfig `mapstructure:",squash"`
	SearchCX     string `mapstructure:"search_cx"`
}

// SourcesConfig holds one block per vendor, in registration order.
type SourcesConfig struct {
	OpenFoodFacts  SourceConfig          `mapstructure:"open_food_facts"`
	UPCDatabase    SourceConfig          `mapstructure:"upc_database"`
	BarcodeSpider  ThrottledSourceConfig `mapstructure:"barcode_spider"`
	PriceAPI       SourceConfig          `mapstructure:"price_api"`
	GoogleShopping SearchSourceConfig    `mapstructure:"google_shopping"`
	BarcodeLookup  SourceConfig          `mapstructure:"barcode_lookup"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pricefinder")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.listen_addr", ":8000")
	v.SetDefault("server.rate_limit_requests", 30)
	v.SetDefault("server.rate_limit_period", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("aggregate.timeout", "25s")

	v.SetDefault("exchange.base_url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.base_currency", "USD")
	v.SetDefault("exchange.cache_ttl", "1h")
	v.SetDefault("exchange.request_timeout", "10s")

	v.SetDefault("sources.open_food_facts.enabled", true)
	v.SetDefault("sources.open_food_facts.base_url", "https://world.openfoodfacts.org/api/v0")
	v.SetDefault("sources.open_food_facts.request_timeout", "10s")

	v.SetDefault("sources.upc_database.enabled", true)
	v.SetDefault("sources.upc_database.base_url", "https://api.upcdatabase.org/product")
	v.SetDefault("sources.upc_database.api_key", "")
	v.SetDefault("sources.upc_database.request_timeout", "10s")

	v.SetDefault("sources.barcode_spider.enabled", true)
	v.SetDefault("sources.barcode_spider.base_url", "https://api.barcodespider.com/v1/lookup")
	v.SetDefault("sources.barcode_spider.api_key", "")
	v.SetDefault("sources.barcode_spider.request_timeout", "10s")
	v.SetDefault("sources.barcode_spider.min_interval", "5s")
	v.SetDefault("sources.barcode_spider.max_attempts", 3)
	v.SetDefault("sources.barcode_spider.backoff_cap", "15s")

	v.SetDefault("sources.price_api.enabled", true)
	v.SetDefault("sources.price_api.base_url", "https://api.priceapi.com/v2")
	v.SetDefault("sources.price_api.api_key", "")
	v.SetDefault("sources.price_api.request_timeout", "15s")

	v.SetDefault("sources.google_shopping.enabled", true)
	v.SetDefault("sources.google_shopping.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("sources.google_shopping.api_key", "")
	v.SetDefault("sources.google_shopping.search_cx", "")
	v.SetDefault("sources.google_shopping.request_timeout", "10s")

	v.SetDefault("sources.barcode_lookup.enabled", true)
	v.SetDefault("sources.barcode_lookup.base_url", "https://www.barcodelookup.com")
	v.SetDefault("sources.barcode_lookup.request_timeout", "15s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Server.RateLimitRequests <= 0 {
		return fmt.Errorf("server.rate_limit_requests must be greater than zero")
	}
	if c.Server.RateLimitPeriod <= 0 {
		return fmt.Errorf("server.rate_limit_period must be greater than zero")
	}
	if c.Aggregate.Timeout <= 0 {
		return fmt.Errorf("aggregate.timeout must be greater than zero")
	}
	if c.Exchange.CacheTTL <= 0 {
		return fmt.Errorf("exchange.cache_ttl must be greater than zero")
	}
	if c.Sources.BarcodeSpider.Enabled && c.Sources.BarcodeSpider.MinInterval <= 0 {
		return fmt.Errorf("sources.barcode_spider.min_interval must be greater than zero")
	}
	return nil
}
