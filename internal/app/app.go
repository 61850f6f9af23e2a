package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"pricefinder/internal/aggregate"
	"pricefinder/internal/config"
	"pricefinder/internal/currency"
	"pricefinder/internal/product"
	"pricefinder/internal/ratelimit"
	"pricefinder/internal/source"
	"pricefinder/internal/throttle"
	"pricefinder/internal/web"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newConverter() *currency.Converter {
	client := currency.NewClient(currency.ClientOptions{
		BaseURL:      a.Config.Exchange.BaseURL,
		APIKey:       a.Config.Exchange.APIKey,
		BaseCurrency: a.Config.Exchange.BaseCurrency,
		Timeout:      a.Config.Exchange.RequestTimeout,
	}, a.Logger)
	cache := currency.NewCache(client, a.Config.Exchange.CacheTTL, a.Logger)
	return currency.NewConverter(cache, a.Logger)
}

// newSources builds the source list in its fixed registration order. The
// order decides which source wins ties in the metadata merge.
func (a *App) newSources(converter *currency.Converter) []source.Source {
	cfg := a.Config.Sources
	var sources []source.Source

	if cfg.OpenFoodFacts.Enabled {
		sources = append(sources, source.NewOpenFoodFacts(source.OpenFoodFactsOptions{
			BaseURL: cfg.OpenFoodFacts.BaseURL,
			Timeout: cfg.OpenFoodFacts.RequestTimeout,
		}, a.Logger))
	}

	if cfg.UPCDatabase.Enabled {
		sources = append(sources, source.NewUPCDatabase(source.UPCDatabaseOptions{
			BaseURL: cfg.UPCDatabase.BaseURL,
			APIKey:  cfg.UPCDatabase.APIKey,
			Timeout: cfg.UPCDatabase.RequestTimeout,
		}, converter, a.Logger))
	}

	if cfg.BarcodeSpider.Enabled {
		limiter := throttle.New(throttle.Options{
			MinInterval: cfg.BarcodeSpider.MinInterval,
			MaxAttempts: cfg.BarcodeSpider.MaxAttempts,
			BackoffCap:  cfg.BarcodeSpider.BackoffCap,
		}, a.Logger)
		sources = append(sources, source.NewBarcodeSpider(source.BarcodeSpiderOptions{
			BaseURL: cfg.BarcodeSpider.BaseURL,
			APIKey:  cfg.BarcodeSpider.APIKey,
			Timeout: cfg.BarcodeSpider.RequestTimeout,
		}, converter, limiter, a.Logger))
	}

	if cfg.PriceAPI.Enabled {
		sources = append(sources, source.NewPriceAPI(source.PriceAPIOptions{
			BaseURL: cfg.PriceAPI.BaseURL,
			APIKey:  cfg.PriceAPI.APIKey,
			Timeout: cfg.PriceAPI.RequestTimeout,
		}, a.Logger))
	}

	if cfg.GoogleShopping.Enabled {
		sources = append(sources, source.NewGoogleShopping(source.GoogleShoppingOptions{
			BaseURL:  cfg.GoogleShopping.BaseURL,
			APIKey:   cfg.GoogleShopping.APIKey,
			SearchCX: cfg.GoogleShopping.SearchCX,
			Timeout:  cfg.GoogleShopping.RequestTimeout,
		}, a.Logger))
	}

	if cfg.BarcodeLookup.Enabled {
		sources = append(sources, source.NewBarcodeLookup(source.BarcodeLookupOptions{
			BaseURL: cfg.BarcodeLookup.BaseURL,
			Timeout: cfg.BarcodeLookup.RequestTimeout,
		}, a.Logger))
	}

	return sources
}

func (a *App) newEngine() *aggregate.Engine {
	converter := a.newConverter()
	sources := a.newSources(converter)
	return aggregate.New(sources, aggregate.Options{
		Timeout: a.Config.Aggregate.Timeout,
	}, a.Logger)
}

// Serve runs the HTTP lookup service until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := a.newEngine()
	window := ratelimit.NewWindow(a.Config.Server.RateLimitRequests, a.Config.Server.RateLimitPeriod)
	server := web.NewServer(web.Options{
		ListenAddr:      a.Config.Server.ListenAddr,
		ShutdownTimeout: a.Config.Server.ShutdownTimeout,
	}, engine, window, a.Logger)

	a.Logger.Info().Str("addr", a.Config.Server.ListenAddr).Msg("starting lookup service")
	err := server.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("lookup service terminated with error")
		return err
	}

	a.Logger.Info().Msg("lookup service stopped")
	return nil
}

// Lookup performs a one-shot aggregation and prints the record as JSON.
func (a *App) Lookup(ctx context.Context, barcode string) error {
	if !product.ValidBarcode(barcode) {
		return fmt.Errorf("barcode must contain only digits")
	}

	record, err := a.newEngine().Lookup(ctx, barcode)
	if errors.Is(err, aggregate.ErrNoData) {
		return fmt.Errorf("no data found for barcode %s", barcode)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}
