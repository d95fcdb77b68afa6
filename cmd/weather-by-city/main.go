package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-by-city/internal/api/http"
	"github.com/i474232898/weather-by-city/internal/config"
	"github.com/i474232898/weather-by-city/internal/geo"
	"github.com/i474232898/weather-by-city/internal/notify"
	"github.com/i474232898/weather-by-city/internal/observability"
	"github.com/i474232898/weather-by-city/internal/scheduler"
	"github.com/i474232898/weather-by-city/internal/store"
	"github.com/i474232898/weather-by-city/internal/weather"
	"github.com/i474232898/weather-by-city/internal/weather/providers"
	"github.com/i474232898/weather-by-city/internal/widget"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	opts := []providers.OpenWeatherOption{
		providers.WithBaseURL(cfg.OpenWeatherBaseURL),
		providers.WithLogger(zl),
	}
	if cfg.ProviderBreakerEnabled {
		opts = append(opts, providers.WithBreaker())
		metrics.BreakerEnabled.Set(1)
	}
	if cfg.OpenWeatherAPIKey == "" {
		zl.Warn("OPENWEATHER_API_KEY is not set; every lookup will fail")
	}
	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, opts...)

	service := weather.NewService(provider, metrics, zl)

	// In-memory notification feed with configured retention.
	feed := store.NewNotificationStore(cfg.NotifyMaxHistory, cfg.NotifyMaxAge)
	notifier := notify.Multi{feed, notify.NewLogNotifier(zl), metrics}

	runtime := widget.NewRuntime(service, newLocator(cfg.Location, zl), notifier, zl,
		widget.WithInFlightGauge(metrics.FetchInFlight))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := runtime.Run(ctx); err != nil {
			zl.Error("widget runtime stopped", zap.Error(err))
		}
	}()

	// Scheduler that periodically refreshes the widget.
	sched := scheduler.New(runtime, cfg.RefreshInterval, zl).WithFlag(metrics.RefreshScheduled)
	if err := sched.Start(); err != nil {
		zl.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-by-city",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-by-city",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Widget:  runtime,
		Feed:    feed,
		Lookup:  service,
		Metrics: promhttp.Handler(),
	})

	go func() {
		zl.Info("listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Error("error during shutdown", zap.Error(err))
	}

	select {
	case <-runDone:
	case <-shutdownCtx.Done():
		zl.Warn("widget runtime did not stop in time")
	}
}

// newLocator picks the current-location source: fixed coordinates, then a
// geocoded address, else none.
func newLocator(loc config.LocationConfig, zl *zap.Logger) geo.Locator {
	if loc.Coords != nil {
		l, err := geo.NewStatic(*loc.Coords)
		if err == nil {
			zl.Info("using configured coordinates for current location", zap.Stringer("coords", *loc.Coords))
			return l
		}
		zl.Warn("ignoring configured coordinates", zap.Error(err))
	}

	if loc.City != "" {
		l, err := geo.NewAddressLocator(loc.GeocodingAPIKey, loc.City, loc.State, loc.Country)
		if err == nil {
			zl.Info("geocoding configured address for current location", zap.String("city", loc.City))
			return l
		}
		zl.Warn("address geocoding unavailable", zap.Error(err))
	}

	zl.Info("current location is not configured; geolocation unsupported")
	return geo.Unsupported{}
}
