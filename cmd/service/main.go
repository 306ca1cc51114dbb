package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherwise/internal/cache"
	"github.com/kjstillabower/weatherwise/internal/circuitbreaker"
	"github.com/kjstillabower/weatherwise/internal/client"
	"github.com/kjstillabower/weatherwise/internal/config"
	httphandler "github.com/kjstillabower/weatherwise/internal/http"
	"github.com/kjstillabower/weatherwise/internal/lifecycle"
	"github.com/kjstillabower/weatherwise/internal/location"
	"github.com/kjstillabower/weatherwise/internal/observability"
	"github.com/kjstillabower/weatherwise/internal/service"
)

const (
	drainPollInterval = 100 * time.Millisecond
	readTimeout       = 10 * time.Second
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	if err := run(logger); err != nil {
		logger.Error("service exited", zap.Error(err))
		_ = observability.FlushTelemetry(context.Background(), logger)
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	weatherClient, err := client.NewOpenWeatherClientWithRetry(
		cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout,
		cfg.RetryAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay,
	)
	if err != nil {
		return fmt.Errorf("weather client: %w", err)
	}
	if !cfg.HasAPIKey() {
		logger.Warn("OPENWEATHER_API_KEY not set; weather and air quality requests will fail")
	}
	breakers := installBreakers(cfg, weatherClient, logger)

	store, memcached, err := newCache(cfg, logger)
	if err != nil {
		return err
	}
	if memcached != nil {
		defer func() {
			if err := memcached.Close(); err != nil {
				logger.Error("memcached close", zap.Error(err))
			}
		}()
	}

	svc := service.NewWeatherService(weatherClient, location.NewResolver(weatherClient), store, cfg.CacheTTL, cfg.CoalesceTimeout)
	if cfg.HasAPIKey() {
		checkAPIKey(svc, cfg.WeatherAPITimeout, logger)
	}

	health := &httphandler.HealthConfig{
		OverloadWindow:         cfg.OverloadWindow,
		OverloadThresholdPct:   cfg.OverloadThresholdPct,
		RateLimitRPS:           cfg.RateLimitRPS,
		DegradedWindow:         cfg.DegradedWindow,
		DegradedErrorPct:       cfg.DegradedErrorPct,
		IdleWindow:             cfg.IdleWindow,
		IdleThresholdReqPerMin: cfg.IdleThresholdReqPerMin,
		MinimumLifespan:        cfg.MinimumLifespan,
		StartTime:              time.Now(),
		Breakers:               breakers,
	}
	if memcached != nil {
		health.CachePing = memcached.Ping
	}

	observability.RegisterRateLimitGauges(cfg.OverloadWindow)
	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	warmCtx, stopWarming := context.WithCancel(context.Background())
	defer stopWarming()
	if cfg.HasAPIKey() && len(cfg.WarmCities) > 0 {
		go warmForever(warmCtx, cache.NewCacheWarmer(svc, logger), cfg, logger)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	handler := httphandler.NewHandler(svc, cfg.HasAPIKey(), cfg.MaxCityLength, health, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      withOuterHandlers(httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout), logger),
		ReadTimeout:  readTimeout,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-sigCtx.Done():
	}

	logger.Info("graceful shutdown triggered")
	lifecycle.BeginShutdown(time.Now())
	stopWarming()
	drain(srv, cfg.ShutdownTimeout, logger)
	return nil
}

// installBreakers gives each provider endpoint its own breaker so one failing
// endpoint does not block the others.
func installBreakers(cfg *config.Config, c *client.OpenWeatherClient, logger *zap.Logger) []*circuitbreaker.CircuitBreaker {
	onChange := func(component string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker transition",
			zap.String("component", component),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		observability.RecordCircuitBreakerTransition(component, from.String(), to.String(), int(to))
	}

	endpoints := []string{client.EndpointWeather, client.EndpointForecast, client.EndpointGeocode, client.EndpointAirPollution}
	breakers := make([]*circuitbreaker.CircuitBreaker, 0, len(endpoints))
	for _, endpoint := range endpoints {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.BreakerFailureThreshold,
			SuccessThreshold: cfg.BreakerSuccessThreshold,
			Timeout:          cfg.BreakerTimeout,
			Component:        endpoint,
			IsFailure:        client.IsBreakerFailure,
			OnStateChange:    onChange,
		})
		c.SetCircuitBreaker(endpoint, cb)
		observability.CircuitBreakerState.WithLabelValues(endpoint).Set(float64(circuitbreaker.StateClosed))
		breakers = append(breakers, cb)
	}
	return breakers
}

// newCache returns the configured cache. The memcached handle is non-nil only
// for that backend so the caller can ping and close it.
func newCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, *cache.MemcachedCache, error) {
	if cfg.CacheBackend != "memcached" {
		logger.Info("cache backend: in_memory")
		return cache.NewInMemoryCache(), nil, nil
	}
	mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
	if err != nil {
		return nil, nil, fmt.Errorf("memcached cache: %w", err)
	}
	logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	return mc, mc, nil
}

// checkAPIKey calls the provider once at startup. A rejected key is logged,
// not fatal, so /health can report it.
func checkAPIKey(svc *service.WeatherService, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := svc.ValidateAPIKey(ctx); err != nil {
		logger.Warn("API key check failed",
			zap.Error(err),
			zap.String("error_category", string(client.CategorizeError(err))))
	}
}

func warmForever(ctx context.Context, warmer *cache.CacheWarmer, cfg *config.Config, logger *zap.Logger) {
	err := warmer.WarmPeriodic(ctx, cfg.WarmCities, cfg.WarmInterval)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("periodic cache warming stopped", zap.Error(err))
	}
}

// drain stops accepting connections, waits for requests in flight and
// flushes logs, all within timeout.
func drain(srv *http.Server, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(ctx, drainPollInterval); err != nil {
		logger.Warn("in-flight requests not completed",
			zap.Error(err),
			zap.Int64("remaining", httphandler.InFlightCount()))
	}
	logger.Info("shutdown complete", zap.Duration("drained_in", lifecycle.DrainingFor(time.Now())))
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

// withOuterHandlers adds panic recovery and CORS around the router.
func withOuterHandlers(next http.Handler, logger *zap.Logger) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Correlation-ID"}),
		handlers.ExposedHeaders([]string{"X-Correlation-ID"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(logger)),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(next))
}
