package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherwise/internal/airquality"
	"github.com/kjstillabower/weatherwise/internal/cache"
	"github.com/kjstillabower/weatherwise/internal/client"
	"github.com/kjstillabower/weatherwise/internal/location"
	"github.com/kjstillabower/weatherwise/internal/models"
	"github.com/kjstillabower/weatherwise/internal/observability"
)

// WeatherService resolves locations and fetches provider payloads, caching
// raw bundles cache-aside.
type WeatherService struct {
	client    client.WeatherClient
	resolver  *location.Resolver
	cache     cache.Cache
	ttl       time.Duration
	coalescer *requestCoalescer[models.WeatherBundle]
}

// NewWeatherService creates a WeatherService. A nil cache disables caching;
// a zero coalesceTimeout disables request coalescing.
func NewWeatherService(cl client.WeatherClient, resolver *location.Resolver, c cache.Cache, ttl, coalesceTimeout time.Duration) *WeatherService {
	s := &WeatherService{
		client:   cl,
		resolver: resolver,
		cache:    c,
		ttl:      ttl,
	}
	if coalesceTimeout > 0 {
		s.coalescer = newRequestCoalescer[models.WeatherBundle](coalesceTimeout)
	}
	return s
}

// cacheKey keys on the caller's input, before reverse geocoding.
func cacheKey(in location.Input) string {
	if in.HasCoords {
		return client.CoordsQuery(in.Lat, in.Lon).Key()
	}
	return client.CityQuery(in.City).Key()
}

// GetWeather returns the raw current and forecast payloads for in. Both
// provider calls must succeed; the first failure is returned.
func (s *WeatherService) GetWeather(ctx context.Context, in location.Input) (models.WeatherBundle, error) {
	key := cacheKey(in)
	start := time.Now()
	logger := observability.LoggerFromContext(ctx)

	if in.HasCoords {
		observability.RecordWeatherQuery("coords", "")
	} else {
		observability.RecordWeatherQuery("name", in.City)
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			observability.CacheErrorsTotal.WithLabelValues("get").Inc()
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		case ok:
			observability.CacheHitsTotal.WithLabelValues("weather").Inc()
			logger.Debug("weather served", zap.String("key", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
			return cached, nil
		}
		observability.CacheMissesTotal.WithLabelValues("weather").Inc()
	}

	// The fetch may outlive this caller when coalesced, so it keeps the
	// request's values but not its cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	fetch := func() (models.WeatherBundle, error) { return s.fetch(fetchCtx, in) }

	var (
		bundle models.WeatherBundle
		err    error
	)
	if s.coalescer != nil {
		bundle, err = s.coalescer.GetOrDo(ctx, key, fetch)
	} else {
		bundle, err = fetch()
	}
	if err != nil {
		return models.WeatherBundle{}, err
	}

	if s.cache != nil {
		if setErr := s.cache.Set(ctx, key, bundle, s.ttl); setErr != nil {
			observability.CacheErrorsTotal.WithLabelValues("set").Inc()
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	logger.Debug("weather served", zap.String("key", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	return bundle, nil
}

// fetch resolves the input and requests current weather and forecast in parallel.
func (s *WeatherService) fetch(ctx context.Context, in location.Input) (models.WeatherBundle, error) {
	resolved := s.resolver.Resolve(ctx, in)
	q := resolved.Query

	var (
		wg                  sync.WaitGroup
		weather, forecast   []byte
		weatherErr, foreErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		weather, weatherErr = s.client.CurrentWeather(ctx, q)
	}()
	go func() {
		defer wg.Done()
		forecast, foreErr = s.client.Forecast(ctx, q)
	}()
	wg.Wait()

	if weatherErr != nil {
		return models.WeatherBundle{}, fmt.Errorf("current weather for %s: %w", q.Key(), weatherErr)
	}
	if foreErr != nil {
		return models.WeatherBundle{}, fmt.Errorf("forecast for %s: %w", q.Key(), foreErr)
	}

	loc := &models.ResolvedLocation{Query: q.Kind(), Name: resolved.NameOverride}
	if q.ByCoords {
		lat, lon := q.Lat, q.Lon
		loc.Lat, loc.Lon = &lat, &lon
	}
	return models.WeatherBundle{Weather: weather, Forecast: forecast, Location: loc}, nil
}

// WarmCity fetches a city by name and overwrites its cache entry. It skips
// the cache read so each warming pass replaces the entry before it expires.
func (s *WeatherService) WarmCity(ctx context.Context, city string) error {
	in := location.ByName(city)
	bundle, err := s.fetch(ctx, in)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Set(ctx, cacheKey(in), bundle, s.ttl); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		return fmt.Errorf("cache %s: %w", city, err)
	}
	return nil
}

// AirQuality fetches and normalizes the reading nearest lat/lon.
func (s *WeatherService) AirQuality(ctx context.Context, lat, lon float64) (models.AirQuality, error) {
	raw, err := s.client.AirPollution(ctx, lat, lon)
	if err != nil {
		observability.AirQualityRequestsTotal.WithLabelValues("error").Inc()
		return models.AirQuality{}, fmt.Errorf("air pollution for %.4f,%.4f: %w", lat, lon, err)
	}
	aq, err := airquality.Normalize(raw)
	if err != nil {
		if errors.Is(err, airquality.ErrNoData) {
			observability.AirQualityRequestsTotal.WithLabelValues("unavailable").Inc()
		} else {
			observability.AirQualityRequestsTotal.WithLabelValues("error").Inc()
		}
		return models.AirQuality{}, err
	}
	observability.AirQualityRequestsTotal.WithLabelValues("ok").Inc()
	return aq, nil
}

// ValidateAPIKey checks the provider key once, typically at startup.
func (s *WeatherService) ValidateAPIKey(ctx context.Context) error {
	return s.client.ValidateAPIKey(ctx)
}
