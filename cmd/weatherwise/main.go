// Command weatherwise shows the weather, forecast, air quality and outfit
// suggestions for a city or the configured device position.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherwise/internal/cache"
	"github.com/kjstillabower/weatherwise/internal/client"
	"github.com/kjstillabower/weatherwise/internal/config"
	"github.com/kjstillabower/weatherwise/internal/location"
	"github.com/kjstillabower/weatherwise/internal/models"
	"github.com/kjstillabower/weatherwise/internal/observability"
	"github.com/kjstillabower/weatherwise/internal/prefs"
	"github.com/kjstillabower/weatherwise/internal/service"
	"github.com/kjstillabower/weatherwise/internal/session"
)

type options struct {
	server  string
	local   bool
	city    string
	here    bool
	lat     string
	lon     string
	unit    string
	save    bool
	remove  string
	verbose bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("weatherwise", flag.ContinueOnError)
	fs.StringVar(&o.server, "server", envOr("WEATHERWISE_URL", "http://localhost:8080"), "weather service base URL")
	fs.BoolVar(&o.local, "local", false, "call OpenWeather directly instead of a running service")
	fs.StringVar(&o.city, "city", "", "look up a city by name")
	fs.BoolVar(&o.here, "here", false, "use the device position even when a last city is stored")
	fs.StringVar(&o.lat, "lat", os.Getenv("WEATHERWISE_LAT"), "device latitude")
	fs.StringVar(&o.lon, "lon", os.Getenv("WEATHERWISE_LON"), "device longitude")
	fs.StringVar(&o.unit, "unit", "", "set the display unit (C or F)")
	fs.BoolVar(&o.save, "save", false, "save the shown city")
	fs.StringVar(&o.remove, "remove", "", "remove a saved city")
	fs.BoolVar(&o.verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.city == "" && fs.NArg() > 0 {
		o.city = strings.Join(fs.Args(), " ")
	}
	if o.unit != "" && !models.Unit(strings.ToUpper(o.unit)).Valid() {
		return o, fmt.Errorf("unit must be C or F, got %q", o.unit)
	}
	return o, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// locator returns a StaticLocator when both coordinates are given.
func (o options) locator() (session.Locator, error) {
	if o.lat == "" && o.lon == "" {
		return session.DeniedLocator{}, nil
	}
	lat, err := strconv.ParseFloat(o.lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid -lat %q", o.lat)
	}
	lon, err := strconv.ParseFloat(o.lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid -lon %q", o.lon)
	}
	return session.StaticLocator{Lat: lat, Lon: lon}, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "weatherwise:", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	logger, err := observability.NewCLILogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	p, err := prefs.Load(ctx, store, logger)
	if err != nil {
		store.Close()
		return err
	}

	backend, err := newBackend(opts, cfg)
	if err != nil {
		p.Close()
		return err
	}
	loc, err := opts.locator()
	if err != nil {
		p.Close()
		return err
	}
	s := session.New(backend, p, session.Options{Locator: loc, Logger: logger})
	defer s.Close()

	if opts.unit != "" {
		if err := s.SetUnit(ctx, models.Unit(strings.ToUpper(opts.unit))); err != nil {
			return err
		}
	}
	if opts.remove != "" {
		if err := s.RemoveCity(ctx, opts.remove); err != nil {
			return err
		}
	}

	switch {
	case opts.city != "":
		err = s.LoadByCity(ctx, opts.city)
	case opts.here:
		err = s.Refetch(ctx)
	default:
		err = s.Start(ctx)
	}
	if err != nil {
		logger.Debug("load failed", zap.Error(err))
	}

	if opts.save {
		if city, ok, err := s.SaveCurrent(ctx); err != nil {
			return err
		} else if ok {
			fmt.Printf("✅ %s saved!\n\n", city)
		}
	}

	render(os.Stdout, s.View(), time.Now())
	if s.View().Status == session.StatusError {
		return errors.New("no weather to show")
	}
	return nil
}

// newBackend talks to the running service, or to OpenWeather directly with -local.
func newBackend(opts options, cfg *config.Config) (session.Backend, error) {
	if !opts.local {
		return session.NewHTTPBackend(strings.TrimRight(opts.server, "/"), cfg.RequestTimeout), nil
	}
	if !cfg.HasAPIKey() {
		return nil, client.ErrNotConfigured
	}
	c, err := client.NewOpenWeatherClientWithRetry(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout,
		cfg.RetryAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay)
	if err != nil {
		return nil, err
	}
	svc := service.NewWeatherService(c, location.NewResolver(c), cache.NewInMemoryCache(), cfg.CacheTTL, 0)
	return session.NewLocalBackend(svc), nil
}

// openStore opens the configured preference store. File and SQLite stores
// default to the user config directory.
func openStore(ctx context.Context, cfg *config.Config) (prefs.Store, error) {
	path := cfg.PrefsPath
	if path == "" && (cfg.PrefsBackend == config.PrefsFile || cfg.PrefsBackend == config.PrefsSQLite) {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("prefs path: %w", err)
		}
		name := "prefs.json"
		if cfg.PrefsBackend == config.PrefsSQLite {
			name = "prefs.db"
		}
		path = filepath.Join(dir, "weatherwise", name)
	}

	switch cfg.PrefsBackend {
	case config.PrefsMemory:
		return prefs.NewMemoryStore(), nil
	case config.PrefsRedis:
		return prefs.NewRedisStore(ctx, cfg.PrefsRedisAddr, cfg.PrefsRedisDB)
	case config.PrefsSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("prefs dir: %w", err)
		}
		return prefs.NewSQLiteStore(ctx, path)
	default:
		return prefs.NewFileStore(path)
	}
}
