package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Prefs backends.
const (
	PrefsMemory = "memory"
	PrefsFile   = "file"
	PrefsRedis  = "redis"
	PrefsSQLite = "sqlite"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	RequestTimeout time.Duration
	CacheTTL       time.Duration
	CacheBackend   string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	CoalesceTimeout time.Duration

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration

	MaxCityLength int

	ShutdownTimeout time.Duration

	OverloadWindow         time.Duration
	OverloadThresholdPct   int
	IdleThresholdReqPerMin int
	IdleWindow             time.Duration
	MinimumLifespan        time.Duration
	DegradedWindow         time.Duration
	DegradedErrorPct       int

	WarmCities   []string
	WarmInterval time.Duration

	TrackedCities []string

	PrefsBackend   string
	PrefsPath      string
	PrefsRedisAddr string
	PrefsRedisDB   int
}

// duration decodes YAML strings like "500ms". Malformed values are load
// errors rather than silent defaults.
type duration time.Duration

func (d *duration) UnmarshalYAML(n *yaml.Node) error {
	var raw string
	if err := n.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", n.Line, raw)
	}
	*d = duration(parsed)
	return nil
}

func (d duration) std() time.Duration { return time.Duration(d) }

// fileConfig mirrors config/{env}.yaml. defaultFileConfig seeds it so keys
// absent from the file keep their defaults.
type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string   `yaml:"url"`
		Timeout duration `yaml:"timeout"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout       duration `yaml:"timeout"`
		MaxCityLength int      `yaml:"max_city_length"`
	} `yaml:"request"`

	Cache struct {
		Backend         string   `yaml:"backend"`
		TTL             duration `yaml:"ttl"`
		CoalesceTimeout duration `yaml:"coalesce_timeout"`
		Memcached       struct {
			Addrs        string   `yaml:"addrs"`
			Timeout      duration `yaml:"timeout"`
			MaxIdleConns int      `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Warm struct {
			Cities   []string `yaml:"cities"`
			Interval duration `yaml:"interval"`
		} `yaml:"warm"`
	} `yaml:"cache"`

	Reliability struct {
		RetryMaxAttempts int      `yaml:"retry_max_attempts"`
		RetryBaseDelay   duration `yaml:"retry_base_delay"`
		RetryMaxDelay    duration `yaml:"retry_max_delay"`
		RateLimitRPS     int      `yaml:"rate_limit_rps"`
		RateLimitBurst   int      `yaml:"rate_limit_burst"`
		CircuitBreaker   struct {
			FailureThreshold int      `yaml:"failure_threshold"`
			SuccessThreshold int      `yaml:"success_threshold"`
			Timeout          duration `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout duration `yaml:"timeout"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow         duration `yaml:"overload_window"`
		OverloadThresholdPct   int      `yaml:"overload_threshold_pct"`
		IdleThresholdReqPerMin int      `yaml:"idle_threshold_req_per_min"`
		IdleWindow             duration `yaml:"idle_window"`
		MinimumLifespan        duration `yaml:"minimum_lifespan"`
		DegradedWindow         duration `yaml:"degraded_window"`
		DegradedErrorPct       int      `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Metrics struct {
		TrackedCities []string `yaml:"tracked_cities"`
	} `yaml:"metrics"`

	Prefs struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		Redis   struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"prefs"`
}

func defaultFileConfig() fileConfig {
	var fc fileConfig
	fc.Server.Port = "8080"
	fc.WeatherAPI.URL = "https://api.openweathermap.org"
	fc.WeatherAPI.Timeout = duration(5 * time.Second)
	fc.Request.Timeout = duration(10 * time.Second)
	fc.Request.MaxCityLength = 100
	fc.Cache.Backend = "in_memory"
	fc.Cache.TTL = duration(5 * time.Minute)
	fc.Cache.CoalesceTimeout = duration(10 * time.Second)
	fc.Cache.Memcached.Addrs = "localhost:11211"
	fc.Cache.Memcached.Timeout = duration(500 * time.Millisecond)
	fc.Cache.Memcached.MaxIdleConns = 2
	fc.Cache.Warm.Interval = duration(15 * time.Minute)
	// One attempt means no automatic retry.
	fc.Reliability.RetryMaxAttempts = 1
	fc.Reliability.RetryBaseDelay = duration(100 * time.Millisecond)
	fc.Reliability.RetryMaxDelay = duration(2 * time.Second)
	fc.Reliability.RateLimitRPS = 20
	fc.Reliability.RateLimitBurst = 50
	fc.Reliability.CircuitBreaker.FailureThreshold = 5
	fc.Reliability.CircuitBreaker.SuccessThreshold = 1
	fc.Reliability.CircuitBreaker.Timeout = duration(30 * time.Second)
	fc.Shutdown.Timeout = duration(30 * time.Second)
	fc.Lifecycle.OverloadWindow = duration(time.Minute)
	fc.Lifecycle.OverloadThresholdPct = 80
	fc.Lifecycle.IdleThresholdReqPerMin = 5
	fc.Lifecycle.IdleWindow = duration(5 * time.Minute)
	fc.Lifecycle.MinimumLifespan = duration(5 * time.Minute)
	fc.Lifecycle.DegradedWindow = duration(time.Minute)
	fc.Lifecycle.DegradedErrorPct = 5
	fc.Prefs.Backend = PrefsFile
	fc.Prefs.Redis.Addr = "localhost:6379"
	return fc
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// Load reads .env (if present), then config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml relative to the working directory. The API key comes
// from OPENWEATHER_API_KEY, WEATHER_API_KEY or the secrets file; a missing key
// is not an error.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom is Load rooted at dir. Precedence is environment, then file, then
// built-in defaults.
func LoadFrom(dir string) (*Config, error) {
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := firstNonEmpty(os.Getenv("ENV_NAME"), "dev")
	path := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config file not found: %s", path)
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	fc := defaultFileConfig()
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	key := firstNonEmpty(os.Getenv("OPENWEATHER_API_KEY"), os.Getenv("WEATHER_API_KEY"))
	if key == "" {
		if key, err = readSecrets(filepath.Join(dir, "config", "secrets.yaml")); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		ServerPort: firstNonEmpty(os.Getenv("PORT"), fc.Server.Port),

		WeatherAPIKey:     key,
		WeatherAPIURL:     firstNonEmpty(os.Getenv("OPENWEATHER_API_URL"), fc.WeatherAPI.URL),
		WeatherAPITimeout: fc.WeatherAPI.Timeout.std(),

		RequestTimeout: fc.Request.Timeout.std(),
		MaxCityLength:  fc.Request.MaxCityLength,

		CacheTTL:              fc.Cache.TTL.std(),
		CacheBackend:          lowerTrim(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend)),
		CoalesceTimeout:       fc.Cache.CoalesceTimeout.std(),
		MemcachedAddrs:        strings.TrimSpace(firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs)),
		MemcachedTimeout:      fc.Cache.Memcached.Timeout.std(),
		MemcachedMaxIdleConns: fc.Cache.Memcached.MaxIdleConns,
		WarmCities:            fc.Cache.Warm.Cities,
		WarmInterval:          fc.Cache.Warm.Interval.std(),

		RetryAttempts:           fc.Reliability.RetryMaxAttempts,
		RetryBaseDelay:          fc.Reliability.RetryBaseDelay.std(),
		RetryMaxDelay:           fc.Reliability.RetryMaxDelay.std(),
		RateLimitRPS:            fc.Reliability.RateLimitRPS,
		RateLimitBurst:          fc.Reliability.RateLimitBurst,
		BreakerFailureThreshold: fc.Reliability.CircuitBreaker.FailureThreshold,
		BreakerSuccessThreshold: fc.Reliability.CircuitBreaker.SuccessThreshold,
		BreakerTimeout:          fc.Reliability.CircuitBreaker.Timeout.std(),

		ShutdownTimeout: fc.Shutdown.Timeout.std(),

		OverloadWindow:         fc.Lifecycle.OverloadWindow.std(),
		OverloadThresholdPct:   fc.Lifecycle.OverloadThresholdPct,
		IdleThresholdReqPerMin: fc.Lifecycle.IdleThresholdReqPerMin,
		IdleWindow:             fc.Lifecycle.IdleWindow.std(),
		MinimumLifespan:        fc.Lifecycle.MinimumLifespan.std(),
		DegradedWindow:         fc.Lifecycle.DegradedWindow.std(),
		DegradedErrorPct:       fc.Lifecycle.DegradedErrorPct,

		TrackedCities: fc.Metrics.TrackedCities,

		PrefsBackend:   lowerTrim(firstNonEmpty(os.Getenv("PREFS_BACKEND"), fc.Prefs.Backend)),
		PrefsPath:      firstNonEmpty(os.Getenv("PREFS_PATH"), fc.Prefs.Path),
		PrefsRedisAddr: firstNonEmpty(os.Getenv("REDIS_ADDR"), fc.Prefs.Redis.Addr),
		PrefsRedisDB:   fc.Prefs.Redis.DB,
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HasAPIKey reports whether a provider key was found.
func (c *Config) HasAPIKey() bool {
	return c.WeatherAPIKey != ""
}

func readSecrets(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.WeatherAPIKey), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validate rejects non-positive settings and unknown backends. RequestTimeout
// is raised to exceed the upstream timeout rather than rejected.
func validate(cfg *Config) error {
	durations := []struct {
		key string
		d   time.Duration
	}{
		{"weather_api.timeout", cfg.WeatherAPITimeout},
		{"cache.ttl", cfg.CacheTTL},
		{"cache.memcached.timeout", cfg.MemcachedTimeout},
		{"cache.warm.interval", cfg.WarmInterval},
		{"reliability.retry_base_delay", cfg.RetryBaseDelay},
		{"reliability.retry_max_delay", cfg.RetryMaxDelay},
		{"reliability.circuit_breaker.timeout", cfg.BreakerTimeout},
		{"shutdown.timeout", cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", d.key, d.d)
		}
	}
	if cfg.CoalesceTimeout < 0 {
		return fmt.Errorf("cache.coalesce_timeout must not be negative, got %v", cfg.CoalesceTimeout)
	}

	ints := []struct {
		key string
		v   int
	}{
		{"request.max_city_length", cfg.MaxCityLength},
		{"reliability.retry_max_attempts", cfg.RetryAttempts},
		{"reliability.rate_limit_rps", cfg.RateLimitRPS},
		{"reliability.rate_limit_burst", cfg.RateLimitBurst},
		{"reliability.circuit_breaker.failure_threshold", cfg.BreakerFailureThreshold},
		{"reliability.circuit_breaker.success_threshold", cfg.BreakerSuccessThreshold},
	}
	for _, i := range ints {
		if i.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", i.key, i.v)
		}
	}

	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	switch cfg.PrefsBackend {
	case PrefsMemory, PrefsFile, PrefsRedis, PrefsSQLite:
	default:
		return fmt.Errorf("prefs.backend must be memory, file, redis or sqlite, got %q", cfg.PrefsBackend)
	}
	return nil
}
