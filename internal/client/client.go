package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weatherwise/internal/circuitbreaker"
	"github.com/kjstillabower/weatherwise/internal/observability"
)

// Upstream endpoint names, also used as metric labels and circuit breaker components.
const (
	EndpointWeather      = "weather"
	EndpointForecast     = "forecast"
	EndpointGeocode      = "geocode"
	EndpointAirPollution = "air_pollution"
)

var endpointPaths = map[string]string{
	EndpointWeather:      "/data/2.5/weather",
	EndpointForecast:     "/data/2.5/forecast",
	EndpointGeocode:      "/geo/1.0/reverse",
	EndpointAirPollution: "/data/2.5/air_pollution",
}

// maxErrorBody caps how much of an error response is kept for detail.
const maxErrorBody = 64 << 10

// Query selects a location either by free-text name or by coordinates.
type Query struct {
	City     string
	Lat      float64
	Lon      float64
	ByCoords bool
}

// CityQuery builds a name-based query. The name is passed through verbatim.
func CityQuery(name string) Query { return Query{City: name} }

// CoordsQuery builds a coordinate-based query.
func CoordsQuery(lat, lon float64) Query { return Query{Lat: lat, Lon: lon, ByCoords: true} }

// Kind returns "coords" or "name". Used for metrics and the boundary's location object.
func (q Query) Kind() string {
	if q.ByCoords {
		return "coords"
	}
	return "name"
}

// Key is a stable cache key for the query.
func (q Query) Key() string {
	if q.ByCoords {
		return fmt.Sprintf("ll:%.4f,%.4f", q.Lat, q.Lon)
	}
	return "q:" + strings.ToLower(strings.TrimSpace(q.City))
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.ByCoords {
		v.Set("lat", formatCoord(q.Lat))
		v.Set("lon", formatCoord(q.Lon))
	} else {
		v.Set("q", q.City)
	}
	return v
}

// Place is one reverse-geocoding candidate.
type Place struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
}

// WeatherClient is the OpenWeather surface the service depends on. Payload
// methods return the provider body unmodified.
type WeatherClient interface {
	CurrentWeather(ctx context.Context, q Query) ([]byte, error)
	Forecast(ctx context.Context, q Query) ([]byte, error)
	AirPollution(ctx context.Context, lat, lon float64) ([]byte, error)
	ReverseGeocode(ctx context.Context, lat, lon float64, limit int) ([]Place, error)
	ValidateAPIKey(ctx context.Context) error
}

// OpenWeatherClient calls the OpenWeather REST API.
type OpenWeatherClient struct {
	apiKey         string
	baseURL        string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breakers       map[string]*circuitbreaker.CircuitBreaker
}

// NewOpenWeatherClient returns a client that does not retry.
func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, baseURL, timeout, 1, 100*time.Millisecond, 2*time.Second)
}

// NewOpenWeatherClientWithRetry returns a client making up to retryAttempts calls per
// request. An empty apiKey is accepted; every call then fails with ErrNotConfigured.
func NewOpenWeatherClientWithRetry(apiKey, baseURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenWeatherClient, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}
	return &OpenWeatherClient{
		apiKey:         strings.TrimSpace(apiKey),
		baseURL:        strings.TrimRight(baseURL, "/"),
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}, nil
}

// SetCircuitBreaker guards one endpoint with cb. Call before serving traffic.
func (c *OpenWeatherClient) SetCircuitBreaker(endpoint string, cb *circuitbreaker.CircuitBreaker) {
	c.breakers[endpoint] = cb
}

// Configured reports whether an API key is present.
func (c *OpenWeatherClient) Configured() bool {
	return c.apiKey != ""
}

// get performs one logical request with retry and circuit breaking.
func (c *OpenWeatherClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.UpstreamRetriesTotal.WithLabelValues(endpoint).Inc()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		var body []byte
		call := func() error {
			var err error
			body, err = c.callAPI(ctx, endpoint, params)
			return err
		}
		var err error
		if cb := c.breakers[endpoint]; cb != nil {
			err = cb.Call(call)
		} else {
			err = call()
		}
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	if c.retryAttempts > 1 {
		return nil, fmt.Errorf("exhausted retries: %w", lastErr)
	}
	return nil, lastErr
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, endpoint, params)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s request timeout: %w", ErrNetwork, endpoint, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrNetwork, endpoint, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.UpstreamDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(endpoint, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response body: %w", ErrNetwork, endpoint, err)
	}
	return body, nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + endpointPaths[endpoint])
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("appid", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func handleErrorResponse(endpoint string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	ue := &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: body}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		ue.Err = ErrInvalidAPIKey
	case http.StatusNotFound:
		ue.Err = ErrLocationNotFound
	case http.StatusTooManyRequests:
		ue.Err = ErrRateLimited
	default:
		ue.Err = ErrUpstreamFailure
	}
	return ue
}

func isRetryable(err error) bool {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork) {
		return true
	}
	if ue, ok := AsUpstream(err); ok {
		return ue.StatusCode >= 500
	}
	return false
}

// IsBreakerFailure reports whether err signals an unhealthy upstream. Client
// errors such as an unknown city do not count against the circuit.
func IsBreakerFailure(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	if ue, ok := AsUpstream(err); ok {
		return ue.StatusCode >= 500 || ue.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func (c *OpenWeatherClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}
	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey issues a cheap request and reports whether the key is accepted.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, EndpointWeather, CityQuery("London").values())
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
