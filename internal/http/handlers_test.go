package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weatherwise/internal/circuitbreaker"
	"github.com/kjstillabower/weatherwise/internal/client"
	"github.com/kjstillabower/weatherwise/internal/lifecycle"
	"github.com/kjstillabower/weatherwise/internal/location"
	"github.com/kjstillabower/weatherwise/internal/models"
	"github.com/kjstillabower/weatherwise/internal/traffic"
)

type mockWeatherService struct {
	mu      sync.Mutex
	bundle  models.WeatherBundle
	aq      models.AirQuality
	err     error
	aqErr   error
	lastIn  location.Input
	calls   int
	aqCalls int
}

func (m *mockWeatherService) GetWeather(ctx context.Context, in location.Input) (models.WeatherBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastIn = in
	return m.bundle, m.err
}

func (m *mockWeatherService) AirQuality(ctx context.Context, lat, lon float64) (models.AirQuality, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aqCalls++
	return m.aq, m.aqErr
}

func sampleBundle() models.WeatherBundle {
	return models.WeatherBundle{
		Weather:  json.RawMessage(`{"name":"Seoul","main":{"temp":21.4}}`),
		Forecast: json.RawMessage(`{"list":[]}`),
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestGetWeather(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		configured bool
		svcErr     error
		wantStatus int
		wantError  string
		wantCalls  int
	}{
		{name: "by city", query: "?q=Seoul", configured: true, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "by coordinates", query: "?lat=37.5665&lon=126.978", configured: true, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "key checked before params", query: "", configured: false, wantStatus: http.StatusInternalServerError, wantError: msgNotConfigured},
		{name: "missing params", query: "", configured: true, wantStatus: http.StatusBadRequest, wantError: msgMissingParams},
		{name: "lat without lon", query: "?lat=1", configured: true, wantStatus: http.StatusBadRequest, wantError: msgMissingParams},
		{name: "bad coordinates", query: "?lat=abc&lon=1", configured: true, wantStatus: http.StatusBadRequest},
		{name: "city too long", query: "?q=" + strings.Repeat("a", 101), configured: true, wantStatus: http.StatusBadRequest},
		{name: "network failure", query: "?q=Seoul", configured: true, svcErr: fmt.Errorf("current weather for q:seoul: %w", client.ErrNetwork), wantStatus: http.StatusInternalServerError, wantError: msgNetwork, wantCalls: 1},
		{name: "deadline", query: "?q=Seoul", configured: true, svcErr: context.DeadlineExceeded, wantStatus: http.StatusInternalServerError, wantError: msgNetwork, wantCalls: 1},
		{name: "breaker open", query: "?q=Seoul", configured: true, svcErr: circuitbreaker.ErrOpen, wantStatus: http.StatusBadGateway, wantError: msgWeatherAPI, wantCalls: 1},
		{name: "unexpected", query: "?q=Seoul", configured: true, svcErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantError: msgInternal, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWeatherService{bundle: sampleBundle(), err: tt.svcErr}
			h := NewHandler(svc, tt.configured, 100, nil, zap.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/weather"+tt.query, nil)
			w := httptest.NewRecorder()
			h.GetWeather(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if svc.calls != tt.wantCalls {
				t.Errorf("service calls = %d, want %d", svc.calls, tt.wantCalls)
			}
			if tt.wantError != "" {
				if got := decodeError(t, w).Error; got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
			}
		})
	}
}

func TestGetWeather_QueryWinsOverCoordinates(t *testing.T) {
	svc := &mockWeatherService{bundle: sampleBundle()}
	h := NewHandler(svc, true, 100, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/weather?q=Busan&lat=37.5&lon=127", nil)
	w := httptest.NewRecorder()
	h.GetWeather(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if svc.lastIn.HasCoords || svc.lastIn.City != "Busan" {
		t.Errorf("input = %+v, want city Busan", svc.lastIn)
	}
}

func TestGetWeather_PassesPayloadsThrough(t *testing.T) {
	svc := &mockWeatherService{bundle: sampleBundle()}
	h := NewHandler(svc, true, 100, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/weather?q=Seoul", nil)
	w := httptest.NewRecorder()
	h.GetWeather(w, req)

	var got struct {
		Weather  map[string]any `json:"weather"`
		Forecast map[string]any `json:"forecast"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Weather["name"] != "Seoul" {
		t.Errorf("weather.name = %v, want Seoul", got.Weather["name"])
	}
	if got.Forecast == nil {
		t.Error("forecast missing from response")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestGetWeather_UpstreamDetailEchoed(t *testing.T) {
	providerBody := []byte(`{"cod":"404","message":"city not found"}`)
	svc := &mockWeatherService{err: fmt.Errorf("current weather for q:atlantis: %w", &client.UpstreamError{
		Endpoint:   "weather",
		StatusCode: http.StatusNotFound,
		Body:       providerBody,
		Err:        client.ErrLocationNotFound,
	})}
	h := NewHandler(svc, true, 100, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/weather?q=Atlantis", nil)
	w := httptest.NewRecorder()
	h.GetWeather(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	body := decodeError(t, w)
	if body.Error != msgWeatherAPI {
		t.Errorf("error = %q, want %q", body.Error, msgWeatherAPI)
	}
	var detail map[string]string
	if err := json.Unmarshal(body.Detail, &detail); err != nil {
		t.Fatalf("detail is not JSON: %v", err)
	}
	if detail["message"] != "city not found" {
		t.Errorf("detail.message = %q, want city not found", detail["message"])
	}
}

func TestGetWeather_NonJSONUpstreamBodyDropped(t *testing.T) {
	svc := &mockWeatherService{err: &client.UpstreamError{
		Endpoint: "forecast", StatusCode: 500, Body: []byte("<html>bad gateway</html>"), Err: client.ErrUpstreamFailure,
	}}
	h := NewHandler(svc, true, 100, nil, nil)

	w := httptest.NewRecorder()
	h.GetWeather(w, httptest.NewRequest(http.MethodGet, "/weather?q=Seoul", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if body := decodeError(t, w); len(body.Detail) != 0 {
		t.Errorf("detail = %s, want omitted", body.Detail)
	}
}

func TestGetWeather_LogsFailureCategory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	svc := &mockWeatherService{err: client.ErrNetwork}
	h := NewHandler(svc, true, 100, nil, logger)

	router := NewRouter(h, logger, nil, time.Second)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/weather?q=Seoul", nil))

	entries := logs.FilterMessage("request failed").All()
	if len(entries) != 1 {
		t.Fatalf("request failed logs = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["error_category"] != string(client.ErrorCategoryNetwork) {
		t.Errorf("error_category = %v, want %s", fields["error_category"], client.ErrorCategoryNetwork)
	}
	if fields["correlation_id"] == "" || fields["correlation_id"] == nil {
		t.Error("correlation_id missing from request log")
	}
}

func TestPostRecommend(t *testing.T) {
	h := NewHandler(&mockWeatherService{}, false, 100, nil, nil)

	snap := models.WeatherSnapshot{City: "Seoul", Temperature: 5, FeelsLike: 1, Humidity: 80, Condition: "Rain", WindSpeed: 10}
	body, _ := json.Marshal(snap)
	req := httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	h.PostRecommend(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (recommend needs no API key)", w.Code)
	}
	var rec models.Recommendation
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Outfit.Top == "" || rec.DailySummary == "" {
		t.Errorf("recommendation incomplete: %+v", rec)
	}
	if len(rec.Activities) == 0 {
		t.Error("no activities")
	}
	if !strings.Contains(rec.DailySummary, "Rainy day") {
		t.Errorf("summary = %q, want rain opener", rec.DailySummary)
	}
}

func TestPostRecommend_InvalidBody(t *testing.T) {
	h := NewHandler(&mockWeatherService{}, true, 100, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.PostRecommend(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decodeError(t, w).Error; got != msgInvalidBody {
		t.Errorf("error = %q, want %q", got, msgInvalidBody)
	}
}

func TestGetAirQuality(t *testing.T) {
	aq := models.AirQuality{AQI: 2, PM25: 12.5, PM10: 20, NO2: 15, O3: 60, CO: 300}
	tests := []struct {
		name       string
		query      string
		configured bool
		svcErr     error
		wantStatus int
		wantError  string
	}{
		{name: "ok", query: "?lat=37.5&lon=127", configured: true, wantStatus: http.StatusOK},
		{name: "params checked before key", query: "?lat=37.5", configured: false, wantStatus: http.StatusBadRequest, wantError: msgMissingLatLon},
		{name: "not configured", query: "?lat=37.5&lon=127", configured: false, wantStatus: http.StatusInternalServerError, wantError: msgNotConfigured},
		{name: "out of range", query: "?lat=95&lon=127", configured: true, wantStatus: http.StatusBadRequest},
		{name: "provider error", query: "?lat=37.5&lon=127", configured: true, svcErr: &client.UpstreamError{Endpoint: "air_pollution", StatusCode: 500, Err: client.ErrUpstreamFailure}, wantStatus: http.StatusBadGateway, wantError: msgAirQualityAPI},
		{name: "network", query: "?lat=37.5&lon=127", configured: true, svcErr: client.ErrNetwork, wantStatus: http.StatusInternalServerError, wantError: msgNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWeatherService{aq: aq, aqErr: tt.svcErr}
			h := NewHandler(svc, tt.configured, 100, nil, nil)

			w := httptest.NewRecorder()
			h.GetAirQuality(w, httptest.NewRequest(http.MethodGet, "/airquality"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantError != "" {
				if got := decodeError(t, w).Error; got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
				return
			}
			if tt.wantStatus == http.StatusOK {
				var got models.AirQuality
				if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if got != aq {
					t.Errorf("air quality = %+v, want %+v", got, aq)
				}
			}
		})
	}
}

func TestGetHealth(t *testing.T) {
	openBreaker := circuitbreaker.New(circuitbreaker.Config{Component: "weather", FailureThreshold: 1, Timeout: time.Hour})
	_ = openBreaker.Call(func() error { return errors.New("down") })

	tests := []struct {
		name       string
		configured bool
		health     *HealthConfig
		shutting   bool
		wantStatus int
		wantState  string
	}{
		{name: "healthy", configured: true, wantStatus: http.StatusOK, wantState: "healthy"},
		{name: "missing key degrades", configured: false, wantStatus: http.StatusServiceUnavailable, wantState: "degraded"},
		{name: "shutting down wins", configured: false, shutting: true, wantStatus: http.StatusServiceUnavailable, wantState: "shutting-down"},
		{name: "open breaker degrades", configured: true, health: &HealthConfig{Breakers: []*circuitbreaker.CircuitBreaker{openBreaker}}, wantStatus: http.StatusServiceUnavailable, wantState: "degraded"},
		{name: "idle after lifespan", configured: true, health: &HealthConfig{
			IdleWindow: time.Minute, IdleThresholdReqPerMin: 5, MinimumLifespan: time.Millisecond, StartTime: time.Now().Add(-time.Hour),
		}, wantStatus: http.StatusOK, wantState: "idle"},
		{name: "cache down reported", configured: true, health: &HealthConfig{CachePing: func() error { return errors.New("no memcached") }}, wantStatus: http.StatusOK, wantState: "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			traffic.Reset()
			lifecycle.Reset()
			defer lifecycle.Reset()
			if tt.shutting {
				lifecycle.BeginShutdown(time.Now())
			}

			h := NewHandler(&mockWeatherService{}, tt.configured, 100, tt.health, nil)
			w := httptest.NewRecorder()
			h.GetHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantState {
				t.Errorf("status = %q, want %q", body.Status, tt.wantState)
			}
			if tt.health != nil && tt.health.CachePing != nil && body.Checks["cache"] != "unhealthy" {
				t.Errorf("checks.cache = %q, want unhealthy", body.Checks["cache"])
			}
		})
	}
}

func TestGetHealth_Overloaded(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()
	for i := 0; i < 20; i++ {
		traffic.RecordSuccess()
	}
	h := NewHandler(&mockWeatherService{}, true, 100, &HealthConfig{
		OverloadWindow: time.Minute, OverloadThresholdPct: 50, RateLimitRPS: 0,
	}, nil)
	// RateLimitRPS 0 disables the overload check.
	w := httptest.NewRecorder()
	h.GetHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with overload check disabled", w.Code)
	}

	h.health.RateLimitRPS = 1
	h.health.OverloadWindow = 10 * time.Second
	w = httptest.NewRecorder()
	h.GetHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when overloaded", w.Code)
	}
}

func TestGetHealth_ErrorRateDegrades(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()
	traffic.RecordSuccess()
	traffic.RecordError()
	traffic.RecordError()

	h := NewHandler(&mockWeatherService{}, true, 100, &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50}, nil)
	w := httptest.NewRecorder()
	h.GetHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestGetHealth_LogsTransition(t *testing.T) {
	traffic.Reset()
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewHandler(&mockWeatherService{}, true, 100, nil, zap.New(core))

	h.GetHealth(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	lifecycle.BeginShutdown(time.Now())
	h.GetHealth(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	lifecycle.Reset()

	entries := logs.FilterMessage("health status transition").All()
	if len(entries) != 1 {
		t.Fatalf("transition logs = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["current_status"]; got != "shutting-down" {
		t.Errorf("current_status = %v, want shutting-down", got)
	}
}
