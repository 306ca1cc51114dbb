package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kjstillabower/weatherwise/internal/client"
	"github.com/kjstillabower/weatherwise/internal/location"
	"github.com/kjstillabower/weatherwise/internal/models"
	"github.com/kjstillabower/weatherwise/internal/recommend"
)

// Backend is the weather boundary a Session talks to.
type Backend interface {
	Weather(ctx context.Context, in location.Input) (models.WeatherBundle, error)
	Recommend(ctx context.Context, snap models.WeatherSnapshot) (models.Recommendation, error)
	AirQuality(ctx context.Context, lat, lon float64) (models.AirQuality, error)
}

// HTTPBackend calls a running weather service over HTTP.
type HTTPBackend struct {
	client *resty.Client
}

// NewHTTPBackend returns a backend for the service at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &HTTPBackend{client: c}
}

type boundaryError struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (b *HTTPBackend) Weather(ctx context.Context, in location.Input) (models.WeatherBundle, error) {
	var bundle models.WeatherBundle
	req := b.client.R().SetContext(ctx).SetResult(&bundle)
	if in.HasCoords {
		req.SetQueryParams(map[string]string{"lat": formatCoord(in.Lat), "lon": formatCoord(in.Lon)})
	} else {
		req.SetQueryParam("q", in.City)
	}
	resp, err := req.Get("/weather")
	if err != nil {
		return models.WeatherBundle{}, fmt.Errorf("weather request: %w", err)
	}
	if resp.IsError() {
		var body boundaryError
		_ = json.Unmarshal(resp.Body(), &body)
		return models.WeatherBundle{}, newFetchError(resp.StatusCode(), body.Detail)
	}
	return bundle, nil
}

func (b *HTTPBackend) Recommend(ctx context.Context, snap models.WeatherSnapshot) (models.Recommendation, error) {
	var rec models.Recommendation
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(snap).
		SetResult(&rec).
		Post("/recommend")
	if err != nil {
		return models.Recommendation{}, fmt.Errorf("recommend request: %w", err)
	}
	if resp.IsError() {
		return models.Recommendation{}, fmt.Errorf("recommend request: HTTP %d", resp.StatusCode())
	}
	return rec, nil
}

func (b *HTTPBackend) AirQuality(ctx context.Context, lat, lon float64) (models.AirQuality, error) {
	var aq models.AirQuality
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"lat": formatCoord(lat), "lon": formatCoord(lon)}).
		SetResult(&aq).
		Get("/airquality")
	if err != nil {
		return models.AirQuality{}, fmt.Errorf("air quality request: %w", err)
	}
	if resp.IsError() {
		return models.AirQuality{}, fmt.Errorf("air quality request: HTTP %d", resp.StatusCode())
	}
	return aq, nil
}

// WeatherService is the in-process service used by LocalBackend.
type WeatherService interface {
	GetWeather(ctx context.Context, in location.Input) (models.WeatherBundle, error)
	AirQuality(ctx context.Context, lat, lon float64) (models.AirQuality, error)
}

// LocalBackend runs the service and recommendation engine in process.
type LocalBackend struct {
	svc WeatherService
}

// NewLocalBackend returns a backend over svc.
func NewLocalBackend(svc WeatherService) *LocalBackend {
	return &LocalBackend{svc: svc}
}

func (b *LocalBackend) Weather(ctx context.Context, in location.Input) (models.WeatherBundle, error) {
	bundle, err := b.svc.GetWeather(ctx, in)
	if err != nil {
		if ue, ok := client.AsUpstream(err); ok {
			return models.WeatherBundle{}, fmt.Errorf("%w: %w", newFetchError(ue.StatusCode, ue.Body), err)
		}
		return models.WeatherBundle{}, err
	}
	return bundle, nil
}

func (b *LocalBackend) Recommend(_ context.Context, snap models.WeatherSnapshot) (models.Recommendation, error) {
	return recommend.Recommend(snap), nil
}

func (b *LocalBackend) AirQuality(ctx context.Context, lat, lon float64) (models.AirQuality, error) {
	return b.svc.AirQuality(ctx, lat, lon)
}
