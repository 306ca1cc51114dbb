package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherwise/internal/location"
	"github.com/kjstillabower/weatherwise/internal/models"
	"github.com/kjstillabower/weatherwise/internal/observability"
	"github.com/kjstillabower/weatherwise/internal/recommend"
	"github.com/kjstillabower/weatherwise/internal/traffic"
	"github.com/kjstillabower/weatherwise/internal/validation"
)

// maxRecommendBody bounds POST /recommend bodies.
const maxRecommendBody = 64 << 10

// WeatherService is the service surface the handlers need.
type WeatherService interface {
	GetWeather(ctx context.Context, in location.Input) (models.WeatherBundle, error)
	AirQuality(ctx context.Context, lat, lon float64) (models.AirQuality, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	svc           WeatherService
	apiConfigured bool
	maxCityLength int
	health        *HealthConfig
	logger        *zap.Logger

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a Handler. apiConfigured is false when no provider key
// was found; weather and air quality routes then answer 500.
func NewHandler(svc WeatherService, apiConfigured bool, maxCityLength int, health *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:           svc,
		apiConfigured: apiConfigured,
		maxCityLength: maxCityLength,
		health:        health,
		logger:        logger,
	}
}

// GetWeather handles GET /weather?q=<city> or ?lat=<f>&lon=<f>.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	if !h.apiConfigured {
		writeError(w, r, http.StatusInternalServerError, msgNotConfigured, nil)
		return
	}
	q := r.URL.Query()
	in, err := validation.WeatherQuery(q.Get("q"), q.Get("lat"), q.Get("lon"), h.maxCityLength)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, validation.ErrMissingLocation) {
			msg = msgMissingParams
		}
		writeError(w, r, http.StatusBadRequest, msg, nil)
		return
	}

	bundle, err := h.svc.GetWeather(r.Context(), in)
	if err != nil {
		traffic.RecordError()
		writeServiceError(w, r, err, msgWeatherAPI)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, bundle)
}

// PostRecommend handles POST /recommend with a WeatherSnapshot body.
func (h *Handler) PostRecommend(w http.ResponseWriter, r *http.Request) {
	var snap models.WeatherSnapshot
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecommendBody))
	if err := dec.Decode(&snap); err != nil {
		observability.LoggerFromContext(r.Context()).Debug("invalid recommend body", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, msgInvalidBody, nil)
		return
	}
	rec := recommend.Recommend(snap)
	observability.RecommendationsTotal.WithLabelValues(recommend.ActivityBranch(snap.Temperature, snap.Condition)).Inc()
	writeJSON(w, http.StatusOK, rec)
}

// GetAirQuality handles GET /airquality?lat=<f>&lon=<f>.
func (h *Handler) GetAirQuality(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, err := validation.Coordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		msg := err.Error()
		if errors.Is(err, validation.ErrMissingCoordinates) {
			msg = msgMissingLatLon
		}
		writeError(w, r, http.StatusBadRequest, msg, nil)
		return
	}
	if !h.apiConfigured {
		writeError(w, r, http.StatusInternalServerError, msgNotConfigured, nil)
		return
	}

	aq, err := h.svc.AirQuality(r.Context(), lat, lon)
	if err != nil {
		traffic.RecordError()
		writeServiceError(w, r, err, msgAirQualityAPI)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, aq)
}
