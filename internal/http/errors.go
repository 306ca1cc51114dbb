package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherwise/internal/airquality"
	"github.com/kjstillabower/weatherwise/internal/circuitbreaker"
	"github.com/kjstillabower/weatherwise/internal/client"
	"github.com/kjstillabower/weatherwise/internal/normalize"
	"github.com/kjstillabower/weatherwise/internal/observability"
)

// Error messages at the boundary. Clients match on these strings.
const (
	msgNotConfigured = "API key not configured"
	msgNetwork       = "Network error"
	msgWeatherAPI    = "Weather API error"
	msgAirQualityAPI = "Air quality API error"
	msgMissingParams = "Provide lat/lon or city name"
	msgMissingLatLon = "lat and lon are required"
	msgInvalidBody   = "Invalid weather payload"
	msgRateLimited   = "Too many requests"
	msgInternal      = "Internal error"
)

// errorBody is the error envelope. Detail carries the provider's own error
// body when one was returned.
type errorBody struct {
	Error     string          `json:"error"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// writeJSON writes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, detail json.RawMessage) {
	writeJSON(w, status, errorBody{
		Error:     message,
		Detail:    detail,
		RequestID: observability.CorrelationID(r.Context()),
	})
}

// writeServiceError maps a service error onto the boundary's status codes:
// misconfiguration and transport failures are 500, provider failures 502.
// upstreamMsg is the route-specific 502 message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, upstreamMsg string) {
	logger := observability.LoggerFromContext(r.Context())
	category := client.CategorizeError(err)

	var (
		status int
		msg    string
		detail json.RawMessage
	)
	switch {
	case errors.Is(err, client.ErrNotConfigured):
		status, msg = http.StatusInternalServerError, msgNotConfigured
	case errors.Is(err, circuitbreaker.ErrOpen),
		errors.Is(err, normalize.ErrParse),
		errors.Is(err, airquality.ErrParse),
		errors.Is(err, airquality.ErrNoData):
		status, msg = http.StatusBadGateway, upstreamMsg
	case errors.Is(err, client.ErrNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		status, msg = http.StatusInternalServerError, msgNetwork
	default:
		if ue, ok := client.AsUpstream(err); ok {
			status, msg = http.StatusBadGateway, upstreamMsg
			if json.Valid(ue.Body) {
				detail = ue.Body
			}
			break
		}
		status, msg = http.StatusInternalServerError, msgInternal
	}

	logger.Debug("request failed",
		zap.Int("status", status),
		zap.String("error_category", string(category)),
		zap.Error(err),
	)
	writeError(w, r, status, msg, detail)
}
