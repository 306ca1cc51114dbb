package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherwise/internal/observability"
)

// NewRouter wires the public routes. Provider-backed routes get rate limiting
// and a request deadline; /recommend is pure and gets neither.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	limit := RateLimitMiddleware(limiter)
	deadline := TimeoutMiddleware(requestTimeout)
	upstream := func(fn http.HandlerFunc) http.Handler {
		return limit(deadline(fn))
	}

	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")
	router.HandleFunc("/recommend", h.PostRecommend).Methods("POST")
	router.Handle("/weather", upstream(h.GetWeather)).Methods("GET")
	router.Handle("/airquality", upstream(h.GetAirQuality)).Methods("GET")

	return router
}
