// Package location turns user input into the query sent to the weather provider.
package location

import (
	"context"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherwise/internal/client"
	"github.com/kjstillabower/weatherwise/internal/observability"
)

// Geocoder looks up the nearest named places for coordinates.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64, limit int) ([]client.Place, error)
}

// Input is either a free-text city name or a coordinate pair.
type Input struct {
	City      string
	Lat       float64
	Lon       float64
	HasCoords bool
}

// ByName builds a name input.
func ByName(city string) Input { return Input{City: city} }

// ByCoords builds a coordinate input.
func ByCoords(lat, lon float64) Input { return Input{Lat: lat, Lon: lon, HasCoords: true} }

// Resolved is the canonical query plus an optional display-name override.
// NameOverride is empty when no override applies.
type Resolved struct {
	Query        client.Query
	NameOverride string
}

// Resolver snaps coordinates to the provider's canonical place.
type Resolver struct {
	geocoder Geocoder
}

// NewResolver returns a Resolver. A nil geocoder disables reverse geocoding.
func NewResolver(g Geocoder) *Resolver {
	return &Resolver{geocoder: g}
}

// Resolve never fails: a reverse-geocoding miss falls back to the raw coordinates.
func (r *Resolver) Resolve(ctx context.Context, in Input) Resolved {
	if !in.HasCoords {
		return Resolved{Query: client.CityQuery(in.City)}
	}
	raw := Resolved{Query: client.CoordsQuery(in.Lat, in.Lon)}
	if r.geocoder == nil {
		return raw
	}

	logger := observability.LoggerFromContext(ctx)
	places, err := r.geocoder.ReverseGeocode(ctx, in.Lat, in.Lon, 1)
	if err != nil {
		observability.ReverseGeocodeTotal.WithLabelValues("error").Inc()
		logger.Debug("reverse geocode failed, using raw coordinates",
			zap.Float64("lat", in.Lat),
			zap.Float64("lon", in.Lon),
			zap.String("error_category", string(client.CategorizeError(err))),
			zap.Error(err),
		)
		return raw
	}
	if len(places) == 0 {
		observability.ReverseGeocodeTotal.WithLabelValues("empty").Inc()
		return raw
	}

	observability.ReverseGeocodeTotal.WithLabelValues("override").Inc()
	p := places[0]
	return Resolved{
		Query:        client.CoordsQuery(p.Lat, p.Lon),
		NameOverride: p.Name,
	}
}
