package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// CurrentWeather returns the raw current-conditions payload in metric units.
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, q Query) ([]byte, error) {
	params := q.values()
	params.Set("units", "metric")
	return c.get(ctx, EndpointWeather, params)
}

// Forecast returns the raw 5-day / 3-hour forecast payload in metric units.
func (c *OpenWeatherClient) Forecast(ctx context.Context, q Query) ([]byte, error) {
	params := q.values()
	params.Set("units", "metric")
	return c.get(ctx, EndpointForecast, params)
}

// AirPollution returns the raw air pollution payload for a point.
func (c *OpenWeatherClient) AirPollution(ctx context.Context, lat, lon float64) ([]byte, error) {
	return c.get(ctx, EndpointAirPollution, CoordsQuery(lat, lon).values())
}

// ReverseGeocode returns up to limit places nearest to the point. An empty
// slice with a nil error means the provider knows no place there.
func (c *OpenWeatherClient) ReverseGeocode(ctx context.Context, lat, lon float64, limit int) ([]Place, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, EndpointGeocode, params)
	if err != nil {
		return nil, err
	}
	var places []Place
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("parse geocode response: %w", err)
	}
	return places, nil
}
