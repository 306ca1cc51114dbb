package location

import (
	"context"
	"errors"
	"testing"

	"github.com/kjstillabower/weatherwise/internal/client"
)

type fakeGeocoder struct {
	places []client.Place
	err    error
	calls  int
	limit  int
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64, limit int) ([]client.Place, error) {
	f.calls++
	f.limit = limit
	return f.places, f.err
}

func TestResolve_NamePassesThroughVerbatim(t *testing.T) {
	g := &fakeGeocoder{}
	got := NewResolver(g).Resolve(context.Background(), ByName("  new YORK "))
	if got.Query.ByCoords || got.Query.City != "  new YORK " {
		t.Errorf("Query = %+v, want verbatim name query", got.Query)
	}
	if got.NameOverride != "" {
		t.Errorf("NameOverride = %q, want empty", got.NameOverride)
	}
	if g.calls != 0 {
		t.Error("name queries must not reverse geocode")
	}
}

func TestResolve_CoordsSnapToCandidate(t *testing.T) {
	g := &fakeGeocoder{places: []client.Place{{Name: "Jung-gu", Lat: 37.5640, Lon: 126.9975}}}
	got := NewResolver(g).Resolve(context.Background(), ByCoords(37.5601, 126.9912))

	if g.limit != 1 {
		t.Errorf("limit = %d, want 1", g.limit)
	}
	if !got.Query.ByCoords || got.Query.Lat != 37.5640 || got.Query.Lon != 126.9975 {
		t.Errorf("Query = %+v, want candidate coordinates", got.Query)
	}
	if got.NameOverride != "Jung-gu" {
		t.Errorf("NameOverride = %q, want Jung-gu", got.NameOverride)
	}
}

func TestResolve_Fallback(t *testing.T) {
	tests := []struct {
		name string
		g    Geocoder
	}{
		{"empty result", &fakeGeocoder{}},
		{"lookup error", &fakeGeocoder{err: errors.New("connection refused")}},
		{"no geocoder", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewResolver(tt.g).Resolve(context.Background(), ByCoords(48.8566, 2.3522))
			if !got.Query.ByCoords || got.Query.Lat != 48.8566 || got.Query.Lon != 2.3522 {
				t.Errorf("Query = %+v, want original coordinates", got.Query)
			}
			if got.NameOverride != "" {
				t.Errorf("NameOverride = %q, want empty", got.NameOverride)
			}
		})
	}
}
