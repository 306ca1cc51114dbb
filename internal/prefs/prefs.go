package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherwise/internal/models"
)

// Storage keys.
const (
	KeyUnit        = "wf_unit"
	KeySavedCities = "wf_saved_cities"
	KeyLastCity    = "wf_last_city"
)

// Preferences is the in-memory view of the stored preferences. Every
// mutation is written through to the store before it returns.
type Preferences struct {
	store  Store
	logger *zap.Logger

	mu       sync.Mutex
	unit     models.Unit
	saved    []string
	lastCity string
}

// Load reads preferences from store. Unreadable values fall back to the
// defaults (Celsius, no saved cities) and are logged rather than returned.
func Load(ctx context.Context, store Store, logger *zap.Logger) (*Preferences, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Preferences{store: store, logger: logger, unit: models.Celsius}

	if v, ok, err := store.Get(ctx, KeyUnit); err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyUnit, err)
	} else if ok {
		if u := models.Unit(v); u.Valid() {
			p.unit = u
		} else {
			logger.Warn("ignoring stored unit", zap.String("value", v))
		}
	}

	if v, ok, err := store.Get(ctx, KeySavedCities); err != nil {
		return nil, fmt.Errorf("load %s: %w", KeySavedCities, err)
	} else if ok {
		var cities []string
		if err := json.Unmarshal([]byte(v), &cities); err != nil {
			logger.Warn("ignoring stored saved cities", zap.Error(err))
		} else {
			p.saved = dedupe(cities)
		}
	}

	v, ok, err := store.Get(ctx, KeyLastCity)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyLastCity, err)
	}
	if ok {
		p.lastCity = v
	}
	return p, nil
}

// Unit returns the temperature display unit.
func (p *Preferences) Unit() models.Unit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unit
}

// SetUnit stores u.
func (p *Preferences) SetUnit(ctx context.Context, u models.Unit) error {
	if !u.Valid() {
		return fmt.Errorf("unknown unit %q", u)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Set(ctx, KeyUnit, string(u)); err != nil {
		return err
	}
	p.unit = u
	return nil
}

// SavedCities returns a copy of the saved cities in insertion order.
func (p *Preferences) SavedCities() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.saved)
}

// IsSaved reports whether city is saved, by exact name.
func (p *Preferences) IsSaved(city string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.saved, city)
}

// SaveCity appends city. Saving a city already present is a no-op.
func (p *Preferences) SaveCity(ctx context.Context, city string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slices.Contains(p.saved, city) {
		return nil
	}
	next := append(slices.Clone(p.saved), city)
	if err := p.writeCities(ctx, next); err != nil {
		return err
	}
	p.saved = next
	return nil
}

// RemoveCity removes every entry exactly equal to city.
func (p *Preferences) RemoveCity(ctx context.Context, city string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := slices.DeleteFunc(slices.Clone(p.saved), func(c string) bool { return c == city })
	if err := p.writeCities(ctx, next); err != nil {
		return err
	}
	p.saved = next
	return nil
}

func (p *Preferences) writeCities(ctx context.Context, cities []string) error {
	if cities == nil {
		cities = []string{}
	}
	raw, err := json.Marshal(cities)
	if err != nil {
		return fmt.Errorf("encode saved cities: %w", err)
	}
	return p.store.Set(ctx, KeySavedCities, string(raw))
}

// LastCity returns the last city viewed by name, if any.
func (p *Preferences) LastCity() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCity, p.lastCity != ""
}

// SetLastCity records city as the last viewed.
func (p *Preferences) SetLastCity(ctx context.Context, city string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Set(ctx, KeyLastCity, city); err != nil {
		return err
	}
	p.lastCity = city
	return nil
}

// ClearLastCity forgets the last viewed city.
func (p *Preferences) ClearLastCity(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Delete(ctx, KeyLastCity); err != nil {
		return err
	}
	p.lastCity = ""
	return nil
}

// Close closes the underlying store.
func (p *Preferences) Close() error {
	return p.store.Close()
}

// dedupe drops repeated names, keeping the first occurrence of each.
func dedupe(cities []string) []string {
	seen := make(map[string]struct{}, len(cities))
	out := make([]string, 0, len(cities))
	for _, c := range cities {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
