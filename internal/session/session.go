// Package session drives one user's weather view: it picks the location,
// runs a fetch cycle against a Backend and holds the composed result along
// with the stored preferences.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherwise/internal/location"
	"github.com/kjstillabower/weatherwise/internal/models"
	"github.com/kjstillabower/weatherwise/internal/normalize"
	"github.com/kjstillabower/weatherwise/internal/prefs"
)

// DefaultLocateTimeout bounds device location acquisition.
const DefaultLocateTimeout = 10 * time.Second

// Status is the state of the current fetch cycle.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// View is a snapshot of the session for the display layer. It shares no
// memory with the session.
type View struct {
	Status         Status
	Error          string
	Weather        *models.WeatherSnapshot
	Forecast       []models.ForecastDay
	Hourly         []models.HourlyForecast
	AirQuality     *models.AirQuality
	Recommendation *models.Recommendation
	Unit           models.Unit
	SavedCities    []string
}

// Options configures a Session. Zero values select defaults.
type Options struct {
	// Locator provides device coordinates. Nil behaves as DeniedLocator.
	Locator Locator
	// LocateTimeout bounds Locator calls.
	LocateTimeout time.Duration
	// Clock is the time zone for hourly labels. Nil means time.Local.
	Clock  *time.Location
	Logger *zap.Logger
}

// Session holds the composed weather view for one user.
type Session struct {
	backend       Backend
	prefs         *prefs.Preferences
	locator       Locator
	locateTimeout time.Duration
	clock         *time.Location
	logger        *zap.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
	state  View
	cycles sync.WaitGroup
}

// New returns an idle Session. It takes ownership of p and closes it on Close.
func New(backend Backend, p *prefs.Preferences, opts Options) *Session {
	s := &Session{
		backend:       backend,
		prefs:         p,
		locator:       opts.Locator,
		locateTimeout: opts.LocateTimeout,
		clock:         opts.Clock,
		logger:        opts.Logger,
		state:         View{Status: StatusIdle},
	}
	if s.locator == nil {
		s.locator = DeniedLocator{}
	}
	if s.locateTimeout <= 0 {
		s.locateTimeout = DefaultLocateTimeout
	}
	if s.clock == nil {
		s.clock = time.Local
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Start loads the last viewed city when one is stored, otherwise the device
// location.
func (s *Session) Start(ctx context.Context) error {
	if city, ok := s.prefs.LastCity(); ok {
		return s.LoadByCity(ctx, city)
	}
	return s.LoadByLocation(ctx)
}

// Refetch reloads from the device location.
func (s *Session) Refetch(ctx context.Context) error {
	return s.LoadByLocation(ctx)
}

// LoadByLocation forgets the last viewed city and loads weather for the
// device position.
func (s *Session) LoadByLocation(ctx context.Context) error {
	cctx, gen, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := s.prefs.ClearLastCity(cctx); err != nil {
		s.logger.Warn("clear last city failed", zap.Error(err))
	}

	coords, err := s.locate(cctx)
	if err != nil {
		return s.fail(gen, err, msgGeneric)
	}
	return s.run(cctx, gen, location.ByCoords(coords.Lat, coords.Lon), msgGeneric)
}

// LoadByCity loads weather for a city name and remembers it as the last
// viewed city once the weather arrives.
func (s *Session) LoadByCity(ctx context.Context, city string) error {
	cctx, gen, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := s.run(cctx, gen, location.ByName(city), msgCityNotFound); err != nil {
		return err
	}
	if err := s.prefs.SetLastCity(cctx, city); err != nil {
		s.logger.Warn("store last city failed", zap.String("city", city), zap.Error(err))
	}
	return nil
}

// begin starts a new cycle, cancelling the one in flight.
func (s *Session) begin(ctx context.Context) (context.Context, uint64, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, nil, errors.New("session closed")
	}
	if s.cancel != nil {
		s.cancel()
	}
	cctx, cancel := context.WithCancel(ctx)
	s.gen++
	s.cancel = cancel
	s.state.Status = StatusLoading
	s.state.Error = ""
	s.cycles.Add(1)
	return cctx, s.gen, func() {
		cancel()
		s.cycles.Done()
	}, nil
}

// currentLocked reports whether gen is still the newest cycle. Callers hold mu.
func (s *Session) currentLocked(gen uint64) bool {
	return gen == s.gen && !s.closed
}

func (s *Session) locate(ctx context.Context) (Coordinates, error) {
	lctx, cancel := context.WithTimeout(ctx, s.locateTimeout)
	defer cancel()

	type result struct {
		c   Coordinates
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := s.locator.Locate(lctx)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Coordinates{}, ErrLocationTimeout
		}
		return r.c, r.err
	case <-lctx.Done():
		if err := ctx.Err(); err != nil {
			return Coordinates{}, err
		}
		return Coordinates{}, ErrLocationTimeout
	}
}

// run performs the fetch for in: primary weather first, then recommendation
// and air quality concurrently. Secondary failures leave that field nil.
func (s *Session) run(ctx context.Context, gen uint64, in location.Input, fallback string) error {
	bundle, err := s.backend.Weather(ctx, in)
	if err != nil {
		return s.fail(gen, err, fallback)
	}

	override := ""
	if bundle.Location != nil {
		override = bundle.Location.Name
	}
	snap, err := normalize.Snapshot(bundle.Weather, override)
	if err != nil {
		return s.fail(gen, err, fallback)
	}
	days, hours, err := normalize.Outlook(bundle.Forecast, s.clock)
	if err != nil {
		return s.fail(gen, err, fallback)
	}

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.state.Weather = &snap
	s.state.Forecast = days
	s.state.Hourly = hours
	s.state.Recommendation = nil
	s.state.AirQuality = nil
	s.mu.Unlock()

	var (
		wg  sync.WaitGroup
		rec *models.Recommendation
		aq  *models.AirQuality
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := s.backend.Recommend(ctx, snap)
		if err != nil {
			s.logger.Warn("recommendation unavailable", zap.Error(err))
			return
		}
		rec = &r
	}()
	go func() {
		defer wg.Done()
		lat, lon := airQualityCoords(bundle, snap)
		a, err := s.backend.AirQuality(ctx, lat, lon)
		if err != nil {
			s.logger.Warn("air quality unavailable", zap.Error(err))
			return
		}
		aq = &a
	}()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return ErrSuperseded
	}
	s.state.Recommendation = rec
	s.state.AirQuality = aq
	s.state.Status = StatusReady
	return nil
}

// airQualityCoords prefers the resolved query coordinates over the ones the
// provider echoed back. City lookups carry none, so they use the snapshot's.
func airQualityCoords(bundle models.WeatherBundle, snap models.WeatherSnapshot) (float64, float64) {
	if loc := bundle.Location; loc != nil && loc.Lat != nil && loc.Lon != nil {
		return *loc.Lat, *loc.Lon
	}
	return snap.Lat, snap.Lon
}

// fail records err for cycle gen and returns it. Stale cycles only report ErrSuperseded.
func (s *Session) fail(gen uint64, err error, fallback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return ErrSuperseded
	}
	s.state.Status = StatusError
	s.state.Error = userMessage(err, fallback)
	s.logger.Debug("weather load failed", zap.Error(err))
	return err
}

// View returns a copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	v := s.state
	s.mu.Unlock()

	if v.Weather != nil {
		w := *v.Weather
		v.Weather = &w
	}
	if v.AirQuality != nil {
		a := *v.AirQuality
		v.AirQuality = &a
	}
	if v.Recommendation != nil {
		r := *v.Recommendation
		r.Activities = slices.Clone(r.Activities)
		v.Recommendation = &r
	}
	v.Forecast = slices.Clone(v.Forecast)
	v.Hourly = slices.Clone(v.Hourly)
	v.Unit = s.prefs.Unit()
	v.SavedCities = s.prefs.SavedCities()
	return v
}

// SetUnit changes the display unit. Stored weather stays in Celsius.
func (s *Session) SetUnit(ctx context.Context, u models.Unit) error {
	return s.prefs.SetUnit(ctx, u)
}

// SaveCity adds city to the saved list. Saving twice is a no-op.
func (s *Session) SaveCity(ctx context.Context, city string) error {
	return s.prefs.SaveCity(ctx, city)
}

// SaveCurrent saves the city currently shown. It returns false when there is
// nothing to save.
func (s *Session) SaveCurrent(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	var city string
	if s.state.Weather != nil {
		city = s.state.Weather.City
	}
	s.mu.Unlock()
	if city == "" {
		return "", false, nil
	}
	if err := s.prefs.SaveCity(ctx, city); err != nil {
		return city, false, err
	}
	return city, true, nil
}

// RemoveCity removes city from the saved list by exact name.
func (s *Session) RemoveCity(ctx context.Context, city string) error {
	return s.prefs.RemoveCity(ctx, city)
}

// Close cancels any in-flight cycle, waits for it to finish and closes the
// preference store.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.cycles.Wait()
	return s.prefs.Close()
}
