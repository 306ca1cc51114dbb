package session

import "context"

// Coordinates is a device position.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Locator acquires the device position.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// StaticLocator always reports the same position.
type StaticLocator Coordinates

func (s StaticLocator) Locate(ctx context.Context) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}
	return Coordinates(s), nil
}

// DeniedLocator behaves like a device that refuses location access.
type DeniedLocator struct{}

func (DeniedLocator) Locate(context.Context) (Coordinates, error) {
	return Coordinates{}, ErrPermissionDenied
}
