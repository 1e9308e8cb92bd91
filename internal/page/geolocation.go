package page

import (
	"context"
	"errors"
	"sync"

	"github.com/swelljoe/wthr.lol/internal/weather"
)

var (
	// ErrPositionDenied is returned when the user refuses or the browser fails to
	// provide a position.
	ErrPositionDenied = errors.New("geolocation: position unavailable or denied")
	// ErrGeolocationUnsupported is returned when the browser has no geolocation API.
	ErrGeolocationUnsupported = errors.New("geolocation: not supported")
)

// Geolocator provides the position of the user.
type Geolocator interface {
	Locate(ctx context.Context) (weather.Coordinates, error)
}

// PositionReport is a Geolocator fed by the browser. It answers with the last
// reported outcome; until something is reported geolocation is unsupported.
type PositionReport struct {
	mu  sync.Mutex
	pos weather.Coordinates
	err error
}

// NewPositionReport returns a report with no position.
func NewPositionReport() *PositionReport {
	return &PositionReport{err: ErrGeolocationUnsupported}
}

// Report records a successful position.
func (p *PositionReport) Report(pos weather.Coordinates) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos, p.err = pos, nil
}

// ReportError records a failed lookup.
func (p *PositionReport) ReportError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos, p.err = weather.Coordinates{}, err
}

// Locate returns the last reported outcome.
func (p *PositionReport) Locate(ctx context.Context) (weather.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos, p.err
}

// ParseGeoError maps the browser's error code to a sentinel error. Every
// failure other than a missing API is treated as a denial.
func ParseGeoError(code string) error {
	if code == "unsupported" {
		return ErrGeolocationUnsupported
	}
	return ErrPositionDenied
}
