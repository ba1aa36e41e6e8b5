// Package geo holds planar positions on the map canvas and time-indexed routes.
// Coordinates are canvas units, not degrees.
package geo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidRoute is returned when a route cannot be queried or fails validation.
var ErrInvalidRoute = errors.New("invalid route")

// snapEpsilon treats two points closer than this as identical.
const snapEpsilon = 1e-6

type Position struct {
	Lon float64 `json:"longitude" yaml:"longitude"`
	Lat float64 `json:"latitude" yaml:"latitude"`
}

type TimedPosition struct {
	Time time.Time
	Position
}

// Route is an ordered sequence of timed positions, looked up by time.
type Route []TimedPosition

// Distance is the euclidean distance between a and b.
func Distance(a, b Position) float64 {
	return math.Hypot(b.Lon-a.Lon, b.Lat-a.Lat)
}

func Lerp(a, b Position, frac float64) Position {
	return Position{
		Lon: a.Lon + (b.Lon-a.Lon)*frac,
		Lat: a.Lat + (b.Lat-a.Lat)*frac,
	}
}

// Offset moves p by dist along the given heading in radians.
func Offset(p Position, dist, heading float64) Position {
	return Position{
		Lon: p.Lon + dist*math.Cos(heading),
		Lat: p.Lat + dist*math.Sin(heading),
	}
}

// MoveToward advances from toward to by at most step. When the target is within
// step (or practically on top of from) the exact target is returned and reached
// is true.
func MoveToward(from, to Position, step float64) (pos Position, reached bool) {
	total := Distance(from, to)
	if total <= step || total < snapEpsilon {
		return to, true
	}
	return Lerp(from, to, step/total), false
}

// Validate checks the route has at least two points and non-decreasing timestamps.
func (r Route) Validate() error {
	if len(r) < 2 {
		return fmt.Errorf("%w: %d points, need at least 2", ErrInvalidRoute, len(r))
	}
	for i := 1; i < len(r); i++ {
		if r[i].Time.Before(r[i-1].Time) {
			return fmt.Errorf("%w: timestamp %d precedes timestamp %d", ErrInvalidRoute, i, i-1)
		}
	}
	return nil
}

// Start returns the first timestamp, or the zero time for an empty route.
func (r Route) Start() time.Time {
	if len(r) == 0 {
		return time.Time{}
	}
	return r[0].Time
}

// End returns the last timestamp, or the zero time for an empty route.
func (r Route) End() time.Time {
	if len(r) == 0 {
		return time.Time{}
	}
	return r[len(r)-1].Time
}

// Locate returns the position on the route at time at. Times before the first
// point clamp to the first point and times after the last clamp to the last.
// An empty route yields the origin together with ErrInvalidRoute.
func Locate(r Route, at time.Time) (Position, error) {
	if len(r) == 0 {
		return Position{}, fmt.Errorf("%w: empty route", ErrInvalidRoute)
	}
	return r.At(at), nil
}

// At is Locate without the error: an empty route deliberately degenerates to
// the origin so callers on the tick path always get a position.
func (r Route) At(at time.Time) Position {
	n := len(r)
	if n == 0 {
		return Position{}
	}
	if !at.After(r[0].Time) {
		return r[0].Position
	}
	if !at.Before(r[n-1].Time) {
		return r[n-1].Position
	}
	// find segment i s.t. r[i].Time <= at <= r[i+1].Time
	i := 0
	for i+1 < n && at.After(r[i+1].Time) {
		i++
	}
	if i+1 >= n {
		return r[n-1].Position
	}
	p0, p1 := r[i], r[i+1]
	dt := p1.Time.Sub(p0.Time)
	frac := 0.0
	if dt > 0 {
		frac = float64(at.Sub(p0.Time)) / float64(dt)
	}
	return Lerp(p0.Position, p1.Position, frac)
}
