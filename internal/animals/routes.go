// Package animals generates randomized animal routes and reports animal
// positions by looking those routes up against simulated time.
package animals

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/randx"
)

var ErrInvalidArgument = errors.New("invalid argument")

const (
	// StepRange bounds the per-axis perturbation between consecutive waypoints.
	StepRange = 20.0

	regionMin = 100.0
	regionMax = 1000.0
)

// Generator builds random-walk routes from an injected random source.
type Generator struct {
	rng randx.Source
}

func NewGenerator(rng randx.Source) *Generator {
	return &Generator{rng: rng}
}

// Walk returns n waypoints evenly spaced in time over [start, end], each one a
// random perturbation of the previous. A nil origin starts anywhere in the
// default region.
func (g *Generator) Walk(start, end time.Time, n int, origin *geo.Position) (geo.Route, error) {
	return g.AlongPath(start, end, n, nil, origin)
}

// AlongPath is Walk with the path points pinned at evenly spaced route indices
// (see PinIndices). The walk cursor keeps going from where it was after a
// pinned point, so the waypoint following a pin may jump back.
func (g *Generator) AlongPath(start, end time.Time, n int, path []geo.Position, origin *geo.Position) (geo.Route, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 route points, got %d", ErrInvalidArgument, n)
	}
	if n < len(path) {
		return nil, fmt.Errorf("%w: %d route points cannot hold %d path points", ErrInvalidArgument, n, len(path))
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidArgument, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	pins := make(map[int]int, len(path))
	for k, idx := range PinIndices(n, len(path)) {
		pins[idx] = k
	}

	interval := end.Sub(start) / time.Duration(n-1)
	cursor := g.origin(origin)

	route := make(geo.Route, n)
	for i := 0; i < n; i++ {
		at := start.Add(time.Duration(i) * interval)
		if i == n-1 {
			at = end
		}
		if k, pinned := pins[i]; pinned {
			route[i] = geo.TimedPosition{Time: at, Position: path[k]}
			continue
		}
		if i > 0 {
			cursor.Lon += randx.Uniform(g.rng, -StepRange, StepRange)
			cursor.Lat += randx.Uniform(g.rng, -StepRange, StepRange)
		}
		route[i] = geo.TimedPosition{Time: at, Position: cursor}
	}
	return route, nil
}

func (g *Generator) origin(p *geo.Position) geo.Position {
	if p != nil {
		return *p
	}
	return geo.Position{
		Lon: randx.Uniform(g.rng, regionMin, regionMax),
		Lat: randx.Uniform(g.rng, regionMin, regionMax),
	}
}

// PinIndices returns the route index for each of k path points spread evenly
// over n route points: round(i*(n-1)/(k-1)). A single path point pins index 0.
func PinIndices(n, k int) []int {
	switch {
	case k <= 0:
		return nil
	case k == 1:
		return []int{0}
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = int(math.Round(float64(i) * float64(n-1) / float64(k-1)))
	}
	return out
}
