package mapdata

import "gopr-simulator/internal/geo"

// DefaultCrossingRadius is how close two trail endpoints must be for a tourist
// to step from one trail onto the other.
const DefaultCrossingRadius = 10.0

// End names one of the two boundaries of a trail.
type End int

const (
	Start End = iota
	Finish
)

func (e End) String() string {
	if e == Start {
		return "start"
	}
	return "end"
}

// Endpoint identifies a trail boundary.
type Endpoint struct {
	Trail int
	End   End
}

// Link is a reachable entry onto another trail: the vertex to snap to and the
// direction that walks away from it.
type Link struct {
	Trail     int
	Index     int
	Direction int
}

// Topology is the trail graph implied by endpoint proximity, computed once per
// map instead of scanning every trail on each crossing.
type Topology struct {
	radius float64
	links  map[Endpoint][]Link
}

// BuildTopology links every trail endpoint to the endpoints of other trails
// lying within radius of it.
func BuildTopology(m *Map, radius float64) *Topology {
	t := &Topology{radius: radius, links: make(map[Endpoint][]Link)}
	for i := range m.Trails {
		from := &m.Trails[i]
		for _, end := range []End{Start, Finish} {
			at := from.First()
			if end == Finish {
				at = from.Last()
			}
			key := Endpoint{Trail: from.Number, End: end}
			for j := range m.Trails {
				to := &m.Trails[j]
				if to.Number == from.Number {
					continue
				}
				if geo.Distance(at, to.First()) <= radius {
					t.links[key] = append(t.links[key], Link{Trail: to.Number, Index: 0, Direction: 1})
				}
				if geo.Distance(at, to.Last()) <= radius {
					t.links[key] = append(t.links[key], Link{Trail: to.Number, Index: len(to.Points) - 1, Direction: -1})
				}
			}
		}
	}
	return t
}

// Links returns the trails reachable from the given endpoint.
func (t *Topology) Links(trail int, end End) []Link {
	if t == nil {
		return nil
	}
	return t.links[Endpoint{Trail: trail, End: end}]
}

func (t *Topology) Radius() float64 { return t.radius }
