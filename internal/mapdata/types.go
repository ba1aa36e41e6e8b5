package mapdata

import (
	"gopr-simulator/internal/geo"
)

// TrailPoint is one numbered vertex of a trail polyline.
type TrailPoint struct {
	geo.Position `yaml:",inline"`
	Point        int `yaml:"point,omitempty"`
}

type Trail struct {
	Number     int          `yaml:"number"`
	Points     []TrailPoint `yaml:"points"`
	Difficulty int          `yaml:"difficulty"`
	Color      string       `yaml:"color"`
	IsEntrance bool         `yaml:"isEntrance"`
	Area       string       `yaml:"area"`
	// SpawnChance is the per-tick percentage chance that a tourist enters on
	// this trail. Nil falls back to the scenario default.
	SpawnChance *float64 `yaml:"spawn_chance,omitempty"`
}

// Position returns the coordinates of the i-th vertex.
func (t *Trail) Position(i int) geo.Position { return t.Points[i].Position }

func (t *Trail) First() geo.Position { return t.Points[0].Position }

func (t *Trail) Last() geo.Position { return t.Points[len(t.Points)-1].Position }

// Path returns the bare coordinates of the trail in order.
func (t *Trail) Path() []geo.Position {
	out := make([]geo.Position, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Position
	}
	return out
}

type Detector struct {
	Number      int          `yaml:"detectorNumber"`
	Coordinates geo.Position `yaml:"coordinates"`
}

type BTSStation struct {
	Number      int          `yaml:"stationNumber"`
	Coordinates geo.Position `yaml:"coordinates"`
}

// SpecialPlace is a circular zone where tourists tend to stop.
type SpecialPlace struct {
	Number      int          `yaml:"placeNumber"`
	Coordinates geo.Position `yaml:"coordinates"`
	Radius      float64      `yaml:"radius"`
}

// Contains reports whether p lies within the place radius.
func (s SpecialPlace) Contains(p geo.Position) bool {
	return geo.Distance(s.Coordinates, p) <= s.Radius
}

// Pair is the two-value record used by the raster map description.
type Pair struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
}

type RasterMap struct {
	TopLeftLatLon     Pair `yaml:"topLeftLatLon"`
	DownRightLatLon   Pair `yaml:"downRightLatLon"`
	CanvasWidthHeight Pair `yaml:"canvasWidthHeight"`
}

// Map is the read-only trail network and sensor layout of a training area.
type Map struct {
	Name          string         `yaml:"mapName"`
	Trails        []Trail        `yaml:"routes"`
	Detectors     []Detector     `yaml:"detectors"`
	BTSStations   []BTSStation   `yaml:"btsStations"`
	SpecialPlaces []SpecialPlace `yaml:"specialPlaces"`
	Raster        RasterMap      `yaml:"rasterMap"`

	byNumber map[int]int
}
