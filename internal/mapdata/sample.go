package mapdata

import "gopr-simulator/internal/geo"

func points(coords ...[2]float64) []TrailPoint {
	out := make([]TrailPoint, len(coords))
	for i, c := range coords {
		out[i] = TrailPoint{Position: geo.Position{Lon: c[0], Lat: c[1]}, Point: i + 1}
	}
	return out
}

// Sample returns the built-in test map: one inner trail joined to one entrance
// trail, three weather detectors, a BTS station and a shelter.
func Sample() *Map {
	m := &Map{
		Name: "The Tatra Mountains TEST",
		Trails: []Trail{
			{
				Number: 1,
				Points: points(
					[2]float64{563, 282}, [2]float64{581, 282}, [2]float64{612, 305},
					[2]float64{673, 293}, [2]float64{703, 306}, [2]float64{720, 300},
					[2]float64{735, 309}, [2]float64{749, 265}, [2]float64{745, 217},
				),
				Difficulty: 2,
				Color:      "Chocolate",
				Area:       "Tatry wysokie",
			},
			{
				Number:     2,
				Points:     points([2]float64{927, 198}, [2]float64{745, 218}),
				Difficulty: 3,
				Color:      "CornflowerBlue",
				IsEntrance: true,
				Area:       "Tatry zachodnie",
			},
		},
		Detectors: []Detector{
			{Number: 1, Coordinates: geo.Position{Lon: 558, Lat: 139}},
			{Number: 2, Coordinates: geo.Position{Lon: 165, Lat: 274}},
			{Number: 3, Coordinates: geo.Position{Lon: 635, Lat: 298}},
		},
		BTSStations: []BTSStation{
			{Number: 1, Coordinates: geo.Position{Lon: 24, Lat: 466}},
		},
		SpecialPlaces: []SpecialPlace{
			{Number: 1, Coordinates: geo.Position{Lon: 648, Lat: 289}, Radius: 30},
		},
		Raster: RasterMap{
			TopLeftLatLon:     Pair{A: 12.3, B: 32.1},
			DownRightLatLon:   Pair{A: 12.4, B: 32.2},
			CanvasWidthHeight: Pair{A: 1280, B: 700},
		},
	}
	_ = m.Init()
	return m
}
