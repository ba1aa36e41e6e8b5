// Package export writes the latest snapshot to the JSON files read by the
// browser viewer.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopr-simulator/internal/sim"
	"gopr-simulator/internal/weather"
)

const (
	AnimalsFile  = "animal_locations.json"
	TouristsFile = "tourist_location.json"
	WeatherFile  = "weather_station.json"

	timestampLayout = "2006-01-02 15:04:05.000000"
)

type animalLocation struct {
	AnimalID  string  `json:"animal_id"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Timestamp string  `json:"simulated_timestamp"`
}

type location struct {
	Longitude string `json:"longitude"`
	Latitude  string `json:"latitude"`
}

type touristLocation struct {
	Title     string   `json:"title"`
	PhoneID   string   `json:"PhoneId"`
	LocType   string   `json:"locType"`
	Timestamp string   `json:"timeStamp"`
	Location  location `json:"location"`
}

type stationReading struct {
	Title       string   `json:"title"`
	StationID   string   `json:"stationId"`
	Timestamp   string   `json:"timeStamp"`
	Location    location `json:"location"`
	Wind        string   `json:"wind"`
	Fog         string   `json:"fog"`
	Temperature string   `json:"temperature"`
	Rain        string   `json:"rain"`
}

// Writer overwrites the three viewer files with every snapshot.
type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) Name() string { return "files" }

func (w *Writer) Dir() string { return w.dir }

func (w *Writer) Write(_ context.Context, snap sim.Snapshot) error {
	animals := make([]animalLocation, 0, len(snap.Animals))
	for _, a := range snap.Animals {
		animals = append(animals, animalLocation{
			AnimalID:  a.ID,
			Longitude: a.Position.Lon,
			Latitude:  a.Position.Lat,
			Timestamp: a.Timestamp.Format(timestampLayout),
		})
	}
	tourists := make([]touristLocation, 0, len(snap.Tourists))
	for _, t := range snap.Tourists {
		tourists = append(tourists, touristLocation{
			Title:     "touristLocation",
			PhoneID:   t.PhoneID,
			LocType:   t.LocationType,
			Timestamp: t.Timestamp.Format(timestampLayout),
			Location:  location{Longitude: num(t.Position.Lon), Latitude: num(t.Position.Lat)},
		})
	}
	stations := make([]stationReading, 0, len(snap.Weather))
	for _, r := range snap.Weather {
		stations = append(stations, station(r))
	}

	if err := w.writeJSON(AnimalsFile, animals); err != nil {
		return err
	}
	if err := w.writeJSON(TouristsFile, tourists); err != nil {
		return err
	}
	return w.writeJSON(WeatherFile, stations)
}

// Clear empties the actor files, as after a reset.
func (w *Writer) Clear() error {
	if err := w.writeJSON(AnimalsFile, []animalLocation{}); err != nil {
		return err
	}
	return w.writeJSON(TouristsFile, []touristLocation{})
}

func station(r weather.Reading) stationReading {
	return stationReading{
		Title:       "WS",
		StationID:   r.StationID(),
		Timestamp:   r.Timestamp.Format(timestampLayout),
		Location:    location{Longitude: num(r.Position.Lon), Latitude: num(r.Position.Lat)},
		Wind:        num(r.Wind),
		Fog:         num(r.Fog),
		Temperature: num(r.Temperature),
		Rain:        num(r.Rain),
	}
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// writeJSON replaces name atomically so the viewer never reads a partial file.
func (w *Writer) writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(w.dir, name+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(w.dir, name))
}
