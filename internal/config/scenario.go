package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopr-simulator/internal/animals"
	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/sim"

	"gopkg.in/yaml.v3"
)

// StartLayout is the layout of start_time in scenario files.
const StartLayout = "2006-01-02 15:04:05"

// AnimalConfig places one animal. RouteNumber 0 lets the animal roam freely.
type AnimalConfig struct {
	Type           string   `yaml:"type" json:"type"`
	RouteNumber    int      `yaml:"route_number" json:"route_number"`
	StartLongitude *float64 `yaml:"start_longitude" json:"start_longitude"`
	StartLatitude  *float64 `yaml:"start_latitude" json:"start_latitude"`
}

// Scenario is the run setup read from SCENARIO_FILE. JSON files parse too.
type Scenario struct {
	StartTime          string         `yaml:"start_time"`
	DurationHours      float64        `yaml:"duration_hours"`
	TimeMultiplier     float64        `yaml:"time_multiplier"`
	TouristSpawnChance float64        `yaml:"tourist_spawn_chance"`
	RoutePoints        int            `yaml:"route_points,omitempty"`
	Animals            []AnimalConfig `yaml:"animals"`
}

// DefaultScenario is used when no scenario file exists.
func DefaultScenario() Scenario {
	return Scenario{
		StartTime:          "2025-04-06 08:00:00",
		DurationHours:      5,
		TimeMultiplier:     60,
		TouristSpawnChance: 10,
		RoutePoints:        sim.DefaultRoutePoints,
		Animals:            []AnimalConfig{{Type: "deer", RouteNumber: 2}},
	}
}

// LoadScenario reads path, filling omitted fields from DefaultScenario. A
// missing file yields the defaults.
func LoadScenario(path string) (Scenario, error) {
	sc := DefaultScenario()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return sc, nil
	}
	if err != nil {
		return Scenario{}, err
	}
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

func SaveScenario(path string, sc Scenario) error {
	b, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func (sc Scenario) Validate() error {
	if _, err := sc.Start(); err != nil {
		return err
	}
	if sc.DurationHours < 0 {
		return fmt.Errorf("invalid duration_hours: %v", sc.DurationHours)
	}
	if sc.TimeMultiplier <= 0 {
		return fmt.Errorf("invalid time_multiplier: %v", sc.TimeMultiplier)
	}
	if sc.TouristSpawnChance < 0 || sc.TouristSpawnChance > 100 {
		return fmt.Errorf("invalid tourist_spawn_chance: %v", sc.TouristSpawnChance)
	}
	if sc.RoutePoints < 0 {
		return fmt.Errorf("invalid route_points: %d", sc.RoutePoints)
	}
	for i, a := range sc.Animals {
		if a.Type == "" {
			return fmt.Errorf("animal %d: missing type", i)
		}
		if (a.StartLongitude == nil) != (a.StartLatitude == nil) {
			return fmt.Errorf("animal %d: start_longitude and start_latitude must be set together", i)
		}
	}
	return nil
}

func (sc Scenario) Start() (time.Time, error) {
	t, err := time.ParseInLocation(StartLayout, sc.StartTime, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_time: %q", sc.StartTime)
	}
	return t, nil
}

// Settings converts the scenario into simulator settings.
func (sc Scenario) Settings() (sim.Settings, error) {
	start, err := sc.Start()
	if err != nil {
		return sim.Settings{}, err
	}
	s := sim.Settings{
		Start:       start,
		End:         start.Add(time.Duration(sc.DurationHours * float64(time.Hour))),
		SpawnChance: sc.TouristSpawnChance,
		RoutePoints: sc.RoutePoints,
	}
	for _, a := range sc.Animals {
		spec := animals.Spec{Type: a.Type, Trail: a.RouteNumber}
		if a.StartLongitude != nil && a.StartLatitude != nil {
			spec.Start = &geo.Position{Lon: *a.StartLongitude, Lat: *a.StartLatitude}
		}
		s.Animals = append(s.Animals, spec)
	}
	return s, nil
}
