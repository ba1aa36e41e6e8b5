package weather

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Event pins the weather at one minute of the run for a set of detectors.
type Event struct {
	Minute      int       `yaml:"minute"`
	Detectors   []int     `yaml:"detectors,flow"`
	Temperature float64   `yaml:"temperature"`
	Wind        float64   `yaml:"wind"`
	Fog         float64   `yaml:"fog"`
	Rain        float64   `yaml:"rain"`
	Added       time.Time `yaml:"added,omitempty"`
}

// AppliesTo reports whether the event covers the detector.
func (e Event) AppliesTo(detector int) bool {
	for _, d := range e.Detectors {
		if d == detector {
			return true
		}
	}
	return false
}

// LoadEvents reads an events file sorted by minute. A missing file yields no
// events.
func LoadEvents(path string) ([]Event, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := yaml.Unmarshal(b, &events); err != nil {
		return nil, fmt.Errorf("decode weather events: %w", err)
	}
	SortEvents(events)
	return events, nil
}

func SaveEvents(path string, events []Event) error {
	b, err := yaml.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode weather events: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// SortEvents orders events by minute, keeping insertion order for ties.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Minute < events[j].Minute })
}
