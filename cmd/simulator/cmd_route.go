package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopr-simulator/internal/animals"
	"gopr-simulator/internal/config"
	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/mapdata"
	"gopr-simulator/internal/randx"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type routePoint struct {
	Time      string  `json:"time" yaml:"time"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
}

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Print a generated animal route",
		Long: `Generate one animal route over the scenario window and print it.

With --trail the route follows that trail of the map; otherwise it is a free
random walk.

Examples:
  simulator route --points 20
  simulator route --trail 2 --seed 7 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			trail, _ := cmd.Flags().GetInt("trail")
			points, _ := cmd.Flags().GetInt("points")
			seed, _ := cmd.Flags().GetInt64("seed")
			scenarioPath, _ := cmd.Flags().GetString("scenario")
			mapPath, _ := cmd.Flags().GetString("map")
			jsonOut, _ := cmd.Flags().GetBool("json")

			sc, err := config.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			settings, err := sc.Settings()
			if err != nil {
				return err
			}
			route, err := generateRoute(mapPath, trail, points, seed, settings.Start, settings.End)
			if err != nil {
				return err
			}

			out := make([]routePoint, 0, len(route))
			for _, p := range route {
				out = append(out, routePoint{Time: p.Time.Format(config.StartLayout), Longitude: p.Lon, Latitude: p.Lat})
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			b, err := yaml.Marshal(out)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().Int("trail", 0, "Trail number to follow (0 = free walk)")
	cmd.Flags().Int("points", 10, "Number of route points")
	cmd.Flags().Int64("seed", 0, "Random seed (0 = random)")
	cmd.Flags().String("scenario", "scenario.yaml", "Scenario file supplying the time window")
	cmd.Flags().String("map", "map.yaml", "Map file (the built-in sample is used when missing)")
	return cmd
}

func generateRoute(mapPath string, trail, points int, seed int64, start, end time.Time) (geo.Route, error) {
	gen := animals.NewGenerator(randx.New(seed))
	if trail == 0 {
		return gen.Walk(start, end, points, nil)
	}
	m, err := mapdata.Load(mapPath)
	if errors.Is(err, os.ErrNotExist) {
		m = mapdata.Sample()
	} else if err != nil {
		return nil, err
	}
	t, ok := m.Trail(trail)
	if !ok {
		return nil, fmt.Errorf("%w: unknown trail %d", animals.ErrInvalidArgument, trail)
	}
	return gen.AlongPath(start, end, points, t.Path(), nil)
}
