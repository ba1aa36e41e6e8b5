package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"gopr-simulator/internal/config"
	"gopr-simulator/internal/mapdata"
	"gopr-simulator/internal/randx"
	"gopr-simulator/internal/weather"

	"github.com/spf13/cobra"
)

func newWeatherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Inspect and schedule weather events",
	}
	cmd.AddCommand(newWeatherShowCmd(), newWeatherAddCmd())
	return cmd
}

func newWeatherShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List scheduled weather events",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			events, err := weather.LoadEvents(cfg.WeatherEventsFile)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(events)
			}
			return printEvents(cmd, events)
		},
	}
}

func printEvents(cmd *cobra.Command, events []weather.Event) error {
	if len(events) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No weather events scheduled.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MINUTE\tDETECTORS\tTEMP\tWIND\tFOG\tRAIN")
	for _, e := range events {
		fmt.Fprintf(tw, "%d\t%v\t%.1f\t%.1f\t%.1f\t%.1f\n", e.Minute, e.Detectors, e.Temperature, e.Wind, e.Fog, e.Rain)
	}
	return tw.Flush()
}

func newWeatherAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule a weather event",
		Long: `Schedule a weather event at a minute of the run for a set of detectors.

The minute must fall inside the scenario's duration and every detector must
exist on the map.

Examples:
  simulator weather add --minute 30 --detectors 1,2 --temperature -4 --wind 18
  simulator weather add --minute 120 --detectors 3 --fog 80 --rain 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			minute, _ := cmd.Flags().GetInt("minute")
			detectors, _ := cmd.Flags().GetIntSlice("detectors")
			temp, _ := cmd.Flags().GetFloat64("temperature")
			wind, _ := cmd.Flags().GetFloat64("wind")
			fog, _ := cmd.Flags().GetFloat64("fog")
			rain, _ := cmd.Flags().GetFloat64("rain")

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			sc, err := config.LoadScenario(cfg.ScenarioFile)
			if err != nil {
				return err
			}
			if horizon := int(sc.DurationHours * 60); minute < 0 || minute >= horizon {
				return fmt.Errorf("minute %d outside the simulation window [0, %d)", minute, horizon)
			}
			if len(detectors) == 0 {
				return fmt.Errorf("at least one detector is required")
			}
			m, err := mapdata.LoadOrSample(cfg.MapFile)
			if err != nil {
				return err
			}
			events, err := weather.LoadEvents(cfg.WeatherEventsFile)
			if err != nil {
				return err
			}

			wm := weather.NewModel(m.DetectorPositions(), events, randx.New(0))
			e := weather.Event{
				Minute:      minute,
				Detectors:   detectors,
				Temperature: temp,
				Wind:        wind,
				Fog:         fog,
				Rain:        rain,
				Added:       time.Now().UTC().Truncate(time.Second),
			}
			if err := wm.AddEvent(e); err != nil {
				return err
			}
			if err := weather.SaveEvents(cfg.WeatherEventsFile, wm.Events()); err != nil {
				return err
			}
			log.WithField("file", cfg.WeatherEventsFile).Info("weather event saved")
			return printEvents(cmd, wm.Events())
		},
	}
	cmd.Flags().Int("minute", 0, "Minute of the run")
	cmd.Flags().IntSlice("detectors", nil, "Detector numbers, comma separated")
	cmd.Flags().Float64("temperature", 0, "Temperature in °C")
	cmd.Flags().Float64("wind", 0, "Wind speed")
	cmd.Flags().Float64("fog", 0, "Fog density")
	cmd.Flags().Float64("rain", 0, "Rainfall")
	return cmd
}
