package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gopr-simulator/internal/config"
	"gopr-simulator/internal/control"
	"gopr-simulator/internal/db"
	"gopr-simulator/internal/export"
	"gopr-simulator/internal/mapdata"
	"gopr-simulator/internal/metrics"
	"gopr-simulator/internal/publisher"
	"gopr-simulator/internal/randx"
	"gopr-simulator/internal/sim"
	"gopr-simulator/internal/sink"
	"gopr-simulator/internal/weather"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		Long: `Run the simulation over the scenario's time window.

Every tick's snapshot goes to the configured sinks: JSON files (EXPORT_DIR),
Postgres (SAVE_TO_DB) and NATS (NATS_URL). With CONTROL_ADDR set the clock
can be started, stopped, reset and re-paced over HTTP, and the process keeps
running until interrupted.

Examples:
  simulator run
  simulator run --scenario drill.yaml
  CONTROL_ADDR=:8080 simulator run --paused
  simulator run --map-from-db "The Tatra Mountains"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, _ := cmd.Flags().GetString("scenario")
			mapName, _ := cmd.Flags().GetString("map-from-db")
			paused, _ := cmd.Flags().GetBool("paused")
			return runSimulation(cmd.Context(), scenario, mapName, paused)
		},
	}
	cmd.Flags().String("scenario", "", "Scenario file (overrides SCENARIO_FILE)")
	cmd.Flags().String("map-from-db", "", "Load the named map from Postgres instead of MAP_FILE")
	cmd.Flags().Bool("paused", false, "Wait for POST /start on the control API")
	return cmd
}

func runSimulation(parent context.Context, scenarioPath, mapName string, paused bool) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if paused && cfg.ControlAddr == "" {
		return errors.New("--paused requires CONTROL_ADDR")
	}
	if scenarioPath == "" {
		scenarioPath = cfg.ScenarioFile
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sc, err := config.LoadScenario(scenarioPath)
	if err != nil {
		return err
	}
	settings, err := sc.Settings()
	if err != nil {
		return err
	}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(sc.TimeMultiplier, cfg.Tick)
		srv := mcol.Serve(cfg.MetricsAddr, log)
		defer shutdown(srv)
	}

	var sqlDB *sql.DB
	if cfg.SaveToDB || mapName != "" {
		sqlDB, err = openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
	}

	var m *mapdata.Map
	if mapName != "" {
		m, err = db.LoadMap(ctx, sqlDB, mapName)
	} else {
		m, err = mapdata.LoadOrSample(cfg.MapFile)
	}
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}

	events, err := weather.LoadEvents(cfg.WeatherEventsFile)
	if err != nil {
		return err
	}
	wm := weather.NewModel(m.DetectorPositions(), events, randx.New(derivedSeed(cfg.Seed, 1)))

	simulator, err := sim.New(m, wm, settings, randx.New(cfg.Seed), log, mcol)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"map":       m.Name,
		"run":       simulator.RunID(),
		"start":     settings.Start,
		"end":       settings.End,
		"tick":      cfg.Tick,
		"animals":   len(settings.Animals),
		"detectors": len(m.Detectors),
	}).Info("simulation prepared")

	var sinks []sink.Sink
	var ticker sim.Ticker = simulator
	if cfg.ExportDir != "" {
		w, err := export.NewWriter(cfg.ExportDir)
		if err != nil {
			return err
		}
		if err := w.Clear(); err != nil {
			return err
		}
		sinks = append(sinks, w)
	}
	if cfg.SaveToDB {
		if err := db.SaveMap(ctx, sqlDB, m); err != nil {
			return fmt.Errorf("save map: %w", err)
		}
		rec := &recordedRun{Simulator: simulator, ctx: ctx, db: sqlDB, multiplier: sc.TimeMultiplier, log: log}
		if err := rec.record(); err != nil {
			return err
		}
		ticker = rec
		sinks = append(sinks, db.NewStore(sqlDB))
	}
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, log, wrapPublisherMetrics(mcol))
		if err != nil {
			return fmt.Errorf("nats error: %w", err)
		}
		defer pub.Close()
		if err := pub.EnsureStream(ctx, cfg.NATSStreamName); err != nil {
			log.WithError(err).Warn("jetstream unavailable, publishing to core NATS only")
		}
		sinks = append(sinks, pub)
	}

	// Queued snapshots are still written after an interrupt.
	disp := sink.NewDispatcher(cfg.SinkBuffer, log, mcol, sinks...)
	disp.Start(context.WithoutCancel(ctx))
	defer disp.Close()

	clock, err := sim.NewClock(ticker, disp, settings.Start, settings.End, cfg.Tick, sc.TimeMultiplier, log, mcol)
	if err != nil {
		return err
	}

	if cfg.ControlAddr != "" {
		srv := control.NewServer(ctx, clock, wm, log).Serve(cfg.ControlAddr)
		defer shutdown(srv)
	}

	if !paused {
		if err := clock.Start(ctx); err != nil {
			return err
		}
	}
	if cfg.ControlAddr == "" {
		clock.Wait()
	} else {
		<-ctx.Done()
		clock.Stop()
		clock.Wait()
	}

	st := clock.Status()
	log.WithFields(logrus.Fields{
		"ticks":    st.Ticks,
		"sim_time": st.Now,
		"dropped":  disp.Dropped(),
	}).Info("shutdown complete")
	return nil
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL, PG_DSN or PGDATABASE must be set")
	}
	dsn := cfg.DatabaseURL
	if cfg.DBName != "" {
		var err error
		dsn, err = db.WithDBName(dsn, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("compose DSN: %w", err)
		}
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := db.EnsureSchema(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// derivedSeed offsets a fixed seed so independent sources stay reproducible.
// A zero seed stays zero, meaning random.
func derivedSeed(seed, offset int64) int64 {
	if seed == 0 {
		return 0
	}
	return seed + offset
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// recordedRun stores a run row for every new run id the simulator starts.
type recordedRun struct {
	*sim.Simulator
	ctx        context.Context
	db         *sql.DB
	multiplier float64
	log        logrus.FieldLogger
}

func (r *recordedRun) Reset() error {
	if err := r.Simulator.Reset(); err != nil {
		return err
	}
	return r.record()
}

func (r *recordedRun) record() error {
	run := db.Run{
		ID:         r.RunID(),
		MapName:    r.Map().Name,
		Settings:   r.Settings(),
		Multiplier: r.multiplier,
	}
	if err := db.InsertRun(r.ctx, r.db, run, r.Animals()); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	r.log.WithField("run", run.ID).Info("run recorded")
	return nil
}
