package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mmetrics "gopr-simulator/internal/metrics"

	"github.com/sirupsen/logrus"
)

var (
	ErrRunning           = errors.New("simulation is running")
	ErrInvalidMultiplier = errors.New("time multiplier must be positive")
)

// Ticker is the part of the Simulator the clock drives.
type Ticker interface {
	Tick(now time.Time, dt time.Duration) Snapshot
	Reset() error
}

// Status is a point-in-time view of the clock.
type Status struct {
	Running    bool          `json:"running"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Now        time.Time     `json:"now"`
	Elapsed    time.Duration `json:"elapsed"`
	Progress   float64       `json:"progress"`
	Ticks      int           `json:"ticks"`
	Multiplier float64       `json:"multiplier"`
	Finished   bool          `json:"finished"`
}

// Clock owns simulated time. Each tick covers a fixed simulated delta and is
// followed by a real sleep of delta divided by the multiplier. Start, Stop,
// SetMultiplier and Reset may be called from any goroutine; they take effect
// at the next tick boundary and never interrupt a tick in progress.
type Clock struct {
	ticker  Ticker
	emit    Emitter
	log     logrus.FieldLogger
	metrics *mmetrics.Collector

	start time.Time
	end   time.Time
	delta time.Duration

	mu         sync.Mutex
	now        time.Time
	multiplier float64
	running    bool
	ticks      int
	done       chan struct{}
	wake       chan struct{}
}

func NewClock(t Ticker, emit Emitter, start, end time.Time, delta time.Duration, multiplier float64, log logrus.FieldLogger, metrics *mmetrics.Collector) (*Clock, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("%w: tick delta %s", ErrInvalidSettings, delta)
	}
	if multiplier <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMultiplier, multiplier)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalidSettings)
	}
	return &Clock{
		ticker:     t,
		emit:       emit,
		log:        log,
		metrics:    metrics,
		start:      start,
		end:        end,
		delta:      delta,
		now:        start,
		multiplier: multiplier,
		wake:       make(chan struct{}, 1),
	}, nil
}

// Run ticks until the end of the run window, Stop or ctx cancellation. It
// returns ErrRunning when the clock is already running.
func (c *Clock) Run(ctx context.Context) error {
	done, err := c.begin()
	if err != nil {
		return err
	}
	defer close(done)
	c.loop(ctx)
	return nil
}

// Start runs the clock on a new goroutine.
func (c *Clock) Start(ctx context.Context) error {
	done, err := c.begin()
	if err != nil {
		return err
	}
	go func() {
		defer close(done)
		c.loop(ctx)
	}()
	return nil
}

func (c *Clock) begin() (chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.unwinding() {
		return nil, ErrRunning
	}
	select {
	case <-c.wake:
	default:
	}
	c.running = true
	c.done = make(chan struct{})
	return c.done, nil
}

// unwinding reports a stopped loop that has not returned yet. Callers hold mu.
func (c *Clock) unwinding() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Clock) loop(ctx context.Context) {
	c.log.WithFields(logrus.Fields{"from": c.Status().Now, "until": c.end}).Info("simulation started")
	for {
		c.mu.Lock()
		if !c.running || ctx.Err() != nil || c.now.After(c.end) {
			c.running = false
			now := c.now
			c.mu.Unlock()
			c.log.WithField("sim_time", now).Info("simulation stopped")
			return
		}
		now := c.now
		c.mu.Unlock()

		snap := c.ticker.Tick(now, c.delta)
		c.emit.Emit(snap)

		c.mu.Lock()
		c.now = now.Add(c.delta)
		c.ticks++
		pause := time.Duration(float64(c.delta) / c.multiplier)
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.SimElapsed.Set(now.Sub(c.start).Seconds())
		}
		c.log.WithFields(logrus.Fields{"sim_time": now.Format(time.DateTime), "tourists": len(snap.Tourists)}).Debug("tick")

		c.sleep(ctx, pause)
	}
}

func (c *Clock) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-c.wake:
	case <-t.C:
	}
}

// Stop asks the loop to finish after the tick in progress.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until the most recently started loop has returned.
func (c *Clock) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// SetMultiplier changes the pacing starting with the next sleep.
func (c *Clock) SetMultiplier(f float64) error {
	if f <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidMultiplier, f)
	}
	c.mu.Lock()
	c.multiplier = f
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.TimeMultiplier.Set(f)
	}
	return nil
}

// Reset rewinds simulated time to the run start and resets the simulator.
// The clock must be stopped.
func (c *Clock) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.unwinding() {
		return ErrRunning
	}
	if err := c.ticker.Reset(); err != nil {
		return err
	}
	c.now = c.start
	c.ticks = 0
	if c.metrics != nil {
		c.metrics.SimElapsed.Set(0)
	}
	return nil
}

func (c *Clock) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := c.now.Sub(c.start)
	if elapsed < 0 {
		elapsed = 0
	}
	progress := 1.0
	if total := c.end.Sub(c.start); total > 0 {
		progress = min(1, float64(elapsed)/float64(total))
	}
	return Status{
		Running:    c.running,
		Start:      c.start,
		End:        c.end,
		Now:        c.now,
		Elapsed:    elapsed,
		Progress:   progress,
		Ticks:      c.ticks,
		Multiplier: c.multiplier,
		Finished:   c.now.After(c.end),
	}
}
