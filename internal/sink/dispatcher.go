// Package sink fans simulation snapshots out to persistence and publishing
// backends without holding up the simulation clock.
package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	mmetrics "gopr-simulator/internal/metrics"
	"gopr-simulator/internal/sim"

	"github.com/sirupsen/logrus"
)

const DefaultBuffer = 64

// Sink consumes snapshots. Write is called from a single goroutine.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap sim.Snapshot) error
}

// Dispatcher queues snapshots and writes them to every sink in order on a
// background goroutine. When the queue is full new snapshots are dropped.
type Dispatcher struct {
	sinks   []Sink
	log     logrus.FieldLogger
	metrics *mmetrics.Collector

	mu     sync.RWMutex
	closed bool
	queue  chan sim.Snapshot
	wg     sync.WaitGroup

	dropped atomic.Int64
	written atomic.Int64
}

func NewDispatcher(buffer int, log logrus.FieldLogger, metrics *mmetrics.Collector, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Dispatcher{
		sinks:   sinks,
		log:     log,
		metrics: metrics,
		queue:   make(chan sim.Snapshot, buffer),
	}
}

// Start launches the writer goroutine. ctx is handed to every Write.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for snap := range d.queue {
			d.write(ctx, snap)
		}
	}()
}

func (d *Dispatcher) write(ctx context.Context, snap sim.Snapshot) {
	for _, s := range d.sinks {
		start := time.Now()
		if err := s.Write(ctx, snap); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{"sink": s.Name(), "sim_time": snap.Time}).Error("snapshot write failed")
			if d.metrics != nil {
				d.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			}
			continue
		}
		d.log.WithFields(logrus.Fields{"sink": s.Name(), "took": time.Since(start)}).Trace("snapshot written")
	}
	d.written.Add(1)
}

// Emit queues a snapshot without blocking.
func (d *Dispatcher) Emit(snap sim.Snapshot) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- snap:
	default:
		d.dropped.Add(1)
		if d.metrics != nil {
			d.metrics.SnapshotsDropped.Inc()
		}
		d.log.WithField("sim_time", snap.Time).Warn("sink backlog full, snapshot dropped")
	}
}

// Close stops accepting snapshots and waits for the queued ones to be written.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

func (d *Dispatcher) Written() int64 { return d.written.Load() }

// Backlog is the number of snapshots waiting to be written.
func (d *Dispatcher) Backlog() int { return len(d.queue) }
