package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mmetrics "gopr-simulator/internal/metrics"
	"gopr-simulator/internal/sim"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	name  string
	err   error
	gate  chan struct{}
	mu    sync.Mutex
	times []time.Time
}

func (m *memSink) Name() string { return m.name }

func (m *memSink) Write(_ context.Context, snap sim.Snapshot) error {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.times = append(m.times, snap.Time)
	return m.err
}

func (m *memSink) got() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.times...)
}

var t0 = time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

func TestDispatcherWritesInOrderToEverySink(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	a, b := &memSink{name: "a"}, &memSink{name: "b"}
	d := NewDispatcher(8, log, nil, a, b)
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		d.Emit(sim.Snapshot{Time: t0.Add(time.Duration(i) * time.Second)})
	}
	d.Close()

	require.Len(t, a.got(), 5)
	assert.Equal(t, a.got(), b.got())
	for i, ts := range a.got() {
		assert.Equal(t, t0.Add(time.Duration(i)*time.Second), ts)
	}
	assert.EqualValues(t, 5, d.Written())
	assert.Zero(t, d.Dropped())
}

func TestDispatcherDropsWhenBacklogFull(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	slow := &memSink{name: "slow", gate: make(chan struct{})}
	mc := mmetrics.NewCollector(1, time.Second)
	d := NewDispatcher(2, log, mc, slow)
	d.Start(context.Background())

	// first snapshot is taken by the writer and blocks on the gate
	d.Emit(sim.Snapshot{Time: t0})
	require.Eventually(t, func() bool { return d.Backlog() == 0 }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 5; i++ {
			d.Emit(sim.Snapshot{Time: t0.Add(time.Duration(i) * time.Second)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a slow sink")
	}

	assert.EqualValues(t, 3, d.Dropped())
	assert.NotEmpty(t, hook.AllEntries())

	close(slow.gate)
	d.Close()
	assert.Len(t, slow.got(), 3)
}

func TestDispatcherKeepsGoingAfterSinkError(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	bad := &memSink{name: "bad", err: errors.New("connection refused")}
	good := &memSink{name: "good"}
	d := NewDispatcher(4, log, mmetrics.NewCollector(1, time.Second), bad, good)
	d.Start(context.Background())

	d.Emit(sim.Snapshot{Time: t0})
	d.Emit(sim.Snapshot{Time: t0.Add(time.Second)})
	d.Close()

	assert.Len(t, good.got(), 2)
	errs := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "snapshot write failed" {
			errs++
			assert.Equal(t, "bad", e.Data["sink"])
		}
	}
	assert.Equal(t, 2, errs)
}

func TestEmitAfterCloseIsIgnored(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	s := &memSink{name: "s"}
	d := NewDispatcher(1, log, nil, s)
	d.Start(context.Background())
	d.Close()
	d.Close()

	assert.NotPanics(t, func() { d.Emit(sim.Snapshot{Time: t0}) })
	assert.Empty(t, s.got())
}
