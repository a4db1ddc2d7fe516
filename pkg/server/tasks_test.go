package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/pingmon/pkg/observability"
	"github.com/nicktill/pingmon/pkg/ping"
	"github.com/nicktill/pingmon/pkg/server/monitor"
	"github.com/nicktill/pingmon/pkg/storage/memory"
)

func TestNextTick(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		interval time.Duration
		want     int64
	}{
		{"mid minute", time.Unix(1536062893, 0), time.Minute, 1536062940},
		{"on boundary", time.Unix(1536062880, 0), time.Minute, 1536062940},
		{"just after boundary", time.Unix(1536062880, 500), time.Minute, 1536062940},
		{"just before boundary", time.Unix(1536062939, 999999999), time.Minute, 1536062940},
		{"thirty seconds", time.Unix(1536062893, 0), 30 * time.Second, 1536062910},
		{"hourly", time.Unix(1536062893, 0), time.Hour, 1536066000},
		{"sub second interval", time.Unix(100, 0), time.Millisecond, 101},
		{"before epoch", time.Unix(-90, 0), time.Minute, -60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextTick(tt.now, tt.interval).Unix())
		})
	}
}

type fakeProber struct {
	mu      sync.Mutex
	samples []ping.Sample
	calls   int
	onEmpty func()
}

func (p *fakeProber) Probe(ctx context.Context) ping.Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.samples) == 0 {
		p.onEmpty()
		return ping.Sample{Latency: ping.LostThreshold}
	}
	s := p.samples[0]
	p.samples = p.samples[1:]
	return s
}

type recordingHub struct {
	mu        sync.Mutex
	published []ping.Sample
}

func (h *recordingHub) Publish(s ping.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.published = append(h.published, s)
}

type failingStore struct {
	*memory.Storage
	failures int
}

func (f *failingStore) Append(ctx context.Context, s ping.Sample) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("disk full")
	}
	return f.Storage.Append(ctx, s)
}

// immediate fires every wait at once and records its length.
func immediate(waits *[]time.Duration) func(time.Duration) <-chan time.Time {
	return func(d time.Duration) <-chan time.Time {
		*waits = append(*waits, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
}

func TestRunProbeLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := time.Unix(1536062893, 0)
	store := memory.NewWithClock(func() time.Time { return clock })
	prober := &fakeProber{
		samples: []ping.Sample{
			{Time: 1536062940, Latency: 12},
			{Time: 1536063000, Latency: ping.LostThreshold},
		},
		onEmpty: cancel,
	}
	hub := &recordingHub{}
	metrics := observability.NewMetrics(nil)
	writer := monitor.NewWriterMonitor(time.Minute)

	var waits []time.Duration
	RunProbeLoop(ctx, ProbeLoopConfig{
		Prober:   prober,
		Store:    store,
		Interval: time.Minute,
		Metrics:  metrics,
		Hub:      hub,
		Writer:   writer,
		Now:      func() time.Time { return clock },
		After:    immediate(&waits),
	})

	stored := ping.Collect(store.Stream(context.Background()))
	require.Len(t, stored, 2)
	assert.Equal(t, int64(1536063000), stored[0].Time)
	assert.Equal(t, int64(1536062940), stored[1].Time)

	assert.Len(t, hub.published, 2)
	assert.Equal(t, 3, prober.calls)
	assert.Equal(t, 47*time.Second, waits[0])
	assert.True(t, writer.IsHealthy())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ProbesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProbesLost))
}

func TestRunProbeLoop_AppendFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := time.Unix(1536062893, 0)
	store := &failingStore{Storage: memory.NewWithClock(func() time.Time { return clock }), failures: 3}
	prober := &fakeProber{
		samples: []ping.Sample{
			{Time: 1536062940, Latency: 1},
			{Time: 1536063000, Latency: 2},
			{Time: 1536063060, Latency: 3},
			{Time: 1536063120, Latency: 4},
		},
		onEmpty: cancel,
	}
	hub := &recordingHub{}
	metrics := observability.NewMetrics(nil)
	writer := monitor.NewWriterMonitor(time.Minute)

	var waits []time.Duration
	RunProbeLoop(ctx, ProbeLoopConfig{
		Prober:   prober,
		Store:    store,
		Interval: time.Minute,
		Metrics:  metrics,
		Hub:      hub,
		Writer:   writer,
		Now:      func() time.Time { return clock },
		After:    immediate(&waits),
	})

	stored := ping.Collect(store.Stream(context.Background()))
	require.Len(t, stored, 1)
	assert.Equal(t, 4.0, stored[0].Latency)

	require.Len(t, hub.published, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.AppendErrors))
	assert.Equal(t, 0, writer.Status().ConsecutiveErrors)
}

func TestRunProbeLoop_StopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	prober := &fakeProber{onEmpty: func() {}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		RunProbeLoop(ctx, ProbeLoopConfig{
			Prober:   prober,
			Store:    memory.New(),
			Interval: time.Hour,
		})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("probe loop did not stop")
	}
	assert.Equal(t, 0, prober.calls)
}
