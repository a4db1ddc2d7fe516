package query

import (
	"context"

	"github.com/nicktill/pingmon/pkg/config"
	"github.com/nicktill/pingmon/pkg/ping"
	"github.com/nicktill/pingmon/pkg/storage"
)

// Executor answers range and history queries over a storage backend.
// Every query streams the backend from the newest sample; nothing is cached.
type Executor struct {
	storage storage.Storage
}

// NewExecutor creates a new query executor
func NewExecutor(store storage.Storage) *Executor {
	return &Executor{storage: store}
}

// ReadRange returns up to r.Count samples, newest first. See ping.Select for
// how the range bounds apply. Unreadable log files contribute no samples.
func (e *Executor) ReadRange(ctx context.Context, r ping.Range) ([]ping.Sample, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return ping.Select(e.storage.Stream(ctx), r)
}

// ReadHistory returns up to r.Count hourly buckets, newest first.
//
// It over-reads r.Count*SamplesPerHour samples, assuming the probe interval
// puts at most that many samples into each hour, and buckets them with
// ping.GenerateHistory, which stops after r.Count buckets. The grid is
// gapless over the samples read.
func (e *Executor) ReadHistory(ctx context.Context, r ping.Range) ([]ping.Bucket, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	wide := r
	wide.Count = r.Count * config.SamplesPerHour
	samples, err := ping.Select(e.storage.Stream(ctx), wide)
	if err != nil {
		return nil, err
	}

	return ping.GenerateHistory(samples, r.Count), nil
}

// Summary folds already selected samples into one bucket stamped with the
// newest sample's time, or 0 when there are none.
func (e *Executor) Summary(samples []ping.Sample) ping.Bucket {
	var t int64
	if len(samples) > 0 {
		t = samples[0].Time
	}
	return ping.Accumulate(samples, t)
}

// Files lists the daily log files, oldest first
func (e *Executor) Files(ctx context.Context) ([]string, error) {
	return e.storage.Files(ctx)
}

// ReadFile returns one raw daily log file
func (e *Executor) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return e.storage.ReadFile(ctx, name)
}
