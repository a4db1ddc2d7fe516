package server

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nicktill/pingmon/pkg/logging"
	"github.com/nicktill/pingmon/pkg/observability"
	"github.com/nicktill/pingmon/pkg/ping"
	"github.com/nicktill/pingmon/pkg/probe"
	"github.com/nicktill/pingmon/pkg/server/monitor"
	"github.com/nicktill/pingmon/pkg/storage"
)

// NextTick returns the first multiple of interval, counted in whole seconds
// from the Unix epoch, that lies strictly after now.
func NextTick(now time.Time, interval time.Duration) time.Time {
	step := int64(interval / time.Second)
	if step <= 0 {
		step = 1
	}
	secs := now.Unix()
	q := secs / step
	if secs%step < 0 {
		q--
	}
	return time.Unix((q+1)*step, 0).In(now.Location())
}

// Publisher receives every stored sample.
type Publisher interface {
	Publish(ping.Sample)
}

// ProbeLoopConfig wires the probe loop. Metrics, Hub, Writer and StorageMonitor
// are optional.
type ProbeLoopConfig struct {
	Prober         probe.Prober
	Store          storage.Storage
	Interval       time.Duration
	Metrics        *observability.Metrics
	Hub            Publisher
	Writer         *monitor.WriterMonitor
	StorageMonitor *monitor.StorageMonitor
	Logger         log.Logger

	// Now and After default to time.Now and time.After.
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

// RunProbeLoop probes once per interval boundary until ctx is cancelled.
// Each sample is appended to the store, counted and published. A failed
// append is not retried; the next tick takes a fresh sample.
func RunProbeLoop(ctx context.Context, cfg ProbeLoopConfig) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.After == nil {
		cfg.After = time.After
	}
	logger := logging.OrNop(cfg.Logger)

	// Exponential backoff state for error logging
	var consecutiveErrors int
	var lastErrorTime time.Time
	const maxBackoff = 30 * time.Minute

	var overLimit bool

	level.Info(logger).Log("msg", "probe loop started", "interval", cfg.Interval)
	for {
		now := cfg.Now()
		select {
		case <-ctx.Done():
			level.Info(logger).Log("msg", "stopping probe loop")
			return
		case <-cfg.After(NextTick(now, cfg.Interval).Sub(now)):
		}

		sample := cfg.Prober.Probe(ctx)
		if ctx.Err() != nil {
			// the probe was cut short; its result is not a real loss
			level.Info(logger).Log("msg", "stopping probe loop")
			return
		}
		if cfg.Metrics != nil {
			cfg.Metrics.ObserveSample(sample)
		}

		if err := cfg.Store.Append(ctx, sample); err != nil {
			consecutiveErrors++
			if cfg.Metrics != nil {
				cfg.Metrics.AppendErrors.Inc()
			}
			if cfg.Writer != nil {
				cfg.Writer.RecordFailure(err)
			}

			// 1m, 2m, 4m ... capped at maxBackoff
			backoff := time.Duration(1<<uint(min(consecutiveErrors-1, 8))) * time.Minute
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			if lastErrorTime.IsZero() || now.Sub(lastErrorTime) >= backoff {
				level.Error(logger).Log("msg", "failed to write sample", "errors", consecutiveErrors, "backoff", backoff, "err", err)
				lastErrorTime = now
			}
			continue
		}

		if consecutiveErrors > 0 {
			level.Info(logger).Log("msg", "sample writes recovered", "errors", consecutiveErrors)
			consecutiveErrors = 0
			lastErrorTime = time.Time{}
		}
		if cfg.Writer != nil {
			cfg.Writer.RecordSuccess()
		}
		if cfg.Hub != nil {
			cfg.Hub.Publish(sample)
		}
		level.Debug(logger).Log("msg", "sample written", "time", sample.Time, "latency", sample.Latency)

		if cfg.StorageMonitor != nil {
			over, err := cfg.StorageMonitor.OverLimit()
			if err == nil && over != overLimit {
				overLimit = over
				if over {
					level.Warn(logger).Log("msg", "log directory exceeds storage limit", "limit_bytes", cfg.StorageMonitor.GetLimit())
				}
			}
		}
	}
}
