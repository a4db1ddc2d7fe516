package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nicktill/pingmon/pkg/config"
	"github.com/nicktill/pingmon/pkg/export"
	"github.com/nicktill/pingmon/pkg/hw"
	"github.com/nicktill/pingmon/pkg/httpx"
	"github.com/nicktill/pingmon/pkg/live"
	"github.com/nicktill/pingmon/pkg/logging"
	"github.com/nicktill/pingmon/pkg/observability"
	"github.com/nicktill/pingmon/pkg/probe"
	"github.com/nicktill/pingmon/pkg/query"
	"github.com/nicktill/pingmon/pkg/server/monitor"
	"github.com/nicktill/pingmon/pkg/storage"
	"github.com/nicktill/pingmon/pkg/storage/logfile"
)

// Server owns the probe loop, the store and the HTTP API.
type Server struct {
	cfg    config.Config
	logger log.Logger

	store    storage.Storage
	prober   probe.Prober
	registry *prometheus.Registry
	metrics  *observability.Metrics
	hub      *live.Hub

	writerMonitor  *monitor.WriterMonitor
	storageMonitor *monitor.StorageMonitor

	queryHandler  *query.Handler
	exportHandler *export.Handler
	hwReporter    *hw.Reporter

	startTime time.Time
}

// New builds a server writing to cfg.LogDir and probing cfg.PingHost.
func New(cfg config.Config, logger log.Logger) (*Server, error) {
	logger = logging.OrNop(logger)
	registry, metrics := InitializeMetrics()

	store, err := InitializeStorage(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	prober := probe.NewCommandProber(cfg.PingHost, cfg.ProbeTimeout, log.With(logger, "component", "probe"))

	return newServer(cfg, logger, store, prober, registry, metrics), nil
}

// NewWithStore builds a server over an existing store and prober.
func NewWithStore(cfg config.Config, logger log.Logger, store storage.Storage, prober probe.Prober) *Server {
	registry, metrics := InitializeMetrics()
	return newServer(cfg, logging.OrNop(logger), store, prober, registry, metrics)
}

func newServer(
	cfg config.Config,
	logger log.Logger,
	store storage.Storage,
	prober probe.Prober,
	registry *prometheus.Registry,
	metrics *observability.Metrics,
) *Server {
	httpx.SetLogger(log.With(logger, "component", "http"))

	return &Server{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		prober:         prober,
		registry:       registry,
		metrics:        metrics,
		hub:            live.NewHub(log.With(logger, "component", "live")),
		writerMonitor:  monitor.NewWriterMonitor(cfg.Interval),
		storageMonitor: monitor.NewStorageMonitor(cfg.LogDir, cfg.MaxStorageMB<<20),
		queryHandler:   query.NewHandler(store, log.With(logger, "component", "query")),
		exportHandler:  export.NewHandler(store, log.With(logger, "component", "export")),
		hwReporter:     hw.NewReporter(log.With(logger, "component", "hw")),
		startTime:      time.Now(),
	}
}

// InitializeMetrics creates a registry with the pingmon collectors and the
// standard Go and process collectors.
func InitializeMetrics() (*prometheus.Registry, *observability.Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, observability.NewMetrics(registry)
}

// InitializeStorage opens the daily log file store in cfg.LogDir.
func InitializeStorage(cfg config.Config, logger log.Logger, metrics *observability.Metrics) (*logfile.Store, error) {
	storeLogger := log.With(logger, "component", "storage")
	store, err := logfile.New(logfile.Config{
		Dir:    cfg.LogDir,
		Logger: storeLogger,
		OnPrune: func(files []string) {
			if metrics != nil {
				metrics.ObservePruned(files)
			}
			level.Info(storeLogger).Log("msg", "pruned expired log files", "count", len(files))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log directory: %w", err)
	}
	level.Info(storeLogger).Log("msg", "log directory ready", "dir", cfg.LogDir)
	return store, nil
}

// Run serves HTTP and probes until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		RunProbeLoop(ctx, s.ProbeLoopConfig())
	}()

	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		level.Info(s.logger).Log("msg", "listening", "addr", s.cfg.Listen, "ping_host", s.cfg.PingHost, "interval", s.cfg.Interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		level.Info(s.logger).Log("msg", "shutdown signal received")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	// Stop background tasks before draining HTTP so the hub releases websockets
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		level.Warn(s.logger).Log("msg", "server shutdown incomplete", "err", err)
	}
	for range serveErr {
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(config.ShutdownTimeout):
		level.Warn(s.logger).Log("msg", "background tasks did not stop in time")
	}

	if err := s.store.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	level.Info(s.logger).Log("msg", "server stopped")
	return runErr
}

// ProbeLoopConfig returns the probe loop wiring for this server.
func (s *Server) ProbeLoopConfig() ProbeLoopConfig {
	return ProbeLoopConfig{
		Prober:         s.prober,
		Store:          s.store,
		Interval:       s.cfg.Interval,
		Metrics:        s.metrics,
		Hub:            s.hub,
		Writer:         s.writerMonitor,
		StorageMonitor: s.storageMonitor,
		Logger:         log.With(s.logger, "component", "scheduler"),
	}
}
