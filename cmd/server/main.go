// Command server runs the ping monitor: it probes a host once per interval,
// appends each result to a daily log file and serves the history over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log/level"

	"github.com/nicktill/pingmon/pkg/config"
	"github.com/nicktill/pingmon/pkg/logging"
	"github.com/nicktill/pingmon/pkg/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	level.Info(logger).Log(
		"msg", "starting pingmon",
		"log_dir", cfg.LogDir,
		"ping_host", cfg.PingHost,
		"interval", cfg.Interval,
		"listen", cfg.Listen,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// parseConfig resolves the configuration: defaults, then the -config YAML
// file, then PINGMON_* variables, then any flags given explicitly.
func parseConfig(args []string, stderr io.Writer) (config.Config, error) {
	fs := flag.NewFlagSet("pingmon", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath = fs.String("config", "", "path to a YAML config file")
		interval   = fs.Int("i", int(config.DefaultInterval/time.Second), "probe interval in seconds")
		pingHost   = fs.String("p", config.DefaultPingHost, "host to ping")
		logDir     = fs.String("l", config.DefaultLogDir, "directory for the daily log files")
		webHost    = fs.String("w", config.DefaultListen, "address the web server listens on")
		timeout    = fs.Duration("timeout", config.DefaultProbeTimeout, "probe timeout")
		logLevel   = fs.String("log-level", config.DefaultLogLevel, "debug, info, warn or error")
		maxStorage = fs.Int64("max-storage-mb", config.DefaultMaxStorageMB, "warn when the log directory grows past this size, 0 to disable")
	)
	fs.IntVar(interval, "interval", int(config.DefaultInterval/time.Second), "alias for -i")
	fs.StringVar(pingHost, "ping-host", config.DefaultPingHost, "alias for -p")
	fs.StringVar(logDir, "logs", config.DefaultLogDir, "alias for -l")
	fs.StringVar(webHost, "web-host", config.DefaultListen, "alias for -w")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i", "interval":
			cfg.Interval = time.Duration(*interval) * time.Second
		case "p", "ping-host":
			cfg.PingHost = *pingHost
		case "l", "logs":
			cfg.LogDir = *logDir
		case "w", "web-host":
			cfg.Listen = *webHost
		case "timeout":
			cfg.ProbeTimeout = *timeout
		case "log-level":
			cfg.LogLevel = *logLevel
		case "max-storage-mb":
			cfg.MaxStorageMB = *maxStorage
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
