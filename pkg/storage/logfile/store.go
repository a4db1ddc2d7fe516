// Package logfile stores latency samples as plain text, one file per calendar day.
//
// Each file is named YYMMDD.txt and holds one "<unix-seconds> <latency-ms>" line
// per sample in measurement order. Only today's file is ever written, by
// appending whole lines, so readers can scan the directory without locking.
package logfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nicktill/pingmon/pkg/logging"
	"github.com/nicktill/pingmon/pkg/ping"
	"github.com/nicktill/pingmon/pkg/storage"
)

// Store implements storage.Storage on a directory of daily log files.
type Store struct {
	dir      string
	location *time.Location
	now      func() time.Time
	onPrune  func(removed []string)
	logger   log.Logger
}

// Config holds log directory configuration
type Config struct {
	// Dir holds the daily log files, created on first append if missing
	Dir string

	// Location decides where a calendar day starts (default: time.Local)
	Location *time.Location

	// Now returns the wall clock (default: time.Now)
	Now func() time.Time

	// OnPrune is called with the files removed on each day rollover (optional)
	OnPrune func(removed []string)

	Logger log.Logger
}

// New creates a log file store. The directory is not touched until the first append.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("log directory is required")
	}

	s := &Store{
		dir:      cfg.Dir,
		location: cfg.Location,
		now:      cfg.Now,
		onPrune:  cfg.OnPrune,
		logger:   logging.OrNop(cfg.Logger),
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Dir returns the log directory
func (s *Store) Dir() string {
	return s.dir
}

// Append writes one sample to today's log file.
//
// The file is chosen from the wall clock, not from the sample's timestamp.
// When today's file does not exist yet, expired files are pruned first, so
// retention runs once per day rollover. The line is written with a single
// write call on an O_APPEND handle.
func (s *Store) Append(ctx context.Context, sample ping.Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	now := s.now().In(s.location)
	path := filepath.Join(s.dir, storage.FileName(now))

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		s.rollover(now)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	line := ping.Encode(sample) + "\n"
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append sample: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}

	return nil
}

// rollover prunes expired files before a new day's file is created.
// Pruning failures never block the append.
func (s *Store) rollover(now time.Time) {
	level.Info(s.logger).Log("msg", "starting new log file", "file", storage.FileName(now))

	removed, err := Prune(s.dir, now, s.logger)
	if err != nil {
		level.Warn(s.logger).Log("msg", "pruning finished with errors", "removed", len(removed), "err", err)
	}
	if s.onPrune != nil && len(removed) > 0 {
		s.onPrune(removed)
	}
}

// Stream returns every stored sample, newest first. Files are read lazily,
// newest file first, as the consumer advances.
func (s *Store) Stream(ctx context.Context) ping.Stream {
	files, err := ListLogFiles(s.dir)
	if err != nil {
		level.Error(s.logger).Log("msg", "failed to list log files", "dir", s.dir, "err", err)
		files = nil
	}
	return newFileStream(ctx, s.dir, files, s.logger)
}

// Files lists the daily log files, oldest first
func (s *Store) Files(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ListLogFiles(s.dir)
}

// ReadFile returns the raw contents of one daily log file
func (s *Store) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !storage.IsLogFile(name) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidName, name)
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}

// Close is a no-op; every append opens and closes its own handle
func (s *Store) Close() error {
	return nil
}
