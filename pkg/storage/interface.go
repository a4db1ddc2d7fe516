package storage

import (
	"context"
	"errors"

	"github.com/nicktill/pingmon/pkg/ping"
)

// ErrInvalidName is returned for log file names that do not have the YYMMDD.txt shape.
var ErrInvalidName = errors.New("invalid log file name")

// Storage defines the interface for latency log backends.
// Implementations: logfile (production), memory (testing)
type Storage interface {
	// Append stores one sample taken now
	Append(ctx context.Context, s ping.Sample) error

	// Stream returns all stored samples, newest first
	Stream(ctx context.Context) ping.Stream

	// Files lists the daily log files in chronological order
	Files(ctx context.Context) ([]string, error)

	// ReadFile returns the raw contents of one daily log file
	ReadFile(ctx context.Context, name string) ([]byte, error)

	// Close cleanly shuts down the storage
	Close() error
}
