package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/nicktill/pingmon/pkg/config"
	"github.com/nicktill/pingmon/pkg/storage"
)

// Usage is the disk footprint of the daily log files.
type Usage struct {
	Bytes int64
	Files int
}

// StorageMonitor measures the daily log files in the log directory. Other
// entries in the directory are not part of the log and are not counted.
// Results are cached for config.StorageCacheDuration.
type StorageMonitor struct {
	logDir   string
	maxBytes int64
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	cached    Usage
	checkedAt time.Time
}

// NewStorageMonitor creates a new storage monitor. maxBytes of 0 means no limit.
func NewStorageMonitor(logDir string, maxBytes int64) *StorageMonitor {
	return &StorageMonitor{
		logDir:   logDir,
		maxBytes: maxBytes,
		ttl:      config.StorageCacheDuration,
		now:      time.Now,
	}
}

// Usage returns the size and number of log files, from cache when fresh.
// A log directory that does not exist yet uses nothing.
func (sm *StorageMonitor) Usage() (Usage, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	if !sm.checkedAt.IsZero() && now.Sub(sm.checkedAt) < sm.ttl {
		return sm.cached, nil
	}

	usage, err := measureLogFiles(sm.logDir)
	if err != nil {
		return Usage{}, err
	}
	sm.cached = usage
	sm.checkedAt = now
	return usage, nil
}

// GetLimit returns the configured storage limit in bytes.
func (sm *StorageMonitor) GetLimit() int64 {
	return sm.maxBytes
}

// OverLimit reports whether the log files use more than the configured limit.
func (sm *StorageMonitor) OverLimit() (bool, error) {
	if sm.maxBytes <= 0 {
		return false, nil
	}
	usage, err := sm.Usage()
	if err != nil {
		return false, err
	}
	return usage.Bytes > sm.maxBytes, nil
}

// measureLogFiles sums the allocated size of every YYMMDD.txt regular file
// directly inside dir. Files that vanish mid-scan (pruned) are skipped.
func measureLogFiles(dir string) (Usage, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Usage{}, nil
	}
	if err != nil {
		return Usage{}, fmt.Errorf("failed to read log directory: %w", err)
	}

	var usage Usage
	for _, e := range entries {
		if !storage.IsLogFile(e.Name()) || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Usage{}, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		usage.Bytes += allocatedSize(dir, info)
		usage.Files++
	}
	return usage, nil
}
