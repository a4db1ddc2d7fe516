package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nicktill/pingmon/pkg/ping"
	"github.com/nicktill/pingmon/pkg/storage"
)

// Storage stores samples in memory. Data is lost on restart.
// Useful for testing and development.
//
// Samples are grouped into virtual daily files by their own timestamp, in UTC,
// and the retention period is applied on every append.
type Storage struct {
	samples []ping.Sample // ascending by time
	now     func() time.Time
	mu      sync.RWMutex
}

// New creates an in-memory storage backend
func New() *Storage {
	return &Storage{
		samples: make([]ping.Sample, 0, 1024),
		now:     time.Now,
	}
}

// NewWithClock creates an in-memory storage backend that prunes against the given clock
func NewWithClock(now func() time.Time) *Storage {
	s := New()
	s.now = now
	return s
}

// Append stores a sample, keeping samples sorted by time
func (s *Storage) Append(ctx context.Context, sample ping.Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.samples), func(i int) bool { return s.samples[i].Time > sample.Time })
	s.samples = append(s.samples, ping.Sample{})
	copy(s.samples[i+1:], s.samples[i:])
	s.samples[i] = sample

	s.pruneLocked()
	return nil
}

// pruneLocked drops samples whose day fell out of the retention period
func (s *Storage) pruneLocked() {
	cutoff := storage.RetentionCutoff(s.now().UTC())

	keep := 0
	for keep < len(s.samples) && storage.Expired(fileOf(s.samples[keep]), cutoff) {
		keep++
	}
	if keep > 0 {
		s.samples = append(s.samples[:0], s.samples[keep:]...)
	}
}

// Stream returns a snapshot of the stored samples, newest first
func (s *Storage) Stream(ctx context.Context) ping.Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reversed := make([]ping.Sample, len(s.samples))
	for i, sample := range s.samples {
		reversed[len(s.samples)-1-i] = sample
	}
	return ping.NewSliceStream(reversed)
}

// Files lists the virtual daily files that hold at least one sample
func (s *Storage) Files(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := []string{}
	for _, sample := range s.samples {
		name := fileOf(sample)
		if len(files) == 0 || files[len(files)-1] != name {
			files = append(files, name)
		}
	}
	return files, nil
}

// ReadFile renders one virtual daily file in the on-disk line format
func (s *Storage) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if !storage.IsLogFile(name) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidName, name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	found := false
	for _, sample := range s.samples {
		if fileOf(sample) != name {
			continue
		}
		found = true
		b.WriteString(ping.Encode(sample))
		b.WriteByte('\n')
	}
	if !found {
		return nil, fmt.Errorf("read %s: %w", name, os.ErrNotExist)
	}
	return []byte(b.String()), nil
}

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}

// fileOf names the virtual daily file a sample belongs to
func fileOf(sample ping.Sample) string {
	return storage.FileName(time.Unix(sample.Time, 0).UTC())
}
