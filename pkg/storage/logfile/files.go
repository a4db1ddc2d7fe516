package logfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nicktill/pingmon/pkg/logging"
	"github.com/nicktill/pingmon/pkg/storage"
)

// ListLogFiles returns the names of the daily log files in dir, oldest first.
// Entries that are not named YYMMDD.txt are ignored. A missing directory
// has no log files.
func ListLogFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list log directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !storage.IsLogFile(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	return files, nil
}

// Prune deletes every log file in dir that is older than the retention period at now.
// A file that cannot be removed is logged and skipped; the remaining files are
// still pruned and all failures are returned together.
func Prune(dir string, now time.Time, logger log.Logger) ([]string, error) {
	logger = logging.OrNop(logger)

	files, err := ListLogFiles(dir)
	if err != nil {
		return nil, err
	}

	cutoff := storage.RetentionCutoff(now)
	var removed []string
	var errs []error
	for _, name := range files {
		if !storage.Expired(name, cutoff) {
			// sorted ascending, nothing newer can be expired
			break
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			level.Error(logger).Log("msg", "failed to remove expired log file", "file", name, "err", err)
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
			continue
		}
		level.Info(logger).Log("msg", "removed expired log file", "file", name, "cutoff", cutoff)
		removed = append(removed, name)
	}

	return removed, errors.Join(errs...)
}
