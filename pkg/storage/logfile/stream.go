package logfile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nicktill/pingmon/pkg/ping"
)

// fileStream concatenates daily log files newest first. Each file is loaded
// only when the previous one is exhausted and is consumed back to front.
type fileStream struct {
	ctx    context.Context
	dir    string
	files  []string // ascending, consumed from the end
	buf    []ping.Sample
	logger log.Logger
}

func newFileStream(ctx context.Context, dir string, files []string, logger log.Logger) *fileStream {
	return &fileStream{
		ctx:    ctx,
		dir:    dir,
		files:  files,
		logger: logger,
	}
}

// Next returns the next older sample. The stream ends early when its context is done.
func (fs *fileStream) Next() (ping.Sample, bool) {
	for len(fs.buf) == 0 {
		if len(fs.files) == 0 || fs.ctx.Err() != nil {
			return ping.Sample{}, false
		}
		name := fs.files[len(fs.files)-1]
		fs.files = fs.files[:len(fs.files)-1]
		fs.buf = fs.load(name)
	}

	last := len(fs.buf) - 1
	s := fs.buf[last]
	fs.buf = fs.buf[:last]
	return s, true
}

// load reads one file in storage (ascending) order. An unreadable file
// contributes no samples.
func (fs *fileStream) load(name string) []ping.Sample {
	data, err := os.ReadFile(filepath.Join(fs.dir, name))
	if err != nil {
		level.Error(fs.logger).Log("msg", "failed to read log file", "file", name, "err", err)
		return nil
	}
	return ping.DecodeAll(data)
}
