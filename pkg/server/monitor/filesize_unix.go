//go:build !windows

package monitor

import (
	"os"
	"syscall"
)

// allocatedSize returns the bytes the filesystem holds for a log file. A file
// grown one short line at a time still occupies whole blocks.
func allocatedSize(dir string, info os.FileInfo) int64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok && stat.Blocks > 0 {
		// st_blocks counts 512 byte units
		return stat.Blocks * 512
	}
	return info.Size()
}
