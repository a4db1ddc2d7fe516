//go:build windows

package monitor

import (
	"os"
	"path/filepath"
	"syscall"
	"unsafe"
)

var procGetCompressedFileSize = syscall.NewLazyDLL("kernel32.dll").NewProc("GetCompressedFileSizeW")

// allocatedSize returns the bytes NTFS holds for a log file, which compression
// can make smaller than its length. Falls back to the length on any failure.
func allocatedSize(dir string, info os.FileInfo) int64 {
	name, err := syscall.UTF16PtrFromString(filepath.Join(dir, info.Name()))
	if err != nil {
		return info.Size()
	}

	var high uint32
	low, _, _ := procGetCompressedFileSize.Call(uintptr(unsafe.Pointer(name)), uintptr(unsafe.Pointer(&high)))
	if uint32(low) == 0xFFFFFFFF { // INVALID_FILE_SIZE
		return info.Size()
	}
	return int64(high)<<32 | int64(uint32(low))
}
