package storage

import (
	"time"
)

const (
	// DateLayout is the date prefix of a daily log file name (YYMMDD).
	DateLayout = "060102"

	// FileExt is the suffix of every daily log file.
	FileExt = ".txt"

	// RetentionPeriod is how long daily log files are kept.
	RetentionPeriod = 8 * 7 * 24 * time.Hour
)

// FileName returns the log file name for the calendar day of t, in t's location.
func FileName(t time.Time) string {
	return t.Format(DateLayout) + FileExt
}

// IsLogFile reports whether name has the exact YYMMDD.txt shape.
func IsLogFile(name string) bool {
	if len(name) != len(DateLayout)+len(FileExt) {
		return false
	}
	for i := 0; i < len(DateLayout); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return name[len(DateLayout):] == FileExt
}

// RetentionCutoff returns the oldest date (YYMMDD) still retained at now.
func RetentionCutoff(now time.Time) string {
	return now.Add(-RetentionPeriod).Format(DateLayout)
}

// Expired reports whether the log file name is dated strictly before cutoff.
// The fixed-width, zero-padded date makes string order equal to date order.
// Names that are not log files never expire.
func Expired(name, cutoff string) bool {
	if !IsLogFile(name) {
		return false
	}
	return name[:len(DateLayout)] < cutoff
}

// IsExpired reports whether the log file name falls outside the retention period at now.
func IsExpired(name string, now time.Time) bool {
	return Expired(name, RetentionCutoff(now))
}
