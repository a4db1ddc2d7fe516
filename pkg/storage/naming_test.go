package storage

import (
	"testing"
	"time"
)

func TestIsLogFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"191129.txt", true},
		{"000101.txt", true},
		{"malformed", false},
		{"19112.txt", false},
		{"1911290.txt", false},
		{"19112a.txt", false},
		{"191129.log", false},
		{"191129txt", false},
		{"", false},
		{"../etc/pw", false},
	}

	for _, tt := range tests {
		if got := IsLogFile(tt.name); got != tt.want {
			t.Errorf("IsLogFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExpired(t *testing.T) {
	if Expired("191130.txt", "191129") {
		t.Error("191130.txt must not expire against cutoff 191129")
	}
	if Expired("191129.txt", "191129") {
		t.Error("a file dated on the cutoff must be retained")
	}
	if !Expired("191029.txt", "191129") {
		t.Error("191029.txt must expire against cutoff 191129")
	}
	if Expired("malformed", "191129") {
		t.Error("non log files must never expire")
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2019, 11, 29, 12, 0, 0, 0, time.UTC)

	// 8 weeks before 2019-11-29 is 2019-10-04
	if IsExpired("191004.txt", now) {
		t.Error("191004.txt is exactly at the retention horizon and must be kept")
	}
	if !IsExpired("191003.txt", now) {
		t.Error("191003.txt is older than the retention horizon")
	}
	if got := RetentionCutoff(now); got != "191004" {
		t.Errorf("RetentionCutoff() = %s, want 191004", got)
	}
}

func TestFileName(t *testing.T) {
	ts := time.Date(2019, 11, 29, 23, 59, 59, 0, time.UTC)
	if got := FileName(ts); got != "191129.txt" {
		t.Errorf("FileName() = %s, want 191129.txt", got)
	}

	// the calendar day is taken in the time's own location
	east := time.FixedZone("UTC+2", 2*60*60)
	if got := FileName(ts.In(east)); got != "191130.txt" {
		t.Errorf("FileName() = %s, want 191130.txt", got)
	}
}
