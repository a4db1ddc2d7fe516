package ping

import (
	"encoding/json"
	"math"
)

// HourSeconds is the width of a history bucket.
const HourSeconds = 60 * 60

// Bucket aggregates the samples of one window.
//
// Min, Max and Avg are NaN when no sample in the window got a reply.
// Avg is the sum of answered latencies divided by Count, lost samples included.
type Bucket struct {
	Time  int64   `json:"time"` // Upper boundary of the window
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Lost  int     `json:"lost"`
	Count int     `json:"count"`
}

// MarshalJSON writes NaN statistics as null, which encoding/json refuses to encode.
func (b Bucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time  int64    `json:"time"`
		Min   *float64 `json:"min"`
		Max   *float64 `json:"max"`
		Avg   *float64 `json:"avg"`
		Lost  int      `json:"lost"`
		Count int      `json:"count"`
	}{
		Time:  b.Time,
		Min:   finite(b.Min),
		Max:   finite(b.Max),
		Avg:   finite(b.Avg),
		Lost:  b.Lost,
		Count: b.Count,
	})
}

// UnmarshalJSON reads null statistics back as NaN.
func (b *Bucket) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time  int64    `json:"time"`
		Min   *float64 `json:"min"`
		Max   *float64 `json:"max"`
		Avg   *float64 `json:"avg"`
		Lost  int      `json:"lost"`
		Count int      `json:"count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = Bucket{
		Time:  raw.Time,
		Min:   orNaN(raw.Min),
		Max:   orNaN(raw.Max),
		Avg:   orNaN(raw.Avg),
		Lost:  raw.Lost,
		Count: raw.Count,
	}
	return nil
}

// LossRatio returns the share of lost samples, 0 for an empty bucket.
func (b Bucket) LossRatio() float64 {
	if b.Count == 0 {
		return 0
	}
	return float64(b.Lost) / float64(b.Count)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// EmptyBucket returns the bucket of a window without samples.
func EmptyBucket(t int64) Bucket {
	return Bucket{
		Time: t,
		Min:  math.NaN(),
		Max:  math.NaN(),
		Avg:  math.NaN(),
	}
}

// Accumulate folds samples into a single bucket stamped with t.
func Accumulate(samples []Sample, t int64) Bucket {
	b := EmptyBucket(t)

	var sum float64
	answered := 0
	for _, s := range samples {
		b.Count++
		if s.Lost() {
			b.Lost++
			continue
		}

		answered++
		sum += s.Latency
		if answered == 1 || s.Latency < b.Min {
			b.Min = s.Latency
		}
		if answered == 1 || s.Latency > b.Max {
			b.Max = s.Latency
		}
	}

	if answered > 0 {
		b.Avg = sum / float64(b.Count)
	}
	return b
}

// FloorHour truncates a Unix timestamp to the start of its hour.
func FloorHour(t int64) int64 {
	return t - mod(t, HourSeconds)
}

// mod is the non-negative remainder, so timestamps before 1970 floor downwards too.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// GenerateHistory buckets newest-first samples into at most limit one-hour
// windows.
//
// Buckets are returned newest first and are contiguous: every hour between the
// newest sample and the oldest one reached yields a bucket, with Count 0 and NaN
// statistics when it holds no samples. A bucket's Time is the upper boundary of
// its hour. Bucketing stops once limit buckets are closed, so a single stray
// timestamp far in the past cannot grow the grid beyond limit.
func GenerateHistory(samples []Sample, limit int) []Bucket {
	if len(samples) == 0 || limit <= 0 {
		return []Bucket{}
	}

	windowEnd := FloorHour(samples[0].Time) + HourSeconds
	buckets := make([]Bucket, 0, min(limit, 4096))

	runStart := 0
	for i, s := range samples {
		for s.Time < windowEnd-HourSeconds {
			buckets = append(buckets, Accumulate(samples[runStart:i], windowEnd))
			if len(buckets) == limit {
				return buckets
			}
			runStart = i
			windowEnd -= HourSeconds
		}
	}
	buckets = append(buckets, Accumulate(samples[runStart:], windowEnd))

	return buckets
}
