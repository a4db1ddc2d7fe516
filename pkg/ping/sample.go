package ping

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
)

// LostThreshold is the latency in milliseconds at and above which a sample
// counts as lost (no reply before the probe timed out).
const LostThreshold = 1000.0

// ErrMalformedRecord is returned by Decode for lines that are not a valid sample.
var ErrMalformedRecord = errors.New("malformed record")

// Sample is one latency measurement.
type Sample struct {
	Time    int64   `json:"time"`    // Unix seconds
	Latency float64 `json:"latency"` // Milliseconds
}

// Lost reports whether the sample is the timeout sentinel.
func (s Sample) Lost() bool {
	return s.Latency >= LostThreshold
}

// Encode formats a sample as a single log line without the trailing newline.
// The latency uses the shortest representation that parses back to the same value.
func Encode(s Sample) string {
	return strconv.FormatInt(s.Time, 10) + " " + strconv.FormatFloat(s.Latency, 'f', -1, 64)
}

// Decode parses one log line. NaN and infinite latencies are malformed.
func Decode(line string) (Sample, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Sample{}, ErrMalformedRecord
	}

	t, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Sample{}, ErrMalformedRecord
	}
	latency, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || math.IsNaN(latency) || math.IsInf(latency, 0) {
		return Sample{}, ErrMalformedRecord
	}

	return Sample{Time: t, Latency: latency}, nil
}

// DecodeAll parses every line of a log file in storage order.
// Malformed lines are dropped; they never invalidate the rest of the file.
func DecodeAll(data []byte) []Sample {
	lines := bytes.Split(data, []byte{'\n'})
	samples := make([]Sample, 0, len(lines))

	for _, line := range lines {
		s, err := Decode(string(line))
		if err != nil {
			continue
		}
		samples = append(samples, s)
	}

	return samples
}
