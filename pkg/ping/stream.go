package ping

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned for range queries that violate their preconditions.
var ErrInvalidRange = errors.New("invalid range")

// Stream is a lazy sequence of samples ordered newest first.
// Next returns false once the sequence is exhausted.
type Stream interface {
	Next() (Sample, bool)
}

// SliceStream streams an in-memory slice that is already ordered newest first.
type SliceStream struct {
	samples []Sample
	pos     int
}

// NewSliceStream creates a stream over samples.
func NewSliceStream(samples []Sample) *SliceStream {
	return &SliceStream{samples: samples}
}

// Next returns the next sample
func (s *SliceStream) Next() (Sample, bool) {
	if s.pos >= len(s.samples) {
		return Sample{}, false
	}
	sample := s.samples[s.pos]
	s.pos++
	return sample, true
}

// Range selects samples from a newest-first stream.
//
// Start and End are Unix seconds, zero meaning unbounded. Because the stream
// runs backwards in time, Start is the newer bound (exclusive) and End the
// older bound (inclusive), so Start >= End whenever both are set.
type Range struct {
	Offset int
	Count  int
	Start  int64
	End    int64
}

// Validate checks the range preconditions.
func (r Range) Validate() error {
	if r.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidRange, r.Offset)
	}
	if r.Count < 0 {
		return fmt.Errorf("%w: negative count %d", ErrInvalidRange, r.Count)
	}
	if r.Start != 0 && r.End != 0 && r.Start < r.End {
		return fmt.Errorf("%w: start %d must not be before end %d", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Select applies r to the stream:
//  1. skip samples at or after Start (when Start is set)
//  2. skip Offset more samples
//  3. take up to Count samples
//  4. stop at the first sample older than End (when End is set)
//
// The stream is consumed only as far as needed.
func Select(stream Stream, r Range) ([]Sample, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	result := make([]Sample, 0, min(r.Count, 4096))
	if r.Count == 0 {
		return result, nil
	}

	skipped := 0
	pastStart := r.Start == 0
	for len(result) < r.Count {
		s, ok := stream.Next()
		if !ok {
			break
		}
		if !pastStart {
			if s.Time >= r.Start {
				continue
			}
			pastStart = true
		}
		if skipped < r.Offset {
			skipped++
			continue
		}
		if r.End != 0 && s.Time < r.End {
			break
		}
		result = append(result, s)
	}

	return result, nil
}

// Collect drains a stream into a slice.
func Collect(stream Stream) []Sample {
	var samples []Sample
	for {
		s, ok := stream.Next()
		if !ok {
			return samples
		}
		samples = append(samples, s)
	}
}
