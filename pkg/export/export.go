package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/nicktill/pingmon/pkg/ping"
	"github.com/nicktill/pingmon/pkg/storage"
)

// Exporter writes stored samples out as JSON or CSV
type Exporter struct {
	storage storage.Storage
	now     func() time.Time
}

// NewExporter creates a new exporter
func NewExporter(store storage.Storage) *Exporter {
	return &Exporter{storage: store, now: time.Now}
}

// ExportOptions configures the export operation
type ExportOptions struct {
	// Time range to export, both ends inclusive
	Start time.Time
	End   time.Time

	// Format: "json" or "csv"
	Format string
}

// ExportResult contains stats about the export
type ExportResult struct {
	SamplesExported int       `json:"samples_exported"`
	TimeRange       string    `json:"time_range"`
	Format          string    `json:"format"`
	ExportedAt      time.Time `json:"exported_at"`
}

// Metadata heads a JSON export
type Metadata struct {
	ExportedAt  time.Time `json:"exported_at"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	SampleCount int       `json:"sample_count"`
	Format      string    `json:"format"`
	Version     string    `json:"version"`
}

// Document is the JSON export layout
type Document struct {
	Metadata Metadata      `json:"metadata"`
	Stats    ping.Bucket   `json:"stats"`
	Samples  []ping.Sample `json:"samples"`
}

// collect returns the samples with opts.Start <= time <= opts.End, oldest first.
//
// A zero bound means "unbounded" to ping.Select, so a window touching the
// epoch is selected wider and trimmed here.
func (e *Exporter) collect(ctx context.Context, opts ExportOptions) ([]ping.Sample, error) {
	from, to := opts.Start.Unix(), opts.End.Unix()
	rng := ping.Range{
		Count: math.MaxInt32,
		Start: to + 1,
		End:   from,
	}
	if rng.Start == 0 {
		rng.Start = 1
	}
	if rng.End == 0 {
		rng.End = -1
	}

	selected, err := ping.Select(e.storage.Stream(ctx), rng)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := make([]ping.Sample, 0, len(selected))
	for i := len(selected) - 1; i >= 0; i-- {
		if s := selected[i]; s.Time >= from && s.Time <= to {
			samples = append(samples, s)
		}
	}
	return samples, nil
}

func (e *Exporter) result(n int, opts ExportOptions, format string, at time.Time) *ExportResult {
	return &ExportResult{
		SamplesExported: n,
		TimeRange:       fmt.Sprintf("%s to %s", opts.Start.Format(time.RFC3339), opts.End.Format(time.RFC3339)),
		Format:          format,
		ExportedAt:      at,
	}
}

// ExportToJSON exports samples as JSON to the given writer
func (e *Exporter) ExportToJSON(ctx context.Context, w io.Writer, opts ExportOptions) (*ExportResult, error) {
	samples, err := e.collect(ctx, opts)
	if err != nil {
		return nil, err
	}

	doc := Document{
		Metadata: Metadata{
			ExportedAt:  e.now(),
			StartTime:   opts.Start,
			EndTime:     opts.End,
			SampleCount: len(samples),
			Format:      "json",
			Version:     "1.0",
		},
		Stats:   ping.Accumulate(samples, opts.End.Unix()),
		Samples: samples,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}

	return e.result(len(samples), opts, "json", doc.Metadata.ExportedAt), nil
}

// ExportToCSV exports samples as CSV to the given writer
func (e *Exporter) ExportToCSV(ctx context.Context, w io.Writer, opts ExportOptions) (*ExportResult, error) {
	samples, err := e.collect(ctx, opts)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"timestamp", "unix", "latency_ms", "lost"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, s := range samples {
		row := []string{
			time.Unix(s.Time, 0).UTC().Format(time.RFC3339),
			strconv.FormatInt(s.Time, 10),
			strconv.FormatFloat(s.Latency, 'f', -1, 64),
			strconv.FormatBool(s.Lost()),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return e.result(len(samples), opts, "csv", e.now()), nil
}
