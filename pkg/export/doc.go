// Package export writes stored ping samples out for use in other tools.
//
// # Supported Formats
//
// JSON Format:
//   - Export metadata (timestamp, time range, sample count)
//   - Summary stats over the exported samples (min, max, avg, lost, count)
//   - The samples themselves, oldest first
//
// CSV Format:
//   - One row per sample: timestamp, unix, latency_ms, lost
//   - Good for spreadsheets or pandas
//
// The raw daily log files are served separately by /api/files/{name}.
//
// # HTTP API
//
// Export endpoint: GET /api/export
// Query parameters:
//   - format: "json" or "csv" (default: json)
//   - start: RFC3339 timestamp or Unix seconds (default: 24h before end)
//   - end: RFC3339 timestamp or Unix seconds (default: now)
//
// Both ends are inclusive and the window may span at most the retention
// period of eight weeks.
//
// Example:
//
//	curl "http://localhost:8081/api/export?format=csv&start=2025-11-18T00:00:00Z" \
//	  -o pings.csv
package export
