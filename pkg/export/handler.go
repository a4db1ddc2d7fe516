package export

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nicktill/pingmon/pkg/config"
	"github.com/nicktill/pingmon/pkg/httpx"
	"github.com/nicktill/pingmon/pkg/logging"
	"github.com/nicktill/pingmon/pkg/storage"
)

// Handler handles the export HTTP endpoint
type Handler struct {
	exporter *Exporter
	logger   log.Logger
}

// NewHandler creates a new export handler
func NewHandler(store storage.Storage, logger log.Logger) *Handler {
	return &Handler{
		exporter: NewExporter(store),
		logger:   logging.OrNop(logger),
	}
}

// HandleExport handles GET /api/export
// Query params:
//   - format: "json" or "csv" (default: json)
//   - start: RFC3339 timestamp or Unix seconds (default: 24h before end)
//   - end: RFC3339 timestamp or Unix seconds (default: now)
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	format := query.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "invalid format, must be 'json' or 'csv'")
		return
	}

	end, err := parseTimeParam(query.Get("end"), h.exporter.now())
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid end: %w", err))
		return
	}
	start, err := parseTimeParam(query.Get("start"), end.Add(-config.DefaultExportWindow))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid start: %w", err))
		return
	}

	if !start.Before(end) {
		httpx.RespondErrorString(w, http.StatusBadRequest, "start must be before end")
		return
	}
	if end.Sub(start) > config.MaxExportWindow {
		httpx.RespondErrorString(w, http.StatusBadRequest, fmt.Sprintf("time range too large, maximum is %v", config.MaxExportWindow))
		return
	}

	opts := ExportOptions{Start: start, End: end, Format: format}

	timestamp := h.exporter.now().Format("20060102-150405")
	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/csv")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=pingmon-export-%s.%s", timestamp, format))

	var result *ExportResult
	if format == "json" {
		result, err = h.exporter.ExportToJSON(r.Context(), w, opts)
	} else {
		result, err = h.exporter.ExportToCSV(r.Context(), w, opts)
	}
	if err != nil {
		// Headers may already be out; the body is truncated either way.
		level.Error(h.logger).Log("msg", "export failed", "format", format, "err", err)
		return
	}

	level.Info(h.logger).Log("msg", "exported samples", "count", result.SamplesExported, "format", format, "range", result.TimeRange)
}

// parseTimeParam parses RFC3339, a plain datetime or Unix seconds
func parseTimeParam(param string, defaultTime time.Time) (time.Time, error) {
	if param == "" {
		return defaultTime, nil
	}
	if t, err := time.Parse(time.RFC3339, param); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", param); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(param, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", param)
}
