package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"

	"github.com/nicktill/pingmon/pkg/config"
	"github.com/nicktill/pingmon/pkg/httpx"
	"github.com/nicktill/pingmon/pkg/logging"
	"github.com/nicktill/pingmon/pkg/ping"
	"github.com/nicktill/pingmon/pkg/storage"
)

// Handler serves the sample, history and log file endpoints
type Handler struct {
	executor *Executor
	logger   log.Logger
}

// NewHandler creates a new query handler
func NewHandler(store storage.Storage, logger log.Logger) *Handler {
	return &Handler{
		executor: NewExecutor(store),
		logger:   logging.OrNop(logger),
	}
}

// PingsResponse is the payload of /api/pings
type PingsResponse struct {
	Stats ping.Bucket   `json:"stats"`
	Pings []ping.Sample `json:"pings"`
}

// HandlePings handles GET /api/pings
// Query params:
//   - offset: samples to skip after start (default: 0)
//   - count: samples to return (default: 60)
//   - start: exclusive upper bound, Unix seconds (default: none)
//   - end: inclusive lower bound, Unix seconds (default: none)
func (h *Handler) HandlePings(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r, config.PingsDefaultCount, config.PingsMaxCount)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.RequestTimeout)
	defer cancel()

	samples, err := h.executor.ReadRange(ctx, rng)
	if err != nil {
		h.respondQueryError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, PingsResponse{
		Stats: h.executor.Summary(samples),
		Pings: samples,
	})
}

// HandleHistory handles GET /api/history
// Takes the same query params as /api/pings; count is in hours (default: 24).
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r, config.HistoryDefaultCount, config.HistoryMaxCount)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.RequestTimeout)
	defer cancel()

	history, err := h.executor.ReadHistory(ctx, rng)
	if err != nil {
		h.respondQueryError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, history)
}

// HandleFiles handles GET /api/files
func (h *Handler) HandleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.executor.Files(r.Context())
	if err != nil {
		level.Error(h.logger).Log("msg", "failed to list log files", "err", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, files)
}

// HandleFile handles GET /api/files/{name} and serves one raw daily log.
// The ETag is the xxhash of the content, so unchanged past days revalidate
// with 304 while today's growing file is sent again.
func (h *Handler) HandleFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !storage.IsLogFile(name) {
		httpx.RespondErrorString(w, http.StatusNotFound, "no such log file")
		return
	}

	data, err := h.executor.ReadFile(r.Context(), name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			httpx.RespondErrorString(w, http.StatusNotFound, "no such log file")
			return
		}
		level.Error(h.logger).Log("msg", "failed to read log file", "file", name, "err", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(data))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		level.Debug(h.logger).Log("msg", "failed to write log file response", "file", name, "err", err)
	}
}

func (h *Handler) respondQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, ping.ErrInvalidRange) {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	level.Error(h.logger).Log("msg", "query failed", "err", err)
	httpx.RespondError(w, http.StatusInternalServerError, err)
}

// parseRange reads offset, count, start and end from the query string.
// Missing parameters take their defaults; count is clamped to maxCount.
func parseRange(r *http.Request, defaultCount, maxCount int) (ping.Range, error) {
	q := r.URL.Query()
	rng := ping.Range{Count: defaultCount}

	var err error
	if rng.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		return rng, fmt.Errorf("invalid offset: %w", err)
	}
	if rng.Count, err = intParam(q.Get("count"), defaultCount); err != nil {
		return rng, fmt.Errorf("invalid count: %w", err)
	}
	if rng.Start, err = int64Param(q.Get("start")); err != nil {
		return rng, fmt.Errorf("invalid start: %w", err)
	}
	if rng.End, err = int64Param(q.Get("end")); err != nil {
		return rng, fmt.Errorf("invalid end: %w", err)
	}

	if rng.Count > maxCount {
		rng.Count = maxCount
	}
	return rng, rng.Validate()
}

func intParam(val string, def int) (int, error) {
	if val == "" {
		return def, nil
	}
	return strconv.Atoi(val)
}

func int64Param(val string) (int64, error) {
	if val == "" {
		return 0, nil
	}
	return strconv.ParseInt(val, 10, 64)
}
