package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// RequestObserver receives one call per served request.
type RequestObserver interface {
	ObserveRequest(method, path, status string, d time.Duration)
}

// RequestID returns the request ID stored by Middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware tags every request with an ID, logs it and reports it to obs.
// An incoming X-Request-ID is kept; otherwise a random UUID is assigned.
// obs may be nil.
func Middleware(logger log.Logger, obs RequestObserver) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			elapsed := time.Since(start)
			path := normalizePath(r.URL.Path)
			status := strconv.Itoa(rw.statusCode)

			if obs != nil {
				obs.ObserveRequest(r.Method, path, status, elapsed)
			}
			level.Debug(logger).Log(
				"msg", "request",
				"id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration", elapsed,
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack is needed for the websocket upgrade on /api/ws.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

var logFileRe = regexp.MustCompile(`/\d{6}\.txt$`)

// normalizePath keeps the path label bounded: /api/files/191129.txt → /api/files/{name}
func normalizePath(path string) string {
	return logFileRe.ReplaceAllString(path, "/{name}")
}
