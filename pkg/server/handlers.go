package server

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicktill/pingmon/pkg/httpx"
	"github.com/nicktill/pingmon/pkg/server/monitor"
)

// Version is reported by /api/health.
var Version = "dev"

// StorageUsage represents current storage usage stats.
type StorageUsage struct {
	UsedBytes int64 `json:"used_bytes"`
	MaxBytes  int64 `json:"max_bytes"`
	Files     int   `json:"files"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string               `json:"status"`
	Version  string               `json:"version"`
	Uptime   string               `json:"uptime"`
	PingHost string               `json:"ping_host"`
	Writer   monitor.WriterStatus `json:"writer"`
	Clients  int                  `json:"live_clients"`
}

// handleHealth returns service health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writer := s.writerMonitor.Status()
	overallStatus := "healthy"
	statusCode := http.StatusOK

	if !writer.Healthy {
		overallStatus = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	httpx.RespondJSON(w, statusCode, HealthResponse{
		Status:   overallStatus,
		Version:  Version,
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		PingHost: s.cfg.PingHost,
		Writer:   writer,
		Clients:  s.hub.Clients(),
	})
}

// handleStorageUsage returns current storage usage.
func (s *Server) handleStorageUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.storageMonitor.Usage()
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, StorageUsage{
		UsedBytes: usage.Bytes,
		MaxBytes:  s.storageMonitor.GetLimit(),
		Files:     usage.Files,
	})
}

// handleRobots keeps crawlers off the API.
func handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("User-agent: *\nDisallow: /\n"))
}

// Handler returns the fully routed HTTP handler. The middleware wraps the
// router rather than being attached with Use, so preflight and unmatched
// requests pass through it too.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	s.SetupRoutes(router)

	var h http.Handler = router
	h = corsMiddleware(listenPort(s.cfg.Listen))(h)
	h = httpx.Middleware(s.logger, s.metrics)(h)
	return h
}

// SetupRoutes configures all HTTP routes for the server.
func (s *Server) SetupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	// Samples and hourly history
	api.HandleFunc("/pings", s.queryHandler.HandlePings).Methods("GET")
	api.HandleFunc("/history", s.queryHandler.HandleHistory).Methods("GET")

	// Raw daily log files
	api.HandleFunc("/files", s.queryHandler.HandleFiles).Methods("GET")
	api.HandleFunc("/files/{name}", s.queryHandler.HandleFile).Methods("GET")

	api.HandleFunc("/export", s.exportHandler.HandleExport).Methods("GET")
	api.HandleFunc("/hw", s.hwReporter.HandleStatus).Methods("GET")
	api.HandleFunc("/storage", s.handleStorageUsage).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket for live samples
	api.HandleFunc("/ws", s.hub.HandleWebSocket).Methods("GET")

	router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/robots.txt", handleRobots).Methods("GET")
}

// listenPort extracts the port of a listen address, defaulting to 80.
func listenPort(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return "80"
	}
	return port
}

// corsMiddleware creates CORS middleware that restricts to localhost origins only.
func corsMiddleware(port string) func(http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:" + port: true,
		"http://127.0.0.1:" + port: true,
		"http://localhost:3000":    true,
		"http://127.0.0.1:3000":    true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
				w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Request-ID")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
