package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/pingmon/pkg/ping"
	"github.com/nicktill/pingmon/pkg/storage"
	"github.com/nicktill/pingmon/pkg/storage/logfile"
)

func newRouter(store storage.Storage) *mux.Router {
	h := NewHandler(store, nil)
	r := mux.NewRouter()
	r.HandleFunc("/api/pings", h.HandlePings).Methods(http.MethodGet)
	r.HandleFunc("/api/history", h.HandleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/files", h.HandleFiles).Methods(http.MethodGet)
	r.HandleFunc("/api/files/{name}", h.HandleFile).Methods(http.MethodGet)
	return r
}

func serve(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestHandlePings(t *testing.T) {
	store := newStore(t,
		ping.Sample{Time: base + 60, Latency: 10},
		ping.Sample{Time: base + 120, Latency: ping.LostThreshold},
		ping.Sample{Time: base + 180, Latency: 30},
	)

	rr := serve(t, newRouter(store), "/api/pings?count=2")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Stats ping.Bucket   `json:"stats"`
		Pings []ping.Sample `json:"pings"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Pings, 2)
	assert.Equal(t, base+180, resp.Pings[0].Time)
	assert.Equal(t, 2, resp.Stats.Count)
	assert.Equal(t, 1, resp.Stats.Lost)
	assert.Equal(t, 30.0, resp.Stats.Min)
	assert.Equal(t, 15.0, resp.Stats.Avg)
}

func TestHandlePings_DefaultCount(t *testing.T) {
	var samples []ping.Sample
	for i := int64(0); i < 100; i++ {
		samples = append(samples, ping.Sample{Time: base + i, Latency: 1})
	}

	rr := serve(t, newRouter(newStore(t, samples...)), "/api/pings")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp PingsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Pings, 60)
}

func TestHandlePings_EmptyStatsAreNull(t *testing.T) {
	rr := serve(t, newRouter(newStore(t)), "/api/pings")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, string(resp["stats"]), `"min":null`)
	assert.JSONEq(t, `[]`, string(resp["pings"]))
}

func TestHandlePings_BadParams(t *testing.T) {
	r := newRouter(newStore(t))

	tests := []struct {
		query   string
		message string
	}{
		{"count=abc", "invalid count"},
		{"offset=-1", "offset"},
		{"start=1000&end=2000", "start"},
		{"end=soon", "invalid end"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := serve(t, r, "/api/pings?"+tt.query)
			require.Equal(t, http.StatusBadRequest, rr.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Contains(t, resp["message"], tt.message)
		})
	}
}

func TestHandleHistory(t *testing.T) {
	store := newStore(t,
		ping.Sample{Time: 1536055693, Latency: 20},
		ping.Sample{Time: 1536062893, Latency: 10},
	)

	rr := serve(t, newRouter(store), "/api/history")
	require.Equal(t, http.StatusOK, rr.Code)

	var history []ping.Bucket
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history, 3)
	assert.Equal(t, int64(1536066000), history[0].Time)
	assert.Equal(t, 0, history[1].Count)
}

func TestHandleFiles(t *testing.T) {
	store := newStore(t,
		ping.Sample{Time: base - 86400, Latency: 1},
		ping.Sample{Time: base, Latency: 2},
	)

	rr := serve(t, newRouter(store), "/api/files")
	require.Equal(t, http.StatusOK, rr.Code)

	var files []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &files))
	assert.Equal(t, []string{"180903.txt", "180904.txt"}, files)
}

func TestHandleFile(t *testing.T) {
	store := newStore(t,
		ping.Sample{Time: base, Latency: 2},
		ping.Sample{Time: base + 60, Latency: 3.5},
	)
	r := newRouter(store)

	rr := serve(t, r, "/api/files/180904.txt")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1536062400 2\n1536062460 3.5\n", rr.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))

	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/files/180904.txt", nil)
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	r.ServeHTTP(cached, req)
	assert.Equal(t, http.StatusNotModified, cached.Code)
	assert.Empty(t, cached.Body.String())
}

func TestHandleFile_NotFound(t *testing.T) {
	r := newRouter(newStore(t, ping.Sample{Time: base, Latency: 2}))

	assert.Equal(t, http.StatusNotFound, serve(t, r, "/api/files/180101.txt").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, r, "/api/files/malformed").Code)
}

func TestHandlePings_SkipsNonFiniteRecords(t *testing.T) {
	dir := t.TempDir()
	data := "1536062400 12.5\n1536062460 NaN\n1536062520 +Inf\n1536062580 -Inf\n1536062640 13.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "180904.txt"), []byte(data), 0644))
	store, err := logfile.New(logfile.Config{Dir: dir})
	require.NoError(t, err)
	r := newRouter(store)

	rr := serve(t, r, "/api/pings")
	require.Equal(t, http.StatusOK, rr.Code)

	var body PingsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []ping.Sample{
		{Time: 1536062640, Latency: 13.5},
		{Time: 1536062400, Latency: 12.5},
	}, body.Pings)
	assert.Equal(t, 2, body.Stats.Count)
	assert.Equal(t, 12.5, body.Stats.Min)
	assert.Equal(t, 13.5, body.Stats.Max)
	assert.Equal(t, 13.0, body.Stats.Avg)

	rr = serve(t, r, "/api/history?count=1")
	require.Equal(t, http.StatusOK, rr.Code)
	var history []ping.Bucket
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].Count)
	assert.Equal(t, 13.0, history[0].Avg)
}
