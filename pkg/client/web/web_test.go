//nolint:funlen // ok for tests
package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/client/api"
)

type fakeAPI struct {
	carCalls atomic.Int32
	lastBody map[string]any
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/web/cars", func(w http.ResponseWriter, r *http.Request) {
		f.carCalls.Add(1)
		_, _ = io.WriteString(w, `["mx5","gt3"]`)
	})
	mux.HandleFunc("GET /api/web/tracks", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("car_id") == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"car_id required"}`)
			return
		}
		_, _ = io.WriteString(w, `["spa","monza"]`)
	})
	mux.HandleFunc("GET /api/web/setups", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "mx5", q.Get("car_id"))
		assert.Equal(t, "spa", q.Get("track_id"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("page_size"))
		_, _ = io.WriteString(w, `{"setups":[{"id":11,"car_id":"mx5","track_id":"spa",`+
			`"status":"tested","source":"bayes","score":7.5},`+
			`{"id":12,"car_id":"mx5","track_id":"spa","status":"pending","source":"bayes","score":null}],`+
			`"total":47,"page":2,"page_size":10}`)
	})
	mux.HandleFunc("GET /api/web/setup/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "11" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"setup not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":11,"car_id":"mx5","track_id":"spa","score":7.5,`+
			`"setup_parameters":{"front_wing":{"value":4,"unit":"deg"}},`+
			`"telemetry_results":[{"id":3,"lap_time":95.5,"driver_notes":"fine",`+
			`"telemetry_data":{"traction":6},"weather_conditions":{"track_temp":31}}]}`)
	})
	mux.HandleFunc("GET /api/web/performance", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"setup_ids":[1,2],"lap_times":[96.1,95.2],"scores":[6.1,7.2]}`)
	})
	mux.HandleFunc("GET /api/web/optimization/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"is_active":true,"session_id":4,"car_id":"mx5",`+
			`"track_id":"spa","trials_completed":3,"trials_pending":1,"best_score":8.25,"best_setup_id":9}`)
	})
	mux.HandleFunc("POST /api/v1/optimization/start", func(w http.ResponseWriter, r *http.Request) {
		f.lastBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"optimization already active","session_id":4}`)
	})
	mux.HandleFunc("POST /api/v1/optimization/stop", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"message":"stopped"}`)
	})
	return mux
}

func setup(t *testing.T, opts ...Option) (*Client, *fakeAPI) {
	t.Helper()
	f := &fakeAPI{}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c, f
}

func TestNew_RequiresBase(t *testing.T) {
	_, err := New("")
	assert.True(t, api.IsConfigurationError(err))
}

func TestClient_CarsAndTracks(t *testing.T) {
	c, f := setup(t)
	ctx := context.Background()

	cars, err := c.Cars(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mx5", "gt3"}, cars)
	_, err = c.Cars(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.carCalls.Load(), "car list should be cached")

	c.InvalidateLists(ctx)
	_, err = c.Cars(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.carCalls.Load())

	tracks, err := c.Tracks(ctx, "mx5")
	require.NoError(t, err)
	assert.Equal(t, []string{"spa", "monza"}, tracks)

	_, err = c.Tracks(ctx, "")
	var se *api.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "car_id required", se.Message)
}

func TestClient_NoCache(t *testing.T) {
	c, f := setup(t, WithCacheTTL(0))
	for range 3 {
		_, err := c.Cars(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), f.carCalls.Load())
}

func TestClient_Setups(t *testing.T) {
	c, _ := setup(t)
	page, err := c.Setups(context.Background(), "mx5", "spa", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 47, page.Total)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Setups, 2)
	score, ok := page.Setups[0].Score.Get()
	assert.True(t, ok)
	assert.InDelta(t, 7.5, score, 1e-9)
	_, ok = page.Setups[1].Score.Get()
	assert.False(t, ok)
}

func TestClient_Setup(t *testing.T) {
	c, _ := setup(t)
	s, err := c.Setup(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, 11, s.ID)
	require.Len(t, s.TelemetryResults, 1)
	lap, _ := s.TelemetryResults[0].LapTime.Get()
	assert.InDelta(t, 95.5, lap, 1e-9)
	assert.Equal(t, "fine", s.TelemetryResults[0].DriverNotes)

	_, err = c.Setup(context.Background(), 99)
	var se *api.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestClient_PerformanceAndStatus(t *testing.T) {
	c, _ := setup(t)
	perf, err := c.Performance(context.Background(), "mx5", "spa")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, perf.SetupIDs)
	assert.Equal(t, []float64{96.1, 95.2}, perf.LapTimes)

	st, err := c.OptimizationStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IsActive)
	assert.Equal(t, 3, st.TrialsCompleted)
	best, _ := st.BestScore.Get()
	assert.InDelta(t, 8.25, best, 1e-9)
}

func TestClient_StartStopOptimization(t *testing.T) {
	c, f := setup(t)
	_, err := c.StartOptimization(context.Background(), "mx5", "spa")
	var se *api.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "optimization already active", se.Message)
	assert.Equal(t, map[string]any{"car_id": "mx5", "track_id": "spa"}, f.lastBody)

	res, err := c.StopOptimization(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "stopped", res.Message)
}
