package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lossmodel/internal/api/handlers"
	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/internal/store"
	"github.com/wonny/lossmodel/pkg/logger"
	"github.com/wonny/lossmodel/pkg/redis"
)

type testServer struct {
	handler http.Handler
	repo    store.Repository
}

func newTestServer(t *testing.T, limiter Limiter) *testServer {
	t.Helper()

	repo, err := store.NewSQLiteRepository(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	log := logger.Nop()
	engine := risk.NewEngine()
	cache := redis.NewCache(redis.Disabled(), "test")

	defaults := risk.DefaultSimulationParams()
	defaults.NSims = 2000

	router := NewRouter(RouterDeps{
		Simulations: handlers.NewSimulationHandler(engine, repo, cache, handlers.Options{Defaults: defaults}, log),
		Metrics:     handlers.NewMetricsHandler(engine, nil, log),
		Limiter:     limiter,
		Logger:      log,
	})

	return &testServer{handler: router, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "lossmodel-api", body["service"])
}

func TestHealth_Degraded(t *testing.T) {
	handler := healthCheckHandler(func(context.Context) map[string]error {
		return map[string]error{"store": errors.New("down")}
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestCreateSimulation(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/simulations", map[string]interface{}{
		"n_sims":            1000,
		"seed":              7,
		"confidence_levels": []float64{0.9, 0.99},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp handlers.SimulationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.RunID)
	assert.False(t, resp.Cached)
	assert.Equal(t, 1000, resp.Inputs.NSims)
	assert.Equal(t, int64(7), resp.Inputs.Seed)
	assert.Equal(t, 12.0, resp.Inputs.LambdaFrequency) // 기본값
	assert.Equal(t, 1000, resp.Summary.N)
	assert.Contains(t, resp.RiskMetrics, "VaR_90")
	assert.Contains(t, resp.RiskMetrics, "TVaR_99")

	// 저장소에 기록됨
	run, err := srv.repo.GetRun(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, resp.RiskMetrics, run.RiskMetrics)
	assert.NotEmpty(t, run.ConfigHash)
}

func TestCreateSimulation_Deterministic(t *testing.T) {
	srv := newTestServer(t, nil)
	body := map[string]interface{}{"n_sims": 500, "seed": 42}

	var a, b handlers.SimulationResponse
	require.NoError(t, json.Unmarshal(srv.do(t, http.MethodPost, "/api/simulations", body).Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(srv.do(t, http.MethodPost, "/api/simulations", body).Body.Bytes(), &b))

	assert.Equal(t, a.Summary, b.Summary)
	assert.Equal(t, a.RiskMetrics, b.RiskMetrics)
}

func TestCreateSimulation_BadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"negative lambda", map[string]interface{}{"lambda_f": -1}},
		{"negative sigma", map[string]interface{}{"sev_sigma": -0.1}},
		{"zero n_sims", map[string]interface{}{"n_sims": 0}},
		{"too many sims", map[string]interface{}{"n_sims": handlers.MaxSims + 1}},
		{"alpha one", map[string]interface{}{"confidence_levels": []float64{1.0}}},
		{"unknown field", map[string]interface{}{"lambda": 3}},
		{"malformed json", "{not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/simulations", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	runs, err := srv.repo.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListAndGetSimulations(t *testing.T) {
	srv := newTestServer(t, nil)

	var created handlers.SimulationResponse
	rec := srv.do(t, http.MethodPost, "/api/simulations", map[string]interface{}{"n_sims": 200, "keep_losses": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = srv.do(t, http.MethodGet, "/api/simulations?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Runs  []store.Run `json:"runs"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, created.RunID, list.Runs[0].ID)

	rec = srv.do(t, http.MethodGet, "/api/simulations/"+created.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var run store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Len(t, run.Losses, 200)

	rec = srv.do(t, http.MethodGet, "/api/simulations/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/simulations?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/metrics", map[string]interface{}{
		"sample":            []float64{1, 2, 3, 4, 100},
		"confidence_levels": []float64{0.8},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.MetricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 23.2, resp.RiskMetrics["VaR_80"], 1e-9)
	assert.Equal(t, 100.0, resp.RiskMetrics["TVaR_80"])
	assert.Equal(t, 5, resp.Summary.N)

	rec = srv.do(t, http.MethodPost, "/api/metrics", map[string]interface{}{"sample": []float64{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/metrics", map[string]interface{}{
		"sample":            []float64{1, 2},
		"confidence_levels": []float64{0},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/api/metrics", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, NewLocalLimiter(2, time.Minute))
	body := map[string]interface{}{"sample": []float64{1, 2, 3}}

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, "/api/metrics", body).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, "/api/metrics", body).Code)

	rec := srv.do(t, http.MethodPost, "/api/metrics", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// 읽기 엔드포인트는 제한 없음
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/simulations", nil).Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, handlers.StatusFor(risk.ErrInvalidParameter))
	assert.Equal(t, http.StatusBadRequest, handlers.StatusFor(risk.ErrInvalidInput))
	assert.Equal(t, http.StatusNotFound, handlers.StatusFor(store.ErrRunNotFound))
	assert.Equal(t, http.StatusInternalServerError, handlers.StatusFor(errors.New("db down")))
}
