package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/lossmodel/internal/api/handlers"
	"github.com/wonny/lossmodel/pkg/logger"
)

// HealthFunc 의존성 상태 확인 (이름 → 에러)
type HealthFunc func(ctx context.Context) map[string]error

// RouterDeps 라우터 구성 요소
type RouterDeps struct {
	Simulations *handlers.SimulationHandler
	Metrics     *handlers.MetricsHandler
	Limiter     Limiter // nil → 제한 없음
	Health      HealthFunc
	Logger      *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(deps.Health)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Read endpoints
	api.HandleFunc("/simulations", deps.Simulations.List).Methods("GET")
	api.HandleFunc("/simulations/{id}", deps.Simulations.Get).Methods("GET")

	// Compute endpoints (rate limited)
	limit := func(h http.HandlerFunc) http.Handler { return h }
	if deps.Limiter != nil {
		mw := rateLimitMiddleware(deps.Limiter, deps.Logger)
		limit = func(h http.HandlerFunc) http.Handler { return mw(h) }
	}
	api.Handle("/simulations", limit(deps.Simulations.Create)).Methods("POST")
	api.Handle("/metrics", limit(deps.Metrics.Evaluate)).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(deps.Logger))
	r.Use(recoveryMiddleware(deps.Logger))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		deps := map[string]string{}

		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			for name, err := range check(ctx) {
				if err != nil {
					deps[name] = err.Error()
					status = "degraded"
					code = http.StatusServiceUnavailable
					continue
				}
				deps[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       status,
			"service":      "lossmodel-api",
			"dependencies": deps,
		})
	}
}
