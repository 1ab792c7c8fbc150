package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/lossmodel/internal/report"
	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/internal/scenario"
	"github.com/wonny/lossmodel/internal/store"
	"github.com/wonny/lossmodel/pkg/logger"
	"github.com/wonny/lossmodel/pkg/redis"
)

// MaxSims API 한 번 요청의 n_sims 상한
const MaxSims = 1_000_000

// SimulationHandler handles simulation endpoints
// ⭐ SSOT: 시뮬레이션 API 핸들러는 이 구조체에서만
type SimulationHandler struct {
	engine   *risk.Engine
	repo     store.Repository
	cache    *redis.Cache
	cacheTTL time.Duration
	defaults risk.SimulationParams
	levels   []float64
	logger   *logger.Logger
}

// Options 핸들러 기본값
type Options struct {
	Defaults risk.SimulationParams
	Levels   []float64
	CacheTTL time.Duration
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(
	engine *risk.Engine,
	repo store.Repository,
	cache *redis.Cache,
	opts Options,
	log *logger.Logger,
) *SimulationHandler {
	levels := opts.Levels
	if len(levels) == 0 {
		levels = risk.DefaultConfidenceLevels
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = redis.TTLLong
	}

	return &SimulationHandler{
		engine:   engine,
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		defaults: opts.Defaults,
		levels:   levels,
		logger:   log.WithComponent("api"),
	}
}

// SimulationRequest 생략된 필드는 서버 기본값 사용
type SimulationRequest struct {
	NSims            *int      `json:"n_sims,omitempty"`
	LambdaF          *float64  `json:"lambda_f,omitempty"`
	SevMu            *float64  `json:"sev_mu,omitempty"`
	SevSigma         *float64  `json:"sev_sigma,omitempty"`
	Seed             *int64    `json:"seed,omitempty"`
	ConfidenceLevels []float64 `json:"confidence_levels,omitempty"`
	KeepLosses       bool      `json:"keep_losses,omitempty"`
}

// SimulationResponse report.json 문서 + 캐시 여부
type SimulationResponse struct {
	*report.Report
	Cached bool `json:"cached"`
}

// RunList 실행 목록 응답
type RunList struct {
	Runs  []store.Run `json:"runs"`
	Count int         `json:"count"`
}

// resolve applies defaults to omitted fields
func (h *SimulationHandler) resolve(req SimulationRequest) (risk.SimulationParams, []float64) {
	p := h.defaults
	if req.NSims != nil {
		p.NSims = *req.NSims
	}
	if req.LambdaF != nil {
		p.LambdaF = *req.LambdaF
	}
	if req.SevMu != nil {
		p.SevMu = *req.SevMu
	}
	if req.SevSigma != nil {
		p.SevSigma = *req.SevSigma
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}

	levels := req.ConfidenceLevels
	if len(levels) == 0 {
		levels = h.levels
	}
	return p, levels
}

// Create runs a simulation
// POST /api/simulations
func (h *SimulationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SimulationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	params, levels := h.resolve(req)
	if params.NSims > MaxSims {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%s: n_sims must be <= %d", risk.ErrInvalidParameter, MaxSims))
		return
	}

	hash, err := scenario.HashParams(params, levels)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash parameters")
		respondError(w, http.StatusInternalServerError, "Failed to hash parameters")
		return
	}

	var rep report.Report
	cached, err := h.cache.GetOrSet(ctx, redis.SimulationKey(hash), &rep, h.cacheTTL, func() (interface{}, error) {
		return h.simulate(ctx, params, levels, hash, req.KeepLosses)
	})
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).Error("Simulation failed")
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, SimulationResponse{Report: &rep, Cached: cached})
}

func (h *SimulationHandler) simulate(ctx context.Context, params risk.SimulationParams, levels []float64, hash string, keepLosses bool) (*report.Report, error) {
	start := time.Now()

	result, err := h.engine.Run(params, levels)
	if err != nil {
		return nil, err
	}

	if err := h.repo.SaveRun(ctx, store.NewRun(result, "", hash, keepLosses)); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	h.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"n_sims":   params.NSims,
		"duration": time.Since(start),
	}).Info("Simulation completed")

	return report.NewReport(result), nil
}

// List returns recent runs
// GET /api/simulations?limit=N
func (h *SimulationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, RunList{Runs: runs, Count: len(runs)})
}

// Get returns one stored run
// GET /api/simulations/{id}
func (h *SimulationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var run store.Run
	_, err := h.cache.GetOrSet(ctx, redis.RunKey(id), &run, h.cacheTTL, func() (interface{}, error) {
		return h.repo.GetRun(ctx, id)
	})
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).WithField("run_id", id).Error("Failed to get run")
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, run)
}
