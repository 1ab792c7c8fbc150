package handlers

import (
	"net/http"

	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/pkg/logger"
)

// MetricsHandler VaR/TVaR 계산 (임의 표본)
type MetricsHandler struct {
	engine *risk.Engine
	levels []float64
	logger *logger.Logger
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(engine *risk.Engine, levels []float64, log *logger.Logger) *MetricsHandler {
	if len(levels) == 0 {
		levels = risk.DefaultConfidenceLevels
	}
	return &MetricsHandler{
		engine: engine,
		levels: levels,
		logger: log.WithComponent("api"),
	}
}

// MetricsRequest 표본 + 신뢰수준
type MetricsRequest struct {
	Sample           []float64 `json:"sample"`
	ConfidenceLevels []float64 `json:"confidence_levels,omitempty"`
}

// MetricsResponse 기술통계 + 지표
type MetricsResponse struct {
	Summary     risk.Summary       `json:"summary"`
	RiskMetrics map[string]float64 `json:"risk_metrics"`
	Metrics     []risk.VaRResult   `json:"metrics"`
}

// Evaluate computes summary and risk metrics of a sample
// POST /api/metrics
func (h *MetricsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req MetricsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	levels := req.ConfidenceLevels
	if len(levels) == 0 {
		levels = h.levels
	}

	result, err := h.engine.Evaluate(req.Sample, levels)
	if err != nil {
		respondError(w, StatusFor(err), err.Error())
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"n":      result.Summary.N,
		"levels": len(levels),
	}).Debug("Metrics evaluated")

	respondJSON(w, http.StatusOK, MetricsResponse{
		Summary:     result.Summary,
		RiskMetrics: result.RiskMetrics(),
		Metrics:     result.Metrics,
	})
}
