package risk

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Engine - 순수 계산기
// =============================================================================

// Engine 리스크 엔진 (순수 계산기)
// ⭐ SSOT: 저장/출력/그래프는 상위 레이어(report, plot, store)에서 조립
// internal/risk는 순수 계산만 담당
type Engine struct{}

// NewEngine 새 리스크 엔진 생성
func NewEngine() *Engine {
	return &Engine{}
}

// Run 시뮬레이션 1회 실행 후 요약 통계와 신뢰수준별 VaR/TVaR 계산
// 모든 검증은 난수 소비 전에 수행 (부분 결과 반환 없음)
// levels가 비어있으면 DefaultConfidenceLevels 사용
func (e *Engine) Run(params SimulationParams, levels []float64) (*SimulationResult, error) {
	if len(levels) == 0 {
		levels = DefaultConfidenceLevels
	}
	for _, alpha := range levels {
		if err := ValidateAlpha(alpha); err != nil {
			return nil, err
		}
	}
	if params.NSims == 0 {
		// 빈 표본은 시뮬레이션 경계값이지만 지표 계산은 불가
		return nil, fmt.Errorf("%w: n_sims must be > 0 to compute risk metrics", ErrInvalidParameter)
	}

	sim, err := NewSimulator(params)
	if err != nil {
		return nil, err
	}
	losses := sim.Run()

	result, err := e.Evaluate(losses, levels)
	if err != nil {
		return nil, err
	}
	result.Params = params
	return result, nil
}

// Evaluate 임의 표본에 대한 요약 통계 + VaR/TVaR (시뮬레이터 결과에 한정되지 않음)
func (e *Engine) Evaluate(losses []float64, levels []float64) (*SimulationResult, error) {
	if len(levels) == 0 {
		levels = DefaultConfidenceLevels
	}
	for _, alpha := range levels {
		if err := ValidateAlpha(alpha); err != nil {
			return nil, err
		}
	}

	summary, err := Summarize(losses)
	if err != nil {
		return nil, err
	}

	// 정렬은 한 번만
	sorted := sortedCopy(losses)
	metrics := make([]VaRResult, 0, len(levels))
	for _, alpha := range levels {
		metrics = append(metrics, varTVaRSorted(sorted, alpha))
	}

	return &SimulationResult{
		RunID:     uuid.New().String(),
		Losses:    losses,
		Summary:   summary,
		Metrics:   metrics,
		CreatedAt: time.Now(),
	}, nil
}
