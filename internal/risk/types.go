package risk

import (
	"errors"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInvalidParameter 도메인 밖의 수치 입력 (음수 빈도, 음수 sigma, alpha ∉ (0,1) 등)
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidInput 비어있거나 잘못된 표본
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// Simulation Types
// =============================================================================

// SimulationParams 빈도-심도 (Poisson-Lognormal) 모델 파라미터
// ⭐ SSOT: 재현성을 위해 Seed까지 모두 명시적으로 기록
type SimulationParams struct {
	NSims    int     `json:"n_sims" yaml:"n_sims"`       // 시뮬레이션 연도 수
	LambdaF  float64 `json:"lambda_f" yaml:"lambda_f"`   // 연간 평균 사고 건수 (Poisson)
	SevMu    float64 `json:"sev_mu" yaml:"sev_mu"`       // log-심도의 평균
	SevSigma float64 `json:"sev_sigma" yaml:"sev_sigma"` // log-심도의 표준편차
	Seed     int64   `json:"seed" yaml:"seed"`           // 난수 시드 (전체 스트림 결정)
}

// DefaultSimulationParams 기본 파라미터 (20000년, λ=12, μ=9, σ=1, seed=42)
func DefaultSimulationParams() SimulationParams {
	return SimulationParams{
		NSims:    20000,
		LambdaF:  12.0,
		SevMu:    9.0,
		SevSigma: 1.0,
		Seed:     42,
	}
}

// DefaultConfidenceLevels 기본 신뢰수준
var DefaultConfidenceLevels = []float64{0.95, 0.99}

// =============================================================================
// Risk Metric Types
// =============================================================================

// VaRResult VaR/TVaR 계산 결과
// 손실 표본 기준: VaR는 alpha 분위수, TVaR는 VaR 이상 표본의 평균
type VaRResult struct {
	Alpha float64 `json:"alpha"`
	VaR   float64 `json:"var"`
	TVaR  float64 `json:"tvar"`
}

// Summary 표본 기술통계
type Summary struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"` // 불편 표준편차 (n-1), n <= 1 이면 0
	Min  float64 `json:"min"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

// SimulationResult 한 번의 시뮬레이션 실행 결과
type SimulationResult struct {
	RunID     string           `json:"run_id"`
	Params    SimulationParams `json:"params"`
	Losses    []float64        `json:"-"` // 연도별 총손실 (생성 후 불변)
	Summary   Summary          `json:"summary"`
	Metrics   []VaRResult      `json:"metrics"`
	CreatedAt time.Time        `json:"created_at"`
}

// RiskMetrics VaR_95, TVaR_95, ... 형태의 맵
func (r *SimulationResult) RiskMetrics() map[string]float64 {
	return MetricsMap(r.Metrics)
}

// MetricsMap builds the "risk_metrics" mapping from a list of results
func MetricsMap(results []VaRResult) map[string]float64 {
	m := make(map[string]float64, 2*len(results))
	for _, res := range results {
		m[MetricKey("VaR", res.Alpha)] = res.VaR
		m[MetricKey("TVaR", res.Alpha)] = res.TVaR
	}
	return m
}
