package risk

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// pcgStream PCG 스트림 선택 상수 (시드 계약의 일부, 변경 시 재현성 깨짐)
const pcgStream uint64 = 0x9e3779b97f4a7c15

// Simulator 연간 총손실 Monte Carlo 시뮬레이터
// ⭐ 난수 발생기는 실행마다 새로 생성되는 전용 자원 (전역 공유 금지)
// 빈도 Poisson 표본기와 심도 Lognormal 표본기가 같은 PCG 소스를 공유한다.
type Simulator struct {
	params    SimulationParams
	src       *rand.PCG
	frequency distuv.Poisson
	severity  distuv.LogNormal
}

// NewSimulator 검증된 파라미터로 시뮬레이터 생성
// 검증 실패 시 난수를 소비하기 전에 ErrInvalidParameter 반환
func NewSimulator(params SimulationParams) (*Simulator, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	src := rand.NewPCG(uint64(params.Seed), pcgStream)

	return &Simulator{
		params:    params,
		src:       src,
		frequency: distuv.Poisson{Lambda: params.LambdaF, Src: src},
		severity:  distuv.LogNormal{Mu: params.SevMu, Sigma: params.SevSigma, Src: src},
	}, nil
}

// Simulate 한 번의 시뮬레이션 실행 (편의 함수)
// 같은 params(Seed 포함) → 비트 단위로 동일한 결과
func Simulate(params SimulationParams) ([]float64, error) {
	sim, err := NewSimulator(params)
	if err != nil {
		return nil, err
	}
	return sim.Run(), nil
}

// Run 시행 순서대로 연간 총손실 생성
// 시행마다: 사고 건수 k ~ Poisson(λ) 1회 추출 → 심도 k개 추출 후 합산.
// k = 0 이면 손실은 정확히 0.
// Run은 한 번만 호출하도록 설계됨 (두 번째 호출은 이어지는 스트림을 사용).
func (s *Simulator) Run() []float64 {
	losses := make([]float64, s.params.NSims)

	for i := range losses {
		k := int(s.frequency.Rand())

		var total float64
		for j := 0; j < k; j++ {
			total += s.severity.Rand()
		}
		losses[i] = total
	}

	return losses
}

// ValidateParams 시뮬레이션 파라미터 검증
func ValidateParams(p SimulationParams) error {
	if p.NSims < 0 {
		return fmt.Errorf("%w: n_sims must be >= 0, got %d", ErrInvalidParameter, p.NSims)
	}
	if !isFinite(p.LambdaF) || p.LambdaF < 0 {
		return fmt.Errorf("%w: lambda_f must be a finite value >= 0, got %v", ErrInvalidParameter, p.LambdaF)
	}
	if !isFinite(p.SevMu) {
		return fmt.Errorf("%w: sev_mu must be finite, got %v", ErrInvalidParameter, p.SevMu)
	}
	if !isFinite(p.SevSigma) || p.SevSigma < 0 {
		return fmt.Errorf("%w: sev_sigma must be a finite value >= 0, got %v", ErrInvalidParameter, p.SevSigma)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
