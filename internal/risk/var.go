package risk

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// =============================================================================
// Quantile (linear interpolation between order statistics)
// =============================================================================

// Quantile 표본의 q 분위수 (선형 보간, 위치 = q·(n-1))
// 입력 슬라이스는 변경하지 않는다.
func Quantile(sample []float64, q float64) (float64, error) {
	if err := validateSample(sample); err != nil {
		return 0, err
	}
	if !isFinite(q) || q < 0 || q > 1 {
		return 0, fmt.Errorf("%w: quantile must be in [0, 1], got %v", ErrInvalidParameter, q)
	}
	return quantileSorted(sortedCopy(sample), q), nil
}

// quantileSorted sorted는 오름차순, 비어있지 않아야 함
func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	pos := q * float64(n-1)
	lower := int(math.Floor(pos))
	if lower >= n-1 {
		return sorted[n-1]
	}
	if lower < 0 {
		return sorted[0]
	}

	return lerp(sorted[lower], sorted[lower+1], pos-float64(lower))
}

// lerp 두 순서통계량 사이 선형 보간
// t >= 0.5 이면 위쪽 끝점에서 역방향으로 계산 (끝점 근처 반올림 오차 최소화)
func lerp(a, b, t float64) float64 {
	diff := b - a
	if t >= 0.5 {
		return b - diff*(1-t)
	}
	return a + diff*t
}

// =============================================================================
// VaR / TVaR
// =============================================================================

// VaRTVaR alpha 신뢰수준의 (VaR, TVaR)
// VaR  = alpha 분위수 (선형 보간)
// TVaR = VaR 이상인 표본들의 산술평균 (해당 표본이 없으면 VaR)
func VaRTVaR(sample []float64, alpha float64) (VaRResult, error) {
	if err := validateSample(sample); err != nil {
		return VaRResult{}, err
	}
	if err := ValidateAlpha(alpha); err != nil {
		return VaRResult{}, err
	}

	sorted := sortedCopy(sample)
	return varTVaRSorted(sorted, alpha), nil
}

func varTVaRSorted(sorted []float64, alpha float64) VaRResult {
	v := quantileSorted(sorted, alpha)

	// 오름차순이므로 VaR 이상인 첫 위치부터가 tail
	idx, _ := slices.BinarySearch(sorted, v)
	tail := sorted[idx:]

	tvar := v
	if len(tail) > 0 {
		// tail 평균은 임계값 아래로 내려가지 않음 (합산 반올림 보정)
		tvar = math.Max(stat.Mean(tail, nil), v)
	}

	return VaRResult{Alpha: alpha, VaR: v, TVaR: tvar}
}

// ValidateAlpha 신뢰수준은 (0, 1) 개구간 (경계 포함 불가)
func ValidateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
		return fmt.Errorf("%w: alpha must be in (0, 1), got %v", ErrInvalidParameter, alpha)
	}
	return nil
}

// MetricKey "VaR", 0.95 → "VaR_95"; 0.995 → "VaR_99.5"
func MetricKey(prefix string, alpha float64) string {
	pct := math.Round(alpha*100*1e6) / 1e6
	return prefix + "_" + strconv.FormatFloat(pct, 'f', -1, 64)
}

// =============================================================================
// Summary
// =============================================================================

// Summarize 표본 기술통계 (n, mean, 불편 std, min, 분위수, max)
// 빈 표본은 호출자 오류 → ErrInvalidInput
func Summarize(sample []float64) (Summary, error) {
	if err := validateSample(sample); err != nil {
		return Summary{}, err
	}

	sorted := sortedCopy(sample)

	summary := Summary{
		N:    len(sample),
		Mean: stat.Mean(sample, nil),
		Min:  floats.Min(sample),
		Max:  floats.Max(sample),
		P50:  quantileSorted(sorted, 0.50),
		P90:  quantileSorted(sorted, 0.90),
		P95:  quantileSorted(sorted, 0.95),
		P99:  quantileSorted(sorted, 0.99),
	}
	if len(sample) > 1 {
		summary.Std = stat.StdDev(sample, nil)
	}

	return summary, nil
}

// =============================================================================
// Helpers
// =============================================================================

func validateSample(sample []float64) error {
	if len(sample) == 0 {
		return fmt.Errorf("%w: sample must be non-empty", ErrInvalidInput)
	}
	for i, v := range sample {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: sample[%d] is NaN", ErrInvalidInput, i)
		}
	}
	return nil
}

func sortedCopy(sample []float64) []float64 {
	sorted := slices.Clone(sample)
	slices.Sort(sorted)
	return sorted
}
