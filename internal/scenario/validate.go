package scenario

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/wonny/lossmodel/internal/risk"
)

// ValidationError 검증 실패 (실행 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match risk.ErrInvalidParameter
func (e ValidationError) Unwrap() error {
	return risk.ErrInvalidParameter
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// 스케줄러와 같은 파서 (초 필드 포함)
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks all required constraints
func Validate(s *Scenario) error {
	// === Meta ===
	if s.Meta.ID == "" {
		return ValidationError{"meta.id", "required"}
	}

	// === Simulation ===
	if s.Simulation.NSims <= 0 {
		return ValidationError{"simulation.n_sims", "must be > 0"}
	}
	if err := risk.ValidateParams(s.Simulation); err != nil {
		return ValidationError{"simulation", stripSentinel(err)}
	}

	// === Metrics ===
	for i, alpha := range s.Metrics.ConfidenceLevels {
		if err := risk.ValidateAlpha(alpha); err != nil {
			return ValidationError{
				Field:   fmt.Sprintf("metrics.confidence_levels[%d]", i),
				Message: stripSentinel(err),
			}
		}
	}

	// === Schedule ===
	if s.Schedule != "" {
		if _, err := scheduleParser.Parse(s.Schedule); err != nil {
			return ValidationError{"schedule", err.Error()}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(s *Scenario) []Warning {
	var warnings []Warning

	if s.Simulation.NSims < 1000 {
		warnings = append(warnings, Warning{
			Code:    "LOW_N_SIMS",
			Message: fmt.Sprintf("n_sims=%d: 꼬리 지표 추정이 불안정함", s.Simulation.NSims),
		})
	}

	// 꼬리 표본 10개 미만
	for _, alpha := range s.Metrics.ConfidenceLevels {
		if float64(s.Simulation.NSims)*(1-alpha) < 10 {
			warnings = append(warnings, Warning{
				Code:    "SPARSE_TAIL",
				Message: fmt.Sprintf("alpha=%g: 꼬리 표본 10개 미만 (TVaR 분산 큼)", alpha),
			})
		}
	}

	if s.Simulation.LambdaF == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_FREQUENCY",
			Message: "lambda_f=0: 모든 손실이 0",
		})
	}

	return warnings
}

// stripSentinel drops the "invalid parameter: " prefix added by risk
func stripSentinel(err error) string {
	return strings.TrimPrefix(err.Error(), risk.ErrInvalidParameter.Error()+": ")
}
