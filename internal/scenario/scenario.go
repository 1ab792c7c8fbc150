package scenario

import (
	"github.com/wonny/lossmodel/internal/risk"
)

// Scenario 시뮬레이션 시나리오 파일 (YAML)
//
// 하나의 파일 = 하나의 재현 가능한 실행 (파라미터 + 신뢰수준 + 출력 위치 + 스케줄)
type Scenario struct {
	Meta       Meta                  `yaml:"meta" json:"meta"`
	Simulation risk.SimulationParams `yaml:"simulation" json:"simulation"`
	Metrics    Metrics               `yaml:"metrics" json:"metrics"`
	Output     Output                `yaml:"output" json:"output"`
	Schedule   string                `yaml:"schedule,omitempty" json:"schedule,omitempty"` // cron (초 포함 6필드)
}

// Meta 메타 정보
type Meta struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Metrics 리스크 지표 설정
type Metrics struct {
	ConfidenceLevels []float64 `yaml:"confidence_levels" json:"confidence_levels"`
}

// Output 출력 위치
type Output struct {
	DataDir string `yaml:"data_dir" json:"data_dir"`
	PlotDir string `yaml:"plot_dir" json:"plot_dir"`
	Plots   bool   `yaml:"plots" json:"plots"`
}

const (
	defaultDataDir = "data"
	defaultPlotDir = "plots"
)

// Params returns the simulation parameters
func (s *Scenario) Params() risk.SimulationParams {
	return s.Simulation
}

// Levels 신뢰수준 (비어 있으면 기본값)
func (s *Scenario) Levels() []float64 {
	if len(s.Metrics.ConfidenceLevels) == 0 {
		return risk.DefaultConfidenceLevels
	}
	return s.Metrics.ConfidenceLevels
}

// Scheduled reports whether the scenario carries a cron schedule
func (s *Scenario) Scheduled() bool {
	return s.Schedule != ""
}

func (s *Scenario) applyDefaults() {
	if len(s.Metrics.ConfidenceLevels) == 0 {
		s.Metrics.ConfidenceLevels = append([]float64(nil), risk.DefaultConfidenceLevels...)
	}
	if s.Output.DataDir == "" {
		s.Output.DataDir = defaultDataDir
	}
	if s.Output.PlotDir == "" {
		s.Output.PlotDir = defaultPlotDir
	}
}
