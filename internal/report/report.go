package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wonny/lossmodel/internal/risk"
)

// File names written into the data directory
const (
	LossesFile = "aggregate_losses.csv"
	ReportFile = "report.json"
)

// =============================================================================
// Report Types
// =============================================================================

// Report 시뮬레이션 리포트 (report.json)
type Report struct {
	RunID       string             `json:"run_id,omitempty"`
	Inputs      Inputs             `json:"inputs"`
	Summary     risk.Summary       `json:"summary"`
	RiskMetrics map[string]float64 `json:"risk_metrics"`
}

// Inputs 시뮬레이션에 사용된 파라미터
type Inputs struct {
	NSims                  int     `json:"n_sims"`
	LambdaFrequency        float64 `json:"lambda_frequency"`
	SeverityLognormalMu    float64 `json:"severity_lognormal_mu"`
	SeverityLognormalSigma float64 `json:"severity_lognormal_sigma"`
	Seed                   int64   `json:"seed"`
}

// NewInputs maps model parameters to their report names
func NewInputs(p risk.SimulationParams) Inputs {
	return Inputs{
		NSims:                  p.NSims,
		LambdaFrequency:        p.LambdaF,
		SeverityLognormalMu:    p.SevMu,
		SeverityLognormalSigma: p.SevSigma,
		Seed:                   p.Seed,
	}
}

// Params is the inverse of NewInputs
func (in Inputs) Params() risk.SimulationParams {
	return risk.SimulationParams{
		NSims:    in.NSims,
		LambdaF:  in.LambdaFrequency,
		SevMu:    in.SeverityLognormalMu,
		SevSigma: in.SeverityLognormalSigma,
		Seed:     in.Seed,
	}
}

// NewReport 시뮬레이션 결과 → 리포트
func NewReport(result *risk.SimulationResult) *Report {
	return &Report{
		RunID:       result.RunID,
		Inputs:      NewInputs(result.Params),
		Summary:     result.Summary,
		RiskMetrics: result.RiskMetrics(),
	}
}

// =============================================================================
// JSON
// =============================================================================

// Marshal 2칸 들여쓰기 JSON
func (r *Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// WriteReport writes r to path, creating the parent directory
func WriteReport(path string, r *Report) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// ReadReport reads a report.json document
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}

	return &r, nil
}

// =============================================================================
// Writer
// =============================================================================

// Writer 데이터 디렉터리에 표본(CSV)과 리포트(JSON) 저장
type Writer struct {
	DataDir string
}

// NewWriter creates a writer rooted at dataDir
func NewWriter(dataDir string) *Writer {
	return &Writer{DataDir: dataDir}
}

// Paths 저장 경로 (losses csv, report json)
func (w *Writer) Paths() (string, string) {
	return filepath.Join(w.DataDir, LossesFile), filepath.Join(w.DataDir, ReportFile)
}

// Save writes the loss sample and its report; returns the report written
func (w *Writer) Save(result *risk.SimulationResult) (*Report, error) {
	lossesPath, reportPath := w.Paths()

	if err := WriteLosses(lossesPath, result.Losses); err != nil {
		return nil, err
	}

	rep := NewReport(result)
	if err := WriteReport(reportPath, rep); err != nil {
		return nil, err
	}

	return rep, nil
}
