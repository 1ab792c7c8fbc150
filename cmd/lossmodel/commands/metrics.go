package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/lossmodel/internal/report"
	"github.com/wonny/lossmodel/internal/risk"
)

// metricsCmd represents the metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "기존 표본의 VaR/TVaR 계산",
	Long: `CSV 표본(aggregate_loss 컬럼)을 읽어 요약 통계와 VaR/TVaR를 계산합니다.

시뮬레이터 출력이 아닌 임의의 손실 표본에도 사용할 수 있습니다.

Example:
  go run ./cmd/lossmodel metrics
  go run ./cmd/lossmodel metrics --losses_csv data/aggregate_losses.csv --alpha 0.9 --alpha 0.995`,
	RunE: runMetrics,
}

var (
	metricsLossesCSV string
	metricsAlphas    []float64
	metricsFormat    string
)

func init() {
	rootCmd.AddCommand(metricsCmd)

	// Flags
	metricsCmd.Flags().StringVar(&metricsLossesCSV, "losses_csv", "data/"+report.LossesFile, "손실 표본 CSV")
	metricsCmd.Flags().Float64SliceVar(&metricsAlphas, "alpha", append([]float64(nil), risk.DefaultConfidenceLevels...), "신뢰수준 (반복 가능)")
	metricsCmd.Flags().StringVar(&metricsFormat, "format", FormatJSON, "출력 형식 (json|table)")
}

// metricsOutput metrics 명령 JSON 출력
type metricsOutput struct {
	Summary     risk.Summary       `json:"summary"`
	RiskMetrics map[string]float64 `json:"risk_metrics"`
}

func runMetrics(cmd *cobra.Command, args []string) error {
	if err := validateFormat(metricsFormat); err != nil {
		return err
	}

	_, log, err := setup(cmd)
	if err != nil {
		return err
	}

	losses, err := report.ReadLosses(metricsLossesCSV)
	if err != nil {
		return err
	}

	result, err := risk.NewEngine().Evaluate(losses, metricsAlphas)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"path": metricsLossesCSV,
		"n":    result.Summary.N,
	}).Debug("Metrics evaluated")

	w := cmd.OutOrStdout()
	if metricsFormat == FormatTable {
		PrintHeader(w, "Risk Metrics: "+metricsLossesCSV)
		PrintSummary(w, result.Summary)
		PrintSeparator(w)
		PrintRiskMetrics(w, result.RiskMetrics())
		PrintDoubleSeparator(w)
		return nil
	}

	data, err := json.MarshalIndent(metricsOutput{
		Summary:     result.Summary,
		RiskMetrics: result.RiskMetrics(),
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
