package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/lossmodel/internal/plot"
	"github.com/wonny/lossmodel/internal/report"
)

// plotCmd represents the plot command
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "총손실 히스토그램 PNG 생성",
	Long: `CSV 표본으로 두 개의 히스토그램을 생성합니다.

  <outdir>/aggregate_loss_hist.png  - 전체 분포 (60 bins)
  <outdir>/aggregate_loss_tail.png  - 95 백분위 이상 꼬리 (40 bins)

Example:
  go run ./cmd/lossmodel plot
  go run ./cmd/lossmodel plot --losses_csv data/aggregate_losses.csv --outdir plots`,
	RunE: runPlot,
}

var (
	plotLossesCSV string
	plotOutdir    string
)

func init() {
	rootCmd.AddCommand(plotCmd)

	// Flags
	plotCmd.Flags().StringVar(&plotLossesCSV, "losses_csv", "data/"+report.LossesFile, "손실 표본 CSV")
	plotCmd.Flags().StringVar(&plotOutdir, "outdir", "plots", "출력 디렉터리")
}

func runPlot(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	outdir := plotOutdir
	if !cmd.Flags().Changed("outdir") && cfg.PlotDir != "" {
		outdir = cfg.PlotDir
	}

	losses, err := report.ReadLosses(plotLossesCSV)
	if err != nil {
		return err
	}

	paths, err := plot.Histograms(losses, outdir)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"n":         len(losses),
		"histogram": paths.Histogram,
		"tail":      paths.Tail,
	}).Info("Plots saved")

	w := cmd.OutOrStdout()
	PrintSuccess(w, "Saved "+paths.Histogram)
	PrintSuccess(w, "Saved "+paths.Tail)
	return nil
}
