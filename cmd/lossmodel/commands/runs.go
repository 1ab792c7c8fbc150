package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/lossmodel/internal/api"
	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/internal/store"
	"github.com/wonny/lossmodel/pkg/httputil"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "실행 기록 조회",
	Long: `저장된 시뮬레이션 실행 기록을 조회합니다.

기본은 로컬 저장소(STORE_DRIVER)이며, --api 를 주면 원격 API 서버에서 조회합니다.

Example:
  go run ./cmd/lossmodel runs list --limit 10
  go run ./cmd/lossmodel runs show <run_id>
  go run ./cmd/lossmodel runs list --api http://localhost:8089`,
}

var (
	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 실행 목록",
		RunE:  listRuns,
	}

	runsShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "실행 상세 (JSON)",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
)

var (
	runsLimit int
	runsAPI   string
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	// Flags
	runsCmd.PersistentFlags().StringVar(&runsAPI, "api", "", "원격 API 주소")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", store.DefaultListLimit, "최대 개수")
}

// runSource 로컬 저장소 또는 원격 API
type runSource interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	GetRun(ctx context.Context, id string) (*store.Run, error)
}

func openRunSource(cmd *cobra.Command) (runSource, func(), error) {
	cfg, log, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}

	if runsAPI != "" {
		return api.NewClient(runsAPI, httputil.New(log)), func() {}, nil
	}

	repo, err := store.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return repo, func() { repo.Close() }, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	src, closeFn, err := openRunSource(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	runs, err := src.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	varKey, tvarKey := risk.MetricKey("VaR", 0.99), risk.MetricKey("TVaR", 0.99)
	widths := []int{36, 12, 20, 8, 16, 16}
	PrintTableHeader(w, []string{"Run ID", "Scenario", "Created", "n_sims", varKey, tvarKey}, widths)

	for _, run := range runs {
		scenarioID := run.ScenarioID
		if scenarioID == "" {
			scenarioID = "-"
		}
		PrintTableRow(w, []string{
			run.ID,
			scenarioID,
			run.CreatedAt.Local().Format(time.DateTime),
			fmt.Sprint(run.Params.NSims),
			metricOrDash(run.RiskMetrics, varKey),
			metricOrDash(run.RiskMetrics, tvarKey),
		}, widths)
	}

	fmt.Fprintf(w, "\n%d run(s)\n", len(runs))
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	src, closeFn, err := openRunSource(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	run, err := src.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func metricOrDash(metrics map[string]float64, key string) string {
	v, ok := metrics[key]
	if !ok {
		return "-"
	}
	return formatLoss(v)
}
