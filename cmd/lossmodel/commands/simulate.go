package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/lossmodel/internal/api"
	"github.com/wonny/lossmodel/internal/api/handlers"
	"github.com/wonny/lossmodel/internal/plot"
	"github.com/wonny/lossmodel/internal/report"
	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/internal/scenario"
	"github.com/wonny/lossmodel/internal/store"
	"github.com/wonny/lossmodel/pkg/config"
	"github.com/wonny/lossmodel/pkg/httputil"
	"github.com/wonny/lossmodel/pkg/logger"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "총손실 시뮬레이션 + VaR/TVaR",
	Long: `Poisson-Lognormal 복합 분포로 연간 총손실을 시뮬레이션합니다.

출력:
  <outdir>/aggregate_losses.csv  - 시뮬레이션 표본
  <outdir>/report.json           - 입력, 요약 통계, 리스크 지표 (stdout에도 출력)

--scenario 를 주면 시나리오 파일의 값이 플래그보다 우선합니다.

Example:
  go run ./cmd/lossmodel simulate
  go run ./cmd/lossmodel simulate --n_sims 50000 --lambda_f 20 --alpha 0.95 --alpha 0.995
  go run ./cmd/lossmodel simulate --scenario scenarios/severe.yaml --store
  go run ./cmd/lossmodel simulate --remote http://localhost:8089`,
	RunE: runSimulate,
}

var (
	simNSims    int
	simLambdaF  float64
	simMu       float64
	simSigma    float64
	simSeed     int64
	simOutdir   string
	simScenario string
	simAlphas   []float64
	simStore    bool
	simPlots    bool
	simFormat   string
	simRemote   string
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	defaults := risk.DefaultSimulationParams()

	// Flags
	simulateCmd.Flags().IntVar(&simNSims, "n_sims", defaults.NSims, "시뮬레이션 연도 수")
	simulateCmd.Flags().Float64Var(&simLambdaF, "lambda_f", defaults.LambdaF, "연간 평균 사고 건수 (Poisson λ)")
	simulateCmd.Flags().Float64Var(&simMu, "mu", defaults.SevMu, "log-심도 평균 (Lognormal μ)")
	simulateCmd.Flags().Float64Var(&simSigma, "sigma", defaults.SevSigma, "log-심도 표준편차 (Lognormal σ)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", defaults.Seed, "난수 시드")
	simulateCmd.Flags().StringVar(&simOutdir, "outdir", "data", "출력 디렉터리")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "시나리오 YAML 파일 (플래그보다 우선)")
	simulateCmd.Flags().Float64SliceVar(&simAlphas, "alpha", append([]float64(nil), risk.DefaultConfidenceLevels...), "신뢰수준 (반복 가능)")
	simulateCmd.Flags().BoolVar(&simStore, "store", false, "실행 기록 저장 (STORE_DRIVER)")
	simulateCmd.Flags().BoolVar(&simPlots, "plots", false, "히스토그램 PNG도 저장 (PLOT_DIR)")
	simulateCmd.Flags().StringVar(&simFormat, "format", FormatJSON, "출력 형식 (json|table)")
	simulateCmd.Flags().StringVar(&simRemote, "remote", "", "원격 API 주소 (지정 시 서버에서 실행, 파일 저장 없음)")
}

// simulation 한 번의 실행 계획 (플래그 또는 시나리오에서)
type simulation struct {
	scenarioID string
	params     risk.SimulationParams
	levels     []float64
	dataDir    string
	plotDir    string
	plots      bool
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if err := validateFormat(simFormat); err != nil {
		return err
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	plan, err := planSimulation(cmd, cfg)
	if err != nil {
		return err
	}

	for _, w := range scenario.Warn(&scenario.Scenario{
		Simulation: plan.params,
		Metrics:    scenario.Metrics{ConfidenceLevels: plan.levels},
	}) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	if simRemote != "" {
		return runRemoteSimulate(cmd, plan, log)
	}

	result, err := risk.NewEngine().Run(plan.params, plan.levels)
	if err != nil {
		return err
	}

	rep, err := report.NewWriter(plan.dataDir).Save(result)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"run_id":  result.RunID,
		"n_sims":  plan.params.NSims,
		"seed":    plan.params.Seed,
		"datadir": plan.dataDir,
	}).Info("Simulation completed")

	if plan.plots {
		paths, err := plot.Histograms(result.Losses, plan.plotDir)
		if err != nil {
			return err
		}
		log.WithFields(map[string]interface{}{
			"histogram": paths.Histogram,
			"tail":      paths.Tail,
		}).Info("Plots saved")
	}

	if simStore {
		if err := saveRun(cmd.Context(), cfg, result, plan); err != nil {
			return err
		}
		log.WithField("run_id", result.RunID).Info("Run stored")
	}

	return printReport(cmd.OutOrStdout(), rep, simFormat)
}

// planSimulation resolves parameters: scenario > changed flags > config defaults
func planSimulation(cmd *cobra.Command, cfg *config.Config) (*simulation, error) {
	if simScenario != "" {
		s, _, err := scenario.Load(simScenario)
		if err != nil {
			return nil, err
		}
		return &simulation{
			scenarioID: s.Meta.ID,
			params:     s.Params(),
			levels:     s.Levels(),
			dataDir:    s.Output.DataDir,
			plotDir:    s.Output.PlotDir,
			plots:      s.Output.Plots || simPlots,
		}, nil
	}

	p := risk.SimulationParams{
		NSims:    cfg.Simulation.NSims,
		LambdaF:  cfg.Simulation.LambdaF,
		SevMu:    cfg.Simulation.SevMu,
		SevSigma: cfg.Simulation.SevSigma,
		Seed:     cfg.Simulation.Seed,
	}

	flags := cmd.Flags()
	if flags.Changed("n_sims") {
		p.NSims = simNSims
	}
	if flags.Changed("lambda_f") {
		p.LambdaF = simLambdaF
	}
	if flags.Changed("mu") {
		p.SevMu = simMu
	}
	if flags.Changed("sigma") {
		p.SevSigma = simSigma
	}
	if flags.Changed("seed") {
		p.Seed = simSeed
	}

	levels := cfg.Simulation.ConfidenceLevels
	if flags.Changed("alpha") || len(levels) == 0 {
		levels = simAlphas
	}

	dataDir := cfg.DataDir
	if flags.Changed("outdir") || dataDir == "" {
		dataDir = simOutdir
	}

	return &simulation{
		params:  p,
		levels:  levels,
		dataDir: dataDir,
		plotDir: cfg.PlotDir,
		plots:   simPlots,
	}, nil
}

func saveRun(ctx context.Context, cfg *config.Config, result *risk.SimulationResult, plan *simulation) error {
	repo, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repo.Close()

	hash, err := scenario.HashParams(plan.params, plan.levels)
	if err != nil {
		return err
	}

	return repo.SaveRun(ctx, store.NewRun(result, plan.scenarioID, hash, false))
}

func runRemoteSimulate(cmd *cobra.Command, plan *simulation, log *logger.Logger) error {
	ctx := cmd.Context()
	p := plan.params
	client := api.NewClient(simRemote, httputil.New(log))

	resp, err := client.CreateSimulation(ctx, handlers.SimulationRequest{
		NSims:            &p.NSims,
		LambdaF:          &p.LambdaF,
		SevMu:            &p.SevMu,
		SevSigma:         &p.SevSigma,
		Seed:             &p.Seed,
		ConfidenceLevels: plan.levels,
	})
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"run_id": resp.RunID,
		"cached": resp.Cached,
	}).Info("Remote simulation completed")

	return printReport(cmd.OutOrStdout(), resp.Report, simFormat)
}

// printReport writes report.json (json) or a readable summary (table)
func printReport(w io.Writer, rep *report.Report, format string) error {
	if format == FormatJSON {
		data, err := rep.Marshal()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	in := rep.Inputs
	PrintHeader(w, "Aggregate Loss Simulation")
	if rep.RunID != "" {
		PrintKeyValue(w, "run_id", rep.RunID, 8)
	}
	PrintKeyValue(w, "n_sims", fmt.Sprint(in.NSims), 8)
	PrintKeyValue(w, "lambda_f", fmt.Sprint(in.LambdaFrequency), 8)
	PrintKeyValue(w, "mu", fmt.Sprint(in.SeverityLognormalMu), 8)
	PrintKeyValue(w, "sigma", fmt.Sprint(in.SeverityLognormalSigma), 8)
	PrintKeyValue(w, "seed", fmt.Sprint(in.Seed), 8)
	PrintSeparator(w)
	PrintSummary(w, rep.Summary)
	PrintSeparator(w)
	PrintRiskMetrics(w, rep.RiskMetrics)
	PrintDoubleSeparator(w)
	return nil
}
