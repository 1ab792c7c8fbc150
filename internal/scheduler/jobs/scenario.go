package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/wonny/lossmodel/internal/plot"
	"github.com/wonny/lossmodel/internal/report"
	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/internal/scenario"
	"github.com/wonny/lossmodel/internal/store"
	"github.com/wonny/lossmodel/pkg/logger"
)

// ScenarioJob runs one scenario file on its cron schedule
// 실행마다 표본/리포트(/플롯) 저장 + 실행 기록
type ScenarioJob struct {
	path     string
	scenario *scenario.Scenario
	hash     string
	engine   *risk.Engine
	repo     store.Repository
	logger   *logger.Logger
}

// NewScenarioJob creates a job for a loaded scenario
func NewScenarioJob(path string, s *scenario.Scenario, engine *risk.Engine, repo store.Repository, log *logger.Logger) (*ScenarioJob, error) {
	hash, err := scenario.HashParams(s.Params(), s.Levels())
	if err != nil {
		return nil, fmt.Errorf("hash scenario %s: %w", s.Meta.ID, err)
	}
	if repo == nil {
		repo = store.NopRepository{}
	}

	return &ScenarioJob{
		path:     path,
		scenario: s,
		hash:     hash,
		engine:   engine,
		repo:     repo,
		logger:   log.WithField("scenario", s.Meta.ID),
	}, nil
}

// Name returns the job name
func (j *ScenarioJob) Name() string {
	return "scenario:" + j.scenario.Meta.ID
}

// Schedule returns the scenario's cron schedule
func (j *ScenarioJob) Schedule() string {
	return j.scenario.Schedule
}

// Path returns the scenario file the job was loaded from
func (j *ScenarioJob) Path() string {
	return j.path
}

// Run executes the scenario
func (j *ScenarioJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := j.scenario
	j.logger.Info("Starting scheduled scenario run")

	result, err := j.engine.Run(s.Params(), s.Levels())
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	// ===== 1. 표본 + 리포트 =====
	if _, err := report.NewWriter(s.Output.DataDir).Save(result); err != nil {
		return fmt.Errorf("save outputs: %w", err)
	}

	// ===== 2. 플롯 (선택) =====
	if s.Output.Plots {
		if _, err := plot.Histograms(result.Losses, s.Output.PlotDir); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
	}

	// ===== 3. 실행 기록 =====
	if err := j.repo.SaveRun(ctx, store.NewRun(result, s.Meta.ID, j.hash, false)); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  result.RunID,
		"n_sims":  result.Params.NSims,
		"metrics": result.RiskMetrics(),
	}).Info("Scenario run completed")

	return nil
}

// LoadScenarioJobs loads every *.yaml scenario in dir that carries a schedule
// 스케줄 없는 시나리오는 건너뜀, 잘못된 파일은 에러
func LoadScenarioJobs(dir string, engine *risk.Engine, repo store.Repository, log *logger.Logger) ([]*ScenarioJob, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob scenarios: %w", err)
	}
	sort.Strings(paths)

	var result []*ScenarioJob
	for _, path := range paths {
		s, _, err := scenario.Load(path)
		if err != nil {
			return nil, err
		}
		if !s.Scheduled() {
			log.WithField("path", path).Debug("Scenario has no schedule, skipping")
			continue
		}

		job, err := NewScenarioJob(path, s, engine, repo, log)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}

	return result, nil
}
