package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/internal/scheduler"
	"github.com/wonny/lossmodel/internal/scheduler/jobs"
	"github.com/wonny/lossmodel/internal/store"
	"github.com/wonny/lossmodel/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "시나리오 스케줄러 관리",
	Long: `schedule 필드가 있는 시나리오 파일을 cron으로 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/lossmodel scheduler start --dir scenarios
  go run ./cmd/lossmodel scheduler list
  go run ./cmd/lossmodel scheduler run scenario:base`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 --dir 의 모든 스케줄 시나리오를 등록합니다.

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

var (
	schedulerDir string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	// Flags
	schedulerCmd.PersistentFlags().StringVar(&schedulerDir, "dir", "scenarios", "시나리오 디렉터리")
}

// initScheduler loads scheduled scenarios into a new scheduler
func initScheduler(cmd *cobra.Command) (*scheduler.Scheduler, store.Repository, *logger.Logger, error) {
	cfg, log, err := setup(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	repo, err := store.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	scenarioJobs, err := jobs.LoadScenarioJobs(schedulerDir, risk.NewEngine(), repo, log)
	if err != nil {
		repo.Close()
		return nil, nil, nil, err
	}

	sched := scheduler.New(log)
	for _, job := range scenarioJobs {
		if err := sched.AddJob(job); err != nil {
			repo.Close()
			return nil, nil, nil, err
		}
	}

	return sched, repo, log, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, repo, log, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer repo.Close()

	if len(sched.GetAllJobs()) == 0 {
		log.WithField("dir", schedulerDir).Warn("No scheduled scenarios found")
	}

	// Start scheduler
	sched.Start()

	w := cmd.OutOrStdout()
	PrintSuccess(w, "Scheduler started")
	printJobs(cmd, sched)
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, repo, _, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer repo.Close()

	// 다음 실행 시각 계산을 위해 잠시 시작
	sched.Start()
	defer sched.Stop()

	printJobs(cmd, sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, repo, _, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer repo.Close()

	result, err := sched.RunNow(cmd.Context(), jobName)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !result.Success {
		return fmt.Errorf("job %s failed after %d attempt(s): %s", jobName, result.Attempts, result.Error)
	}

	PrintSuccess(w, fmt.Sprintf("Job %s completed in %.2fs", jobName, result.Duration.Seconds()))
	return nil
}

func printJobs(cmd *cobra.Command, sched *scheduler.Scheduler) {
	w := cmd.OutOrStdout()
	stats := sched.GetJobStats()

	widths := []int{28, 16, 20}
	PrintTableHeader(w, []string{"Job", "Schedule", "Next Run"}, widths)
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if t, err := sched.NextRun(name); err == nil && !t.IsZero() {
			next = t.Format(time.DateTime)
		}
		PrintTableRow(w, []string{name, stats[name].Schedule, next}, widths)
	}
}
