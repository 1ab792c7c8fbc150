package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/lossmodel/pkg/config"
	"github.com/wonny/lossmodel/pkg/logger"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lossmodel",
	Short: "Aggregate loss Monte Carlo (Poisson-Lognormal) + VaR/TVaR",
	Long: `lossmodel Unified CLI

연간 사고 건수 Poisson(λ), 건별 심도 Lognormal(μ, σ)의 복합 분포로
연간 총손실을 시뮬레이션하고 VaR/TVaR 꼬리 지표를 계산합니다.

Usage:
  go run ./cmd/lossmodel [command]

Examples:
  go run ./cmd/lossmodel simulate --n_sims 20000 --seed 42
  go run ./cmd/lossmodel simulate --scenario scenarios/severe.yaml
  go run ./cmd/lossmodel metrics --losses_csv data/aggregate_losses.csv
  go run ./cmd/lossmodel plot --outdir plots
  go run ./cmd/lossmodel api
  go run ./cmd/lossmodel scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads config (applying global flags) and builds the logger
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	if cmd.Flags().Changed("env") {
		os.Setenv("ENV", env)
	}

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, logger.New(cfg), nil
}
