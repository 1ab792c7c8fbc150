package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/lossmodel/internal/api"
	"github.com/wonny/lossmodel/internal/api/handlers"
	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/internal/store"
	"github.com/wonny/lossmodel/pkg/config"
	"github.com/wonny/lossmodel/pkg/logger"
	"github.com/wonny/lossmodel/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                 - Health check
  POST /api/simulations        - 시뮬레이션 실행 (Redis 캐시, 실행 기록 저장)
  GET  /api/simulations        - 최근 실행 목록 (?limit=N)
  GET  /api/simulations/{id}   - 실행 조회
  POST /api/metrics            - 임의 표본의 VaR/TVaR

Example:
  go run ./cmd/lossmodel api
  go run ./cmd/lossmodel api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본 PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Load config + logger
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":  cfg.Port,
		"env":   cfg.Env,
		"store": cfg.Store.Driver,
		"redis": cfg.Redis.Enabled,
	}).Info("Initializing API server")

	ctx := cmd.Context()

	// 2. Run history
	repo, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repo.Close()

	// 3. Redis (cache + rate limit)
	rdb, err := redis.New(cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// 4. Router
	router := api.NewRouter(buildRouterDeps(cfg, log, repo, rdb))

	// 5. Server with graceful shutdown
	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Server running on http://localhost:%s (Ctrl+C to stop)\n", cfg.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// buildRouterDeps wires handlers, cache and limiter for the configured backends
func buildRouterDeps(cfg *config.Config, log *logger.Logger, repo store.Repository, rdb *redis.Client) api.RouterDeps {
	engine := risk.NewEngine()
	cache := redis.NewCache(rdb, "lossmodel")

	defaults := risk.SimulationParams{
		NSims:    cfg.Simulation.NSims,
		LambdaF:  cfg.Simulation.LambdaF,
		SevMu:    cfg.Simulation.SevMu,
		SevSigma: cfg.Simulation.SevSigma,
		Seed:     cfg.Simulation.Seed,
	}

	var limiter api.Limiter
	if rdb.Enabled() {
		limiter = api.NewRedisLimiter(redis.NewRateLimiter(rdb, "lossmodel"), cfg.API.RateLimit, cfg.API.RateWindow)
	} else {
		limiter = api.NewLocalLimiter(cfg.API.RateLimit, cfg.API.RateWindow)
	}

	return api.RouterDeps{
		Simulations: handlers.NewSimulationHandler(engine, repo, cache, handlers.Options{
			Defaults: defaults,
			Levels:   cfg.Simulation.ConfidenceLevels,
			CacheTTL: cfg.Redis.CacheTTL,
		}, log),
		Metrics: handlers.NewMetricsHandler(engine, cfg.Simulation.ConfidenceLevels, log),
		Limiter: limiter,
		Health: func(ctx context.Context) map[string]error {
			_, storeErr := repo.ListRuns(ctx, 1)
			return map[string]error{
				"store": storeErr,
				"redis": rdb.Ping(ctx),
			}
		},
		Logger: log,
	}
}
