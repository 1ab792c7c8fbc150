package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/lossmodel/internal/store"
	"github.com/wonny/lossmodel/pkg/config"
	"github.com/wonny/lossmodel/pkg/database"
	"github.com/wonny/lossmodel/pkg/logger"
	"github.com/wonny/lossmodel/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "설정/저장소/Redis 연결 점검",
	Long: `현재 환경 설정으로 각 의존성에 연결해 봅니다.

이 명령어는:
- config 로드 및 주요 값 표시
- 로거 출력 (LOG_FORMAT/LOG_LEVEL)
- 실행 기록 저장소 열기 (STORE_DRIVER)
- PostgreSQL Health Check + Connection Pool 통계 (STORE_DRIVER=postgres)
- Redis Ping (REDIS_ENABLED=true)

Example:
  go run ./cmd/lossmodel check
  go run ./cmd/lossmodel check --env production`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	PrintHeader(w, "lossmodel environment check")
	PrintKeyValue(w, "env", cfg.Env, 12)
	PrintKeyValue(w, "log", cfg.LogFormat+"/"+cfg.LogLevel, 12)
	PrintKeyValue(w, "store", cfg.Store.Driver, 12)
	PrintKeyValue(w, "redis", fmt.Sprint(cfg.Redis.Enabled), 12)
	PrintSeparator(w)

	log.WithComponent("check").Info("Logger initialized")

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if err := checkStore(ctx, w, cfg); err != nil {
		return err
	}
	if cfg.Store.Driver == config.StorePostgres {
		if err := checkPostgres(ctx, w, cfg); err != nil {
			return err
		}
	}
	if err := checkRedis(ctx, w, cfg, log); err != nil {
		return err
	}

	PrintDoubleSeparator(w)
	PrintSuccess(w, "All checks passed")
	return nil
}

func checkStore(ctx context.Context, w io.Writer, cfg *config.Config) error {
	repo, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repo.Close()

	runs, err := repo.ListRuns(ctx, store.DefaultListLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	PrintSuccess(w, fmt.Sprintf("Store %s ok (%d recent run(s))", cfg.Store.Driver, len(runs)))
	return nil
}

func checkPostgres(ctx context.Context, w io.Writer, cfg *config.Config) error {
	PrintKeyValue(w, "database", redactURL(cfg.Database.URL), 12)

	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	PrintSuccess(w, fmt.Sprintf("PostgreSQL ok (%v)", status.ResponseTime))
	PrintKeyValue(w, "max conns", fmt.Sprint(status.Stats.MaxConns), 12)
	PrintKeyValue(w, "total conns", fmt.Sprint(status.Stats.TotalConns), 12)
	PrintKeyValue(w, "idle conns", fmt.Sprint(status.Stats.IdleConns), 12)
	return nil
}

func checkRedis(ctx context.Context, w io.Writer, cfg *config.Config, log *logger.Logger) error {
	if !cfg.Redis.Enabled {
		PrintWarning(w, "Redis disabled (REDIS_ENABLED=false): in-process rate limit, no cache")
		return nil
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	if err := rdb.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	log.WithField("addr", cfg.Redis.Host+":"+cfg.Redis.Port).Debug("Redis reachable")
	PrintSuccess(w, "Redis ok")
	return nil
}

// redactURL hides the password of a connection URL
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
