package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/pkg/config"
	"github.com/wonny/lossmodel/pkg/database"
)

func sampleRun(t *testing.T, seed int64, keepLosses bool) Run {
	t.Helper()

	params := risk.SimulationParams{NSims: 100, LambdaF: 3, SevMu: 9, SevSigma: 1, Seed: seed}
	result, err := risk.NewEngine().Run(params, nil)
	require.NoError(t, err)

	return NewRun(result, "base", "hash-abc", keepLosses)
}

func tempSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// 두 저장소에 공통으로 적용하는 계약 테스트
func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()

	withLosses := sampleRun(t, 1, true)
	withoutLosses := sampleRun(t, 2, false)
	withoutLosses.CreatedAt = withLosses.CreatedAt.Add(time.Second)

	require.NoError(t, repo.SaveRun(ctx, withLosses))
	require.NoError(t, repo.SaveRun(ctx, withoutLosses))

	got, err := repo.GetRun(ctx, withLosses.ID)
	require.NoError(t, err)
	assert.Equal(t, withLosses.ID, got.ID)
	assert.Equal(t, "base", got.ScenarioID)
	assert.Equal(t, "hash-abc", got.ConfigHash)
	assert.Equal(t, withLosses.Params, got.Params)
	assert.Equal(t, withLosses.Summary, got.Summary)
	assert.Equal(t, withLosses.RiskMetrics, got.RiskMetrics)
	assert.Equal(t, withLosses.Losses, got.Losses)
	assert.True(t, withLosses.CreatedAt.Truncate(time.Microsecond).Equal(got.CreatedAt.Truncate(time.Microsecond)))

	got, err = repo.GetRun(ctx, withoutLosses.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Losses)

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(runs), 2)
	assert.Equal(t, withoutLosses.ID, runs[0].ID) // 최신순
	for _, r := range runs {
		assert.Empty(t, r.Losses)
	}

	runs, err = repo.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = repo.GetRun(ctx, "missing-id")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLiteRepository(t *testing.T) {
	exerciseRepository(t, tempSQLite(t))
}

func TestSQLiteRepository_Upsert(t *testing.T) {
	repo := tempSQLite(t)
	ctx := context.Background()

	run := sampleRun(t, 3, false)
	require.NoError(t, repo.SaveRun(ctx, run))

	run.ScenarioID = "renamed"
	require.NoError(t, repo.SaveRun(ctx, run))

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "renamed", runs[0].ScenarioID)
}

func TestNewSQLiteRepository_InvalidPath(t *testing.T) {
	_, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "missing", "dir", "runs.db"))
	assert.Error(t, err)
}

func TestPostgresRepository(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)

	repo := NewPostgresRepository(db)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.EnsureSchema(context.Background()))

	exerciseRepository(t, repo)
}

func TestNopRepository(t *testing.T) {
	var repo Repository = NopRepository{}
	ctx := context.Background()

	assert.NoError(t, repo.SaveRun(ctx, Run{ID: "x"}))

	_, err := repo.GetRun(ctx, "x")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, repo.Close())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{Store: config.StoreConfig{Driver: config.StoreNone}}
	repo, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, NopRepository{}, repo)

	cfg.Store = config.StoreConfig{Driver: config.StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "nested", "runs.db")}
	repo, err = Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteRepository{}, repo)
	require.NoError(t, repo.Close())

	cfg.Store.Driver = "mongo"
	_, err = Open(ctx, cfg)
	assert.Error(t, err)
}

func TestNewRun(t *testing.T) {
	run := sampleRun(t, 9, false)

	assert.NotEmpty(t, run.ID)
	assert.Nil(t, run.Losses)
	assert.Equal(t, time.UTC, run.CreatedAt.Location())
	assert.Contains(t, run.RiskMetrics, "VaR_95")

	assert.Len(t, sampleRun(t, 9, true).Losses, 100)
}

func TestLossesEncoding(t *testing.T) {
	in := []float64{0, 1.5, 1e300, 123456.789}
	assert.Equal(t, in, decodeLosses(encodeLosses(in)))
}
