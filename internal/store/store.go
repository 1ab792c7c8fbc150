package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/pkg/config"
	"github.com/wonny/lossmodel/pkg/database"
)

// ErrRunNotFound 저장된 실행 없음
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit ListRuns 기본 개수
const DefaultListLimit = 50

// Run 저장된 시뮬레이션 실행 (재현 정보 + 결과)
type Run struct {
	ID          string                `json:"id"`
	ScenarioID  string                `json:"scenario_id,omitempty"`
	ConfigHash  string                `json:"config_hash"`
	Params      risk.SimulationParams `json:"params"`
	Summary     risk.Summary          `json:"summary"`
	RiskMetrics map[string]float64    `json:"risk_metrics"`
	Losses      []float64             `json:"losses,omitempty"` // 선택 (목록 조회 시 비어 있음)
	CreatedAt   time.Time             `json:"created_at"`
}

// NewRun builds a Run from a simulation result
func NewRun(result *risk.SimulationResult, scenarioID, configHash string, keepLosses bool) Run {
	run := Run{
		ID:          result.RunID,
		ScenarioID:  scenarioID,
		ConfigHash:  configHash,
		Params:      result.Params,
		Summary:     result.Summary,
		RiskMetrics: result.RiskMetrics(),
		CreatedAt:   result.CreatedAt.UTC(),
	}
	if keepLosses {
		run.Losses = result.Losses
	}
	return run
}

// Repository 실행 이력 저장소
// ⭐ SSOT: 실행 이력 읽기/쓰기는 이 인터페이스로만
type Repository interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Open STORE_DRIVER에 맞는 저장소 생성
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	switch cfg.Store.Driver {
	case config.StoreNone:
		return NopRepository{}, nil

	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		return NewSQLiteRepository(cfg.Store.SQLitePath)

	case config.StorePostgres:
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		repo := NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// NopRepository 저장하지 않음 (STORE_DRIVER=none)
type NopRepository struct{}

func (NopRepository) SaveRun(context.Context, Run) error { return nil }

func (NopRepository) GetRun(_ context.Context, id string) (*Run, error) {
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

func (NopRepository) ListRuns(context.Context, int) ([]Run, error) { return []Run{}, nil }

func (NopRepository) Close() error { return nil }

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
