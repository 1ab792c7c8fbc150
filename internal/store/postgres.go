package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/lossmodel/pkg/database"
)

var postgresSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS lossmodel`,
	`CREATE TABLE IF NOT EXISTS lossmodel.simulation_runs (
		id            TEXT PRIMARY KEY,
		scenario_id   TEXT NOT NULL DEFAULT '',
		config_hash   TEXT NOT NULL,
		params        JSONB NOT NULL,
		summary       JSONB NOT NULL,
		risk_metrics  JSONB NOT NULL,
		losses        FLOAT8[],
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_simulation_runs_created_at
		ON lossmodel.simulation_runs (created_at DESC)`,
}

// PostgresRepository 서버용 실행 이력 (lossmodel.simulation_runs)
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository 새 저장소 생성 (db 소유권 이전, Close 시 종료)
func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the schema and table if missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if err := r.db.Migrate(ctx, postgresSchema...); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveRun 실행 저장 (같은 id면 갱신)
func (r *PostgresRepository) SaveRun(ctx context.Context, run Run) error {
	params, summary, metrics, err := marshalRun(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO lossmodel.simulation_runs
			(id, scenario_id, config_hash, params, summary, risk_metrics, losses, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			scenario_id = EXCLUDED.scenario_id,
			config_hash = EXCLUDED.config_hash,
			params = EXCLUDED.params,
			summary = EXCLUDED.summary,
			risk_metrics = EXCLUDED.risk_metrics,
			losses = EXCLUDED.losses,
			created_at = EXCLUDED.created_at`

	_, err = r.db.Pool.Exec(ctx, query,
		run.ID, run.ScenarioID, run.ConfigHash,
		string(params), string(summary), string(metrics),
		run.Losses, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// GetRun 실행 조회 (losses 포함)
func (r *PostgresRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, scenario_id, config_hash, params, summary, risk_metrics, losses, created_at
		FROM lossmodel.simulation_runs
		WHERE id = $1`

	var (
		run                      Run
		params, summary, metrics []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.ScenarioID, &run.ConfigHash,
		&params, &summary, &metrics, &run.Losses, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	if err := unmarshalRun(&run, params, summary, metrics); err != nil {
		return nil, err
	}

	return &run, nil
}

// ListRuns 최신순 목록 (losses 제외)
func (r *PostgresRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, scenario_id, config_hash, params, summary, risk_metrics, created_at
		FROM lossmodel.simulation_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Pool.Query(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run                      Run
			params, summary, metrics []byte
		)
		if err := rows.Scan(&run.ID, &run.ScenarioID, &run.ConfigHash, &params, &summary, &metrics, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := unmarshalRun(&run, params, summary, metrics); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}
