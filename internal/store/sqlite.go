package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	id            TEXT PRIMARY KEY,
	scenario_id   TEXT NOT NULL DEFAULT '',
	config_hash   TEXT NOT NULL,
	params_json   TEXT NOT NULL,
	summary_json  TEXT NOT NULL,
	metrics_json  TEXT NOT NULL,
	losses        BLOB,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_simulation_runs_created_at ON simulation_runs (created_at DESC);
`

// 고정 폭 (문자열 정렬 = 시간 정렬)
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository 로컬 실행 이력 (단일 파일)
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens a SQLite database and runs migrations.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// SaveRun inserts or replaces a run
func (r *SQLiteRepository) SaveRun(ctx context.Context, run Run) error {
	params, summary, metrics, err := marshalRun(run)
	if err != nil {
		return err
	}

	var losses []byte
	if run.Losses != nil {
		losses = encodeLosses(run.Losses)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO simulation_runs
			(id, scenario_id, config_hash, params_json, summary_json, metrics_json, losses, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			scenario_id = excluded.scenario_id,
			config_hash = excluded.config_hash,
			params_json = excluded.params_json,
			summary_json = excluded.summary_json,
			metrics_json = excluded.metrics_json,
			losses = excluded.losses,
			created_at = excluded.created_at`,
		run.ID, run.ScenarioID, run.ConfigHash,
		string(params), string(summary), string(metrics),
		losses, run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// GetRun returns one run including its losses
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, scenario_id, config_hash, params_json, summary_json, metrics_json, losses, created_at
		 FROM simulation_runs WHERE id = ?`, id)

	var (
		run                      Run
		params, summary, metrics string
		losses                   []byte
		createdAt                string
	)
	err := row.Scan(&run.ID, &run.ScenarioID, &run.ConfigHash, &params, &summary, &metrics, &losses, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	if err := unmarshalRun(&run, []byte(params), []byte(summary), []byte(metrics)); err != nil {
		return nil, err
	}
	if losses != nil {
		run.Losses = decodeLosses(losses)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &run, nil
}

// ListRuns 최신순 목록 (losses 제외)
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, scenario_id, config_hash, params_json, summary_json, metrics_json, created_at
		 FROM simulation_runs ORDER BY created_at DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run                      Run
			params, summary, metrics string
			createdAt                string
		)
		if err := rows.Scan(&run.ID, &run.ScenarioID, &run.ConfigHash, &params, &summary, &metrics, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := unmarshalRun(&run, []byte(params), []byte(summary), []byte(metrics)); err != nil {
			return nil, err
		}
		if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Close closes the underlying database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// =============================================================================
// Encoding helpers (shared with postgres)
// =============================================================================

func marshalRun(run Run) (params, summary, metrics []byte, err error) {
	if params, err = json.Marshal(run.Params); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal params: %w", err)
	}
	if summary, err = json.Marshal(run.Summary); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal summary: %w", err)
	}
	if metrics, err = json.Marshal(run.RiskMetrics); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal metrics: %w", err)
	}
	return params, summary, metrics, nil
}

func unmarshalRun(run *Run, params, summary, metrics []byte) error {
	if err := json.Unmarshal(params, &run.Params); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	if err := json.Unmarshal(summary, &run.Summary); err != nil {
		return fmt.Errorf("decode summary: %w", err)
	}
	if err := json.Unmarshal(metrics, &run.RiskMetrics); err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}
	return nil
}

// little-endian float64, 8 bytes per value
func encodeLosses(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeLosses(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}
