package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/quakelab/ddlocate/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	label      TEXT NOT NULL,
	doublet    JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	solution   JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, doublet model.Doublet) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	doubletJSON, err := json.Marshal(doublet)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal doublet")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, label, doublet, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, doublet.Label, doubletJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Doublet:   doublet,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunSolution(ctx context.Context, runID string, sol *model.Solution, runErr string) error {
	status := model.RunStatusComplete
	if runErr != "" {
		status = model.RunStatusFailed
	}

	var solJSON []byte
	if sol != nil {
		var err error
		solJSON, err = json.Marshal(sol)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal solution")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET solution = $1, error = $2, status = $3, updated_at = $4 WHERE id = $5`,
		solJSON, runErr, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run solution %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, doublet, status, solution, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	run, err := scanPostgresRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, doublet, status, solution, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Label != "" {
		args = append(args, filter.Label)
		query += ` AND label = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate runs")
	}
	return runs, nil
}

func scanPostgresRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var doubletJSON, solJSON []byte
	var errMsg *string
	var status string

	if err := row.Scan(&run.ID, &doubletJSON, &status, &solJSON, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	run.Status = model.RunStatus(status)
	if err := json.Unmarshal(doubletJSON, &run.Doublet); err != nil {
		return nil, eris.Wrap(err, "unmarshal doublet")
	}
	if len(solJSON) > 0 {
		var sol model.Solution
		if err := json.Unmarshal(solJSON, &sol); err != nil {
			return nil, eris.Wrap(err, "unmarshal solution")
		}
		run.Solution = &sol
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	return &run, nil
}
