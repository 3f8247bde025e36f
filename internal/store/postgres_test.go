package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakelab/ddlocate/internal/model"
)

func testPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresMigrate(t *testing.T) {
	t.Parallel()
	s, mock := testPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRun(t *testing.T) {
	t.Parallel()
	s, mock := testPostgres(t)
	doublet := testDoublet("ridgecrest")
	doubletJSON, err := json.Marshal(doublet)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "ridgecrest", doubletJSON, "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), doublet)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatus(t *testing.T) {
	t.Parallel()
	s, mock := testPostgres(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("running", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.UpdateRunStatus(context.Background(), "run-1", model.RunStatusRunning))

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("running", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorContains(t, s.UpdateRunStatus(context.Background(), "missing", model.RunStatusRunning), "not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunSolution(t *testing.T) {
	t.Parallel()
	s, mock := testPostgres(t)

	sol := &model.Solution{
		Offset:    model.Offset{DxKm: 0.5},
		Status:    model.StatusConverged,
		Converged: true,
	}
	solJSON, err := json.Marshal(sol)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE runs SET solution").
		WithArgs(solJSON, "", "complete", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.UpdateRunSolution(context.Background(), "run-1", sol, ""))

	// A run error marks the row failed and stores no solution.
	mock.ExpectExec("UPDATE runs SET solution").
		WithArgs([]byte(nil), "singular system", "failed", pgxmock.AnyArg(), "run-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.UpdateRunSolution(context.Background(), "run-2", nil, "singular system"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	t.Parallel()
	s, mock := testPostgres(t)

	doublet := testDoublet("ridgecrest")
	doubletJSON, err := json.Marshal(doublet)
	require.NoError(t, err)
	sol := &model.Solution{Offset: model.Offset{DxKm: 1.1}, Status: model.StatusConverged}
	solJSON, err := json.Marshal(sol)
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, doublet, status, solution, error, created_at, updated_at FROM runs").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "doublet", "status", "solution", "error", "created_at", "updated_at"}).
			AddRow("run-1", doubletJSON, "complete", solJSON, (*string)(nil), now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "ridgecrest", run.Doublet.Label)
	require.NotNil(t, run.Solution)
	assert.InDelta(t, 1.1, run.Solution.Offset.DxKm, 1e-9)
	assert.Empty(t, run.Error)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRuns(t *testing.T) {
	t.Parallel()
	s, mock := testPostgres(t)

	doubletJSON, err := json.Marshal(testDoublet("alpha"))
	require.NoError(t, err)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(
		[]string{"id", "doublet", "status", "solution", "error", "created_at", "updated_at"}).
		AddRow("run-1", doubletJSON, "complete", []byte(nil), (*string)(nil), now, now).
		AddRow("run-2", doubletJSON, "failed", []byte(nil), ptr("boom"), now, now)

	mock.ExpectQuery("SELECT id, doublet, status, solution, error, created_at, updated_at FROM runs").
		WithArgs("alpha", 10).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Label: "alpha", Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, "boom", runs[1].Error)
	assert.Nil(t, runs[0].Solution)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func ptr(s string) *string { return &s }
