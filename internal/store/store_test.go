// File: internal/store/store_test.go
package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sightline-ai/sightline/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for
// more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

const (
	sqlInsertRun = `
        INSERT INTO runs (id, goal, outcome, steps, last_error, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `
	sqlInsertStep = `
        INSERT INTO run_steps (run_id, step, plan, summary, success)
        VALUES ($1, $2, $3, $4, $5);
    `
)

func intPtr(v int) *int { return &v }

func testReport() *schemas.RunReport {
	now := time.Now().UTC()
	return &schemas.RunReport{
		RunID:   uuid.NewString(),
		Goal:    "open the settings dialog",
		Outcome: schemas.OutcomeGoalComplete,
		Steps:   2,
		History: schemas.History{
			{
				Step:    0,
				Plan:    &schemas.ActionPlan{Action: schemas.ActionClick, ElementID: intPtr(3)},
				Summary: "click element 3",
				Success: true,
			},
			{
				Step:    1,
				Summary: "planner output unparseable",
				Success: false,
			},
		},
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
	}
}

func TestNewStorePingFailure(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	pingErr := errors.New("connection refused")
	mockPool.ExpectPing().WillReturnError(pingErr)

	_, err = New(context.Background(), mockPool, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, pingErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveRunPersistsRunAndSteps(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing().WillReturnError(nil)
	s, err := New(context.Background(), mockPool, zaptest.NewLogger(t))
	require.NoError(t, err)

	report := testReport()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertRun)).
		WithArgs(report.RunID, report.Goal, string(report.Outcome), report.Steps,
			report.LastError, report.StartedAt.UTC(), report.FinishedAt.UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	batchExp := mockPool.ExpectBatch()
	batchExp.ExpectExec(flexibleSQLMatcher(sqlInsertStep)).
		WithArgs(report.RunID, 0, pgxmock.AnyArg(), "click element 3", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batchExp.ExpectExec(flexibleSQLMatcher(sqlInsertStep)).
		WithArgs(report.RunID, 1, pgxmock.AnyArg(), "planner output unparseable", false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mockPool.ExpectCommit()
	mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	require.NoError(t, s.SaveRun(context.Background(), report))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveRunBeginFailure(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing().WillReturnError(nil)
	s, err := New(context.Background(), mockPool, zaptest.NewLogger(t))
	require.NoError(t, err)

	beginErr := errors.New("pool exhausted")
	mockPool.ExpectBegin().WillReturnError(beginErr)

	err = s.SaveRun(context.Background(), testReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, beginErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveRunStepInsertFailureRollsBack(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing().WillReturnError(nil)
	s, err := New(context.Background(), mockPool, zaptest.NewLogger(t))
	require.NoError(t, err)

	report := testReport()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertRun)).
		WithArgs(report.RunID, report.Goal, string(report.Outcome), report.Steps,
			report.LastError, report.StartedAt.UTC(), report.FinishedAt.UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	insertErr := errors.New("constraint violation")
	batchExp := mockPool.ExpectBatch()
	batchExp.ExpectExec(flexibleSQLMatcher(sqlInsertStep)).
		WithArgs(report.RunID, 0, pgxmock.AnyArg(), "click element 3", true).
		WillReturnError(insertErr)
	// pgxmock requires an expectation for every queued query in the batch;
	// the second step is only drained when the batch results are closed.
	batchExp.ExpectExec(flexibleSQLMatcher(sqlInsertStep)).
		WithArgs(report.RunID, 1, pgxmock.AnyArg(), "planner output unparseable", false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mockPool.ExpectRollback()

	err = s.SaveRun(context.Background(), report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing().WillReturnError(nil)
	s, err := New(context.Background(), mockPool, zaptest.NewLogger(t))
	require.NoError(t, err)

	mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetRunNotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing().WillReturnError(nil)
	s, err := New(context.Background(), mockPool, zaptest.NewLogger(t))
	require.NoError(t, err)

	mockPool.ExpectQuery("SELECT goal, outcome").
		WithArgs("missing-run").
		WillReturnRows(pgxmock.NewRows([]string{
			"goal", "outcome", "steps", "last_error", "started_at", "finished_at",
		}))

	_, err = s.GetRun(context.Background(), "missing-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetRunLoadsHistory(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing().WillReturnError(nil)
	s, err := New(context.Background(), mockPool, zaptest.NewLogger(t))
	require.NoError(t, err)

	started := time.Now().UTC().Add(-time.Minute)
	finished := time.Now().UTC()

	mockPool.ExpectQuery("SELECT goal, outcome").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"goal", "outcome", "steps", "last_error", "started_at", "finished_at",
		}).AddRow("goal text", "budget_exhausted", 1, "", started, finished))

	mockPool.ExpectQuery("SELECT step, plan, summary, success").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"step", "plan", "summary", "success"}).
			AddRow(0, []byte(`{"action":"press_key","key_info":"Enter"}`), "press Enter", true))

	report, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, schemas.OutcomeBudgetExhausted, report.Outcome)
	require.Len(t, report.History, 1)
	require.NotNil(t, report.History[0].Plan)
	assert.Equal(t, schemas.ActionPressKey, report.History[0].Plan.Action)
	assert.Equal(t, "Enter", report.History[0].Plan.Key)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
