package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"manhole-tracker/core/database"
	"manhole-tracker/core/record"
	"manhole-tracker/core/scan"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMemoryStore(t *testing.T) *RunStore {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	store := NewRunStore(db)
	require.NoError(t, store.Migrate())
	return store
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func sampleSummary(id string, started time.Time) *Summary {
	diff := record.NewDiff()
	diff.Added = []string{"4", "5"}
	diff.Removed = []string{"2"}
	diff.Changed = map[string][]string{"1": {"title"}}
	return &Summary{
		RunID:      id,
		Source:     "pokefuta",
		Window:     scan.Window{Min: 1, Max: 10},
		Diff:       diff,
		Report:     scan.Report{Visited: 10, Found: 6, Absent: 3, Failed: 1},
		Records:    7,
		Active:     6,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
}

func TestNewRun(t *testing.T) {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	run, err := NewRun(sampleSummary("run-1", started))
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 1, run.WindowMin)
	assert.Equal(t, 10, run.WindowMax)
	assert.Equal(t, 2, run.Added)
	assert.Equal(t, 1, run.Removed)
	assert.Equal(t, 1, run.Changed)
	assert.Equal(t, 0, run.Resurrected)
	assert.Equal(t, 1, run.Failed)
	assert.JSONEq(t, `{"added":["4","5"],"removed":["2"],"changed":{"1":["title"]},"resurrected":[]}`, run.Diff)
}

func TestRunStore_SQLite(t *testing.T) {
	store := setupMemoryStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.Record(ctx, sampleSummary(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)

	run, err := store.Get(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, "pokefuta", run.Source)
	assert.Equal(t, 10, run.Visited)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunStore_RecordMySQL(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewRunStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `scan_runs`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.Record(context.Background(), sampleSummary("run-1", time.Now()))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStore_RecordMySQLError(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewRunStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `scan_runs`").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Record(context.Background(), sampleSummary("run-1", time.Now()))
	assert.ErrorContains(t, err, "run-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStore_GetMySQLNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewRunStore(db)

	mock.ExpectQuery("SELECT \\* FROM `scan_runs` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_RecordsRunHistory(t *testing.T) {
	store := setupMemoryStore(t)
	site := newSite(map[int]string{1: "A"})
	svc, _ := newTestService(t, site, WithRunStore(store))

	summary, err := svc.Scan(context.Background(), window(1, 2))
	require.NoError(t, err)

	runs, err := svc.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	assert.Equal(t, 1, runs[0].Added)
	assert.Equal(t, 2, runs[0].Visited)

	run, err := svc.Run(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, "pages", run.Source)
}
