package checks

import (
	"testing"

	"manhole-tracker/core/database"
	"manhole-tracker/feature/tracker"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestCheckRunHistory_NilDB(t *testing.T) {
	report, err := CheckRunHistory(nil)
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckRunHistory_Migrated(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, tracker.NewRunStore(db).Migrate())

	report, err := CheckRunHistory(db)
	require.NoError(t, err)
	assert.Equal(t, "scan_runs", report.Table)
	assert.True(t, report.Matched)
	assert.Empty(t, report.MissingColumns)
	assert.Empty(t, report.TypeMismatches)
}

func TestCheckRunHistory_MissingTable(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	report, err := CheckRunHistory(db)
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Contains(t, report.MissingColumns, "id")
	assert.Contains(t, report.MissingColumns, "diff")
}

func TestCheckRunHistory_MySQLMismatch(t *testing.T) {
	db, mock := setupMockDB(t)

	columns := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
			AddRow("id", "varchar(36)", "NO", "PRI", nil, "").
			AddRow("source", "varchar(64)", "YES", "MUL", nil, "").
			AddRow("diff", "varchar(255)", "YES", "", nil, "")
	}
	mock.ExpectQuery("SHOW COLUMNS FROM `scan_runs`").WillReturnRows(columns())
	mock.ExpectQuery("SHOW COLUMNS FROM `scan_runs`").WillReturnRows(columns())

	report, err := CheckRunHistory(db)
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Contains(t, report.MissingColumns, "visited")
	assert.NotContains(t, report.MissingColumns, "source")
	require.Len(t, report.TypeMismatches, 1)
	assert.Contains(t, report.TypeMismatches[0], "diff: expected text")
	assert.NoError(t, mock.ExpectationsWereMet())
}
