package checks

import (
	"fmt"
	"strings"
	"sync"

	"manhole-tracker/core/database"
	"manhole-tracker/feature/tracker"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// HistoryReport strictly types the result of a run history schema check.
type HistoryReport struct {
	Table          string   `json:"table"`
	Matched        bool     `json:"matched"`
	MissingColumns []string `json:"missing_columns"`
	TypeMismatches []string `json:"type_mismatches"`
	Errors         []string `json:"errors"`
}

// CheckRunHistory verifies that the run history table matches the Run model.
func CheckRunHistory(db *gorm.DB) (*HistoryReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	sch, err := schema.Parse(&tracker.Run{}, &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run model: %w", err)
	}

	report := &HistoryReport{
		Table:          sch.Table,
		Matched:        true,
		MissingColumns: []string{},
		TypeMismatches: []string{},
		Errors:         []string{},
	}

	missing, err := database.MissingColumns(db, sch.Table, sch.DBNames)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		report.Matched = false
		return report, nil
	}
	if len(missing) > 0 {
		report.MissingColumns = missing
		report.Matched = false
	}

	actual, err := database.GetTableColumns(db, sch.Table)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		report.Matched = false
		return report, nil
	}
	types := make(map[string]string, len(actual))
	for _, col := range actual {
		types[col.Field] = col.Type
	}

	// only columns with an explicit type tag are compared
	for _, field := range sch.Fields {
		expected := strings.ToLower(field.TagSettings["TYPE"])
		got, ok := types[strings.ToLower(field.DBName)]
		if expected == "" || !ok {
			continue
		}
		if !strings.Contains(got, expected) {
			report.TypeMismatches = append(report.TypeMismatches,
				fmt.Sprintf("%s: expected %s, got %s", field.DBName, expected, got))
			report.Matched = false
		}
	}

	return report, nil
}
