// Package database handles the optional run history connection and schema inspection.
//
// It wraps GORM to open either MySQL or SQLite from the application's configuration.
// SQLite is the default so the history works without a server; MySQL is used when
// several hosts share one history.
//
// # Connect
//
// Connect opens and pings the database. The history is optional, so callers log a
// failure and continue without it.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read the live table layout. The integrity
// check uses them to verify that the scan_runs table matches the Run model.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Warn("Run history disabled", zap.Error(err))
//	}
//
//	missing, err := database.MissingColumns(db, "scan_runs", []string{"id", "source"})
package database
