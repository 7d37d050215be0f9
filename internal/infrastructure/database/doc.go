// Package database provides SQLite persistence for Halo Bridge.
//
// It wraps database/sql with lifecycle management, health checks, and
// embedded schema migrations. The database stores the tracked-lock mirror
// so restarts warm-start from the last known remote state.
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are embedded by the top-level migrations package and
// named YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
package database
