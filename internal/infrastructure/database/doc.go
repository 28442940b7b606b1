// Package database provides the device's local SQLite store.
//
// The store keeps state that must survive a restart: the generated device
// identity when no hardware id is available, and the journal of received
// commands and failed platform calls.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are embedded .sql files named
// YYYYMMDD_HHMMSS_description.up.sql with an optional matching .down.sql.
// Each runs in its own transaction and is recorded in schema_migrations.
package database
