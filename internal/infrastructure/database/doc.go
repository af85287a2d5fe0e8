// Package database provides the SQLite persistence layer for SceneSync Core.
//
// It wraps database/sql with lifecycle management (WAL mode, busy timeout,
// single-writer pool sizing), health checks and embedded schema migrations.
// The shadow state store, active-scenario record and activation history all
// persist through this package.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/scenesync.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
