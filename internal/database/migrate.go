package database

import (
	"database/sql"
	"fmt"
	"log"
)

// getSchemaVersion reads PRAGMA user_version from the database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// pendingMigrations returns the migrations above version, in order. A database
// stamped with a version this build does not know is an error: opening it
// could silently drop completion state written by a newer morningbrief.
func pendingMigrations(version int) ([]Migration, error) {
	latest := latestVersion()
	if version > latest {
		return nil, fmt.Errorf("database schema version %d is newer than this build (%d)", version, latest)
	}

	var pending []Migration
	for _, m := range migrations {
		if m.Version > version {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// migrate applies every pending migration, each in its own transaction.
func migrate(conn *sql.DB) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	pending, err := pendingMigrations(current)
	if err != nil {
		return err
	}

	for _, m := range pending {
		log.Printf("Applying migration %d: %s", m.Version, m.Description)

		if err := inTx(conn, m.Up); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		// modernc/sqlite ignores user_version set inside a transaction. The DDL
		// is idempotent, so a crash before this line just re-runs the step.
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}

	return nil
}
