package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies all up migrations to the database at dbPath. An empty
// migrationsPath uses the migrations compiled into the binary.
func RunMigrations(dbPath, migrationsPath string) error {
	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return RunMigrationsWithDB(db, migrationsPath)
}

// RunMigrationsWithDB allows reuse of an existing *sql.DB.
func RunMigrationsWithDB(db *sql.DB, migrationsPath string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}

	var m *migrate.Migrate
	if migrationsPath == "" {
		src, err := iofs.New(migrationsFS, "migrations")
		if err != nil {
			return fmt.Errorf("open embedded migrations: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite3", driver)
		if err != nil {
			return err
		}
	} else {
		m, err = migrate.NewWithDatabaseInstance(
			fmt.Sprintf("file://%s", migrationsPath),
			"sqlite3",
			driver,
		)
		if err != nil {
			return err
		}
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
