package sqlsource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/illmade-knight/go-batch/pkg/types"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DefaultDriver is the database/sql driver used when none is configured.
const DefaultDriver = "sqlite3"

// DBConfig holds the connection settings for the persons database.
type DBConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Variant is the persons query variant, see QueryVariant.
	Variant QueryVariant `yaml:"query_variant"`
}

// OpenDB opens the database and checks the connection.
func OpenDB(ctx context.Context, cfg *DBConfig, logger zerolog.Logger) (*sql.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DefaultDriver
	}
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database %q: %w", driver, cfg.DSN, err)
	}
	logger.Info().Str("driver", driver).Str("dsn", cfg.DSN).Msg("Connected to persons database")
	return db, nil
}

const personsTable = `
CREATE TABLE IF NOT EXISTS persons (
	id INTEGER PRIMARY KEY,
	first_name TEXT,
	last_name TEXT,
	email TEXT
);
`

// EnsureSchema creates the persons table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, personsTable); err != nil {
		return fmt.Errorf("failed to create persons table: %w", err)
	}
	return nil
}

// InsertPersons writes people in a single transaction.
func InsertPersons(ctx context.Context, db *sql.DB, people []types.Person) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO persons (id, first_name, last_name, email) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range people {
		if _, err = stmt.ExecContext(ctx, p.ID, p.FirstName, p.LastName, p.Email); err != nil {
			return fmt.Errorf("failed to insert person %d: %w", p.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit persons: %w", err)
	}
	return nil
}
