package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS seen_transactions (
		account        TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		PRIMARY KEY (account, transaction_id)
	)`

// Repository keeps SeenState in a SQL table (postgres or sqlite)
type Repository struct {
	db     *sql.DB
	driver string
}

// NewRepository wraps an open database. driver is "postgres" or "sqlite".
func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{db: db, driver: driver}
}

// OpenRepository connects to the database and creates the table if needed
func OpenRepository(ctx context.Context, driver, dsn string) (*Repository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	r := NewRepository(db, driver)
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Migrate creates the seen_transactions table
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create seen_transactions table: %w", err)
	}
	return nil
}

// Load reads every persisted id
func (r *Repository) Load(ctx context.Context, accounts []string) (SeenState, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT account, transaction_id FROM seen_transactions`)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen transactions: %w", err)
	}
	defer rows.Close()

	state := NewSeenState(accounts)
	for rows.Next() {
		var account, id string
		if err := rows.Scan(&account, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		state.Add(account, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load seen transactions: %w", err)
	}
	return state, nil
}

// Save replaces the table contents with state in one transaction
func (r *Repository) Save(ctx context.Context, state SeenState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_transactions`); err != nil {
		return fmt.Errorf("failed to clear seen transactions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, r.insertQuery())
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for account := range state {
		for _, id := range state.IDs(account) {
			if _, err := stmt.ExecContext(ctx, account, id); err != nil {
				return fmt.Errorf("failed to save transaction %s for %s: %w", id, account, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seen transactions: %w", err)
	}
	return nil
}

func (r *Repository) insertQuery() string {
	if r.driver == "postgres" {
		return `INSERT INTO seen_transactions (account, transaction_id) VALUES ($1, $2)`
	}
	return `INSERT INTO seen_transactions (account, transaction_id) VALUES (?, ?)`
}

func (r *Repository) Close() error {
	return r.db.Close()
}
