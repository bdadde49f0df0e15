package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sitevisit/report-server-go/internal/database"
	"github.com/sitevisit/report-server-go/internal/model"
)

// ledgerLockID keys the advisory lock that serializes ledger updates.
const ledgerLockID = 7319

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS access_codes (
	code           TEXT PRIMARY KEY,
	assigned_to    TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL,
	is_valid       BOOLEAN NOT NULL DEFAULT TRUE,
	uses_remaining INTEGER NOT NULL DEFAULT 0,
	last_used      TIMESTAMPTZ,
	notes          TEXT NOT NULL DEFAULT '',
	access_level   TEXT NOT NULL DEFAULT 'standard'
);

CREATE TABLE IF NOT EXISTS access_logs (
	id          UUID PRIMARY KEY,
	access_code TEXT NOT NULL,
	username    TEXT NOT NULL,
	action      TEXT NOT NULL,
	logged_at   TIMESTAMPTZ NOT NULL
);
`

// PostgresStore persists the ledger in Postgres. Each Update runs inside a
// transaction holding an exclusive advisory lock, giving the same
// no-lost-updates guarantee as the file store while letting reads share.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(ctx context.Context, db *database.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, ledgerSchema); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) View(ctx context.Context, fn func(l *model.Ledger) error) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock_shared($1)`, ledgerLockID); err != nil {
			return fmt.Errorf("acquire shared ledger lock: %w", err)
		}
		ledger, err := loadLedger(ctx, tx)
		if err != nil {
			return err
		}
		return fn(ledger)
	})
}

func (s *PostgresStore) Update(ctx context.Context, fn func(l *model.Ledger) error) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockID); err != nil {
			return fmt.Errorf("acquire ledger lock: %w", err)
		}
		ledger, err := loadLedger(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(ledger); err != nil {
			return err
		}
		return saveLedger(ctx, tx, ledger)
	})
}

type codeRow struct {
	Code          string           `db:"code"`
	AssignedTo    string           `db:"assigned_to"`
	Email         string           `db:"email"`
	CreatedAt     model.Timestamp  `db:"created_at"`
	ExpiresAt     model.Timestamp  `db:"expires_at"`
	IsValid       bool             `db:"is_valid"`
	UsesRemaining int              `db:"uses_remaining"`
	LastUsed      *model.Timestamp `db:"last_used"`
	Notes         string           `db:"notes"`
	AccessLevel   string           `db:"access_level"`
}

type logRow struct {
	ID         string          `db:"id"`
	AccessCode string          `db:"access_code"`
	Username   string          `db:"username"`
	Action     string          `db:"action"`
	LoggedAt   model.Timestamp `db:"logged_at"`
}

func loadLedger(ctx context.Context, tx *sqlx.Tx) (*model.Ledger, error) {
	var codeRows []codeRow
	if err := tx.SelectContext(ctx, &codeRows, `SELECT * FROM access_codes`); err != nil {
		return nil, fmt.Errorf("load access codes: %w", err)
	}

	var logRows []logRow
	if err := tx.SelectContext(ctx, &logRows, `SELECT * FROM access_logs`); err != nil {
		return nil, fmt.Errorf("load access logs: %w", err)
	}

	ledger := model.NewLedger()
	for _, row := range codeRows {
		ledger.Codes[row.Code] = model.AccessCode{
			AssignedTo:    row.AssignedTo,
			Email:         row.Email,
			CreatedAt:     row.CreatedAt,
			ExpiresAt:     row.ExpiresAt,
			IsValid:       row.IsValid,
			UsesRemaining: row.UsesRemaining,
			LastUsed:      row.LastUsed,
			Notes:         row.Notes,
			AccessLevel:   model.AccessLevel(row.AccessLevel),
		}
	}
	for _, row := range logRows {
		ledger.Logs[row.ID] = model.AccessLogEntry{
			AccessCode: row.AccessCode,
			User:       row.Username,
			Action:     row.Action,
			Timestamp:  row.LoggedAt,
		}
	}

	return ledger, nil
}

// saveLedger writes the mutated ledger back. Codes are upserted (they are
// never physically deleted) and log entries are append-only, so an insert
// that hits an existing id is a no-op.
func saveLedger(ctx context.Context, tx *sqlx.Tx, l *model.Ledger) error {
	for code, data := range l.Codes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO access_codes
				(code, assigned_to, email, created_at, expires_at, is_valid, uses_remaining, last_used, notes, access_level)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (code) DO UPDATE SET
				assigned_to = EXCLUDED.assigned_to,
				email = EXCLUDED.email,
				expires_at = EXCLUDED.expires_at,
				is_valid = EXCLUDED.is_valid,
				uses_remaining = EXCLUDED.uses_remaining,
				last_used = EXCLUDED.last_used,
				notes = EXCLUDED.notes,
				access_level = EXCLUDED.access_level
		`, code, data.AssignedTo, data.Email, data.CreatedAt, data.ExpiresAt,
			data.IsValid, data.UsesRemaining, data.LastUsed, data.Notes, string(data.AccessLevel))
		if err != nil {
			return fmt.Errorf("save access code %s: %w", code, err)
		}
	}

	for id, entry := range l.Logs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO access_logs (id, access_code, username, action, logged_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, id, entry.AccessCode, entry.User, entry.Action, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("save access log %s: %w", id, err)
		}
	}

	return nil
}
