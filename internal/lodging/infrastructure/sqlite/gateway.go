package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	lodging "lodging-ledger/internal/lodging/domain"
)

var _ lodging.Gateway = (*Gateway)(nil)

const profileRowID = 1

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profile (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	name TEXT NOT NULL DEFAULT '',
	default_location TEXT NOT NULL DEFAULT '',
	daily_rate TEXT NOT NULL DEFAULT '0',
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS months (
	month_key TEXT PRIMARY KEY,
	days TEXT NOT NULL DEFAULT '{}',
	closed INTEGER NOT NULL DEFAULT 0,
	computed_amount TEXT,
	paid_amount TEXT,
	updated_at TEXT NOT NULL
)`,
}

// Gateway stores the document in an embedded SQLite database.
type Gateway struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path and migrates it.
func Open(ctx context.Context, path string) (*Gateway, error) {
	if path == "" {
		return nil, errors.New("sqlite gateway: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite gateway: create directory: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite gateway: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	gw := NewGateway(db)
	if err := gw.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return gw, nil
}

// NewGateway wraps an open database.
func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{db: db}
}

// DB returns the underlying database.
func (g *Gateway) DB() *sql.DB { return g.db }

// Close closes the database.
func (g *Gateway) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

// Migrate creates the tables.
func (g *Gateway) Migrate(ctx context.Context) error {
	if g == nil || g.db == nil {
		return errors.New("sqlite gateway: nil db")
	}
	for _, stmt := range migrations {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite gateway: migrate: %w", err)
		}
	}
	return nil
}

// Load reads the profile row and every month row.
func (g *Gateway) Load(ctx context.Context) (*lodging.Document, error) {
	if g == nil || g.db == nil {
		return nil, errors.New("sqlite gateway: nil db")
	}
	doc := lodging.NewDocument()

	var name, location, rate string
	row := g.db.QueryRowContext(ctx, `SELECT name, default_location, daily_rate FROM profile WHERE id = ?`, profileRowID)
	switch err := row.Scan(&name, &location, &rate); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("sqlite gateway: load profile: %w", err)
	default:
		dailyRate, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("sqlite gateway: profile daily rate %q: %w", rate, err)
		}
		doc.User = lodging.Profile{Name: name, DefaultLocation: location, DailyRate: dailyRate}
	}

	rows, err := g.db.QueryContext(ctx, `SELECT month_key, days, closed, computed_amount, paid_amount FROM months ORDER BY month_key`)
	if err != nil {
		return nil, fmt.Errorf("sqlite gateway: load months: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key      string
			days     string
			closed   bool
			computed sql.NullString
			paid     sql.NullString
		)
		if err := rows.Scan(&key, &days, &closed, &computed, &paid); err != nil {
			return nil, fmt.Errorf("sqlite gateway: scan month: %w", err)
		}
		record, err := decodeMonth(days, closed, computed, paid)
		if err != nil {
			return nil, fmt.Errorf("sqlite gateway: month %s: %w", key, err)
		}
		doc.Months[lodging.MonthKey(key)] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite gateway: load months: %w", err)
	}
	return doc, nil
}

// Save replaces the stored document inside one transaction.
func (g *Gateway) Save(ctx context.Context, doc *lodging.Document) error {
	if g == nil || g.db == nil {
		return errors.New("sqlite gateway: nil db")
	}
	if doc == nil {
		return lodging.ErrNilDocument
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite gateway: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO profile (id, name, default_location, daily_rate, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	default_location = excluded.default_location,
	daily_rate = excluded.daily_rate,
	updated_at = excluded.updated_at`,
		profileRowID, doc.User.Name, doc.User.DefaultLocation, doc.User.DailyRate.String(), now)
	if err != nil {
		return fmt.Errorf("sqlite gateway: save profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM months`); err != nil {
		return fmt.Errorf("sqlite gateway: clear months: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO months (month_key, days, closed, computed_amount, paid_amount, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite gateway: prepare month insert: %w", err)
	}
	defer stmt.Close()
	for _, key := range doc.Months.Keys() {
		record := doc.Months[key]
		if record == nil {
			continue
		}
		days, err := json.Marshal(record.Days)
		if err != nil {
			return fmt.Errorf("sqlite gateway: encode days %s: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, key.String(), string(days), record.Closed, nullAmount(record.ComputedAmount), nullAmount(record.PaidAmount), now); err != nil {
			return fmt.Errorf("sqlite gateway: save month %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite gateway: commit: %w", err)
	}
	return nil
}

func decodeMonth(days string, closed bool, computed, paid sql.NullString) (*lodging.MonthRecord, error) {
	record := lodging.NewMonthRecord()
	if days != "" {
		if err := json.Unmarshal([]byte(days), &record.Days); err != nil {
			return nil, err
		}
	}
	record.Closed = closed
	var err error
	if record.ComputedAmount, err = parseNullAmount(computed); err != nil {
		return nil, err
	}
	if record.PaidAmount, err = parseNullAmount(paid); err != nil {
		return nil, err
	}
	return record, nil
}

func nullAmount(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullAmount(value sql.NullString) (*decimal.Decimal, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
