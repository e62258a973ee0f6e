package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	lodging "lodging-ledger/internal/lodging/domain"
)

var _ lodging.Gateway = (*Gateway)(nil)

const (
	defaultProfileTable = "lodging_profile"
	defaultMonthsTable  = "lodging_months"
	profileRowID        = 1
)

// Gateway stores the document in Postgres.
type Gateway struct {
	db           *sql.DB
	profileTable string
	monthsTable  string
}

// GatewayOption configures the gateway.
type GatewayOption func(*Gateway)

// WithTablePrefix replaces the "lodging_" table prefix.
func WithTablePrefix(prefix string) GatewayOption {
	return func(g *Gateway) {
		if prefix != "" {
			g.profileTable = prefix + "profile"
			g.monthsTable = prefix + "months"
		}
	}
}

// Open connects with the pgx driver and migrates the schema.
func Open(ctx context.Context, dsn string, opts ...GatewayOption) (*Gateway, error) {
	if dsn == "" {
		return nil, errors.New("postgres gateway: empty dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres gateway: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres gateway: ping: %w", err)
	}
	gw := NewGateway(db, opts...)
	if err := gw.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return gw, nil
}

// NewGateway wraps an open database.
func NewGateway(db *sql.DB, opts ...GatewayOption) *Gateway {
	gw := &Gateway{
		db:           db,
		profileTable: defaultProfileTable,
		monthsTable:  defaultMonthsTable,
	}
	for _, opt := range opts {
		opt(gw)
	}
	return gw
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
		return errors.New("postgres gateway: nil db")
	}
	stmts := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id SMALLINT PRIMARY KEY CHECK (id = 1),
	name TEXT NOT NULL DEFAULT '',
	default_location TEXT NOT NULL DEFAULT '',
	daily_rate NUMERIC(14,2) NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, g.profileTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	month_key CHAR(7) PRIMARY KEY,
	days JSONB NOT NULL DEFAULT '{}'::jsonb,
	closed BOOLEAN NOT NULL DEFAULT FALSE,
	computed_amount NUMERIC(14,2),
	paid_amount NUMERIC(14,2),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, g.monthsTable),
	}
	for _, stmt := range stmts {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres gateway: migrate: %w", err)
		}
	}
	return nil
}

// Load reads the profile row and every month row.
func (g *Gateway) Load(ctx context.Context) (*lodging.Document, error) {
	if g == nil || g.db == nil {
		return nil, errors.New("postgres gateway: nil db")
	}
	doc := lodging.NewDocument()

	query := fmt.Sprintf(`
SELECT name, default_location, daily_rate::text
FROM %s
WHERE id = $1`, g.profileTable)
	var name, location, rate string
	switch err := g.db.QueryRowContext(ctx, query, profileRowID).Scan(&name, &location, &rate); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("postgres gateway: load profile: %w", err)
	default:
		dailyRate, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("postgres gateway: profile daily rate %q: %w", rate, err)
		}
		doc.User = lodging.Profile{Name: name, DefaultLocation: location, DailyRate: dailyRate}
	}

	query = fmt.Sprintf(`
SELECT month_key, days::text, closed, computed_amount::text, paid_amount::text
FROM %s
ORDER BY month_key`, g.monthsTable)
	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres gateway: load months: %w", err)
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
			return nil, fmt.Errorf("postgres gateway: scan month: %w", err)
		}
		record, err := scanMonth(days, closed, computed, paid)
		if err != nil {
			return nil, fmt.Errorf("postgres gateway: month %s: %w", key, err)
		}
		doc.Months[lodging.MonthKey(key)] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres gateway: load months: %w", err)
	}
	return doc, nil
}

// Save upserts every month, deletes months no longer present and upserts
// the profile, all in one transaction.
func (g *Gateway) Save(ctx context.Context, doc *lodging.Document) error {
	if g == nil || g.db == nil {
		return errors.New("postgres gateway: nil db")
	}
	if doc == nil {
		return lodging.ErrNilDocument
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres gateway: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	profileQuery := fmt.Sprintf(`
INSERT INTO %s (id, name, default_location, daily_rate, updated_at)
VALUES ($1, $2, $3, $4::numeric, NOW())
ON CONFLICT (id)
DO UPDATE SET
	name = EXCLUDED.name,
	default_location = EXCLUDED.default_location,
	daily_rate = EXCLUDED.daily_rate,
	updated_at = NOW()`, g.profileTable)
	if _, err := tx.ExecContext(ctx, profileQuery, profileRowID, doc.User.Name, doc.User.DefaultLocation, doc.User.DailyRate.String()); err != nil {
		return fmt.Errorf("postgres gateway: save profile: %w", err)
	}

	keys := doc.Months.Keys()
	names := make([]string, 0, len(keys))
	monthQuery := fmt.Sprintf(`
INSERT INTO %s (month_key, days, closed, computed_amount, paid_amount, updated_at)
VALUES ($1, $2::jsonb, $3, $4::numeric, $5::numeric, NOW())
ON CONFLICT (month_key)
DO UPDATE SET
	days = EXCLUDED.days,
	closed = EXCLUDED.closed,
	computed_amount = EXCLUDED.computed_amount,
	paid_amount = EXCLUDED.paid_amount,
	updated_at = NOW()`, g.monthsTable)
	for _, key := range keys {
		record := doc.Months[key]
		if record == nil {
			continue
		}
		days, err := json.Marshal(record.Days)
		if err != nil {
			return fmt.Errorf("postgres gateway: encode days %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, monthQuery, key.String(), string(days), record.Closed, nullAmount(record.ComputedAmount), nullAmount(record.PaidAmount)); err != nil {
			return fmt.Errorf("postgres gateway: save month %s: %w", key, err)
		}
		names = append(names, key.String())
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE NOT (month_key = ANY($1::text[]))`, g.monthsTable)
	if _, err := tx.ExecContext(ctx, deleteQuery, names); err != nil {
		return fmt.Errorf("postgres gateway: prune months: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres gateway: commit: %w", err)
	}
	return nil
}

func scanMonth(days string, closed bool, computed, paid sql.NullString) (*lodging.MonthRecord, error) {
	record := lodging.NewMonthRecord()
	if days != "" {
		if err := json.Unmarshal([]byte(days), &record.Days); err != nil {
			return nil, err
		}
	}
	record.Closed = closed
	var err error
	if record.ComputedAmount, err = parseAmount(computed); err != nil {
		return nil, err
	}
	if record.PaidAmount, err = parseAmount(paid); err != nil {
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

func parseAmount(value sql.NullString) (*decimal.Decimal, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
