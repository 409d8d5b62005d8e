package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/economy"
)

const (
	providerName    = "ledger"
	providerVersion = "1.0.0"

	kindWithdraw = "withdraw"
	kindDeposit  = "deposit"
)

// Provider is a local sqlite backed economy. Every balance change is
// appended to the transactions table.
type Provider struct {
	db       *sql.DB
	priority int
	starting decimal.Decimal
}

// Open opens or creates the ledger at cfg.Path. ":memory:" keeps it in
// process.
func Open(cfg *config.LedgerProviderConfig) (*Provider, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Provider{
		db:       db,
		priority: cfg.Priority,
		starting: decimal.NewFromFloat(cfg.StartingBalance),
	}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS balances (
			participant_id TEXT PRIMARY KEY,
			balance TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			participant_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			amount TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_participant ON transactions(participant_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init ledger schema: %w", err)
		}
	}
	return nil
}

func (p *Provider) Close() error {
	return p.db.Close()
}

func (p *Provider) Descriptor() economy.Descriptor {
	return economy.Descriptor{
		Name:     providerName,
		Version:  providerVersion,
		Priority: p.priority,
		Capabilities: []economy.Capability{
			economy.CapabilityTransactionLogging,
			economy.CapabilityEconomyStatistics,
		},
	}
}

func (p *Provider) Available(ctx context.Context) bool {
	return p.db.PingContext(ctx) == nil
}

func (p *Provider) Has(ctx context.Context, participantID string, amount decimal.Decimal) (bool, error) {
	balance, err := p.Balance(ctx, participantID)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(amount), nil
}

func (p *Provider) Balance(ctx context.Context, participantID string) (decimal.Decimal, error) {
	return p.balance(ctx, p.db, participantID)
}

func (p *Provider) Withdraw(ctx context.Context, participantID string, amount decimal.Decimal) error {
	return p.apply(ctx, participantID, kindWithdraw, amount.Neg())
}

func (p *Provider) Deposit(ctx context.Context, participantID string, amount decimal.Decimal) error {
	return p.apply(ctx, participantID, kindDeposit, amount)
}

// Statistics is the total amount moved per transaction kind.
func (p *Provider) Statistics(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT kind, amount FROM transactions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]decimal.Decimal{}
	for rows.Next() {
		var kind, amount string
		if err := rows.Scan(&kind, &amount); err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		totals[kind] = totals[kind].Add(v.Abs())
	}
	return totals, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Provider) balance(ctx context.Context, q querier, participantID string) (decimal.Decimal, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT balance FROM balances WHERE participant_id = ?`, participantID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return p.starting, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// apply moves delta in a single transaction; a withdraw never takes the
// balance below zero.
func (p *Provider) apply(ctx context.Context, participantID, kind string, delta decimal.Decimal) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := p.balance(ctx, tx, participantID)
	if err != nil {
		return err
	}

	next := current.Add(delta)
	if next.IsNegative() {
		return economy.ErrInsufficientBalance
	}

	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balances (participant_id, balance, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(participant_id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		participantID, next.String(), now,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (participant_id, kind, amount, balance_after, created_at) VALUES (?, ?, ?, ?, ?)`,
		participantID, kind, delta.String(), next.String(), now,
	); err != nil {
		return err
	}

	return tx.Commit()
}
