package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ysaito/spotbot/internal/domain"
)

// SQLiteStore is the local backend: one open-position row per symbol and an
// append-only trade log, in a single database file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			symbol TEXT PRIMARY KEY,
			entry_price REAL NOT NULL,
			amount REAL NOT NULL,
			entry_time DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trade_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			action TEXT NOT NULL,
			symbol TEXT NOT NULL,
			amount REAL NOT NULL,
			price REAL NOT NULL,
			balance_quote REAL NOT NULL,
			balance_base REAL NOT NULL,
			signal TEXT NOT NULL,
			order_id TEXT
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// PositionStore implementation

func (s *SQLiteStore) Save(ctx context.Context, symbol string, entryPrice, amount float64) error {
	query := `INSERT INTO positions (symbol, entry_price, amount, entry_time)
			  VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			  ON CONFLICT(symbol) DO UPDATE SET
			  entry_price=excluded.entry_price,
			  amount=excluded.amount,
			  entry_time=excluded.entry_time`
	_, err := s.db.ExecContext(ctx, query, symbol, entryPrice, amount)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, symbol string) (*domain.Position, error) {
	query := `SELECT symbol, entry_price, amount, entry_time FROM positions WHERE symbol = ?`
	row := s.db.QueryRowContext(ctx, query, symbol)

	var p domain.Position
	err := row.Scan(&p.Symbol, &p.EntryPrice, &p.Amount, &p.EntryTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) Clear(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE symbol = ?`, symbol)
	return err
}

// TradeLogger implementation

func (s *SQLiteStore) Log(ctx context.Context, e domain.TradeLogEntry) error {
	query := `INSERT INTO trade_logs (timestamp, action, symbol, amount, price, balance_quote, balance_base, signal, order_id)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		e.Timestamp, string(e.Action), e.Symbol, e.Amount, e.Price,
		e.QuoteBalance, e.BaseBalance, string(e.Signal), e.OrderID)
	return err
}

// TradeHistory implementation

func (s *SQLiteStore) RecentTrades(ctx context.Context, limit int) ([]domain.TradeLogEntry, error) {
	query := `SELECT timestamp, action, symbol, amount, price, balance_quote, balance_base, signal, order_id
			  FROM trade_logs ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TradeLogEntry
	for rows.Next() {
		var e domain.TradeLogEntry
		var action, signal string
		if err := rows.Scan(&e.Timestamp, &action, &e.Symbol, &e.Amount, &e.Price,
			&e.QuoteBalance, &e.BaseBalance, &signal, &e.OrderID); err != nil {
			return nil, err
		}
		e.Action = domain.Action(action)
		e.Signal = domain.Signal(signal)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
