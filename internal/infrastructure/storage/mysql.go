package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ysaito/spotbot/internal/domain"
)

// MySQLStore is the remote backend: the same position and trade-log tables on
// a shared MySQL instance, so the stateless HTTP deployment and the local
// loop see the same entry prices. Enabled by DSN presence in configuration.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(dsn string) (*MySQLStore, error) {
	dsn, err := normalizeDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Minute)

	store := &MySQLStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("mysql schema: %w", err)
	}
	return store, nil
}

// normalizeDSN validates the DSN and forces parseTime on. Without it the
// driver hands DATETIME columns back as []byte, every position Load fails,
// and the tiered store silently degrades to local-only.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (s *MySQLStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			symbol VARCHAR(32) PRIMARY KEY,
			entry_price DOUBLE NOT NULL,
			amount DOUBLE NOT NULL,
			entry_time DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trade_logs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			action VARCHAR(16) NOT NULL,
			symbol VARCHAR(32) NOT NULL,
			amount DOUBLE NOT NULL,
			price DOUBLE NOT NULL,
			balance_quote DOUBLE NOT NULL,
			balance_base DOUBLE NOT NULL,
			` + "`signal`" + ` VARCHAR(16) NOT NULL,
			order_id VARCHAR(64)
		)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *MySQLStore) Close() error { return s.db.Close() }

// PositionStore implementation

func (s *MySQLStore) Save(ctx context.Context, symbol string, entryPrice, amount float64) error {
	query := `INSERT INTO positions (symbol, entry_price, amount, entry_time)
			  VALUES (?, ?, ?, UTC_TIMESTAMP())
			  ON DUPLICATE KEY UPDATE
			  entry_price=VALUES(entry_price),
			  amount=VALUES(amount),
			  entry_time=VALUES(entry_time)`
	_, err := s.db.ExecContext(ctx, query, symbol, entryPrice, amount)
	return err
}

func (s *MySQLStore) Load(ctx context.Context, symbol string) (*domain.Position, error) {
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

func (s *MySQLStore) Clear(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE symbol = ?`, symbol)
	return err
}

// TradeLogger implementation (remote audit mirror)

func (s *MySQLStore) Log(ctx context.Context, e domain.TradeLogEntry) error {
	query := `INSERT INTO trade_logs (timestamp, action, symbol, amount, price, balance_quote, balance_base, ` + "`signal`" + `, order_id)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		e.Timestamp, string(e.Action), e.Symbol, e.Amount, e.Price,
		e.QuoteBalance, e.BaseBalance, string(e.Signal), e.OrderID)
	return err
}
