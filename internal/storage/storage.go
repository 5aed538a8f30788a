// Package storage implements the single-file relational store described
// in spec §4.3: schema applied on every open, idempotent column
// migrations, and an instrumented connection that times every statement.
// The connection/schema pattern (WAL pragmas, single writer, schema
// string plus a best-effort ALTER TABLE migration pass) is adapted from
// the teacher's internal/storage/storage.go.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nyx-testnet/nyx-gateway/pkg/logging"
)

// MetricsSink receives query timing observations. The metrics collector
// itself is out of this module's scope (spec §1); this is the seam it
// attaches to.
type MetricsSink interface {
	ObserveQuery(statement string, dur time.Duration, err error)
}

type noopSink struct{}

func (noopSink) ObserveQuery(string, time.Duration, error) {}

// Store wraps a *sql.DB with the timing instrumentation and transaction
// discipline spec §5 requires: one connection-scoped transaction per
// mutating request, a single outer commit/rollback.
type Store struct {
	db     *sql.DB
	log    *logging.Logger
	sink   MetricsSink
	dbPath string
}

// Config configures where the database file lives.
type Config struct {
	DataDir string
	Sink    MetricsSink
	Log     *logging.Logger
}

// Open creates (or reopens) the database file under cfg.DataDir and
// applies the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Log == nil {
		cfg.Log = logging.Default().Component("storage")
	}
	if cfg.Sink == nil {
		cfg.Sink = noopSink{}
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	dbPath := filepath.Join(cfg.DataDir, "nyx_gateway.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping database: %w", err)
	}
	// SQLite serialises writers; a single connection matches the
	// transactional-executor discipline of spec §5 directly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, log: cfg.Log, sink: cfg.Sink, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw *sql.DB for callers that need it directly (migrations,
// maintenance tooling).
func (s *Store) DB() *sql.DB { return s.db }

// exec runs a non-transactional statement with timing instrumentation.
func (s *Store) exec(ctx context.Context, statement string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, statement, args...)
	s.observe(statement, start, err)
	return res, err
}

// query runs a non-transactional query with timing instrumentation.
func (s *Store) query(ctx context.Context, statement string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, statement, args...)
	s.observe(statement, start, err)
	return rows, err
}

func (s *Store) observe(statement string, start time.Time, err error) {
	dur := time.Since(start)
	s.sink.ObserveQuery(statement, dur, err)
	if err != nil {
		s.log.Debug("query failed", "err", err, "dur_ms", dur.Milliseconds())
	}
}

// Tx wraps a *sql.Tx with the same timing instrumentation, used by the
// action router to perform exactly one outer commit or rollback per
// mutating request (spec §5).
type Tx struct {
	tx    *sql.Tx
	store *Store
}

func (t *Tx) Exec(ctx context.Context, statement string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.tx.ExecContext(ctx, statement, args...)
	t.store.observe(statement, start, err)
	return res, err
}

func (t *Tx) Query(ctx context.Context, statement string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.tx.QueryContext(ctx, statement, args...)
	t.store.observe(statement, start, err)
	return rows, err
}

func (t *Tx) QueryRow(ctx context.Context, statement string, args ...any) *sql.Row {
	start := time.Now()
	row := t.tx.QueryRowContext(ctx, statement, args...)
	t.store.observe(statement, start, nil)
	return row
}

// WithTx begins a transaction, invokes fn, and commits iff fn returns nil —
// otherwise the transaction is rolled back. This is the Go-native
// equivalent of the "do-not-commit flag plus single outer commit"
// discipline from spec §4.3/§5.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	tx := &Tx{tx: sqlTx, store: s}
	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS evidence_runs (
	run_id TEXT PRIMARY KEY,
	module TEXT NOT NULL,
	action TEXT NOT NULL,
	seed INTEGER NOT NULL,
	state_hash TEXT NOT NULL,
	receipt_hashes TEXT NOT NULL,
	replay_ok INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS receipts (
	receipt_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	module TEXT NOT NULL,
	action TEXT NOT NULL,
	state_hash TEXT NOT NULL,
	receipt_hashes TEXT NOT NULL,
	replay_ok INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_receipts_run ON receipts(run_id);

CREATE TABLE IF NOT EXISTS fee_ledger (
	fee_id TEXT PRIMARY KEY,
	module TEXT NOT NULL,
	action TEXT NOT NULL,
	protocol_fee_total INTEGER NOT NULL,
	platform_fee_amount INTEGER NOT NULL,
	total_paid INTEGER NOT NULL,
	fee_address TEXT NOT NULL,
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fee_ledger_run ON fee_ledger(run_id);

CREATE TABLE IF NOT EXISTS wallet_accounts (
	address TEXT NOT NULL,
	asset_id TEXT NOT NULL,
	balance INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (address, asset_id)
);

CREATE TABLE IF NOT EXISTS wallet_transfers (
	transfer_id TEXT PRIMARY KEY,
	from_address TEXT NOT NULL,
	to_address TEXT NOT NULL,
	asset_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	fee_total INTEGER NOT NULL,
	treasury_address TEXT NOT NULL,
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wallet_transfers_from ON wallet_transfers(from_address);
CREATE INDEX IF NOT EXISTS idx_wallet_transfers_to ON wallet_transfers(to_address);

CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	owner_address TEXT NOT NULL,
	side TEXT NOT NULL,
	amount INTEGER NOT NULL,
	price INTEGER NOT NULL,
	asset_in TEXT NOT NULL,
	asset_out TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_owner ON orders(owner_address);
CREATE INDEX IF NOT EXISTS idx_orders_status_pair ON orders(status, asset_in, asset_out, price, order_id);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	price INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_order ON trades(order_id);

CREATE TABLE IF NOT EXISTS listings (
	listing_id TEXT PRIMARY KEY,
	publisher_id TEXT NOT NULL,
	sku TEXT NOT NULL,
	title TEXT NOT NULL,
	price INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_publisher ON listings(publisher_id);
CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);

CREATE TABLE IF NOT EXISTS purchases (
	purchase_id TEXT PRIMARY KEY,
	listing_id TEXT NOT NULL,
	buyer_id TEXT NOT NULL,
	qty INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_purchases_buyer ON purchases(buyer_id);
CREATE INDEX IF NOT EXISTS idx_purchases_listing ON purchases(listing_id);

CREATE TABLE IF NOT EXISTS faucet_claims (
	claim_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	address TEXT NOT NULL,
	asset_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	ip TEXT NOT NULL,
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_faucet_account_time ON faucet_claims(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_faucet_ip_time ON faucet_claims(ip, created_at);

CREATE TABLE IF NOT EXISTS airdrop_claims (
	account_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	reward INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (account_id, task_id)
);

CREATE TABLE IF NOT EXISTS portal_accounts (
	account_id TEXT PRIMARY KEY,
	handle TEXT NOT NULL UNIQUE,
	public_key TEXT NOT NULL,
	wallet_address TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'active',
	bio TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS portal_challenges (
	account_id TEXT NOT NULL,
	nonce TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	used INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (account_id, nonce)
);

CREATE TABLE IF NOT EXISTS portal_sessions (
	token_digest TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_account ON portal_sessions(account_id);

CREATE TABLE IF NOT EXISTS e2ee_identities (
	account_id TEXT PRIMARY KEY,
	identity_key TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_rooms (
	room_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	is_public INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	message_id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	sender TEXT NOT NULL,
	body TEXT NOT NULL,
	seq INTEGER NOT NULL,
	prev_digest TEXT NOT NULL,
	msg_digest TEXT NOT NULL,
	chain_head TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_room_seq ON chat_messages(room_id, seq);

CREATE TABLE IF NOT EXISTS messages (
	message_id TEXT PRIMARY KEY,
	channel TEXT NOT NULL,
	sender_account_id TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel, created_at);

CREATE TABLE IF NOT EXISTS entertainment_items (
	item_id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entertainment_events (
	event_id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	step INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entertainment_item ON entertainment_events(item_id);

CREATE TABLE IF NOT EXISTS web2_guard_requests (
	request_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	run_id TEXT NOT NULL,
	safe_url TEXT NOT NULL,
	method TEXT NOT NULL,
	request_hash TEXT NOT NULL,
	response_hash TEXT NOT NULL,
	status INTEGER NOT NULL,
	size INTEGER NOT NULL,
	truncated INTEGER NOT NULL,
	body_size INTEGER NOT NULL,
	header_names TEXT NOT NULL,
	sealed_request TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_web2_account ON web2_guard_requests(account_id);
`

// initSchema applies the base schema and then runs idempotent column
// migrations for databases created by an older version of this binary —
// the same two-step shape (one big CREATE-TABLE-IF-NOT-EXISTS string
// followed by best-effort ALTER TABLE statements) as the teacher's
// storage.go.
func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.runMigrations()
}

// runMigrations adds columns that later revisions of the schema
// introduced. Errors are ignored: sqlite has no "ADD COLUMN IF NOT
// EXISTS", and a duplicate-column error just means the column is already
// present.
func (s *Store) runMigrations() error {
	migrations := []string{
		"ALTER TABLE orders ADD COLUMN owner_address TEXT",
		"ALTER TABLE orders ADD COLUMN status TEXT DEFAULT 'open'",
		"ALTER TABLE wallet_transfers ADD COLUMN asset_id TEXT DEFAULT 'NYXT'",
		"ALTER TABLE messages ADD COLUMN sender_account_id TEXT",
		"ALTER TABLE portal_accounts ADD COLUMN bio TEXT DEFAULT ''",
		"ALTER TABLE portal_accounts ADD COLUMN wallet_address TEXT",
		"ALTER TABLE listings ADD COLUMN publisher_id TEXT",
		"ALTER TABLE listings ADD COLUMN status TEXT DEFAULT 'active'",
		"ALTER TABLE purchases ADD COLUMN buyer_id TEXT",
	}
	for _, m := range migrations {
		_, _ = s.db.Exec(m)
	}
	return nil
}
