package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenCreatesSchema(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "nyx-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	s, err := Open(Config{DataDir: tmpDir})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	dbPath := filepath.Join(tmpDir, "nyx_gateway.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.DB() == nil {
		t.Error("DB() returned nil")
	}

	tables := []string{"evidence_runs", "receipts", "fee_ledger", "wallet_accounts", "orders", "portal_accounts", "chat_messages"}
	for _, table := range tables {
		var name string
		row := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&name); err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	s, err := Open(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	err = s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", "k", "v")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	var value string
	if err := s.db.QueryRow("SELECT value FROM meta WHERE key='k'").Scan(&value); err != nil {
		t.Fatalf("expected committed row: %v", err)
	}
	if value != "v" {
		t.Fatalf("expected v, got %s", value)
	}
}

type stubError struct{}

func (*stubError) Error() string { return "stub" }

func TestWithTxRollsBackOnError(t *testing.T) {
	s, err := Open(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	sentinel := &stubError{}
	err = s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", "k2", "v2"); err != nil {
			return err
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected sentinel error to propagate, got %v", err)
	}

	var value string
	if rowErr := s.db.QueryRow("SELECT value FROM meta WHERE key='k2'").Scan(&value); rowErr == nil {
		t.Fatalf("expected row to be rolled back")
	}
}
