package ledger

import (
	"context"
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/assets"
	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func balanceOf(t *testing.T, s *storage.Store, address, assetID string) int64 {
	t.Helper()
	ctx := context.Background()
	var bal int64
	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		bal, err = tx.GetBalance(ctx, address, assetID)
		return err
	})
	if err != nil {
		t.Fatalf("balance read error = %v", err)
	}
	return bal
}

func TestApplyTransferDebitsAmountPlusFee(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "alice", assets.NYXT, 1000); err != nil {
			return err
		}
		return ApplyTransfer(ctx, tx, "transfer-1", "alice", "bob", assets.NYXT, 100, 5, "treasury", "run-1")
	})
	if err != nil {
		t.Fatalf("ApplyTransfer() error = %v", err)
	}

	if bal := balanceOf(t, s, "alice", assets.NYXT); bal != 895 {
		t.Fatalf("alice balance = %d, want 895", bal)
	}
}

func TestApplyTransferRejectsInsufficientBalance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		return ApplyTransfer(ctx, tx, "transfer-2", "alice", "bob", assets.NYXT, 100, 5, "treasury", "run-2")
	})
	ge, ok := gwerrors.As(err)
	if !ok || ge.ErrCode != gwerrors.InsufficientBalance {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
}

func TestApplyTransferNonNYXTAssetFeesInNYXT(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "alice", assets.ECHO, 1000); err != nil {
			return err
		}
		if err := tx.AddBalance(ctx, "alice", assets.NYXT, 10); err != nil {
			return err
		}
		return ApplyTransfer(ctx, tx, "transfer-echo-1", "alice", "bob", assets.ECHO, 100, 5, "treasury", "run-echo-1")
	})
	if err != nil {
		t.Fatalf("ApplyTransfer() error = %v", err)
	}

	if bal := balanceOf(t, s, "alice", assets.ECHO); bal != 900 {
		t.Fatalf("alice ECHO balance = %d, want 900", bal)
	}
	if bal := balanceOf(t, s, "bob", assets.ECHO); bal != 100 {
		t.Fatalf("bob ECHO balance = %d, want 100", bal)
	}
	if bal := balanceOf(t, s, "alice", assets.NYXT); bal != 5 {
		t.Fatalf("alice NYXT balance = %d, want 5 (fee debited separately)", bal)
	}
	if bal := balanceOf(t, s, "treasury", assets.NYXT); bal != 5 {
		t.Fatalf("treasury NYXT balance = %d, want 5", bal)
	}
}

func TestApplyTransferNonNYXTAssetRejectsInsufficientFeeNYXT(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.AddBalance(ctx, "alice", assets.ECHO, 1000)
	}); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		return ApplyTransfer(ctx, tx, "transfer-echo-2", "alice", "bob", assets.ECHO, 100, 5, "treasury", "run-echo-2")
	})
	ge, ok := gwerrors.As(err)
	if !ok || ge.ErrCode != gwerrors.InsufficientBalance {
		t.Fatalf("expected InsufficientBalance for missing NYXT fee, got %v", err)
	}

	if bal := balanceOf(t, s, "alice", assets.ECHO); bal != 1000 {
		t.Fatalf("alice ECHO balance should be unchanged on failed transfer, got %d", bal)
	}
}

func TestApplyFaucetWithFeeNeverDebitsSource(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		return ApplyFaucetWithFee(ctx, tx, "faucet-1", "alice", assets.NYXT, 50, 1, "treasury", "run-3")
	})
	if err != nil {
		t.Fatalf("ApplyFaucetWithFee() error = %v", err)
	}

	if bal := balanceOf(t, s, "alice", assets.NYXT); bal != 50 {
		t.Fatalf("alice balance = %d, want 50", bal)
	}
	if bal := balanceOf(t, s, "treasury", assets.NYXT); bal != 1 {
		t.Fatalf("treasury balance = %d, want 1", bal)
	}
}

func TestApplyFaucetWithFeeNonNYXTAssetFeesInNYXT(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		return ApplyFaucetWithFee(ctx, tx, "faucet-echo-1", "alice", assets.ECHO, 50, 2, "treasury", "run-4")
	})
	if err != nil {
		t.Fatalf("ApplyFaucetWithFee() error = %v", err)
	}

	if bal := balanceOf(t, s, "alice", assets.ECHO); bal != 50 {
		t.Fatalf("alice ECHO balance = %d, want 50", bal)
	}
	if bal := balanceOf(t, s, "treasury", assets.ECHO); bal != 0 {
		t.Fatalf("treasury ECHO balance = %d, want 0 (fee must not land in the principal asset)", bal)
	}
	if bal := balanceOf(t, s, "treasury", assets.NYXT); bal != 2 {
		t.Fatalf("treasury NYXT balance = %d, want 2 (fee always lands in NYXT)", bal)
	}
}
