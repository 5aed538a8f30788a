package evidence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

func TestRunAndRecordPersistsRunAndReceipt(t *testing.T) {
	s, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	var outcome Outcome
	err = s.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		outcome, err = RunAndRecord(ctx, tx, LocalEngine{}, 1, "run-evidence-1", "wallet", "transfer", Payload{"amount": 10}, "")
		return err
	})
	if err != nil {
		t.Fatalf("RunAndRecord() error = %v", err)
	}
	if outcome.StateHash == "" {
		t.Fatal("expected non-empty state hash")
	}

	run, err := s.GetEvidenceRunByID(ctx, "run-evidence-1")
	if err != nil {
		t.Fatalf("GetEvidenceRunByID() error = %v", err)
	}
	if run.StateHash != outcome.StateHash {
		t.Fatalf("persisted state hash = %s, want %s", run.StateHash, outcome.StateHash)
	}

	receipts, err := s.ListReceiptsByRun(ctx, "run-evidence-1")
	if err != nil {
		t.Fatalf("ListReceiptsByRun() error = %v", err)
	}
	if len(receipts) != 1 {
		t.Fatalf("len(receipts) = %d, want 1", len(receipts))
	}
}

func TestSafeArtifactPathRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	if _, err := SafeArtifactPath(root, "../etc/passwd"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if _, err := SafeArtifactPath(root, "/etc/passwd"); err == nil {
		t.Fatal("expected absolute path to be rejected")
	}
}

func TestSafeArtifactPathRejectsSymlink(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "outside.txt")
	if err := os.WriteFile(target, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	link := filepath.Join(root, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if _, err := SafeArtifactPath(root, "link"); err == nil {
		t.Fatal("expected symlink to be rejected")
	}
}

func TestSafeArtifactPathAllowsPlainRelativePath(t *testing.T) {
	root := t.TempDir()
	p, err := SafeArtifactPath(root, "artifacts/state.json")
	if err != nil {
		t.Fatalf("SafeArtifactPath() error = %v", err)
	}
	if filepath.Dir(p) != filepath.Join(root, "artifacts") {
		t.Fatalf("unexpected path: %s", p)
	}
}
