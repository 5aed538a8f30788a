package storage

import (
	"context"
	"encoding/json"
)

func (t *Tx) InsertEvidenceRun(ctx context.Context, e *EvidenceRun) error {
	receiptHashes, err := json.Marshal(e.ReceiptHashes)
	if err != nil {
		return err
	}
	_, err = t.Exec(ctx, `
		INSERT INTO evidence_runs (run_id, module, action, seed, state_hash, receipt_hashes, replay_ok, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Module, e.Action, e.Seed, e.StateHash, string(receiptHashes), e.ReplayOK, e.CreatedAt)
	return err
}

func (t *Tx) GetEvidenceRun(ctx context.Context, runID string) (*EvidenceRun, error) {
	row := t.QueryRow(ctx, `
		SELECT run_id, module, action, seed, state_hash, receipt_hashes, replay_ok, created_at
		FROM evidence_runs WHERE run_id=?
	`, runID)
	return scanEvidenceRun(row)
}

func (s *Store) GetEvidenceRunByID(ctx context.Context, runID string) (*EvidenceRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, module, action, seed, state_hash, receipt_hashes, replay_ok, created_at
		FROM evidence_runs WHERE run_id=?
	`, runID)
	return scanEvidenceRun(row)
}

func scanEvidenceRun(row interface{ Scan(...any) error }) (*EvidenceRun, error) {
	e := &EvidenceRun{}
	var receiptHashes string
	if err := row.Scan(&e.RunID, &e.Module, &e.Action, &e.Seed, &e.StateHash, &receiptHashes, &e.ReplayOK, &e.CreatedAt); err != nil {
		return nil, err
	}
	if receiptHashes != "" {
		if err := json.Unmarshal([]byte(receiptHashes), &e.ReceiptHashes); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (t *Tx) UpdateEvidenceRunReplay(ctx context.Context, runID string, ok bool) error {
	_, err := t.Exec(ctx, "UPDATE evidence_runs SET replay_ok=? WHERE run_id=?", ok, runID)
	return err
}

func (t *Tx) InsertReceipt(ctx context.Context, r *Receipt) error {
	receiptHashes, err := json.Marshal(r.ReceiptHashes)
	if err != nil {
		return err
	}
	_, err = t.Exec(ctx, `
		INSERT INTO receipts (receipt_id, run_id, module, action, state_hash, receipt_hashes, replay_ok, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ReceiptID, r.RunID, r.Module, r.Action, r.StateHash, string(receiptHashes), r.ReplayOK, r.CreatedAt)
	return err
}

func (s *Store) ListReceiptsByRun(ctx context.Context, runID string) ([]*Receipt, error) {
	rows, err := s.query(ctx, `
		SELECT receipt_id, run_id, module, action, state_hash, receipt_hashes, replay_ok, created_at
		FROM receipts WHERE run_id=? ORDER BY created_at ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Receipt
	for rows.Next() {
		r := &Receipt{}
		var receiptHashes string
		if err := rows.Scan(&r.ReceiptID, &r.RunID, &r.Module, &r.Action, &r.StateHash, &receiptHashes, &r.ReplayOK, &r.CreatedAt); err != nil {
			return nil, err
		}
		if receiptHashes != "" {
			if err := json.Unmarshal([]byte(receiptHashes), &r.ReceiptHashes); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
