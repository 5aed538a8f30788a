package storage

import "context"

func (t *Tx) InsertFeeLedger(ctx context.Context, f *FeeLedger) error {
	_, err := t.Exec(ctx, `
		INSERT INTO fee_ledger (fee_id, module, action, protocol_fee_total, platform_fee_amount, total_paid, fee_address, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.FeeID, f.Module, f.Action, f.ProtocolFeeTotal, f.PlatformFeeAmount, f.TotalPaid, f.FeeAddress, f.RunID, f.CreatedAt)
	return err
}

func (s *Store) ListFeeLedgerByRun(ctx context.Context, runID string) ([]*FeeLedger, error) {
	rows, err := s.query(ctx, `
		SELECT fee_id, module, action, protocol_fee_total, platform_fee_amount, total_paid, fee_address, run_id, created_at
		FROM fee_ledger WHERE run_id=? ORDER BY created_at ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*FeeLedger
	for rows.Next() {
		f := &FeeLedger{}
		if err := rows.Scan(&f.FeeID, &f.Module, &f.Action, &f.ProtocolFeeTotal, &f.PlatformFeeAmount, &f.TotalPaid, &f.FeeAddress, &f.RunID, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SumPlatformFeesByModule backs a simple operator-facing revenue report;
// not named by spec.md directly but a natural read over a ledger table
// the spec already mandates.
func (s *Store) SumPlatformFeesByModule(ctx context.Context, module string) (int64, error) {
	var total int64
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(platform_fee_amount), 0) FROM fee_ledger WHERE module=?", module)
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
