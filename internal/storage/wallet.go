package storage

import (
	"context"
	"database/sql"
)

// GetBalance returns the balance for (address, assetID), 0 if no row
// exists (spec §3: "no row ⇒ balance 0").
func (t *Tx) GetBalance(ctx context.Context, address, assetID string) (int64, error) {
	var balance int64
	row := t.QueryRow(ctx, "SELECT balance FROM wallet_accounts WHERE address=? AND asset_id=?", address, assetID)
	err := row.Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// AddBalance atomically creates-or-updates the (address, assetID) row by
// delta, which may be negative. Callers must have already checked
// sufficiency; sqlite's INSERT ... ON CONFLICT keeps the read-modify-write
// inside the caller's transaction.
func (t *Tx) AddBalance(ctx context.Context, address, assetID string, delta int64) error {
	_, err := t.Exec(ctx, `
		INSERT INTO wallet_accounts (address, asset_id, balance) VALUES (?, ?, ?)
		ON CONFLICT(address, asset_id) DO UPDATE SET balance = balance + excluded.balance
	`, address, assetID, delta)
	return err
}

// InsertWalletTransfer records a completed transfer row.
func (t *Tx) InsertWalletTransfer(ctx context.Context, wt *WalletTransfer) error {
	_, err := t.Exec(ctx, `
		INSERT INTO wallet_transfers (transfer_id, from_address, to_address, asset_id, amount, fee_total, treasury_address, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, wt.TransferID, wt.FromAddress, wt.ToAddress, wt.AssetID, wt.Amount, wt.FeeTotal, wt.TreasuryAddress, wt.RunID, wt.CreatedAt)
	return err
}

// ListWalletTransfers returns transfers touching address, most recent first.
func (s *Store) ListWalletTransfers(ctx context.Context, address string, limit int) ([]*WalletTransfer, error) {
	rows, err := s.query(ctx, `
		SELECT transfer_id, from_address, to_address, asset_id, amount, fee_total, treasury_address, run_id, created_at
		FROM wallet_transfers WHERE from_address=? OR to_address=? ORDER BY created_at DESC LIMIT ?
	`, address, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*WalletTransfer
	for rows.Next() {
		wt := &WalletTransfer{}
		if err := rows.Scan(&wt.TransferID, &wt.FromAddress, &wt.ToAddress, &wt.AssetID, &wt.Amount, &wt.FeeTotal, &wt.TreasuryAddress, &wt.RunID, &wt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, wt)
	}
	return out, rows.Err()
}

// ListBalances returns every asset balance held by address.
func (s *Store) ListBalances(ctx context.Context, address string) ([]*WalletAccount, error) {
	rows, err := s.query(ctx, "SELECT address, asset_id, balance FROM wallet_accounts WHERE address=?", address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*WalletAccount
	for rows.Next() {
		wa := &WalletAccount{}
		if err := rows.Scan(&wa.Address, &wa.AssetID, &wa.Balance); err != nil {
			return nil, err
		}
		out = append(out, wa)
	}
	return out, rows.Err()
}
