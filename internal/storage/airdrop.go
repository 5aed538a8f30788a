package storage

import (
	"context"
	"database/sql"
)

func (t *Tx) InsertFaucetClaim(ctx context.Context, c *FaucetClaim) error {
	_, err := t.Exec(ctx, `
		INSERT INTO faucet_claims (claim_id, account_id, address, asset_id, amount, ip, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ClaimID, c.AccountID, c.Address, c.AssetID, c.Amount, c.IP, c.RunID, c.CreatedAt)
	return err
}

// CountFaucetClaimsSince supports the cooldown/daily-claims/daily-amount
// limits of spec §4.5: callers pass a unix-epoch lower bound.
func (t *Tx) CountFaucetClaimsSince(ctx context.Context, accountID string, since int64) (int64, error) {
	var n int64
	row := t.QueryRow(ctx, "SELECT COUNT(*) FROM faucet_claims WHERE account_id=? AND created_at>=?", accountID, since)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *Tx) SumFaucetAmountSince(ctx context.Context, accountID string, since int64) (int64, error) {
	var total sql.NullInt64
	row := t.QueryRow(ctx, "SELECT SUM(amount) FROM faucet_claims WHERE account_id=? AND created_at>=?", accountID, since)
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total.Int64, nil
}

func (t *Tx) CountFaucetClaimsByIPSince(ctx context.Context, ip string, since int64) (int64, error) {
	var n int64
	row := t.QueryRow(ctx, "SELECT COUNT(*) FROM faucet_claims WHERE ip=? AND created_at>=?", ip, since)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *Tx) LastFaucetClaim(ctx context.Context, accountID string) (int64, error) {
	var createdAt int64
	row := t.QueryRow(ctx, "SELECT created_at FROM faucet_claims WHERE account_id=? ORDER BY created_at DESC LIMIT 1", accountID)
	err := row.Scan(&createdAt)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return createdAt, err
}

func (t *Tx) InsertAirdropClaim(ctx context.Context, c *AirdropClaim) error {
	_, err := t.Exec(ctx, `
		INSERT INTO airdrop_claims (account_id, task_id, reward, run_id, created_at) VALUES (?, ?, ?, ?, ?)
	`, c.AccountID, c.TaskID, c.Reward, c.RunID, c.CreatedAt)
	return err
}

// AirdropClaimed reports whether accountID has already claimed taskID —
// the idempotency check required before rewarding (spec §4.12).
func (t *Tx) AirdropClaimed(ctx context.Context, accountID, taskID string) (bool, error) {
	var n int64
	row := t.QueryRow(ctx, "SELECT COUNT(*) FROM airdrop_claims WHERE account_id=? AND task_id=?", accountID, taskID)
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListAirdropClaims(ctx context.Context, accountID string) ([]*AirdropClaim, error) {
	rows, err := s.query(ctx, "SELECT account_id, task_id, reward, run_id, created_at FROM airdrop_claims WHERE account_id=?", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*AirdropClaim
	for rows.Next() {
		c := &AirdropClaim{}
		if err := rows.Scan(&c.AccountID, &c.TaskID, &c.Reward, &c.RunID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountTradesByOwner supports the trade_1 task's completion check.
func (s *Store) CountTradesByOwner(ctx context.Context, address string) (int64, error) {
	var n int64
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trades t JOIN orders o ON o.order_id = t.order_id WHERE o.owner_address=?
	`, address)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountPurchasesByBuyer supports the store_1 task's completion check.
func (s *Store) CountPurchasesByBuyer(ctx context.Context, buyerID string) (int64, error) {
	var n int64
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM purchases WHERE buyer_id=?", buyerID)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
