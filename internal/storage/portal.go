package storage

import (
	"context"
	"database/sql"
)

func (t *Tx) InsertPortalAccount(ctx context.Context, a *PortalAccount) error {
	_, err := t.Exec(ctx, `
		INSERT INTO portal_accounts (account_id, handle, public_key, wallet_address, status, bio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.AccountID, a.Handle, a.PublicKey, a.WalletAddress, a.Status, a.Bio, a.CreatedAt)
	return err
}

func (t *Tx) GetPortalAccount(ctx context.Context, accountID string) (*PortalAccount, error) {
	row := t.QueryRow(ctx, `
		SELECT account_id, handle, public_key, wallet_address, status, bio, created_at
		FROM portal_accounts WHERE account_id=?
	`, accountID)
	return scanPortalAccount(row)
}

// GetPortalAccount is the pre-transaction counterpart of the Tx-level
// lookup above, for HTTP handlers that need the caller's account row
// (e.g. to resolve a wallet address) before opening a mutation.
func (s *Store) GetPortalAccount(ctx context.Context, accountID string) (*PortalAccount, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, handle, public_key, wallet_address, status, bio, created_at
		FROM portal_accounts WHERE account_id=?
	`, accountID)
	return scanPortalAccount(row)
}

func (s *Store) GetPortalAccountByHandle(ctx context.Context, handle string) (*PortalAccount, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, handle, public_key, wallet_address, status, bio, created_at
		FROM portal_accounts WHERE handle=?
	`, handle)
	return scanPortalAccount(row)
}

// GetPortalAccountByHandle is the in-transaction counterpart of the
// Store-level lookup above: the action router only ever reads through a
// *Tx (never s.db directly) once a transaction is open, since the pool's
// single connection is already checked out by that transaction.
func (t *Tx) GetPortalAccountByHandle(ctx context.Context, handle string) (*PortalAccount, error) {
	row := t.QueryRow(ctx, `
		SELECT account_id, handle, public_key, wallet_address, status, bio, created_at
		FROM portal_accounts WHERE handle=?
	`, handle)
	return scanPortalAccount(row)
}

func (s *Store) SearchPortalAccounts(ctx context.Context, term string) ([]*PortalAccount, error) {
	rows, err := s.query(ctx, `
		SELECT account_id, handle, public_key, wallet_address, status, bio, created_at
		FROM portal_accounts WHERE handle LIKE ? ORDER BY created_at DESC
	`, "%"+term+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PortalAccount
	for rows.Next() {
		a := &PortalAccount{}
		if err := rows.Scan(&a.AccountID, &a.Handle, &a.PublicKey, &a.WalletAddress, &a.Status, &a.Bio, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *Tx) UpdatePortalProfile(ctx context.Context, accountID, bio string) error {
	_, err := t.Exec(ctx, "UPDATE portal_accounts SET bio=? WHERE account_id=?", bio, accountID)
	return err
}

func scanPortalAccount(row interface{ Scan(...any) error }) (*PortalAccount, error) {
	a := &PortalAccount{}
	if err := row.Scan(&a.AccountID, &a.Handle, &a.PublicKey, &a.WalletAddress, &a.Status, &a.Bio, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, err
	}
	return a, nil
}

func (t *Tx) InsertPortalChallenge(ctx context.Context, c *PortalChallenge) error {
	_, err := t.Exec(ctx, `
		INSERT INTO portal_challenges (account_id, nonce, expires_at, used, created_at) VALUES (?, ?, ?, ?, ?)
	`, c.AccountID, c.Nonce, c.ExpiresAt, c.Used, c.CreatedAt)
	return err
}

func (t *Tx) GetPortalChallenge(ctx context.Context, accountID, nonce string) (*PortalChallenge, error) {
	row := t.QueryRow(ctx, `
		SELECT account_id, nonce, expires_at, used, created_at FROM portal_challenges WHERE account_id=? AND nonce=?
	`, accountID, nonce)
	c := &PortalChallenge{}
	if err := row.Scan(&c.AccountID, &c.Nonce, &c.ExpiresAt, &c.Used, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (t *Tx) MarkPortalChallengeUsed(ctx context.Context, accountID, nonce string) error {
	_, err := t.Exec(ctx, "UPDATE portal_challenges SET used=1 WHERE account_id=? AND nonce=?", accountID, nonce)
	return err
}

func (t *Tx) InsertPortalSession(ctx context.Context, sess *PortalSession) error {
	_, err := t.Exec(ctx, `
		INSERT INTO portal_sessions (token_digest, account_id, expires_at, created_at) VALUES (?, ?, ?, ?)
	`, sess.TokenDigest, sess.AccountID, sess.ExpiresAt, sess.CreatedAt)
	return err
}

func (s *Store) GetPortalSession(ctx context.Context, tokenDigest string) (*PortalSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token_digest, account_id, expires_at, created_at FROM portal_sessions WHERE token_digest=?
	`, tokenDigest)
	sess := &PortalSession{}
	if err := row.Scan(&sess.TokenDigest, &sess.AccountID, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		return nil, err
	}
	return sess, nil
}

func (t *Tx) DeletePortalSession(ctx context.Context, tokenDigest string) error {
	_, err := t.Exec(ctx, "DELETE FROM portal_sessions WHERE token_digest=?", tokenDigest)
	return err
}

// PortalActivityTrades returns the trades on orders owned by address,
// newest first and capped at limit: the trades list of the portal
// activity feed, which returns each category as its own list.
func (s *Store) PortalActivityTrades(ctx context.Context, address string, limit int) ([]*Trade, error) {
	rows, err := s.query(ctx, `
		SELECT t.trade_id, t.order_id, t.amount, t.price, t.run_id, t.created_at
		FROM trades t JOIN orders o ON o.order_id = t.order_id
		WHERE o.owner_address=? ORDER BY t.created_at DESC LIMIT ?
	`, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Trade
	for rows.Next() {
		tr := &Trade{}
		if err := rows.Scan(&tr.TradeID, &tr.OrderID, &tr.Amount, &tr.Price, &tr.RunID, &tr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
