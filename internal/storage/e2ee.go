package storage

import "context"

// UpsertE2EEIdentity registers or rotates an account's published E2EE
// identity key (spec §4.10's /portal/v1/e2ee/identity): a second call for
// the same account replaces the key rather than erroring, matching the
// "register or rotate" semantics a key-rotation client expects.
func (t *Tx) UpsertE2EEIdentity(ctx context.Context, id *E2EEIdentity) error {
	_, err := t.Exec(ctx, `
		INSERT INTO e2ee_identities (account_id, identity_key, created_at) VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET identity_key = excluded.identity_key
	`, id.AccountID, id.IdentityKey, id.CreatedAt)
	return err
}

func (s *Store) GetE2EEIdentity(ctx context.Context, accountID string) (*E2EEIdentity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, identity_key, created_at FROM e2ee_identities WHERE account_id=?
	`, accountID)
	id := &E2EEIdentity{}
	if err := row.Scan(&id.AccountID, &id.IdentityKey, &id.CreatedAt); err != nil {
		return nil, err
	}
	return id, nil
}
