package storage

import "context"

func (t *Tx) EnsureEntertainmentItem(ctx context.Context, itemID string, createdAt int64) error {
	_, err := t.Exec(ctx, `
		INSERT INTO entertainment_items (item_id, created_at) VALUES (?, ?)
		ON CONFLICT(item_id) DO NOTHING
	`, itemID, createdAt)
	return err
}

func (t *Tx) InsertEntertainmentEvent(ctx context.Context, e *EntertainmentEvent) error {
	_, err := t.Exec(ctx, `
		INSERT INTO entertainment_events (event_id, item_id, account_id, mode, step, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.EventID, e.ItemID, e.AccountID, e.Mode, e.Step, e.RunID, e.CreatedAt)
	return err
}

func (s *Store) ListEntertainmentEvents(ctx context.Context, itemID string) ([]*EntertainmentEvent, error) {
	rows, err := s.query(ctx, `
		SELECT event_id, item_id, account_id, mode, step, run_id, created_at
		FROM entertainment_events WHERE item_id=? ORDER BY created_at ASC
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*EntertainmentEvent
	for rows.Next() {
		e := &EntertainmentEvent{}
		if err := rows.Scan(&e.EventID, &e.ItemID, &e.AccountID, &e.Mode, &e.Step, &e.RunID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListEntertainmentEventsByAccount(ctx context.Context, accountID string) ([]*EntertainmentEvent, error) {
	rows, err := s.query(ctx, `
		SELECT event_id, item_id, account_id, mode, step, run_id, created_at
		FROM entertainment_events WHERE account_id=? ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*EntertainmentEvent
	for rows.Next() {
		e := &EntertainmentEvent{}
		if err := rows.Scan(&e.EventID, &e.ItemID, &e.AccountID, &e.Mode, &e.Step, &e.RunID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
