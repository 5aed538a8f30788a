package storage

import (
	"context"
	"database/sql"
)

// Hash-chained rooms (spec §4.10/§8): chat_rooms/chat_messages.

func (t *Tx) InsertChatRoom(ctx context.Context, r *ChatRoom) error {
	_, err := t.Exec(ctx, `
		INSERT INTO chat_rooms (room_id, name, is_public, created_at) VALUES (?, ?, ?, ?)
	`, r.RoomID, r.Name, r.IsPublic, r.CreatedAt)
	return err
}

func (t *Tx) GetChatRoom(ctx context.Context, roomID string) (*ChatRoom, error) {
	row := t.QueryRow(ctx, "SELECT room_id, name, is_public, created_at FROM chat_rooms WHERE room_id=?", roomID)
	r := &ChatRoom{}
	if err := row.Scan(&r.RoomID, &r.Name, &r.IsPublic, &r.CreatedAt); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListChatRooms(ctx context.Context) ([]*ChatRoom, error) {
	rows, err := s.query(ctx, "SELECT room_id, name, is_public, created_at FROM chat_rooms ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ChatRoom
	for rows.Next() {
		r := &ChatRoom{}
		if err := rows.Scan(&r.RoomID, &r.Name, &r.IsPublic, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastChainHead returns the chain_head of the highest-seq message in
// room, or ("", 0, nil) for an empty room — the seed for the next
// message's prev_digest and seq.
func (t *Tx) LastChainHead(ctx context.Context, roomID string) (head string, seq int64, err error) {
	row := t.QueryRow(ctx, `
		SELECT chain_head, seq FROM chat_messages WHERE room_id=? ORDER BY seq DESC LIMIT 1
	`, roomID)
	err = row.Scan(&head, &seq)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return head, seq, nil
}

func (t *Tx) InsertChatMessage(ctx context.Context, m *ChatMessage) error {
	_, err := t.Exec(ctx, `
		INSERT INTO chat_messages (message_id, room_id, sender, body, seq, prev_digest, msg_digest, chain_head, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.MessageID, m.RoomID, m.Sender, m.Body, m.Seq, m.PrevDigest, m.MsgDigest, m.ChainHead, m.CreatedAt)
	return err
}

func (s *Store) ListChatMessages(ctx context.Context, roomID string, limit int) ([]*ChatMessage, error) {
	rows, err := s.query(ctx, `
		SELECT message_id, room_id, sender, body, seq, prev_digest, msg_digest, chain_head, created_at
		FROM chat_messages WHERE room_id=? ORDER BY seq ASC LIMIT ?
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ChatMessage
	for rows.Next() {
		m := &ChatMessage{}
		if err := rows.Scan(&m.MessageID, &m.RoomID, &m.Sender, &m.Body, &m.Seq, &m.PrevDigest, &m.MsgDigest, &m.ChainHead, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Legacy flat channel broadcast (validate_chat_payload's {channel, message}
// shape) — a second, simpler chat surface distinct from the hash-chained
// rooms above; both trace back to migrations.py's separate table list.

func (t *Tx) InsertLegacyMessage(ctx context.Context, m *LegacyMessage) error {
	_, err := t.Exec(ctx, `
		INSERT INTO messages (message_id, channel, sender_account_id, body, created_at) VALUES (?, ?, ?, ?, ?)
	`, m.MessageID, m.Channel, m.SenderAccountID, m.Body, m.CreatedAt)
	return err
}

func (s *Store) ListLegacyMessages(ctx context.Context, channel string, limit int) ([]*LegacyMessage, error) {
	rows, err := s.query(ctx, `
		SELECT message_id, channel, sender_account_id, body, created_at
		FROM messages WHERE channel=? ORDER BY created_at DESC LIMIT ?
	`, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*LegacyMessage
	for rows.Next() {
		m := &LegacyMessage{}
		if err := rows.Scan(&m.MessageID, &m.Channel, &m.SenderAccountID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountLegacyMessagesBySender supports the airdrop chat_1 task's
// completion check.
func (s *Store) CountLegacyMessagesBySender(ctx context.Context, senderAccountID string) (int64, error) {
	var n int64
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE sender_account_id=?", senderAccountID)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
