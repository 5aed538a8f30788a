package storage

import (
	"context"
	"encoding/json"
)

func (t *Tx) InsertWeb2GuardRequest(ctx context.Context, r *Web2GuardRequest) error {
	headerNames, err := json.Marshal(r.HeaderNames)
	if err != nil {
		return err
	}
	_, err = t.Exec(ctx, `
		INSERT INTO web2_guard_requests
			(request_id, account_id, run_id, safe_url, method, request_hash, response_hash,
			 status, size, truncated, body_size, header_names, sealed_request, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RequestID, r.AccountID, r.RunID, r.SafeURL, r.Method, r.RequestHash, r.ResponseHash,
		r.Status, r.Size, r.Truncated, r.BodySize, string(headerNames), r.SealedRequest, r.CreatedAt)
	return err
}

func (s *Store) ListWeb2GuardRequestsByAccount(ctx context.Context, accountID string, limit int) ([]*Web2GuardRequest, error) {
	rows, err := s.query(ctx, `
		SELECT request_id, account_id, run_id, safe_url, method, request_hash, response_hash,
		       status, size, truncated, body_size, header_names, sealed_request, created_at
		FROM web2_guard_requests WHERE account_id=? ORDER BY created_at DESC LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Web2GuardRequest
	for rows.Next() {
		r := &Web2GuardRequest{}
		var headerNames string
		if err := rows.Scan(&r.RequestID, &r.AccountID, &r.RunID, &r.SafeURL, &r.Method, &r.RequestHash, &r.ResponseHash,
			&r.Status, &r.Size, &r.Truncated, &r.BodySize, &headerNames, &r.SealedRequest, &r.CreatedAt); err != nil {
			return nil, err
		}
		if headerNames != "" {
			if err := json.Unmarshal([]byte(headerNames), &r.HeaderNames); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
