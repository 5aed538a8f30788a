package storage

import "context"

func (t *Tx) InsertListing(ctx context.Context, l *Listing) error {
	_, err := t.Exec(ctx, `
		INSERT INTO listings (listing_id, publisher_id, sku, title, price, status, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ListingID, l.PublisherID, l.SKU, l.Title, l.Price, string(l.Status), l.RunID, l.CreatedAt)
	return err
}

func (t *Tx) GetListing(ctx context.Context, listingID string) (*Listing, error) {
	row := t.QueryRow(ctx, `
		SELECT listing_id, publisher_id, sku, title, price, status, run_id, created_at
		FROM listings WHERE listing_id=?
	`, listingID)
	l := &Listing{}
	var status string
	if err := row.Scan(&l.ListingID, &l.PublisherID, &l.SKU, &l.Title, &l.Price, &status, &l.RunID, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Status = ListingStatus(status)
	return l, nil
}

func (t *Tx) MarkListingSold(ctx context.Context, listingID string) error {
	_, err := t.Exec(ctx, "UPDATE listings SET status=? WHERE listing_id=?", string(ListingSold), listingID)
	return err
}

func (t *Tx) InsertPurchase(ctx context.Context, p *Purchase) error {
	_, err := t.Exec(ctx, `
		INSERT INTO purchases (purchase_id, listing_id, buyer_id, qty, run_id, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, p.PurchaseID, p.ListingID, p.BuyerID, p.Qty, p.RunID, p.CreatedAt)
	return err
}

func (s *Store) ListListings(ctx context.Context, status string) ([]*Listing, error) {
	query := "SELECT listing_id, publisher_id, sku, title, price, status, run_id, created_at FROM listings"
	var args []any
	if status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Listing
	for rows.Next() {
		l := &Listing{}
		var st string
		if err := rows.Scan(&l.ListingID, &l.PublisherID, &l.SKU, &l.Title, &l.Price, &st, &l.RunID, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Status = ListingStatus(st)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) SearchListings(ctx context.Context, term string) ([]*Listing, error) {
	rows, err := s.query(ctx, `
		SELECT listing_id, publisher_id, sku, title, price, status, run_id, created_at
		FROM listings WHERE title LIKE ? OR sku LIKE ? ORDER BY created_at DESC
	`, "%"+term+"%", "%"+term+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Listing
	for rows.Next() {
		l := &Listing{}
		var st string
		if err := rows.Scan(&l.ListingID, &l.PublisherID, &l.SKU, &l.Title, &l.Price, &st, &l.RunID, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Status = ListingStatus(st)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) ListPurchasesByBuyer(ctx context.Context, buyerID string) ([]*Purchase, error) {
	rows, err := s.query(ctx, "SELECT purchase_id, listing_id, buyer_id, qty, run_id, created_at FROM purchases WHERE buyer_id=? ORDER BY created_at DESC", buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Purchase
	for rows.Next() {
		p := &Purchase{}
		if err := rows.Scan(&p.PurchaseID, &p.ListingID, &p.BuyerID, &p.Qty, &p.RunID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListAllPurchases(ctx context.Context) ([]*Purchase, error) {
	rows, err := s.query(ctx, "SELECT purchase_id, listing_id, buyer_id, qty, run_id, created_at FROM purchases ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Purchase
	for rows.Next() {
		p := &Purchase{}
		if err := rows.Scan(&p.PurchaseID, &p.ListingID, &p.BuyerID, &p.Qty, &p.RunID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
