package storage

import "context"

// InsertOrder inserts a freshly placed order.
func (t *Tx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.Exec(ctx, `
		INSERT INTO orders (order_id, owner_address, side, amount, price, asset_in, asset_out, status, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.OrderID, o.OwnerAddress, string(o.Side), o.Amount, o.Price, o.AssetIn, o.AssetOut, string(o.Status), o.RunID, o.CreatedAt)
	return err
}

// GetOrder fetches an order by ID for update within the current transaction.
func (t *Tx) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	row := t.QueryRow(ctx, `
		SELECT order_id, owner_address, side, amount, price, asset_in, asset_out, status, run_id, created_at
		FROM orders WHERE order_id=?
	`, orderID)
	o := &Order{}
	var side, status string
	if err := row.Scan(&o.OrderID, &o.OwnerAddress, &side, &o.Amount, &o.Price, &o.AssetIn, &o.AssetOut, &status, &o.RunID, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Side, o.Status = Side(side), OrderStatus(status)
	return o, nil
}

// UpdateOrderAmountStatus persists the matcher's decrement of remaining
// amount and any resulting status transition.
func (t *Tx) UpdateOrderAmountStatus(ctx context.Context, orderID string, amount int64, status OrderStatus) error {
	_, err := t.Exec(ctx, "UPDATE orders SET amount=?, status=? WHERE order_id=?", amount, string(status), orderID)
	return err
}

// CancelOrder transitions an open order to cancelled; the caller has
// already checked ownership and status.
func (t *Tx) CancelOrder(ctx context.Context, orderID string) error {
	_, err := t.Exec(ctx, "UPDATE orders SET status=? WHERE order_id=?", string(OrderCancelled), orderID)
	return err
}

// OppositeOpenOrders returns resting open orders on the opposite side of
// pair (assetIn, assetOut), ordered for the matcher's deterministic
// tie-break: ascending price, then ascending order_id, when the taker is a
// BUY matching resting SELLs; descending price, then ascending order_id,
// when the taker is a SELL matching resting BUYs.
func (t *Tx) OppositeOpenOrders(ctx context.Context, takerSide Side, assetIn, assetOut string) ([]*Order, error) {
	var makerSide Side
	var orderBy string
	if takerSide == Buy {
		makerSide = Sell
		orderBy = "ORDER BY price ASC, order_id ASC"
	} else {
		makerSide = Buy
		orderBy = "ORDER BY price DESC, order_id ASC"
	}
	// A BUY taker (NYXT->ECHO) crosses resting SELL orders (ECHO->NYXT):
	// the maker's asset_in/asset_out pair is the taker's pair swapped.
	query := `
		SELECT order_id, owner_address, side, amount, price, asset_in, asset_out, status, run_id, created_at
		FROM orders WHERE side=? AND status='open' AND asset_in=? AND asset_out=? ` + orderBy
	rows, err := t.Query(ctx, query, string(makerSide), assetOut, assetIn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o := &Order{}
		var side, status string
		if err := rows.Scan(&o.OrderID, &o.OwnerAddress, &side, &o.Amount, &o.Price, &o.AssetIn, &o.AssetOut, &status, &o.RunID, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Side, o.Status = Side(side), OrderStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

// InsertTrade records one leg (taker or maker) of a match.
func (t *Tx) InsertTrade(ctx context.Context, tr *Trade) error {
	_, err := t.Exec(ctx, `
		INSERT INTO trades (trade_id, order_id, amount, price, run_id, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, tr.TradeID, tr.OrderID, tr.Amount, tr.Price, tr.RunID, tr.CreatedAt)
	return err
}

// ListOpenOrders returns every order with status=open.
func (s *Store) ListOpenOrders(ctx context.Context) ([]*Order, error) {
	return s.listOrdersWhere(ctx, "status='open'")
}

// ListOrdersByOwner returns every order owned by address regardless of status.
func (s *Store) ListOrdersByOwner(ctx context.Context, address string) ([]*Order, error) {
	rows, err := s.query(ctx, `
		SELECT order_id, owner_address, side, amount, price, asset_in, asset_out, status, run_id, created_at
		FROM orders WHERE owner_address=? ORDER BY created_at DESC
	`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (s *Store) listOrdersWhere(ctx context.Context, where string) ([]*Order, error) {
	rows, err := s.query(ctx, `
		SELECT order_id, owner_address, side, amount, price, asset_in, asset_out, status, run_id, created_at
		FROM orders WHERE `+where+` ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrders(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]*Order, error) {
	var out []*Order
	for rows.Next() {
		o := &Order{}
		var side, status string
		if err := rows.Scan(&o.OrderID, &o.OwnerAddress, &side, &o.Amount, &o.Price, &o.AssetIn, &o.AssetOut, &status, &o.RunID, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Side, o.Status = Side(side), OrderStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListTradesByOrder returns every trade row for orderID.
func (s *Store) ListTradesByOrder(ctx context.Context, orderID string) ([]*Trade, error) {
	rows, err := s.query(ctx, "SELECT trade_id, order_id, amount, price, run_id, created_at FROM trades WHERE order_id=? ORDER BY created_at ASC", orderID)
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

// ListTradesByOwner returns trades for orders owned by address.
func (s *Store) ListTradesByOwner(ctx context.Context, address string) ([]*Trade, error) {
	rows, err := s.query(ctx, `
		SELECT t.trade_id, t.order_id, t.amount, t.price, t.run_id, t.created_at
		FROM trades t JOIN orders o ON o.order_id = t.order_id
		WHERE o.owner_address=? ORDER BY t.created_at DESC
	`, address)
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
