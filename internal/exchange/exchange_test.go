package exchange

import (
	"context"
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/assets"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// A resting SELL (ECHO->NYXT) at price 10 for 5 ECHO base, crossed by a
// BUY (NYXT->ECHO) taker with a 100 NYXT budget at price 10: the taker's
// max_base = 100/10 = 10, capped by the maker's 5 available, so the trade
// fills the maker completely and leaves the taker with 50 NYXT remaining.
func TestPlaceOrderBuyCrossesRestingSell(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "maker", assets.ECHO, 5); err != nil {
			return err
		}
		maker := &storage.Order{
			OrderID: "order-maker", OwnerAddress: "maker", Side: storage.Sell,
			Amount: 5, Price: 10, AssetIn: assets.ECHO, AssetOut: assets.NYXT,
			Status: storage.OrderOpen, RunID: "run-maker",
		}
		return tx.InsertOrder(ctx, maker)
	})
	if err != nil {
		t.Fatalf("seed maker error = %v", err)
	}

	var result *Result
	err = s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "taker", assets.NYXT, 100); err != nil {
			return err
		}
		taker := &storage.Order{
			OrderID: "order-taker", OwnerAddress: "taker", Side: storage.Buy,
			Amount: 100, Price: 10, AssetIn: assets.NYXT, AssetOut: assets.ECHO,
			Status: storage.OrderOpen, RunID: "run-taker",
		}
		var err error
		result, err = PlaceOrder(ctx, tx, taker, "treasury")
		return err
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	if result.Order.Amount != 50 {
		t.Fatalf("taker remaining = %d, want 50", result.Order.Amount)
	}
	if result.Order.Status != storage.OrderOpen {
		t.Fatalf("taker status = %s, want open (partially filled)", result.Order.Status)
	}
	if len(result.Trades) != 2 {
		t.Fatalf("len(trades) = %d, want 2 (taker leg + maker leg)", len(result.Trades))
	}

	err = s.WithTx(ctx, func(tx *storage.Tx) error {
		maker, err := tx.GetOrder(ctx, "order-maker")
		if err != nil {
			return err
		}
		if maker.Status != storage.OrderFilled {
			t.Errorf("maker status = %s, want filled", maker.Status)
		}
		if maker.Amount != 0 {
			t.Errorf("maker remaining = %d, want 0", maker.Amount)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify maker error = %v", err)
	}
}

// A resting BUY (NYXT->ECHO) at price 10 for 50 NYXT budget, crossed by a
// SELL (ECHO->NYXT) taker offering 3 ECHO base: trade_base = 3,
// trade_quote = 30. The maker's Amount tracks remaining NYXT (quote), so
// it must decrement by trade_quote (30), not trade_base (3).
func TestPlaceOrderSellCrossesRestingBuy(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "maker", assets.NYXT, 50); err != nil {
			return err
		}
		maker := &storage.Order{
			OrderID: "order-maker-buy", OwnerAddress: "maker", Side: storage.Buy,
			Amount: 50, Price: 10, AssetIn: assets.NYXT, AssetOut: assets.ECHO,
			Status: storage.OrderOpen, RunID: "run-maker-buy",
		}
		return tx.InsertOrder(ctx, maker)
	})
	if err != nil {
		t.Fatalf("seed maker error = %v", err)
	}

	var result *Result
	err = s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "taker", assets.ECHO, 3); err != nil {
			return err
		}
		taker := &storage.Order{
			OrderID: "order-taker-sell", OwnerAddress: "taker", Side: storage.Sell,
			Amount: 3, Price: 10, AssetIn: assets.ECHO, AssetOut: assets.NYXT,
			Status: storage.OrderOpen, RunID: "run-taker-sell",
		}
		var err error
		result, err = PlaceOrder(ctx, tx, taker, "treasury")
		return err
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	if result.Order.Amount != 0 {
		t.Fatalf("taker remaining = %d, want 0 (fully filled)", result.Order.Amount)
	}
	if result.Order.Status != storage.OrderFilled {
		t.Fatalf("taker status = %s, want filled", result.Order.Status)
	}

	err = s.WithTx(ctx, func(tx *storage.Tx) error {
		maker, err := tx.GetOrder(ctx, "order-maker-buy")
		if err != nil {
			return err
		}
		if maker.Amount != 20 {
			t.Errorf("maker remaining = %d, want 20 (50 - trade_quote 30)", maker.Amount)
		}
		if maker.Status != storage.OrderOpen {
			t.Errorf("maker status = %s, want open (partially filled)", maker.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify maker error = %v", err)
	}
}

func TestCancelOrderRejectsNonOpen(t *testing.T) {
	filled := &storage.Order{OrderID: "x", OwnerAddress: "a", Status: storage.OrderFilled}
	s := openTestStore(t)
	ctx := context.Background()
	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		return CancelOrder(ctx, tx, filled)
	})
	if err == nil {
		t.Fatal("expected error cancelling a non-open order")
	}
}
