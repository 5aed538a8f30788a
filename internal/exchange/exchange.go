// Package exchange implements the continuous double auction matcher of
// spec §4.8, ported line-for-line in semantics from the original
// exchange.py's place_order/cancel_order.
package exchange

import (
	"context"
	"strconv"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/hashutil"
	"github.com/nyx-testnet/nyx-gateway/internal/ledger"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

// Result is everything a placed order produced: the (possibly partially
// filled) order itself and every trade leg recorded against it.
type Result struct {
	Order  *storage.Order
	Trades []*storage.Trade
}

func tradeID(orderID, counterID string, amount int64) string {
	digest := hashutil.Sum256("trade:", orderID, ":", counterID, ":", strconv.FormatInt(amount, 10))
	return "trade-" + digest[:16]
}

// PlaceOrder inserts order and crosses it against resting opposite-side
// orders, filling as much as possible at each maker's price, in the
// deterministic tie-break order OppositeOpenOrders already applies.
// Matches the Python matcher's loop precisely: break (not continue) once
// the taker's price no longer crosses a maker's price, since makers are
// scanned best-price-first.
func PlaceOrder(ctx context.Context, tx *storage.Tx, order *storage.Order, feeAddress string) (*Result, error) {
	balance, err := tx.GetBalance(ctx, order.OwnerAddress, order.AssetIn)
	if err != nil {
		return nil, err
	}
	if balance < order.Amount {
		return nil, gwerrors.New(gwerrors.InsufficientBalance, "insufficient "+order.AssetIn+" balance")
	}

	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	opposites, err := tx.OppositeOpenOrders(ctx, order.Side, order.AssetIn, order.AssetOut)
	if err != nil {
		return nil, err
	}

	var trades []*storage.Trade
	remaining := order.Amount

	for _, maker := range opposites {
		if maker.Price <= 0 {
			continue
		}
		if order.Side == storage.Buy && order.Price < maker.Price {
			break
		}
		if order.Side == storage.Sell && order.Price > maker.Price {
			break
		}

		var tradeBase, tradeQuote int64
		if order.Side == storage.Buy {
			buyerQuoteRemaining := remaining
			sellerBaseAvailable := maker.Amount
			maxBase := buyerQuoteRemaining / maker.Price
			tradeBase = min64(sellerBaseAvailable, maxBase)
			if tradeBase <= 0 {
				break
			}
			tradeQuote = tradeBase * maker.Price
		} else {
			sellerBaseRemaining := remaining
			buyerQuoteAvailable := maker.Amount
			maxBase := buyerQuoteAvailable / maker.Price
			tradeBase = min64(sellerBaseRemaining, maxBase)
			if tradeBase <= 0 {
				break
			}
			tradeQuote = tradeBase * maker.Price
		}

		id := tradeID(order.OrderID, maker.OrderID, tradeBase)

		takerToMakerAsset, takerToMakerAmount := order.AssetIn, tradeQuote
		makerToTakerAsset, makerToTakerAmount := order.AssetOut, tradeBase
		if order.Side == storage.Sell {
			takerToMakerAsset, takerToMakerAmount = order.AssetIn, tradeBase
			makerToTakerAsset, makerToTakerAmount = order.AssetOut, tradeQuote
		}

		if err := ledger.ApplyTransfer(ctx, tx, id+"-taker-to-maker", order.OwnerAddress, maker.OwnerAddress, takerToMakerAsset, takerToMakerAmount, 0, feeAddress, order.RunID); err != nil {
			return nil, err
		}
		if err := ledger.ApplyTransfer(ctx, tx, id+"-maker-to-taker", maker.OwnerAddress, order.OwnerAddress, makerToTakerAsset, makerToTakerAmount, 0, feeAddress, order.RunID); err != nil {
			return nil, err
		}

		takerTrade := &storage.Trade{TradeID: id + "-t", OrderID: order.OrderID, Amount: tradeBase, Price: maker.Price, RunID: order.RunID}
		makerTrade := &storage.Trade{TradeID: id + "-m", OrderID: maker.OrderID, Amount: tradeBase, Price: maker.Price, RunID: order.RunID}
		if err := tx.InsertTrade(ctx, takerTrade); err != nil {
			return nil, err
		}
		if err := tx.InsertTrade(ctx, makerTrade); err != nil {
			return nil, err
		}
		trades = append(trades, takerTrade, makerTrade)

		// maker.Amount tracks remaining order size in the maker's own
		// AssetIn unit: base (ECHO) for a resting SELL, quote (NYXT) for
		// a resting BUY. Decrement in whichever unit this trade consumed.
		makerConsumed := tradeBase
		if order.Side == storage.Sell {
			makerConsumed = tradeQuote
		}
		makerRemaining := maker.Amount - makerConsumed
		makerStatus := storage.OrderOpen
		if makerRemaining == 0 {
			makerStatus = storage.OrderFilled
		}
		if err := tx.UpdateOrderAmountStatus(ctx, maker.OrderID, makerRemaining, makerStatus); err != nil {
			return nil, err
		}

		if order.Side == storage.Buy {
			remaining = remaining - tradeQuote
		} else {
			remaining = remaining - tradeBase
		}
		if remaining == 0 {
			break
		}
	}

	status := storage.OrderOpen
	if remaining == 0 {
		status = storage.OrderFilled
	}
	if err := tx.UpdateOrderAmountStatus(ctx, order.OrderID, remaining, status); err != nil {
		return nil, err
	}
	order.Amount = remaining
	order.Status = status

	return &Result{Order: order, Trades: trades}, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// CancelOrder transitions order to cancelled after the caller has already
// verified ownership and that it is still open (spec §4.8 edge case).
func CancelOrder(ctx context.Context, tx *storage.Tx, order *storage.Order) error {
	if order.OwnerAddress == "" {
		return gwerrors.New(gwerrors.ParamInvalid, "order has no owner")
	}
	if order.Status != storage.OrderOpen {
		return gwerrors.New(gwerrors.ParamInvalid, "order is not open")
	}
	return tx.CancelOrder(ctx, order.OrderID)
}
