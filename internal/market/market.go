// Package market implements the listing/purchase marketplace of spec
// §4.9, ported from marketplace.py's publish_listing/purchase_listing.
package market

import (
	"context"
	"time"

	"github.com/nyx-testnet/nyx-gateway/internal/assets"
	"github.com/nyx-testnet/nyx-gateway/internal/fees"
	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/hashutil"
	"github.com/nyx-testnet/nyx-gateway/internal/ledger"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
	"github.com/nyx-testnet/nyx-gateway/internal/validate"
)

// PublishListing creates an active listing owned by publisherID and writes
// the publishing fee's fee_ledger row (no principal moves, only the fee).
// When callerWalletAddress is present it must match publisherID and pays
// the fee; without it the fee is credited to the fee address and no
// account is debited.
func PublishListing(ctx context.Context, tx *storage.Tx, cfg *settings.Settings, runID string, payload validate.Payload, callerWalletAddress string) (*storage.Listing, error) {
	v, err := validate.ValidateListingPayload(payload)
	if err != nil {
		return nil, err
	}
	if callerWalletAddress != "" && v.PublisherID != callerWalletAddress {
		return nil, gwerrors.New(gwerrors.AddressMismatch, "publisher_id mismatch")
	}

	quote := fees.Route(cfg, 0)

	if callerWalletAddress != "" {
		balance, err := tx.GetBalance(ctx, callerWalletAddress, assets.NYXT)
		if err != nil {
			return nil, err
		}
		if balance < quote.TotalPaid {
			return nil, gwerrors.New(gwerrors.InsufficientBalance, "insufficient NYXT balance for fee")
		}
	}

	listing := &storage.Listing{
		ListingID:   hashutil.DeterministicID("listing", runID),
		PublisherID: v.PublisherID,
		SKU:         v.SKU,
		Title:       v.Title,
		Price:       int64(v.Price),
		Status:      storage.ListingActive,
		RunID:       runID,
		CreatedAt:   time.Now().Unix(),
	}
	if err := tx.InsertListing(ctx, listing); err != nil {
		return nil, err
	}

	if callerWalletAddress != "" {
		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("fee", runID), callerWalletAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return nil, err
		}
	} else if err := tx.AddBalance(ctx, quote.FeeAddress, assets.NYXT, quote.TotalPaid); err != nil {
		return nil, err
	}
	if err := fees.Sponsor(ctx, tx, runID, "marketplace", "listing_publish", quote); err != nil {
		return nil, err
	}
	return listing, nil
}

// PurchaseListing transfers qty*price NYXT (plus fee) from buyerID to the
// listing's publisher and marks the listing sold.
func PurchaseListing(ctx context.Context, tx *storage.Tx, cfg *settings.Settings, runID string, payload validate.Payload, callerWalletAddress string) (*storage.Purchase, error) {
	v, err := validate.ValidatePurchasePayload(payload)
	if err != nil {
		return nil, err
	}
	if callerWalletAddress != "" && v.BuyerID != callerWalletAddress {
		return nil, gwerrors.New(gwerrors.AddressMismatch, "buyer_id mismatch")
	}

	listing, err := tx.GetListing(ctx, v.ListingID)
	if err != nil {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "listing_id not found")
	}
	if listing.Status != storage.ListingActive {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "listing not available")
	}

	totalPrice := listing.Price * int64(v.Qty)
	quote := fees.Route(cfg, totalPrice)

	if callerWalletAddress != "" {
		balance, err := tx.GetBalance(ctx, callerWalletAddress, assets.NYXT)
		if err != nil {
			return nil, err
		}
		if balance < totalPrice+quote.TotalPaid {
			return nil, gwerrors.New(gwerrors.InsufficientBalance, "insufficient NYXT balance for amount + fee")
		}
	}

	if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("purchase-xfer", runID), v.BuyerID, listing.PublisherID, assets.NYXT, totalPrice, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
		return nil, err
	}

	purchase := &storage.Purchase{
		PurchaseID: hashutil.DeterministicID("purchase", runID),
		ListingID:  v.ListingID,
		BuyerID:    v.BuyerID,
		Qty:        int64(v.Qty),
		RunID:      runID,
		CreatedAt:  time.Now().Unix(),
	}
	if err := tx.InsertPurchase(ctx, purchase); err != nil {
		return nil, err
	}
	if err := tx.MarkListingSold(ctx, v.ListingID); err != nil {
		return nil, err
	}
	if err := fees.Sponsor(ctx, tx, runID, "marketplace", "purchase_listing", quote); err != nil {
		return nil, err
	}
	return purchase, nil
}
