package market

import (
	"context"
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/assets"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
	"github.com/nyx-testnet/nyx-gateway/internal/validate"
)

func testSettings() *settings.Settings {
	return &settings.Settings{FeeAddress: "treasury", ProtocolFeeFloor: 1, PlatformFeeBps: 0}
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPublishAndPurchaseListing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := testSettings()

	var listing *storage.Listing
	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "publisher", assets.NYXT, 10); err != nil {
			return err
		}
		var err error
		listing, err = PublishListing(ctx, tx, cfg, "run-publish-1", validate.Payload{
			"publisher_id": "publisher", "sku": "sku-1", "title": "Widget", "price": float64(100),
		}, "publisher")
		return err
	})
	if err != nil {
		t.Fatalf("PublishListing() error = %v", err)
	}
	if listing.Status != storage.ListingActive {
		t.Fatalf("listing status = %s, want active", listing.Status)
	}

	err = s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "buyer", assets.NYXT, 500); err != nil {
			return err
		}
		_, err := PurchaseListing(ctx, tx, cfg, "run-purchase-1", validate.Payload{
			"listing_id": listing.ListingID, "buyer_id": "buyer", "qty": float64(2),
		}, "buyer")
		return err
	})
	if err != nil {
		t.Fatalf("PurchaseListing() error = %v", err)
	}

	err = s.WithTx(ctx, func(tx *storage.Tx) error {
		sold, err := tx.GetListing(ctx, listing.ListingID)
		if err != nil {
			return err
		}
		if sold.Status != storage.ListingSold {
			t.Errorf("listing status after purchase = %s, want sold", sold.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify error = %v", err)
	}
}

func TestPurchaseListingRejectsAlreadySold(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := testSettings()

	var listing *storage.Listing
	err := s.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		listing, err = PublishListing(ctx, tx, cfg, "run-publish-2", validate.Payload{
			"publisher_id": "publisher", "sku": "sku-2", "title": "Gadget", "price": float64(50),
		}, "")
		return err
	})
	if err != nil {
		t.Fatalf("PublishListing() error = %v", err)
	}

	err = s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "buyer", assets.NYXT, 1000); err != nil {
			return err
		}
		_, err := PurchaseListing(ctx, tx, cfg, "run-purchase-2a", validate.Payload{
			"listing_id": listing.ListingID, "buyer_id": "buyer", "qty": float64(1),
		}, "buyer")
		return err
	})
	if err != nil {
		t.Fatalf("first purchase error = %v", err)
	}

	err = s.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, "buyer2", assets.NYXT, 1000); err != nil {
			return err
		}
		_, err := PurchaseListing(ctx, tx, cfg, "run-purchase-2b", validate.Payload{
			"listing_id": listing.ListingID, "buyer_id": "buyer2", "qty": float64(1),
		}, "buyer2")
		return err
	})
	if err == nil {
		t.Fatal("expected error purchasing an already-sold listing")
	}
}
