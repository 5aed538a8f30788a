// Package fees reconstructs route_fee's shape from spec §4.6 and its call
// sites (airdrop, marketplace, web2_guard, exchange): a protocol floor
// plus an optional proportional platform cut, both paid to a single fee
// address and recorded to the fee_ledger table by the caller.
package fees

import (
	"context"
	"time"

	"github.com/nyx-testnet/nyx-gateway/internal/hashutil"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

// Quote is the result of routing a fee for one module action: the amounts
// that must be added on top of a base transfer (total_paid is always >= 1
// for any mutating action, per spec §4.6).
type Quote struct {
	ProtocolFeeTotal  int64
	PlatformFeeAmount int64
	TotalPaid         int64
	FeeAddress        string
}

// Route computes the fee for a base amount under module/action, honoring
// settings.ProtocolFeeFloor as the protocol component and
// settings.PlatformFeeBps as the proportional platform component:
//
//	platform_fee_amount = max(1, round(base * platform_fee_bps / 10_000)) when platform_fee_bps > 0, else 0
//	total_paid          = protocol_fee_total + platform_fee_amount, floored at 1
func Route(cfg *settings.Settings, base int64) Quote {
	protocol := int64(cfg.ProtocolFeeFloor)
	if protocol < 0 {
		protocol = 0
	}
	var platform int64
	if cfg.PlatformFeeBps > 0 {
		bps := int64(cfg.PlatformFeeBps)
		platform = (base*bps + 5000) / 10000
		if platform < 1 {
			platform = 1
		}
	}
	total := protocol + platform
	if total < 1 {
		total = 1
	}
	return Quote{
		ProtocolFeeTotal:  protocol,
		PlatformFeeAmount: platform,
		TotalPaid:         total,
		FeeAddress:        cfg.FeeAddress,
	}
}

// Sponsor persists a fee ledger row for runID/module/action, the
// evidence-producing side effect every mutating action records alongside
// its domain rows (spec §4.6/§4.13).
func Sponsor(ctx context.Context, tx *storage.Tx, runID, module, action string, q Quote) error {
	row := &storage.FeeLedger{
		FeeID:             hashutil.DeterministicID("fee", runID),
		Module:            module,
		Action:            action,
		ProtocolFeeTotal:  q.ProtocolFeeTotal,
		PlatformFeeAmount: q.PlatformFeeAmount,
		TotalPaid:         q.TotalPaid,
		FeeAddress:        q.FeeAddress,
		RunID:             runID,
		CreatedAt:         time.Now().Unix(),
	}
	return tx.InsertFeeLedger(ctx, row)
}
