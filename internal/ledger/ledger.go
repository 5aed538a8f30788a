// Package ledger implements the multi-asset balance transfer semantics of
// spec §4.4: atomic debit/credit with a protocol+platform fee split, and
// the no-debit faucet variant used by the airdrop and faucet modules.
package ledger

import (
	"context"
	"time"

	"github.com/nyx-testnet/nyx-gateway/internal/assets"
	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

// FaucetAddress is the synthetic source account for faucet credits: it is
// never debited, so it never needs a wallet_accounts row of its own.
const FaucetAddress = "faucet"

// ApplyTransfer moves amount of assetID from "from" to "to" and routes fee
// to feeAddress, recording a wallet_transfers history row under
// transferID. NYXT is always the fee asset (spec §3 glossary): when
// assetID is itself NYXT the debit is combined into one balance check per
// spec §4.4 step 2; otherwise "from" is checked and debited separately in
// assetID (the principal) and in NYXT (the fee) per spec §4.4 step 3, and
// the fee always lands on feeAddress in NYXT regardless of the principal's
// asset.
func ApplyTransfer(ctx context.Context, tx *storage.Tx, transferID, from, to, assetID string, amount, fee int64, feeAddress, runID string) error {
	if amount < 0 {
		return gwerrors.New(gwerrors.ParamInvalid, "amount must be >= 0")
	}
	if fee < 0 {
		return gwerrors.New(gwerrors.ParamInvalid, "fee must be >= 0")
	}
	if amount+fee <= 0 {
		return gwerrors.New(gwerrors.ParamInvalid, "transfer must move a positive amount or fee")
	}

	if assetID == assets.NYXT {
		total := amount + fee
		balance, err := tx.GetBalance(ctx, from, assets.NYXT)
		if err != nil {
			return err
		}
		if balance < total {
			return gwerrors.New(gwerrors.InsufficientBalance, "insufficient balance for transfer plus fee")
		}
		if err := tx.AddBalance(ctx, from, assets.NYXT, -total); err != nil {
			return err
		}
		if err := tx.AddBalance(ctx, to, assets.NYXT, amount); err != nil {
			return err
		}
		if fee > 0 {
			if err := tx.AddBalance(ctx, feeAddress, assets.NYXT, fee); err != nil {
				return err
			}
		}
	} else {
		if amount > 0 {
			balance, err := tx.GetBalance(ctx, from, assetID)
			if err != nil {
				return err
			}
			if balance < amount {
				return gwerrors.New(gwerrors.InsufficientBalance, "insufficient "+assetID+" balance")
			}
		}
		if fee > 0 {
			nyxtBalance, err := tx.GetBalance(ctx, from, assets.NYXT)
			if err != nil {
				return err
			}
			if nyxtBalance < fee {
				return gwerrors.New(gwerrors.InsufficientBalance, "insufficient NYXT balance for fee")
			}
		}
		if amount > 0 {
			if err := tx.AddBalance(ctx, from, assetID, -amount); err != nil {
				return err
			}
			if err := tx.AddBalance(ctx, to, assetID, amount); err != nil {
				return err
			}
		}
		if fee > 0 {
			if err := tx.AddBalance(ctx, from, assets.NYXT, -fee); err != nil {
				return err
			}
			if err := tx.AddBalance(ctx, feeAddress, assets.NYXT, fee); err != nil {
				return err
			}
		}
	}

	return tx.InsertWalletTransfer(ctx, &storage.WalletTransfer{
		TransferID:      transferID,
		FromAddress:     from,
		ToAddress:       to,
		AssetID:         assetID,
		Amount:          amount,
		FeeTotal:        fee,
		TreasuryAddress: feeAddress,
		RunID:           runID,
		CreatedAt:       time.Now().Unix(),
	})
}

// ApplyFaucetWithFee credits amount of assetID to "to" from the synthetic
// FaucetAddress with no corresponding debit, and separately routes fee to
// feeAddress from the same synthetic source — identical bookkeeping to
// ApplyTransfer except the source is never checked for sufficiency.
func ApplyFaucetWithFee(ctx context.Context, tx *storage.Tx, transferID, to, assetID string, amount, fee int64, feeAddress, runID string) error {
	if amount <= 0 {
		return gwerrors.New(gwerrors.ParamInvalid, "amount must be > 0")
	}
	if fee < 0 {
		return gwerrors.New(gwerrors.ParamInvalid, "fee must be >= 0")
	}
	if err := tx.AddBalance(ctx, to, assetID, amount); err != nil {
		return err
	}
	if fee > 0 {
		// Fees always land on feeAddress in NYXT, regardless of the
		// faucet's own asset, matching ApplyTransfer's fee leg.
		if err := tx.AddBalance(ctx, feeAddress, assets.NYXT, fee); err != nil {
			return err
		}
	}
	return tx.InsertWalletTransfer(ctx, &storage.WalletTransfer{
		TransferID:      transferID,
		FromAddress:     FaucetAddress,
		ToAddress:       to,
		AssetID:         assetID,
		Amount:          amount,
		FeeTotal:        fee,
		TreasuryAddress: feeAddress,
		RunID:           runID,
		CreatedAt:       time.Now().Unix(),
	})
}
