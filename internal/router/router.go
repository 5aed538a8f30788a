// Package router implements the single action executor of spec §4.13: it
// is the only place in the gateway that opens a mutating transaction, so
// every mutating action runs admission (rate limiter and risk engine),
// payload validation and the ownership check (before its transaction for
// most actions, inside it for the marketplace ones), then writes the
// evidence record, the domain change and the fee row in one transaction
// with a single commit, producing exactly one evidence_run/receipt/
// fee_ledger triple per call. Grounded on
// cmd/klingond/main.go's wiring order (the teacher composes its services
// in one place rather than scattering construction across handlers) and
// on evidence_adapter.py's run_and_record discipline already carried into
// internal/evidence.
package router

import (
	"context"
	"time"

	"github.com/nyx-testnet/nyx-gateway/internal/assets"
	"github.com/nyx-testnet/nyx-gateway/internal/chatpush"
	"github.com/nyx-testnet/nyx-gateway/internal/compliance"
	"github.com/nyx-testnet/nyx-gateway/internal/evidence"
	"github.com/nyx-testnet/nyx-gateway/internal/exchange"
	"github.com/nyx-testnet/nyx-gateway/internal/fees"
	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/hashutil"
	"github.com/nyx-testnet/nyx-gateway/internal/ledger"
	"github.com/nyx-testnet/nyx-gateway/internal/market"
	"github.com/nyx-testnet/nyx-gateway/internal/portal"
	"github.com/nyx-testnet/nyx-gateway/internal/risk"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
	"github.com/nyx-testnet/nyx-gateway/internal/validate"
	"github.com/nyx-testnet/nyx-gateway/internal/web2guard"
)

// Response is the envelope every mutating action returns on success
// (spec §6's mutating response shape).
type Response struct {
	RunID         string         `json:"run_id"`
	Status        string         `json:"status"`
	StateHash     string         `json:"state_hash"`
	ReceiptHashes []string       `json:"receipt_hashes"`
	ReplayOK      bool           `json:"replay_ok"`
	Data          map[string]any `json:"data,omitempty"`
}

func complete(runID string, outcome evidence.Outcome, data map[string]any) *Response {
	return &Response{
		RunID:         runID,
		Status:        "complete",
		StateHash:     outcome.StateHash,
		ReceiptHashes: outcome.ReceiptHashes,
		ReplayOK:      outcome.ReplayOK,
		Data:          data,
	}
}

// Executor wires every built domain package behind the single-commit
// discipline spec §4.13 requires. One Executor serves the whole process;
// it carries no per-request state of its own.
type Executor struct {
	Store      *storage.Store
	Cfg        *settings.Settings
	Engine     *risk.Engine
	Limiter    *risk.RateLimiter
	Proof      evidence.ProofEngine
	Guard      *web2guard.Guard
	Compliance *compliance.Checker
	ChatHub    *chatpush.Hub
}

// New builds an Executor from its collaborators.
func New(store *storage.Store, cfg *settings.Settings, engine *risk.Engine, limiter *risk.RateLimiter, proof evidence.ProofEngine, guard *web2guard.Guard, comp *compliance.Checker, hub *chatpush.Hub) *Executor {
	return &Executor{Store: store, Cfg: cfg, Engine: engine, Limiter: limiter, Proof: proof, Guard: guard, Compliance: comp, ChatHub: hub}
}

// admit runs the rate limiter and risk engine ahead of any mutation;
// called before a transaction opens so a throttled caller never pays the
// cost of a DB round trip.
func (e *Executor) admit(action, accountKey, clientIP string, amount int64) error {
	if err := e.Limiter.Check(clientIP, accountKey); err != nil {
		return err
	}
	return e.Engine.Check(action, accountKey, clientIP, amount)
}

func (e *Executor) complianceCheck(ctx context.Context, action, accountKey string) error {
	if e.Compliance == nil {
		return nil
	}
	return e.Compliance.Check(ctx, accountKey, action)
}

// fail records the circuit-breaker failure for action whenever the
// mutating transaction itself returns an error (not a pre-admission
// rejection, which never reaches the breaker).
func (e *Executor) fail(action string) {
	e.Engine.RecordFailure(action)
}

// --- Wallet -----------------------------------------------------------

// WalletTransfer moves funds between two addresses, charging the routed
// fee from the same principal. callerWalletAddress is empty for the
// legacy unauthenticated path (spec §9 open question), in which case
// ownership is not enforced.
func (e *Executor) WalletTransfer(ctx context.Context, callerWalletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	v, err := validate.ValidateWalletTransfer(payload)
	if err != nil {
		return nil, err
	}
	if callerWalletAddress != "" && v.FromAddress != callerWalletAddress {
		return nil, gwerrors.New(gwerrors.FromAddressMismatch, "from_address mismatch")
	}
	if err := e.admit("wallet_transfer", v.FromAddress, clientIP, int64(v.Amount)); err != nil {
		return nil, err
	}
	if err := e.complianceCheck(ctx, "wallet_transfer", v.FromAddress); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, int64(v.Amount))
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "wallet", "transfer", evidence.Payload{
			"from_address": v.FromAddress, "to_address": v.ToAddress, "amount": v.Amount, "asset_id": v.AssetID,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("transfer", runID), v.FromAddress, v.ToAddress, v.AssetID, int64(v.Amount), quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "wallet", "transfer", quote); err != nil {
			return err
		}
		resp = complete(runID, outcome, nil)
		return nil
	})
	if err != nil {
		e.fail("wallet_transfer")
		return nil, err
	}
	return resp, nil
}

// WalletFaucet credits address from the synthetic faucet source, subject
// to the cooldown/daily-count/daily-amount/per-ip limits of spec §4.12.
// accountKey scopes the per-account throttles: the caller's portal
// account_id when authenticated, falling back to the claimed address for
// the legacy unauthenticated path.
func (e *Executor) WalletFaucet(ctx context.Context, accountKey, callerWalletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	v, err := validate.ValidateWalletFaucet(payload)
	if err != nil {
		return nil, err
	}
	if callerWalletAddress != "" && v.Address != callerWalletAddress {
		return nil, gwerrors.New(gwerrors.FaucetAddressMismatch, "address mismatch")
	}
	if accountKey == "" {
		accountKey = v.Address
	}
	if err := e.admit("wallet_faucet", accountKey, clientIP, int64(v.Amount)); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, int64(v.Amount))
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		now := time.Now().Unix()
		dayAgo := now - 86400

		last, err := tx.LastFaucetClaim(ctx, accountKey)
		if err != nil {
			return err
		}
		if last > 0 && now-last < int64(e.Cfg.FaucetCooldownSecs) {
			return gwerrors.New(gwerrors.FaucetCooldown, "faucet cooldown still active")
		}
		claims, err := tx.CountFaucetClaimsSince(ctx, accountKey, dayAgo)
		if err != nil {
			return err
		}
		if claims >= int64(e.Cfg.FaucetMaxClaimsPerDay) {
			return gwerrors.New(gwerrors.FaucetDailyClaims, "daily faucet claim limit reached")
		}
		claimed, err := tx.SumFaucetAmountSince(ctx, accountKey, dayAgo)
		if err != nil {
			return err
		}
		if claimed+int64(v.Amount) > int64(e.Cfg.FaucetMaxAmountPerDay) {
			return gwerrors.New(gwerrors.FaucetDailyAmount, "daily faucet amount limit reached")
		}
		ipClaims, err := tx.CountFaucetClaimsByIPSince(ctx, clientIP, dayAgo)
		if err != nil {
			return err
		}
		if ipClaims >= int64(e.Cfg.FaucetMaxClaimsPerIP) {
			return gwerrors.New(gwerrors.FaucetIPLimit, "daily per-ip faucet claim limit reached")
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "wallet", "faucet", evidence.Payload{
			"address": v.Address, "amount": v.Amount, "asset_id": v.AssetID,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		if err := ledger.ApplyFaucetWithFee(ctx, tx, hashutil.DeterministicID("faucet", runID), v.Address, v.AssetID, int64(v.Amount), quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := tx.InsertFaucetClaim(ctx, &storage.FaucetClaim{
			ClaimID: hashutil.DeterministicID("faucetclaim", runID), AccountID: accountKey,
			Address: v.Address, AssetID: v.AssetID, Amount: int64(v.Amount), IP: clientIP,
			RunID: runID, CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "wallet", "faucet", quote); err != nil {
			return err
		}
		resp = complete(runID, outcome, nil)
		return nil
	})
	if err != nil {
		e.fail("wallet_faucet")
		return nil, err
	}
	return resp, nil
}

// --- Exchange -----------------------------------------------------------

// ExchangePlaceOrder charges the fixed admission fee in NYXT, then hands
// the order to the matcher — fee-before-mutation, per spec §4.13's
// domain-ordering rule for exchange/chat.
func (e *Executor) ExchangePlaceOrder(ctx context.Context, callerWalletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	v, err := validate.ValidatePlaceOrder(payload)
	if err != nil {
		return nil, err
	}
	if callerWalletAddress != "" && v.OwnerAddress != callerWalletAddress {
		return nil, gwerrors.New(gwerrors.AddressMismatch, "owner_address mismatch")
	}
	if err := e.admit("exchange_order", v.OwnerAddress, clientIP, int64(v.Amount)); err != nil {
		return nil, err
	}
	if err := e.complianceCheck(ctx, "exchange_order", v.OwnerAddress); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "exchange", "place_order", evidence.Payload{
			"side": v.Side, "amount": v.Amount, "price": v.Price, "asset_in": v.AssetIn, "asset_out": v.AssetOut, "owner_address": v.OwnerAddress,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("admission", runID), v.OwnerAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "exchange", "place_order", quote); err != nil {
			return err
		}

		order := &storage.Order{
			OrderID: hashutil.DeterministicID("order", runID), OwnerAddress: v.OwnerAddress,
			Side: storage.Side(v.Side), Amount: int64(v.Amount), Price: int64(v.Price),
			AssetIn: v.AssetIn, AssetOut: v.AssetOut, Status: storage.OrderOpen,
			RunID: runID, CreatedAt: time.Now().Unix(),
		}
		result, err := exchange.PlaceOrder(ctx, tx, order, e.Cfg.FeeAddress)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"order": result.Order, "trades": result.Trades})
		return nil
	})
	if err != nil {
		e.fail("exchange_order")
		return nil, err
	}
	return resp, nil
}

// ExchangeCancelOrder cancels an order the caller owns.
func (e *Executor) ExchangeCancelOrder(ctx context.Context, callerWalletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	v, err := validate.ValidateCancel(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("exchange_cancel", callerWalletAddress, clientIP, 0); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		order, err := tx.GetOrder(ctx, v.OrderID)
		if err != nil {
			return gwerrors.New(gwerrors.ParamInvalid, "order_id not found")
		}
		if callerWalletAddress != "" && order.OwnerAddress != callerWalletAddress {
			return gwerrors.New(gwerrors.AddressMismatch, "caller does not own order")
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "exchange", "cancel_order", evidence.Payload{
			"order_id": v.OrderID, "owner_address": order.OwnerAddress,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("admission", runID), order.OwnerAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "exchange", "cancel_order", quote); err != nil {
			return err
		}
		if err := exchange.CancelOrder(ctx, tx, order); err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"order_id": v.OrderID})
		return nil
	})
	if err != nil {
		e.fail("exchange_cancel")
		return nil, err
	}
	return resp, nil
}

// --- Marketplace ---------------------------------------------------------

// MarketplacePublishListing wraps market.PublishListing, which already
// folds its own fee quote/sponsor into the domain call.
func (e *Executor) MarketplacePublishListing(ctx context.Context, callerWalletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	if err := e.admit("marketplace_purchase", callerWalletAddress, clientIP, 0); err != nil {
		return nil, err
	}
	var resp *Response
	err := e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "marketplace", "listing_publish", evidence.Payload(payload), e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		listing, err := market.PublishListing(ctx, tx, e.Cfg, runID, payload, callerWalletAddress)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"listing": listing})
		return nil
	})
	if err != nil {
		e.fail("marketplace_publish")
		return nil, err
	}
	return resp, nil
}

// MarketplacePurchaseListing wraps market.PurchaseListing.
func (e *Executor) MarketplacePurchaseListing(ctx context.Context, callerWalletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	if err := e.admit("marketplace_purchase", callerWalletAddress, clientIP, 0); err != nil {
		return nil, err
	}
	if err := e.complianceCheck(ctx, "marketplace_purchase", callerWalletAddress); err != nil {
		return nil, err
	}
	var resp *Response
	err := e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "marketplace", "purchase_listing", evidence.Payload(payload), e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		purchase, err := market.PurchaseListing(ctx, tx, e.Cfg, runID, payload, callerWalletAddress)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"purchase": purchase})
		return nil
	})
	if err != nil {
		e.fail("marketplace_purchase")
		return nil, err
	}
	return resp, nil
}

// --- Chat -----------------------------------------------------------------

// ChatCreateRoom creates a new hash-chained room, charging the same
// fixed admission fee as a chat message.
func (e *Executor) ChatCreateRoom(ctx context.Context, callerWalletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	if callerWalletAddress == "" {
		return nil, gwerrors.New(gwerrors.AuthRequired, "session required")
	}
	v, err := validate.ValidateRoomPayload(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("chat_message", callerWalletAddress, clientIP, 0); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("admission", runID), callerWalletAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "chat", "create_room", quote); err != nil {
			return err
		}

		room := &storage.ChatRoom{RoomID: hashutil.DeterministicID("room", runID), Name: v.Name, IsPublic: v.IsPublic, CreatedAt: time.Now().Unix()}
		if err := tx.InsertChatRoom(ctx, room); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "chat", "create_room", evidence.Payload{
			"room_id": room.RoomID, "name": room.Name, "is_public": room.IsPublic,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"room": room})
		return nil
	})
	if err != nil {
		e.fail("chat_message")
		return nil, err
	}
	return resp, nil
}

// ChatSendRoomMessage appends an E2EE-opaque message to a room's hash
// chain, charging the fixed admission fee first, and pushes the
// committed row to any live subscribers after the commit succeeds.
func (e *Executor) ChatSendRoomMessage(ctx context.Context, callerWalletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	if callerWalletAddress == "" {
		return nil, gwerrors.New(gwerrors.AuthRequired, "session required")
	}
	v, err := validate.ValidateRoomMessagePayload(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("chat_message", callerWalletAddress, clientIP, 0); err != nil {
		return nil, err
	}
	if err := e.complianceCheck(ctx, "chat_message", callerWalletAddress); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	var msg *storage.ChatMessage
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.GetChatRoom(ctx, v.RoomID); err != nil {
			return gwerrors.New(gwerrors.ParamInvalid, "room_id not found")
		}

		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("admission", runID), callerWalletAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "chat", "send_message", quote); err != nil {
			return err
		}

		prevHead, prevSeq, err := tx.LastChainHead(ctx, v.RoomID)
		if err != nil {
			return err
		}
		seq := prevSeq + 1
		now := time.Now().Unix()
		messageID := hashutil.DeterministicID("msg", runID)
		msgDigest, err := hashutil.CanonicalDigestHex(map[string]any{
			"message_id": messageID, "room_id": v.RoomID, "sender": callerWalletAddress, "body": v.Body, "seq": seq,
		})
		if err != nil {
			return err
		}
		chainHead := hashutil.Sum256(prevHead, msgDigest)
		msg = &storage.ChatMessage{
			MessageID: messageID, RoomID: v.RoomID, Sender: callerWalletAddress,
			Body: v.Body, Seq: seq, PrevDigest: prevHead, MsgDigest: msgDigest, ChainHead: chainHead, CreatedAt: now,
		}
		if err := tx.InsertChatMessage(ctx, msg); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "chat", "send_message", evidence.Payload{
			"room_id": v.RoomID, "seq": seq, "msg_digest": msgDigest,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"message": msg})
		return nil
	})
	if err != nil {
		e.fail("chat_message")
		return nil, err
	}
	if e.ChatHub != nil {
		e.ChatHub.NewMessage(v.RoomID, msg)
	}
	return resp, nil
}

// ChatSendLegacyMessage appends to the flat, unchained channel broadcast
// surface (validate_chat_payload's {channel, message} shape).
func (e *Executor) ChatSendLegacyMessage(ctx context.Context, senderAccountID, callerWalletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	v, err := validate.ValidateChatPayload(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("chat_message", callerWalletAddress, clientIP, 0); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		if callerWalletAddress != "" {
			if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("admission", runID), callerWalletAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
				return err
			}
		} else {
			if err := tx.AddBalance(ctx, quote.FeeAddress, assets.NYXT, quote.TotalPaid); err != nil {
				return err
			}
		}
		if err := fees.Sponsor(ctx, tx, runID, "chat", "legacy_message", quote); err != nil {
			return err
		}

		msg := &storage.LegacyMessage{
			MessageID: hashutil.DeterministicID("legacymsg", runID), Channel: v.Channel,
			SenderAccountID: senderAccountID, Body: v.Message, CreatedAt: time.Now().Unix(),
		}
		if err := tx.InsertLegacyMessage(ctx, msg); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "chat", "legacy_message", evidence.Payload{
			"channel": v.Channel,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"message": msg})
		return nil
	})
	if err != nil {
		e.fail("chat_message")
		return nil, err
	}
	return resp, nil
}

// --- Portal -----------------------------------------------------------

// PortalCreateAccount registers a new handle/public-key pair and derives
// its wallet address (spec §4.10). There is no caller session yet — this
// call is how one gets created — so admission is scoped by client IP
// alone, and the fixed admission fee is sponsored straight onto
// feeAddress rather than debited from an as-yet-unfunded wallet, the same
// treatment as the unauthenticated legacy chat path.
func (e *Executor) PortalCreateAccount(ctx context.Context, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	v, err := validate.ValidatePortalCreateAccount(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("portal_create_account", "", clientIP, 0); err != nil {
		return nil, err
	}

	account, err := portal.CreateAccount(v.Handle, v.PublicKey)
	if err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.GetPortalAccountByHandle(ctx, account.Handle); err == nil {
			return gwerrors.New(gwerrors.BadRequest, "handle already taken")
		}
		if err := tx.InsertPortalAccount(ctx, account); err != nil {
			return err
		}
		if err := tx.AddBalance(ctx, quote.FeeAddress, assets.NYXT, quote.TotalPaid); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "portal", "create_account", quote); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "portal", "create_account", evidence.Payload{
			"account_id": account.AccountID, "handle": account.Handle, "wallet_address": account.WalletAddress,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"account": account})
		return nil
	})
	if err != nil {
		e.fail("portal_create_account")
		return nil, err
	}
	return resp, nil
}

// PortalIssueChallenge mints a single-use nonce for the account named by
// handle.
func (e *Executor) PortalIssueChallenge(ctx context.Context, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	v, err := validate.ValidatePortalChallenge(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("portal_challenge", "", clientIP, 0); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		account, aerr := tx.GetPortalAccountByHandle(ctx, v.Handle)
		if aerr != nil {
			return gwerrors.New(gwerrors.BadRequest, "account not found")
		}
		challenge, cerr := portal.IssueChallenge(e.Cfg, account.AccountID)
		if cerr != nil {
			return cerr
		}
		if err := tx.InsertPortalChallenge(ctx, challenge); err != nil {
			return err
		}
		if err := tx.AddBalance(ctx, quote.FeeAddress, assets.NYXT, quote.TotalPaid); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "portal", "challenge", quote); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "portal", "challenge", evidence.Payload{
			"account_id": account.AccountID, "nonce": challenge.Nonce,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{
			"account_id": account.AccountID, "nonce": challenge.Nonce, "expires_at": challenge.ExpiresAt,
		})
		return nil
	})
	if err != nil {
		e.fail("portal_challenge")
		return nil, err
	}
	return resp, nil
}

// PortalVerifyChallenge consumes a challenge atomically and, on success,
// mints a session token (spec §4.10).
func (e *Executor) PortalVerifyChallenge(ctx context.Context, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	v, err := validate.ValidatePortalVerify(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("portal_verify", "", clientIP, 0); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	var token *portal.Token
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		account, aerr := tx.GetPortalAccountByHandle(ctx, v.Handle)
		if aerr != nil {
			return gwerrors.New(gwerrors.AuthInvalid, "account not found")
		}
		challenge, cerr := tx.GetPortalChallenge(ctx, account.AccountID, v.Nonce)
		if cerr != nil {
			return gwerrors.New(gwerrors.AuthInvalid, "challenge not found")
		}
		if err := portal.VerifyChallenge(challenge, account, v.Signature); err != nil {
			return err
		}
		if err := tx.MarkPortalChallengeUsed(ctx, account.AccountID, v.Nonce); err != nil {
			return err
		}

		var terr error
		token, terr = portal.MintSession(e.Cfg, account.AccountID)
		if terr != nil {
			return terr
		}
		if err := tx.InsertPortalSession(ctx, token.Session); err != nil {
			return err
		}
		if err := tx.AddBalance(ctx, quote.FeeAddress, assets.NYXT, quote.TotalPaid); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "portal", "verify", quote); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "portal", "verify", evidence.Payload{
			"account_id": account.AccountID,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{
			"token": token.Compact, "account_id": account.AccountID, "expires_at": token.Session.ExpiresAt,
		})
		return nil
	})
	if err != nil {
		e.fail("portal_verify")
		return nil, err
	}
	return resp, nil
}

// PortalLogout deletes the caller's session row by its token digest.
func (e *Executor) PortalLogout(ctx context.Context, accountID, walletAddress, compactToken, clientIP string, seed int64, runID string) (*Response, error) {
	if accountID == "" {
		return nil, gwerrors.New(gwerrors.AuthRequired, "session required")
	}
	if err := e.admit("portal_logout", accountID, clientIP, 0); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err := e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.DeletePortalSession(ctx, portal.TokenDigest(compactToken)); err != nil {
			return err
		}
		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("admission", runID), walletAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "portal", "logout", quote); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "portal", "logout", evidence.Payload{
			"account_id": accountID,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, nil)
		return nil
	})
	if err != nil {
		e.fail("portal_logout")
		return nil, err
	}
	return resp, nil
}

// PortalUpdateProfile overwrites the caller's bio.
func (e *Executor) PortalUpdateProfile(ctx context.Context, accountID, walletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	if accountID == "" {
		return nil, gwerrors.New(gwerrors.AuthRequired, "session required")
	}
	v, err := validate.ValidatePortalProfile(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("portal_profile", accountID, clientIP, 0); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.UpdatePortalProfile(ctx, accountID, v.Bio); err != nil {
			return err
		}
		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("admission", runID), walletAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "portal", "profile", quote); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "portal", "profile", evidence.Payload{
			"account_id": accountID, "bio": v.Bio,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"bio": v.Bio})
		return nil
	})
	if err != nil {
		e.fail("portal_profile")
		return nil, err
	}
	return resp, nil
}

// PortalRegisterE2EEIdentity registers or rotates the caller's published
// E2EE identity key.
func (e *Executor) PortalRegisterE2EEIdentity(ctx context.Context, accountID, walletAddress, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	if accountID == "" {
		return nil, gwerrors.New(gwerrors.AuthRequired, "session required")
	}
	v, err := validate.ValidatePortalE2EEIdentity(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("portal_e2ee_identity", accountID, clientIP, 0); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		identity := &storage.E2EEIdentity{AccountID: accountID, IdentityKey: v.IdentityKey, CreatedAt: time.Now().Unix()}
		if err := tx.UpsertE2EEIdentity(ctx, identity); err != nil {
			return err
		}
		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("admission", runID), walletAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "portal", "e2ee_identity", quote); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "portal", "e2ee_identity", evidence.Payload{
			"account_id": accountID,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"identity": identity})
		return nil
	})
	if err != nil {
		e.fail("portal_e2ee_identity")
		return nil, err
	}
	return resp, nil
}

// --- Airdrop ---------------------------------------------------------------

// airdropRewards is the static task catalog of spec §4.12: each task
// pays out once per account, gated on a completion check against the
// account's own trade/chat/purchase history.
var airdropRewards = map[string]int64{
	"trade_1": 300,
	"chat_1":  100,
	"store_1": 200,
}

// AirdropClaim pays out a one-time task reward, funded from the
// synthetic faucet source like WalletFaucet.
func (e *Executor) AirdropClaim(ctx context.Context, accountID, walletAddress, clientIP string, seed int64, runID string, taskID string) (*Response, error) {
	if accountID == "" {
		return nil, gwerrors.New(gwerrors.AuthRequired, "session required")
	}
	reward, ok := airdropRewards[taskID]
	if !ok {
		return nil, gwerrors.New(gwerrors.TaskUnknown, "unknown airdrop task")
	}
	if err := e.admit("wallet_airdrop", accountID, clientIP, reward); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, reward)
	var resp *Response
	err := e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		claimed, err := tx.AirdropClaimed(ctx, accountID, taskID)
		if err != nil {
			return err
		}
		if claimed {
			return gwerrors.New(gwerrors.TaskAlreadyClaimed, "task already claimed")
		}

		complete_, err := e.taskComplete(ctx, tx, taskID, accountID, walletAddress)
		if err != nil {
			return err
		}
		if !complete_ {
			return gwerrors.New(gwerrors.TaskIncomplete, "task requirements not met")
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "airdrop", "claim", evidence.Payload{
			"account_id": accountID, "task_id": taskID, "reward": reward,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		if err := ledger.ApplyFaucetWithFee(ctx, tx, hashutil.DeterministicID("airdrop", runID), walletAddress, assets.NYXT, reward, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := tx.InsertAirdropClaim(ctx, &storage.AirdropClaim{AccountID: accountID, TaskID: taskID, Reward: reward, RunID: runID, CreatedAt: time.Now().Unix()}); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "airdrop", "claim", quote); err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"task_id": taskID, "reward": reward})
		return nil
	})
	if err != nil {
		e.fail("wallet_airdrop")
		return nil, err
	}
	return resp, nil
}

func (e *Executor) taskComplete(ctx context.Context, tx *storage.Tx, taskID, accountID, walletAddress string) (bool, error) {
	switch taskID {
	case "trade_1":
		n, err := tx.CountTradesByOwner(ctx, walletAddress)
		return n > 0, err
	case "chat_1":
		n, err := tx.CountLegacyMessagesBySender(ctx, accountID)
		return n > 0, err
	case "store_1":
		n, err := tx.CountPurchasesByBuyer(ctx, walletAddress)
		return n > 0, err
	default:
		return false, gwerrors.New(gwerrors.TaskUnknown, "unknown airdrop task")
	}
}

// --- Entertainment -----------------------------------------------------

// EntertainmentStep records one step of the ambient, non-monetized
// entertainment feature. It still writes the fee_ledger row every
// mutating action requires (spec §8's fee-positivity invariant); the fee
// is credited straight to the fee address without debiting any account,
// since there is no natural payer for a feature with no principal of its
// own.
func (e *Executor) EntertainmentStep(ctx context.Context, accountID, clientIP string, seed int64, runID string, payload validate.Payload) (*Response, error) {
	v, err := validate.ValidateEntertainmentPayload(payload)
	if err != nil {
		return nil, err
	}
	if err := e.admit("entertainment_step", accountID, clientIP, 0); err != nil {
		return nil, err
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err = e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.AddBalance(ctx, quote.FeeAddress, assets.NYXT, quote.TotalPaid); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "entertainment", "step", quote); err != nil {
			return err
		}

		now := time.Now().Unix()
		if err := tx.EnsureEntertainmentItem(ctx, v.ItemID, now); err != nil {
			return err
		}
		event := &storage.EntertainmentEvent{
			EventID: hashutil.DeterministicID("entevt", runID), ItemID: v.ItemID, AccountID: accountID,
			Mode: v.Mode, Step: int64(v.Step), RunID: runID, CreatedAt: now,
		}
		if err := tx.InsertEntertainmentEvent(ctx, event); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "entertainment", "step", evidence.Payload{
			"item_id": v.ItemID, "mode": v.Mode, "step": v.Step,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"event": event})
		return nil
	})
	if err != nil {
		e.fail("entertainment_step")
		return nil, err
	}
	return resp, nil
}

// --- Web2 guard ---------------------------------------------------------

// Web2GuardRequest dispatches a bounded, allowlisted outbound call. A
// validation-stage denial (bad scheme, SSRF, no allowlist match) never
// touches the ledger or persists a row; once the guard actually attempts
// the upstream call, the fixed fee is charged and the request is
// persisted regardless of the upstream's own success or failure.
func (e *Executor) Web2GuardRequest(ctx context.Context, accountID, callerWalletAddress, clientIP string, seed int64, runID string, rawURL, method string, body []byte) (*Response, error) {
	if accountID == "" {
		return nil, gwerrors.New(gwerrors.AuthRequired, "session required")
	}
	if err := e.admit("web2_request", accountID, clientIP, 0); err != nil {
		return nil, err
	}

	req, result, dispatchErr := e.Guard.Dispatch(ctx, rawURL, method, body)
	if dispatchErr != nil {
		if ge, ok := gwerrors.As(dispatchErr); ok && (ge.ErrCode == gwerrors.AllowlistDeny || ge.ErrCode == gwerrors.ParamInvalid) {
			return nil, dispatchErr
		}
	}

	quote := fees.Route(e.Cfg, 0)
	var resp *Response
	err := e.Store.WithTx(ctx, func(tx *storage.Tx) error {
		if err := ledger.ApplyTransfer(ctx, tx, hashutil.DeterministicID("admission", runID), callerWalletAddress, quote.FeeAddress, assets.NYXT, 0, quote.TotalPaid, quote.FeeAddress, runID); err != nil {
			return err
		}
		if err := fees.Sponsor(ctx, tx, runID, "web2", "request", quote); err != nil {
			return err
		}

		row := &storage.Web2GuardRequest{
			RequestID: hashutil.DeterministicID("web2req", runID), AccountID: accountID, RunID: runID,
			SafeURL: req.SafeURL, Method: req.Method, RequestHash: result.RequestHash,
			ResponseHash: result.ResponseHash, Status: result.Status, Size: result.ResponseSize,
			Truncated: result.Truncated, BodySize: len(req.Body), HeaderNames: result.HeaderNames,
			SealedRequest: web2guard.SealedRequest(req, result), CreatedAt: time.Now().Unix(),
		}
		if err := tx.InsertWeb2GuardRequest(ctx, row); err != nil {
			return err
		}

		outcome, err := evidence.RunAndRecord(ctx, tx, e.Proof, seed, runID, "web2", "request", evidence.Payload{
			"safe_url": req.SafeURL, "method": req.Method, "status": result.Status,
		}, e.Cfg.RunRoot)
		if err != nil {
			return err
		}
		resp = complete(runID, outcome, map[string]any{"request": row})
		return nil
	})
	if err != nil {
		e.fail("web2_request")
		return nil, err
	}
	if dispatchErr != nil {
		return resp, dispatchErr
	}
	return resp, nil
}
