// Package validate implements the per-action payload validators of
// spec §4.5, grounded on validation.py in the original implementation:
// bounds, address shape, asset-id membership and the opaque chat envelope
// shape are all carried over unchanged.
package validate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/nyx-testnet/nyx-gateway/internal/assets"
	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
)

const (
	MaxAmount = 1_000_000
	MaxPrice  = 1_000_000
)

var entertainmentModes = map[string]bool{"pulse": true, "drift": true, "scan": true}

var addressPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Payload is the decoded JSON body of a mutating action.
type Payload map[string]any

func (p Payload) str(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// RequireText validates a short identifier-shaped string field.
func RequireText(p Payload, key string, maxLen int) (string, error) {
	s, ok := p.str(key)
	if !ok || s == "" {
		return "", gwerrors.Newf(gwerrors.ParamRequired, "%s required", key).WithDetails(map[string]any{"param": key})
	}
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return "", gwerrors.Newf(gwerrors.ParamInvalid, "%s too long", key).WithDetails(map[string]any{"param": key})
	}
	if !addressPattern.MatchString(s) {
		return "", gwerrors.Newf(gwerrors.ParamInvalid, "%s invalid", key).WithDetails(map[string]any{"param": key})
	}
	return s, nil
}

// RequireAddress validates a wallet/account address field.
func RequireAddress(p Payload, key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", gwerrors.Newf(gwerrors.ParamRequired, "%s required", key)
	}
	return ValidateAddressText(v, key)
}

// ValidateAddressText validates a raw value as an address.
func ValidateAddressText(v any, name string) (string, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", gwerrors.Newf(gwerrors.ParamRequired, "%s required", name)
	}
	s = strings.TrimSpace(s)
	if !addressPattern.MatchString(s) {
		return "", gwerrors.Newf(gwerrors.ParamInvalid, "%s invalid", name)
	}
	return s, nil
}

// RequireAmount validates a bounded positive integer amount.
func RequireAmount(p Payload, key string, maxValue int) (int, error) {
	return RequireInt(p, key, 1, maxValue)
}

// RequireInt validates an integer field within [minValue, maxValue]; a
// maxValue of 0 means unbounded above.
func RequireInt(p Payload, key string, minValue, maxValue int) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, gwerrors.Newf(gwerrors.ParamRequired, "%s required", key)
	}
	n, ok := asInt(v)
	if !ok {
		return 0, gwerrors.Newf(gwerrors.ParamInvalid, "%s must be int", key)
	}
	if n < minValue {
		return 0, gwerrors.Newf(gwerrors.ParamInvalid, "%s out of bounds", key)
	}
	if maxValue > 0 && n > maxValue {
		return 0, gwerrors.Newf(gwerrors.ParamInvalid, "%s out of bounds", key)
	}
	return n, nil
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case int:
		return t, true
	default:
		return 0, false
	}
}

// RequireAssetID validates an asset-id field, defaulting to NYXT when
// absent (matching the original's `payload.get("asset_id", "NYXT")`).
func RequireAssetID(p Payload, key string) (string, error) {
	v, ok := p[key]
	var s string
	if !ok {
		s = assets.NYXT
	} else {
		sv, ok := v.(string)
		if !ok || sv == "" {
			return "", gwerrors.Newf(gwerrors.ParamRequired, "%s required", key)
		}
		s = strings.TrimSpace(sv)
	}
	if !assets.IsSupported(s) {
		return "", gwerrors.Newf(gwerrors.ParamInvalid, "%s unsupported", key)
	}
	return s, nil
}

// WalletTransfer is the validated shape of a wallet_transfer payload.
type WalletTransfer struct {
	FromAddress string
	ToAddress   string
	Amount      int
	AssetID     string
}

func ValidateWalletTransfer(p Payload) (*WalletTransfer, error) {
	from, err := RequireAddress(p, "from_address")
	if err != nil {
		return nil, err
	}
	to, err := RequireAddress(p, "to_address")
	if err != nil {
		return nil, err
	}
	amount, err := RequireAmount(p, "amount", MaxAmount)
	if err != nil {
		return nil, err
	}
	assetID, err := RequireAssetID(p, "asset_id")
	if err != nil {
		return nil, err
	}
	return &WalletTransfer{FromAddress: from, ToAddress: to, Amount: amount, AssetID: assetID}, nil
}

// WalletFaucet is the validated shape of a wallet_faucet payload.
type WalletFaucet struct {
	Address string
	Amount  int
	AssetID string
}

func ValidateWalletFaucet(p Payload) (*WalletFaucet, error) {
	addr, err := RequireAddress(p, "address")
	if err != nil {
		return nil, err
	}
	amount, err := RequireAmount(p, "amount", MaxAmount)
	if err != nil {
		return nil, err
	}
	assetID, err := RequireAssetID(p, "asset_id")
	if err != nil {
		return nil, err
	}
	return &WalletFaucet{Address: addr, Amount: amount, AssetID: assetID}, nil
}

// ExchangePayload is the validated shape of place_order/cancel inputs.
type ExchangePayload struct {
	Side         string
	Amount       int
	Price        int
	AssetIn      string
	AssetOut     string
	OwnerAddress string
}

func ValidateExchangePayload(p Payload) (*ExchangePayload, error) {
	for _, key := range []string{"side", "amount", "price", "asset_in", "asset_out", "owner_address"} {
		if _, ok := p[key]; !ok {
			return nil, gwerrors.Newf(gwerrors.ParamRequired, "%s required", key)
		}
	}
	side, _ := p.str("side")
	side = strings.ToUpper(side)
	if side != "BUY" && side != "SELL" {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "side invalid")
	}
	amount, err := RequireInt(p, "amount", 1, MaxAmount)
	if err != nil {
		return nil, err
	}
	price, err := RequireInt(p, "price", 1, MaxPrice)
	if err != nil {
		return nil, err
	}
	assetIn, err := RequireAssetID(p, "asset_in")
	if err != nil {
		return nil, err
	}
	assetOut, err := RequireAssetID(p, "asset_out")
	if err != nil {
		return nil, err
	}
	owner, err := ValidateAddressText(p["owner_address"], "owner_address")
	if err != nil {
		return nil, err
	}
	return &ExchangePayload{Side: side, Amount: amount, Price: price, AssetIn: assetIn, AssetOut: assetOut, OwnerAddress: owner}, nil
}

func ValidatePlaceOrder(p Payload) (*ExchangePayload, error) { return ValidateExchangePayload(p) }

// CancelPayload is the validated shape of a cancel_order payload.
type CancelPayload struct {
	OrderID string
}

func ValidateCancel(p Payload) (*CancelPayload, error) {
	s, ok := p.str("order_id")
	if !ok || s == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "order_id required")
	}
	return &CancelPayload{OrderID: strings.TrimSpace(s)}, nil
}

// ChatPayload is the validated shape of a chat_message payload. The body
// is an opaque E2EE envelope: the gateway only checks that it parses as a
// JSON object carrying non-empty ciphertext/iv strings, never the
// plaintext.
type ChatPayload struct {
	Channel string
	Message string
}

func ValidateChatPayload(p Payload) (*ChatPayload, error) {
	channel, _ := p.str("channel")
	message, _ := p.str("message")
	if channel == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "channel required")
	}
	if message == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "message required")
	}
	if len(channel) > 64 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "channel too long")
	}
	if len(message) > 2000 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "message too long")
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(message), &envelope); err != nil {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "message must be e2ee json")
	}
	ciphertext, _ := envelope["ciphertext"].(string)
	iv, _ := envelope["iv"].(string)
	if ciphertext == "" {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "message missing ciphertext")
	}
	if iv == "" {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "message missing iv")
	}
	return &ChatPayload{Channel: channel, Message: message}, nil
}

// ListingPayload is the validated shape of a marketplace listing payload.
type ListingPayload struct {
	PublisherID string
	SKU         string
	Title       string
	Price       int
}

func ValidateListingPayload(p Payload) (*ListingPayload, error) {
	for _, key := range []string{"publisher_id", "sku", "title", "price"} {
		if _, ok := p[key]; !ok {
			return nil, gwerrors.Newf(gwerrors.ParamRequired, "%s required", key)
		}
	}
	publisher, err := ValidateAddressText(p["publisher_id"], "publisher_id")
	if err != nil {
		return nil, err
	}
	sku, _ := p.str("sku")
	sku = strings.TrimSpace(sku)
	title, _ := p.str("title")
	title = strings.TrimSpace(title)
	price, err := RequireInt(p, "price", 1, MaxAmount)
	if err != nil {
		return nil, err
	}
	if sku == "" || len(sku) > 64 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "sku invalid")
	}
	if title == "" || len(title) > 128 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "title invalid")
	}
	return &ListingPayload{PublisherID: publisher, SKU: sku, Title: title, Price: price}, nil
}

// PurchasePayload is the validated shape of a marketplace purchase payload.
type PurchasePayload struct {
	ListingID string
	BuyerID   string
	Qty       int
}

func ValidatePurchasePayload(p Payload) (*PurchasePayload, error) {
	for _, key := range []string{"listing_id", "buyer_id", "qty"} {
		if _, ok := p[key]; !ok {
			return nil, gwerrors.Newf(gwerrors.ParamRequired, "%s required", key)
		}
	}
	listingID, _ := p.str("listing_id")
	listingID = strings.TrimSpace(listingID)
	buyer, err := ValidateAddressText(p["buyer_id"], "buyer_id")
	if err != nil {
		return nil, err
	}
	qty, err := RequireInt(p, "qty", 1, 100)
	if err != nil {
		return nil, err
	}
	if listingID == "" || len(listingID) > 128 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "listing_id invalid")
	}
	return &PurchasePayload{ListingID: listingID, BuyerID: buyer, Qty: qty}, nil
}

// RoomPayload is the validated shape of a chat room-creation payload.
type RoomPayload struct {
	Name     string
	IsPublic bool
}

func ValidateRoomPayload(p Payload) (*RoomPayload, error) {
	name, _ := p.str("name")
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 48 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "name must be 3-48 characters")
	}
	isPublic := true
	if v, ok := p["is_public"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, gwerrors.New(gwerrors.ParamInvalid, "is_public must be a bool")
		}
		isPublic = b
	}
	return &RoomPayload{Name: name, IsPublic: isPublic}, nil
}

// RoomMessagePayload is the validated shape of a room message payload: the
// body is the same opaque E2EE envelope shape ValidateChatPayload enforces
// for the legacy flat channel.
type RoomMessagePayload struct {
	RoomID string
	Body   string
}

func ValidateRoomMessagePayload(p Payload) (*RoomMessagePayload, error) {
	roomID, _ := p.str("room_id")
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "room_id required")
	}
	body, _ := p.str("body")
	if body == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "body required")
	}
	if len(body) > 2000 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "body too long")
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "body must be e2ee json")
	}
	ciphertext, _ := envelope["ciphertext"].(string)
	iv, _ := envelope["iv"].(string)
	if ciphertext == "" {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "body missing ciphertext")
	}
	if iv == "" {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "body missing iv")
	}
	return &RoomMessagePayload{RoomID: roomID, Body: body}, nil
}

// EntertainmentPayload is the validated shape of an entertainment_step
// payload.
type EntertainmentPayload struct {
	ItemID string
	Mode   string
	Step   int
}

func ValidateEntertainmentPayload(p Payload) (*EntertainmentPayload, error) {
	itemID, _ := p.str("item_id")
	mode, _ := p.str("mode")
	if itemID == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "item_id required")
	}
	if !entertainmentModes[mode] {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "mode invalid")
	}
	step, ok := asInt(p["step"])
	if !ok {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "step must be int")
	}
	return &EntertainmentPayload{ItemID: itemID, Mode: mode, Step: step}, nil
}

// PortalCreateAccountPayload is the validated shape of a portal account
// creation payload; CreateAccount itself re-derives and re-checks the
// handle/public_key shape per spec §4.10, so this layer only enforces the
// presence/basic-shape checks common to every mutating action.
type PortalCreateAccountPayload struct {
	Handle    string
	PublicKey string
}

func ValidatePortalCreateAccount(p Payload) (*PortalCreateAccountPayload, error) {
	handle, ok := p.str("handle")
	if !ok || strings.TrimSpace(handle) == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "handle required")
	}
	pubKey, ok := p.str("public_key")
	if !ok || strings.TrimSpace(pubKey) == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "public_key required")
	}
	return &PortalCreateAccountPayload{Handle: handle, PublicKey: pubKey}, nil
}

// PortalChallengePayload is the validated shape of an auth/challenge
// payload: the caller identifies the account by handle.
type PortalChallengePayload struct {
	Handle string
}

func ValidatePortalChallenge(p Payload) (*PortalChallengePayload, error) {
	handle, ok := p.str("handle")
	if !ok || strings.TrimSpace(handle) == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "handle required")
	}
	return &PortalChallengePayload{Handle: strings.TrimSpace(strings.ToLower(handle))}, nil
}

// PortalVerifyPayload is the validated shape of an auth/verify payload.
type PortalVerifyPayload struct {
	Handle    string
	Nonce     string
	Signature string
}

func ValidatePortalVerify(p Payload) (*PortalVerifyPayload, error) {
	handle, ok := p.str("handle")
	if !ok || strings.TrimSpace(handle) == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "handle required")
	}
	nonce, ok := p.str("nonce")
	if !ok || strings.TrimSpace(nonce) == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "nonce required")
	}
	sig, ok := p.str("signature")
	if !ok || strings.TrimSpace(sig) == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "signature required")
	}
	return &PortalVerifyPayload{
		Handle:    strings.TrimSpace(strings.ToLower(handle)),
		Nonce:     strings.TrimSpace(nonce),
		Signature: strings.TrimSpace(sig),
	}, nil
}

// PortalProfilePayload is the validated shape of a profile-update
// payload.
type PortalProfilePayload struct {
	Bio string
}

func ValidatePortalProfile(p Payload) (*PortalProfilePayload, error) {
	bio, _ := p.str("bio")
	if len(bio) > 256 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "bio too long")
	}
	return &PortalProfilePayload{Bio: bio}, nil
}

// PortalE2EEIdentityPayload is the validated shape of an e2ee/identity
// registration payload.
type PortalE2EEIdentityPayload struct {
	IdentityKey string
}

func ValidatePortalE2EEIdentity(p Payload) (*PortalE2EEIdentityPayload, error) {
	key, ok := p.str("identity_key")
	if !ok || strings.TrimSpace(key) == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "identity_key required")
	}
	if len(key) > 4096 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "identity_key too long")
	}
	return &PortalE2EEIdentityPayload{IdentityKey: strings.TrimSpace(key)}, nil
}

// RequireToken validates a bearer/session token string field.
func RequireToken(p Payload, key string) (string, error) {
	s, ok := p.str(key)
	if !ok || s == "" {
		return "", gwerrors.Newf(gwerrors.ParamRequired, "%s required", key)
	}
	if len(s) > 512 {
		return "", gwerrors.Newf(gwerrors.ParamInvalid, "%s too long", key)
	}
	return s, nil
}
