package validate

import (
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/assets"
	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
)

func errCode(t *testing.T, err error) gwerrors.Code {
	t.Helper()
	ge, ok := gwerrors.As(err)
	if !ok {
		t.Fatalf("error is not a *GatewayError: %v", err)
	}
	return ge.ErrCode
}

func TestRequireAddressRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		v    any
		code gwerrors.Code
	}{
		{"missing", nil, gwerrors.ParamRequired},
		{"empty", "", gwerrors.ParamRequired},
		{"too long", string(make([]byte, 65)), gwerrors.ParamInvalid},
		{"bad char", "alice!bob", gwerrors.ParamInvalid},
		{"not string", 42, gwerrors.ParamRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Payload{}
			if tc.v != nil {
				p["addr"] = tc.v
			}
			_, err := RequireAddress(p, "addr")
			if err == nil {
				t.Fatalf("RequireAddress() error = nil, want %s", tc.code)
			}
			if got := errCode(t, err); got != tc.code {
				t.Fatalf("code = %s, want %s", got, tc.code)
			}
		})
	}
}

func TestRequireAddressAccepts(t *testing.T) {
	p := Payload{"addr": "alice_bob-2"}
	got, err := RequireAddress(p, "addr")
	if err != nil {
		t.Fatalf("RequireAddress() error = %v", err)
	}
	if got != "alice_bob-2" {
		t.Fatalf("got = %q", got)
	}
}

func TestRequireIntBounds(t *testing.T) {
	p := Payload{"n": float64(5)}
	if _, err := RequireInt(p, "n", 1, 10); err != nil {
		t.Fatalf("in-bounds int rejected: %v", err)
	}

	p = Payload{"n": float64(0)}
	if _, err := RequireInt(p, "n", 1, 10); err == nil {
		t.Fatalf("below-min int accepted")
	}

	p = Payload{"n": float64(11)}
	if _, err := RequireInt(p, "n", 1, 10); err == nil {
		t.Fatalf("above-max int accepted")
	}

	p = Payload{"n": float64(1.5)}
	if _, err := RequireInt(p, "n", 1, 10); err == nil {
		t.Fatalf("non-integer float accepted")
	}

	p = Payload{}
	_, err := RequireInt(p, "n", 1, 10)
	if errCode(t, err) != gwerrors.ParamRequired {
		t.Fatalf("expected ParamRequired for missing field")
	}
}

func TestRequireIntUnboundedAbove(t *testing.T) {
	p := Payload{"n": float64(1_000_000_000)}
	n, err := RequireInt(p, "n", 0, 0)
	if err != nil {
		t.Fatalf("RequireInt() error = %v", err)
	}
	if n != 1_000_000_000 {
		t.Fatalf("n = %d", n)
	}
}

func TestRequireAssetIDDefaultsToNYXT(t *testing.T) {
	p := Payload{}
	got, err := RequireAssetID(p, "asset_id")
	if err != nil {
		t.Fatalf("RequireAssetID() error = %v", err)
	}
	if got != assets.NYXT {
		t.Fatalf("got = %q, want %q", got, assets.NYXT)
	}
}

func TestRequireAssetIDRejectsUnsupported(t *testing.T) {
	p := Payload{"asset_id": "DOGE"}
	if _, err := RequireAssetID(p, "asset_id"); errCode(t, err) != gwerrors.ParamInvalid {
		t.Fatalf("expected ParamInvalid for unsupported asset")
	}
}

func TestValidateWalletTransfer(t *testing.T) {
	p := Payload{
		"from_address": "alice",
		"to_address":   "bob",
		"amount":       float64(100),
		"asset_id":     assets.ECHO,
	}
	got, err := ValidateWalletTransfer(p)
	if err != nil {
		t.Fatalf("ValidateWalletTransfer() error = %v", err)
	}
	if got.FromAddress != "alice" || got.ToAddress != "bob" || got.Amount != 100 || got.AssetID != assets.ECHO {
		t.Fatalf("got = %+v", got)
	}
}

func TestValidateWalletTransferRejectsOverMax(t *testing.T) {
	p := Payload{
		"from_address": "alice",
		"to_address":   "bob",
		"amount":       float64(MaxAmount + 1),
	}
	if _, err := ValidateWalletTransfer(p); err == nil {
		t.Fatalf("expected error for amount over MaxAmount")
	}
}

func TestValidateExchangePayloadSideCaseInsensitive(t *testing.T) {
	p := Payload{
		"side":          "buy",
		"amount":        float64(50),
		"price":         float64(12),
		"asset_in":      assets.NYXT,
		"asset_out":     assets.ECHO,
		"owner_address": "buyer1",
	}
	got, err := ValidateExchangePayload(p)
	if err != nil {
		t.Fatalf("ValidateExchangePayload() error = %v", err)
	}
	if got.Side != "BUY" {
		t.Fatalf("side = %q, want BUY", got.Side)
	}
}

func TestValidateExchangePayloadRejectsBadSide(t *testing.T) {
	p := Payload{
		"side":          "HOLD",
		"amount":        float64(50),
		"price":         float64(12),
		"asset_in":      assets.NYXT,
		"asset_out":     assets.ECHO,
		"owner_address": "buyer1",
	}
	if _, err := ValidateExchangePayload(p); errCode(t, err) != gwerrors.ParamInvalid {
		t.Fatalf("expected ParamInvalid for bad side")
	}
}

func TestValidateExchangePayloadMissingField(t *testing.T) {
	p := Payload{
		"side":     "BUY",
		"amount":   float64(50),
		"price":    float64(12),
		"asset_in": assets.NYXT,
	}
	if _, err := ValidateExchangePayload(p); errCode(t, err) != gwerrors.ParamRequired {
		t.Fatalf("expected ParamRequired for missing asset_out/owner_address")
	}
}

func TestValidateCancelTrimsOrderID(t *testing.T) {
	p := Payload{"order_id": "  ord-1  "}
	got, err := ValidateCancel(p)
	if err != nil {
		t.Fatalf("ValidateCancel() error = %v", err)
	}
	if got.OrderID != "ord-1" {
		t.Fatalf("order_id = %q", got.OrderID)
	}
}

func TestValidateChatPayloadRequiresE2EEEnvelope(t *testing.T) {
	p := Payload{"channel": "general", "message": "plaintext not json"}
	if _, err := ValidateChatPayload(p); errCode(t, err) != gwerrors.ParamInvalid {
		t.Fatalf("expected ParamInvalid for non-JSON message body")
	}
}

func TestValidateChatPayloadRejectsMissingCiphertextOrIV(t *testing.T) {
	p := Payload{"channel": "general", "message": `{"ciphertext":"abc"}`}
	if _, err := ValidateChatPayload(p); errCode(t, err) != gwerrors.ParamInvalid {
		t.Fatalf("expected ParamInvalid for missing iv")
	}

	p = Payload{"channel": "general", "message": `{"iv":"abc"}`}
	if _, err := ValidateChatPayload(p); errCode(t, err) != gwerrors.ParamInvalid {
		t.Fatalf("expected ParamInvalid for missing ciphertext")
	}
}

func TestValidateChatPayloadAcceptsEnvelope(t *testing.T) {
	p := Payload{"channel": "general", "message": `{"ciphertext":"abc","iv":"xyz"}`}
	got, err := ValidateChatPayload(p)
	if err != nil {
		t.Fatalf("ValidateChatPayload() error = %v", err)
	}
	if got.Channel != "general" {
		t.Fatalf("channel = %q", got.Channel)
	}
}

func TestValidateRoomMessagePayloadRequiresE2EEEnvelope(t *testing.T) {
	p := Payload{"room_id": "room-1", "body": `{"ciphertext":"abc","iv":"xyz"}`}
	got, err := ValidateRoomMessagePayload(p)
	if err != nil {
		t.Fatalf("ValidateRoomMessagePayload() error = %v", err)
	}
	if got.RoomID != "room-1" {
		t.Fatalf("room_id = %q", got.RoomID)
	}
}

func TestValidateRoomPayloadNameBounds(t *testing.T) {
	if _, err := ValidateRoomPayload(Payload{"name": "ab"}); err == nil {
		t.Fatalf("expected error for too-short name")
	}
	long := make([]byte, 49)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := ValidateRoomPayload(Payload{"name": string(long)}); err == nil {
		t.Fatalf("expected error for too-long name")
	}
	got, err := ValidateRoomPayload(Payload{"name": "general-room"})
	if err != nil {
		t.Fatalf("ValidateRoomPayload() error = %v", err)
	}
	if !got.IsPublic {
		t.Fatalf("expected default is_public = true")
	}
}

func TestValidateListingPayload(t *testing.T) {
	p := Payload{
		"publisher_id": "pub1",
		"sku":          "sku-1",
		"title":        "A Title",
		"price":        float64(500),
	}
	got, err := ValidateListingPayload(p)
	if err != nil {
		t.Fatalf("ValidateListingPayload() error = %v", err)
	}
	if got.PublisherID != "pub1" || got.SKU != "sku-1" || got.Price != 500 {
		t.Fatalf("got = %+v", got)
	}
}

func TestValidatePurchasePayloadQtyBounds(t *testing.T) {
	p := Payload{"listing_id": "l1", "buyer_id": "buyer1", "qty": float64(101)}
	if _, err := ValidatePurchasePayload(p); err == nil {
		t.Fatalf("expected error for qty over 100")
	}
	p["qty"] = float64(1)
	if _, err := ValidatePurchasePayload(p); err != nil {
		t.Fatalf("ValidatePurchasePayload() error = %v", err)
	}
}

func TestValidateEntertainmentPayloadRejectsUnknownMode(t *testing.T) {
	p := Payload{"item_id": "item-1", "mode": "warp", "step": float64(1)}
	if _, err := ValidateEntertainmentPayload(p); errCode(t, err) != gwerrors.ParamInvalid {
		t.Fatalf("expected ParamInvalid for unknown mode")
	}
}

func TestValidateEntertainmentPayloadAcceptsKnownModes(t *testing.T) {
	for mode := range entertainmentModes {
		p := Payload{"item_id": "item-1", "mode": mode, "step": float64(3)}
		got, err := ValidateEntertainmentPayload(p)
		if err != nil {
			t.Fatalf("ValidateEntertainmentPayload(%q) error = %v", mode, err)
		}
		if got.Step != 3 {
			t.Fatalf("step = %d", got.Step)
		}
	}
}

func TestValidatePortalCreateAccountRequiresBothFields(t *testing.T) {
	if _, err := ValidatePortalCreateAccount(Payload{"handle": "alice"}); errCode(t, err) != gwerrors.ParamRequired {
		t.Fatalf("expected ParamRequired for missing public_key")
	}
	if _, err := ValidatePortalCreateAccount(Payload{"public_key": "a-base64-key"}); errCode(t, err) != gwerrors.ParamRequired {
		t.Fatalf("expected ParamRequired for missing handle")
	}
}

func TestValidatePortalChallengeLowercasesHandle(t *testing.T) {
	got, err := ValidatePortalChallenge(Payload{"handle": "  Alice  "})
	if err != nil {
		t.Fatalf("ValidatePortalChallenge() error = %v", err)
	}
	if got.Handle != "alice" {
		t.Fatalf("handle = %q, want alice", got.Handle)
	}
}

func TestValidatePortalVerifyRequiresAllFields(t *testing.T) {
	p := Payload{"handle": "alice", "nonce": "n1"}
	if _, err := ValidatePortalVerify(p); errCode(t, err) != gwerrors.ParamRequired {
		t.Fatalf("expected ParamRequired for missing signature")
	}
}

func TestValidatePortalProfileBioBound(t *testing.T) {
	long := make([]byte, 257)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := ValidatePortalProfile(Payload{"bio": string(long)}); errCode(t, err) != gwerrors.ParamInvalid {
		t.Fatalf("expected ParamInvalid for bio over 256 chars")
	}
	got, err := ValidatePortalProfile(Payload{"bio": "short bio"})
	if err != nil {
		t.Fatalf("ValidatePortalProfile() error = %v", err)
	}
	if got.Bio != "short bio" {
		t.Fatalf("bio = %q", got.Bio)
	}
}

func TestValidatePortalE2EEIdentityLengthBound(t *testing.T) {
	long := make([]byte, 4097)
	for i := range long {
		long[i] = 'k'
	}
	if _, err := ValidatePortalE2EEIdentity(Payload{"identity_key": string(long)}); errCode(t, err) != gwerrors.ParamInvalid {
		t.Fatalf("expected ParamInvalid for identity_key over 4096 chars")
	}
}

func TestRequireTokenLengthBound(t *testing.T) {
	long := make([]byte, 513)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := RequireToken(Payload{"token": string(long)}, "token"); errCode(t, err) != gwerrors.ParamInvalid {
		t.Fatalf("expected ParamInvalid for token over 512 chars")
	}
	got, err := RequireToken(Payload{"token": "tok-1"}, "token")
	if err != nil {
		t.Fatalf("RequireToken() error = %v", err)
	}
	if got != "tok-1" {
		t.Fatalf("token = %q", got)
	}
}
