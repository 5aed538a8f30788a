package storage

// OrderStatus enumerates the lifecycle states of an Order (spec §3).
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ListingStatus enumerates marketplace listing states.
type ListingStatus string

const (
	ListingActive ListingStatus = "active"
	ListingSold   ListingStatus = "sold"
)

type WalletAccount struct {
	Address string `json:"address"`
	AssetID string `json:"asset_id"`
	Balance int64  `json:"balance"`
}

type WalletTransfer struct {
	TransferID      string `json:"transfer_id"`
	FromAddress     string `json:"from_address"`
	ToAddress       string `json:"to_address"`
	AssetID         string `json:"asset_id"`
	Amount          int64  `json:"amount"`
	FeeTotal        int64  `json:"fee_total"`
	TreasuryAddress string `json:"treasury_address"`
	RunID           string `json:"run_id"`
	CreatedAt       int64  `json:"created_at"`
}

type Order struct {
	OrderID      string      `json:"order_id"`
	OwnerAddress string      `json:"owner_address"`
	Side         Side        `json:"side"`
	Amount       int64       `json:"amount"`
	Price        int64       `json:"price"`
	AssetIn      string      `json:"asset_in"`
	AssetOut     string      `json:"asset_out"`
	Status       OrderStatus `json:"status"`
	RunID        string      `json:"run_id"`
	CreatedAt    int64       `json:"created_at"`
}

type Trade struct {
	TradeID   string `json:"trade_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Price     int64  `json:"price"`
	RunID     string `json:"run_id"`
	CreatedAt int64  `json:"created_at"`
}

type Listing struct {
	ListingID   string        `json:"listing_id"`
	PublisherID string        `json:"publisher_id"`
	SKU         string        `json:"sku"`
	Title       string        `json:"title"`
	Price       int64         `json:"price"`
	Status      ListingStatus `json:"status"`
	RunID       string        `json:"run_id"`
	CreatedAt   int64         `json:"created_at"`
}

type Purchase struct {
	PurchaseID string `json:"purchase_id"`
	ListingID  string `json:"listing_id"`
	BuyerID    string `json:"buyer_id"`
	Qty        int64  `json:"qty"`
	RunID      string `json:"run_id"`
	CreatedAt  int64  `json:"created_at"`
}

type FaucetClaim struct {
	ClaimID   string `json:"claim_id"`
	AccountID string `json:"account_id"`
	Address   string `json:"address"`
	AssetID   string `json:"asset_id"`
	Amount    int64  `json:"amount"`
	IP        string `json:"ip"`
	RunID     string `json:"run_id"`
	CreatedAt int64  `json:"created_at"`
}

type AirdropClaim struct {
	AccountID string `json:"account_id"`
	TaskID    string `json:"task_id"`
	Reward    int64  `json:"reward"`
	RunID     string `json:"run_id"`
	CreatedAt int64  `json:"created_at"`
}

type PortalAccount struct {
	AccountID     string `json:"account_id"`
	Handle        string `json:"handle"`
	PublicKey     string `json:"public_key"`
	WalletAddress string `json:"wallet_address"`
	Status        string `json:"status"`
	Bio           string `json:"bio"`
	CreatedAt     int64  `json:"created_at"`
}

type PortalChallenge struct {
	AccountID string `json:"account_id"`
	Nonce     string `json:"nonce"`
	ExpiresAt int64  `json:"expires_at"`
	Used      bool   `json:"used"`
	CreatedAt int64  `json:"created_at"`
}

type PortalSession struct {
	TokenDigest string `json:"-"`
	AccountID   string `json:"account_id"`
	ExpiresAt   int64  `json:"expires_at"`
	CreatedAt   int64  `json:"created_at"`
}

type E2EEIdentity struct {
	AccountID   string `json:"account_id"`
	IdentityKey string `json:"identity_key"`
	CreatedAt   int64  `json:"created_at"`
}

type ChatRoom struct {
	RoomID    string `json:"room_id"`
	Name      string `json:"name"`
	IsPublic  bool   `json:"is_public"`
	CreatedAt int64  `json:"created_at"`
}

type ChatMessage struct {
	MessageID  string `json:"message_id"`
	RoomID     string `json:"room_id"`
	Sender     string `json:"sender"`
	Body       string `json:"body"`
	Seq        int64  `json:"seq"`
	PrevDigest string `json:"prev_digest"`
	MsgDigest  string `json:"msg_digest"`
	ChainHead  string `json:"chain_head"`
	CreatedAt  int64  `json:"created_at"`
}

type LegacyMessage struct {
	MessageID       string `json:"message_id"`
	Channel         string `json:"channel"`
	SenderAccountID string `json:"sender_account_id"`
	Body            string `json:"body"`
	CreatedAt       int64  `json:"created_at"`
}

type EntertainmentEvent struct {
	EventID   string `json:"event_id"`
	ItemID    string `json:"item_id"`
	AccountID string `json:"account_id"`
	Mode      string `json:"mode"`
	Step      int64  `json:"step"`
	RunID     string `json:"run_id"`
	CreatedAt int64  `json:"created_at"`
}

type EvidenceRun struct {
	RunID         string   `json:"run_id"`
	Module        string   `json:"module"`
	Action        string   `json:"action"`
	Seed          int64    `json:"seed"`
	StateHash     string   `json:"state_hash"`
	ReceiptHashes []string `json:"receipt_hashes"`
	ReplayOK      bool     `json:"replay_ok"`
	CreatedAt     int64    `json:"created_at"`
}

type Receipt struct {
	ReceiptID     string   `json:"receipt_id"`
	RunID         string   `json:"run_id"`
	Module        string   `json:"module"`
	Action        string   `json:"action"`
	StateHash     string   `json:"state_hash"`
	ReceiptHashes []string `json:"receipt_hashes"`
	ReplayOK      bool     `json:"replay_ok"`
	CreatedAt     int64    `json:"created_at"`
}

type FeeLedger struct {
	FeeID             string `json:"fee_id"`
	Module            string `json:"module"`
	Action            string `json:"action"`
	ProtocolFeeTotal  int64  `json:"protocol_fee_total"`
	PlatformFeeAmount int64  `json:"platform_fee_amount"`
	TotalPaid         int64  `json:"total_paid"`
	FeeAddress        string `json:"fee_address"`
	RunID             string `json:"run_id"`
	CreatedAt         int64  `json:"created_at"`
}

type Web2GuardRequest struct {
	RequestID     string   `json:"request_id"`
	AccountID     string   `json:"account_id"`
	RunID         string   `json:"run_id"`
	SafeURL       string   `json:"safe_url"`
	Method        string   `json:"method"`
	RequestHash   string   `json:"request_hash"`
	ResponseHash  string   `json:"response_hash"`
	Status        int      `json:"status"`
	Size          int      `json:"size"`
	Truncated     bool     `json:"truncated"`
	BodySize      int      `json:"body_size"`
	HeaderNames   []string `json:"header_names"`
	SealedRequest string   `json:"sealed_request,omitempty"`
	CreatedAt     int64    `json:"created_at"`
}
