package walletv1

// Money values are decimal strings with two fractional digits and timestamps
// are RFC 3339 strings in UTC, so neither loses precision inside a Struct.

type Wallet struct {
	WalletId      string `json:"wallet_id"`
	OwnerType     string `json:"owner_type"`
	OwnerId       string `json:"owner_id"`
	DistributorId string `json:"distributor_id"`
	Balance       string `json:"balance"`
	IsActive      bool   `json:"is_active"`
	Version       int64  `json:"version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type TrailEntry struct {
	EntryId       string `json:"entry_id"`
	TransactionId string `json:"transaction_id"`
	CollectionId  string `json:"collection_id"`
	ShopId        string `json:"shop_id"`
	AmountApplied string `json:"amount_applied"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

type Transaction struct {
	TransactionId        string        `json:"transaction_id"`
	WalletId             string        `json:"wallet_id"`
	Type                 string        `json:"type"`
	Amount               string        `json:"amount"`
	BalanceBefore        string        `json:"balance_before"`
	BalanceAfter         string        `json:"balance_after"`
	CounterpartyWalletId string        `json:"counterparty_wallet_id,omitempty"`
	Description          string        `json:"description"`
	ReferenceType        string        `json:"reference_type"`
	ReferenceId          string        `json:"reference_id"`
	IdempotencyKey       string        `json:"idempotency_key"`
	InitiatedBy          string        `json:"initiated_by"`
	MetadataJson         string        `json:"metadata_json"`
	CreatedAt            string        `json:"created_at"`
	Trail                []*TrailEntry `json:"trail,omitempty"`
}

type FieldCollection struct {
	CollectionId        string `json:"collection_id"`
	WalletId            string `json:"wallet_id"`
	OwnerType           string `json:"owner_type"`
	OwnerId             string `json:"owner_id"`
	ShopId              string `json:"shop_id"`
	Amount              string `json:"amount"`
	Outstanding         string `json:"outstanding"`
	Status              string `json:"status"`
	Description         string `json:"description"`
	CreditTransactionId string `json:"credit_transaction_id"`
	CollectedAt         string `json:"collected_at"`
	CreatedAt           string `json:"created_at"`
}

type GetBalanceRequest struct {
	OwnerType string `json:"owner_type"`
	OwnerId   string `json:"owner_id"`
}

func (request *GetBalanceRequest) GetOwnerType() string {
	if request == nil {
		return ""
	}
	return request.OwnerType
}

func (request *GetBalanceRequest) GetOwnerId() string {
	if request == nil {
		return ""
	}
	return request.OwnerId
}

type GetBalanceResponse struct {
	Wallet *Wallet `json:"wallet"`
}

type ListTeamWalletsRequest struct {
	DistributorId string `json:"distributor_id"`
	Role          string `json:"role,omitempty"`
}

func (request *ListTeamWalletsRequest) GetDistributorId() string {
	if request == nil {
		return ""
	}
	return request.DistributorId
}

func (request *ListTeamWalletsRequest) GetRole() string {
	if request == nil {
		return ""
	}
	return request.Role
}

type ListTeamWalletsResponse struct {
	Wallets []*Wallet `json:"wallets"`
}

type GetTeamStatsRequest struct {
	DistributorId string `json:"distributor_id"`
}

func (request *GetTeamStatsRequest) GetDistributorId() string {
	if request == nil {
		return ""
	}
	return request.DistributorId
}

type GetTeamStatsResponse struct {
	TeamBalanceSum   string `json:"team_balance_sum"`
	ActiveCount      int32  `json:"active_count"`
	InactiveCount    int32  `json:"inactive_count"`
	OrderBookerCount int32  `json:"order_booker_count"`
	DeliveryManCount int32  `json:"delivery_man_count"`
}

type CollectFromWalletRequest struct {
	DistributorId  string `json:"distributor_id"`
	FromOwnerType  string `json:"from_owner_type"`
	FromOwnerId    string `json:"from_owner_id"`
	Amount         string `json:"amount"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
	InitiatedBy    string `json:"initiated_by,omitempty"`
	MetadataJson   string `json:"metadata_json,omitempty"`
}

func (request *CollectFromWalletRequest) GetDistributorId() string {
	if request == nil {
		return ""
	}
	return request.DistributorId
}

func (request *CollectFromWalletRequest) GetFromOwnerType() string {
	if request == nil {
		return ""
	}
	return request.FromOwnerType
}

func (request *CollectFromWalletRequest) GetFromOwnerId() string {
	if request == nil {
		return ""
	}
	return request.FromOwnerId
}

func (request *CollectFromWalletRequest) GetAmount() string {
	if request == nil {
		return ""
	}
	return request.Amount
}

func (request *CollectFromWalletRequest) GetDescription() string {
	if request == nil {
		return ""
	}
	return request.Description
}

func (request *CollectFromWalletRequest) GetIdempotencyKey() string {
	if request == nil {
		return ""
	}
	return request.IdempotencyKey
}

func (request *CollectFromWalletRequest) GetInitiatedBy() string {
	if request == nil {
		return ""
	}
	return request.InitiatedBy
}

func (request *CollectFromWalletRequest) GetMetadataJson() string {
	if request == nil {
		return ""
	}
	return request.MetadataJson
}

type CollectFromWalletResponse struct {
	ReferenceId            string        `json:"reference_id"`
	SourceTransaction      *Transaction  `json:"source_transaction"`
	DistributorTransaction *Transaction  `json:"distributor_transaction"`
	Trail                  []*TrailEntry `json:"trail,omitempty"`
	Replayed               bool          `json:"replayed"`
}

type ListTransactionsRequest struct {
	OwnerType        string `json:"owner_type"`
	OwnerId          string `json:"owner_id"`
	Type             string `json:"type,omitempty"`
	CounterpartyType string `json:"counterparty_type,omitempty"`
	CounterpartyId   string `json:"counterparty_id,omitempty"`
	DateFrom         string `json:"date_from,omitempty"`
	DateTo           string `json:"date_to,omitempty"`
	Limit            int32  `json:"limit,omitempty"`
	Cursor           string `json:"cursor,omitempty"`
}

func (request *ListTransactionsRequest) GetOwnerType() string {
	if request == nil {
		return ""
	}
	return request.OwnerType
}

func (request *ListTransactionsRequest) GetOwnerId() string {
	if request == nil {
		return ""
	}
	return request.OwnerId
}

func (request *ListTransactionsRequest) GetType() string {
	if request == nil {
		return ""
	}
	return request.Type
}

func (request *ListTransactionsRequest) GetCounterpartyType() string {
	if request == nil {
		return ""
	}
	return request.CounterpartyType
}

func (request *ListTransactionsRequest) GetCounterpartyId() string {
	if request == nil {
		return ""
	}
	return request.CounterpartyId
}

func (request *ListTransactionsRequest) GetDateFrom() string {
	if request == nil {
		return ""
	}
	return request.DateFrom
}

func (request *ListTransactionsRequest) GetDateTo() string {
	if request == nil {
		return ""
	}
	return request.DateTo
}

func (request *ListTransactionsRequest) GetLimit() int32 {
	if request == nil {
		return 0
	}
	return request.Limit
}

func (request *ListTransactionsRequest) GetCursor() string {
	if request == nil {
		return ""
	}
	return request.Cursor
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
	NextCursor   string         `json:"next_cursor,omitempty"`
}

type ProvisionWalletRequest struct {
	OwnerType     string `json:"owner_type"`
	OwnerId       string `json:"owner_id"`
	DistributorId string `json:"distributor_id"`
}

func (request *ProvisionWalletRequest) GetOwnerType() string {
	if request == nil {
		return ""
	}
	return request.OwnerType
}

func (request *ProvisionWalletRequest) GetOwnerId() string {
	if request == nil {
		return ""
	}
	return request.OwnerId
}

func (request *ProvisionWalletRequest) GetDistributorId() string {
	if request == nil {
		return ""
	}
	return request.DistributorId
}

type ProvisionWalletResponse struct {
	Wallet *Wallet `json:"wallet"`
}

type SetWalletActiveRequest struct {
	OwnerType string `json:"owner_type"`
	OwnerId   string `json:"owner_id"`
	Active    bool   `json:"active"`
}

func (request *SetWalletActiveRequest) GetOwnerType() string {
	if request == nil {
		return ""
	}
	return request.OwnerType
}

func (request *SetWalletActiveRequest) GetOwnerId() string {
	if request == nil {
		return ""
	}
	return request.OwnerId
}

func (request *SetWalletActiveRequest) GetActive() bool {
	if request == nil {
		return false
	}
	return request.Active
}

type SetWalletActiveResponse struct {
	Wallet *Wallet `json:"wallet"`
}

type RecordFieldCollectionRequest struct {
	OwnerType    string `json:"owner_type"`
	OwnerId      string `json:"owner_id"`
	CollectionId string `json:"collection_id"`
	ShopId       string `json:"shop_id"`
	Amount       string `json:"amount"`
	CollectedAt  string `json:"collected_at,omitempty"`
	Description  string `json:"description,omitempty"`
	InitiatedBy  string `json:"initiated_by,omitempty"`
	MetadataJson string `json:"metadata_json,omitempty"`
}

func (request *RecordFieldCollectionRequest) GetOwnerType() string {
	if request == nil {
		return ""
	}
	return request.OwnerType
}

func (request *RecordFieldCollectionRequest) GetOwnerId() string {
	if request == nil {
		return ""
	}
	return request.OwnerId
}

func (request *RecordFieldCollectionRequest) GetCollectionId() string {
	if request == nil {
		return ""
	}
	return request.CollectionId
}

func (request *RecordFieldCollectionRequest) GetShopId() string {
	if request == nil {
		return ""
	}
	return request.ShopId
}

func (request *RecordFieldCollectionRequest) GetAmount() string {
	if request == nil {
		return ""
	}
	return request.Amount
}

func (request *RecordFieldCollectionRequest) GetCollectedAt() string {
	if request == nil {
		return ""
	}
	return request.CollectedAt
}

func (request *RecordFieldCollectionRequest) GetDescription() string {
	if request == nil {
		return ""
	}
	return request.Description
}

func (request *RecordFieldCollectionRequest) GetInitiatedBy() string {
	if request == nil {
		return ""
	}
	return request.InitiatedBy
}

func (request *RecordFieldCollectionRequest) GetMetadataJson() string {
	if request == nil {
		return ""
	}
	return request.MetadataJson
}

type RecordFieldCollectionResponse struct {
	Transaction *Transaction     `json:"transaction"`
	Collection  *FieldCollection `json:"collection"`
	Replayed    bool             `json:"replayed"`
}

type ListFieldCollectionsRequest struct {
	OwnerType string `json:"owner_type"`
	OwnerId   string `json:"owner_id"`
	Status    string `json:"status,omitempty"`
}

func (request *ListFieldCollectionsRequest) GetOwnerType() string {
	if request == nil {
		return ""
	}
	return request.OwnerType
}

func (request *ListFieldCollectionsRequest) GetOwnerId() string {
	if request == nil {
		return ""
	}
	return request.OwnerId
}

func (request *ListFieldCollectionsRequest) GetStatus() string {
	if request == nil {
		return ""
	}
	return request.Status
}

type ListFieldCollectionsResponse struct {
	Collections []*FieldCollection `json:"collections"`
}

type ReconstructWalletRequest struct {
	OwnerType string `json:"owner_type"`
	OwnerId   string `json:"owner_id"`
}

func (request *ReconstructWalletRequest) GetOwnerType() string {
	if request == nil {
		return ""
	}
	return request.OwnerType
}

func (request *ReconstructWalletRequest) GetOwnerId() string {
	if request == nil {
		return ""
	}
	return request.OwnerId
}

type ReconstructWalletResponse struct {
	Wallet           *Wallet `json:"wallet"`
	TransactionCount int32   `json:"transaction_count"`
	ReplayedBalance  string  `json:"replayed_balance"`
	ChainIntact      bool    `json:"chain_intact"`
	BrokenAtId       string  `json:"broken_at_id,omitempty"`
	Consistent       bool    `json:"consistent"`
}

func (record *Wallet) GetOwnerType() string {
	if record == nil {
		return ""
	}
	return record.OwnerType
}

func (record *Wallet) GetOwnerId() string {
	if record == nil {
		return ""
	}
	return record.OwnerId
}

func (record *Wallet) GetDistributorId() string {
	if record == nil {
		return ""
	}
	return record.DistributorId
}

func (record *Wallet) GetBalance() string {
	if record == nil {
		return ""
	}
	return record.Balance
}

func (response *GetBalanceResponse) GetWallet() *Wallet {
	if response == nil {
		return nil
	}
	return response.Wallet
}

func (response *ListTeamWalletsResponse) GetWallets() []*Wallet {
	if response == nil {
		return nil
	}
	return response.Wallets
}

func (response *CollectFromWalletResponse) GetReplayed() bool {
	if response == nil {
		return false
	}
	return response.Replayed
}

func (response *ListTransactionsResponse) GetTransactions() []*Transaction {
	if response == nil {
		return nil
	}
	return response.Transactions
}

func (response *ListTransactionsResponse) GetNextCursor() string {
	if response == nil {
		return ""
	}
	return response.NextCursor
}

func (response *ListFieldCollectionsResponse) GetCollections() []*FieldCollection {
	if response == nil {
		return nil
	}
	return response.Collections
}
