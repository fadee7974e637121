package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WalletRecord mirrors the wallets table.
type WalletRecord struct {
	ID            string          `gorm:"primaryKey;size:64"`
	OwnerType     string          `gorm:"size:32;not null;uniqueIndex:uniq_wallets_owner,priority:1"`
	OwnerID       string          `gorm:"size:128;not null;uniqueIndex:uniq_wallets_owner,priority:2"`
	DistributorID string          `gorm:"size:128;not null;index:idx_wallets_distributor"`
	Balance       decimal.Decimal `gorm:"type:numeric(20,2);not null;check:chk_wallets_balance,balance >= 0"`
	IsActive      bool            `gorm:"not null"`
	Version       int64           `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime:false"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime:false"`
}

func (WalletRecord) TableName() string { return "wallets" }

// TransactionRecord mirrors the append-only wallet_transactions table.
// CreatedAtNs carries the ordering key so sqlite and postgres sort identically.
type TransactionRecord struct {
	ID                   string          `gorm:"primaryKey;size:64"`
	WalletID             string          `gorm:"size:64;not null;uniqueIndex:uniq_wallet_transactions_idem,priority:1;index:idx_wallet_transactions_wallet_created,priority:1"`
	Type                 string          `gorm:"size:32;not null"`
	Amount               decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceBefore        decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceAfter         decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	CounterpartyWalletID *string         `gorm:"size:64;index:idx_wallet_transactions_counterparty"`
	Description          string          `gorm:"not null"`
	ReferenceType        string          `gorm:"size:32;not null;index:idx_wallet_transactions_reference,priority:1"`
	ReferenceID          string          `gorm:"size:128;not null;index:idx_wallet_transactions_reference,priority:2"`
	IdempotencyKey       string          `gorm:"size:255;not null;uniqueIndex:uniq_wallet_transactions_idem,priority:2;index:idx_wallet_transactions_idem"`
	InitiatedBy          string          `gorm:"size:128;not null"`
	Metadata             datatypes.JSON  `gorm:"not null"`
	CreatedAt            time.Time       `gorm:"not null;autoCreateTime:false"`
	CreatedAtNs          int64           `gorm:"not null;index:idx_wallet_transactions_wallet_created,priority:2"`
}

func (TransactionRecord) TableName() string { return "wallet_transactions" }

// FieldCollectionRecord mirrors the field_collections table.
type FieldCollectionRecord struct {
	ID                  string          `gorm:"primaryKey;size:128"`
	WalletID            string          `gorm:"size:64;not null;index:idx_field_collections_wallet_collected,priority:1"`
	OwnerType           string          `gorm:"size:32;not null"`
	OwnerID             string          `gorm:"size:128;not null"`
	ShopID              string          `gorm:"size:128;not null"`
	Amount              decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Outstanding         decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Status              string          `gorm:"size:16;not null;index:idx_field_collections_status"`
	Description         string          `gorm:"not null"`
	CreditTransactionID string          `gorm:"size:64;not null"`
	CollectedAt         time.Time       `gorm:"not null"`
	CollectedAtNs       int64           `gorm:"not null;index:idx_field_collections_wallet_collected,priority:2"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime:false"`
	CreatedAtNs         int64           `gorm:"not null"`
	UpdatedAt           time.Time       `gorm:"not null;autoUpdateTime:false"`
}

func (FieldCollectionRecord) TableName() string { return "field_collections" }

// TrailEntryRecord mirrors the collection_trail_entries table.
type TrailEntryRecord struct {
	ID            string          `gorm:"primaryKey;size:64"`
	TransactionID string          `gorm:"size:64;not null;index:idx_trail_entries_transaction,priority:1"`
	Position      int             `gorm:"not null;index:idx_trail_entries_transaction,priority:2"`
	CollectionID  string          `gorm:"size:128;not null;index:idx_trail_entries_collection"`
	ShopID        string          `gorm:"size:128;not null"`
	AmountApplied decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Status        string          `gorm:"size:16;not null"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime:false"`
}

func (TrailEntryRecord) TableName() string { return "collection_trail_entries" }

// AutoMigrate creates or updates every table the store uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&WalletRecord{}, &TransactionRecord{}, &FieldCollectionRecord{}, &TrailEntryRecord{})
}
