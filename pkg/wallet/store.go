package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// WalletStore owns balance records. Mutating methods are only called from
// inside Store.WithTx by the services of this package.
type WalletStore interface {
	GetWallet(ctx context.Context, owner OwnerRef) (Wallet, error)
	GetWalletByID(ctx context.Context, walletID string) (Wallet, error)
	// LockWallets returns the wallets in ascending id order, holding row locks
	// where the backend supports them until the enclosing transaction ends.
	LockWallets(ctx context.Context, walletIDs []string) ([]Wallet, error)
	CreateWallet(ctx context.Context, wallet Wallet) (Wallet, error)
	// AdjustBalance applies delta with a compare-and-swap on wallet.Version.
	AdjustBalance(ctx context.Context, wallet Wallet, delta decimal.Decimal, at time.Time) (Wallet, error)
	SetWalletActive(ctx context.Context, walletID string, active bool, at time.Time) (Wallet, error)
	ListWallets(ctx context.Context, filter WalletFilter) ([]Wallet, error)
}

// TransactionLog is the append-only store of ledger legs.
type TransactionLog interface {
	// AppendTransactions writes all legs or none of them.
	AppendTransactions(ctx context.Context, transactions []Transaction) ([]Transaction, error)
	// QueryTransactions lists legs newest-first by created_at, ties by id descending.
	QueryTransactions(ctx context.Context, filter TransactionFilter, page Page) ([]Transaction, error)
	FindTransactionsByIdempotencyKey(ctx context.Context, idempotencyKey string) ([]Transaction, error)
}

// CollectionStore keeps shop field collections and the trail entries that settle them.
type CollectionStore interface {
	InsertFieldCollection(ctx context.Context, collection FieldCollection) error
	GetFieldCollection(ctx context.Context, collectionID string) (FieldCollection, error)
	// ListFieldCollections returns a wallet's collections oldest collected_at first.
	// An empty status selects every status.
	ListFieldCollections(ctx context.Context, walletID string, status CollectionStatus) ([]FieldCollection, error)
	UpdateFieldCollections(ctx context.Context, updates []CollectionUpdate, at time.Time) error
	InsertTrailEntries(ctx context.Context, entries []TrailEntry) error
	ListTrailEntries(ctx context.Context, transactionIDs []string) ([]TrailEntry, error)
}

// Store is the persistence contract used by the services.
type Store interface {
	WalletStore
	TransactionLog
	CollectionStore
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
}
