package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/teawallet/pkg/wallet"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMetadataJSON        = "{}"
	pgUniqueViolationCode      = "23505"
	pgSerializationFailureCode = "40001"
	pgDeadlockDetectedCode     = "40P01"
	sqliteBusyCode             = 5
	sqliteLockedCode           = 6
	sqliteConstraintCode       = 19
	errorOperationStore        = "store"
	errorSubjectWallet         = "wallet"
	errorSubjectTransaction    = "transaction"
	errorSubjectCollection     = "collection"
	errorSubjectTrail          = "trail"
	errorCodeCreate            = "create"
	errorCodeDuplicate         = "duplicate"
	errorCodeGet               = "get"
	errorCodeInsert            = "insert"
	errorCodeInvalid           = "invalid"
	errorCodeList              = "list"
	errorCodeLock              = "lock"
	errorCodeUpdate            = "update"
	errorCodeConflict          = "conflict"
)

// Store implements wallet.Store using GORM.
type Store struct {
	db   *gorm.DB
	inTx bool
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction. Nested calls reuse the open transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore wallet.Store) error) error {
	if store.inTx {
		return fn(ctx, store)
	}
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction, inTx: true})
	})
	if isConcurrencyFailure(err) {
		return wrapStoreError(errorSubjectTransaction, errorCodeConflict, wallet.ErrConcurrentConflict)
	}
	return err
}

func (store *Store) GetWallet(ctx context.Context, owner wallet.OwnerRef) (wallet.Wallet, error) {
	var record WalletRecord
	err := store.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", owner.Type().String(), owner.ID()).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, wallet.ErrWalletNotFound)
	}
	if err != nil {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, err)
	}
	return mapWallet(record)
}

func (store *Store) GetWalletByID(ctx context.Context, walletID string) (wallet.Wallet, error) {
	var record WalletRecord
	err := store.db.WithContext(ctx).Where("id = ?", walletID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, wallet.ErrWalletNotFound)
	}
	if err != nil {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, err)
	}
	return mapWallet(record)
}

func (store *Store) LockWallets(ctx context.Context, walletIDs []string) ([]wallet.Wallet, error) {
	ordered := wallet.OrderedWalletIDs(walletIDs...)
	var records []WalletRecord
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ordered).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, classifyError(errorSubjectWallet, errorCodeLock, err)
	}
	if len(records) != len(ordered) {
		return nil, wrapStoreError(errorSubjectWallet, errorCodeLock, wallet.ErrWalletNotFound)
	}
	locked := make([]wallet.Wallet, 0, len(records))
	for _, record := range records {
		mapped, err := mapWallet(record)
		if err != nil {
			return nil, err
		}
		locked = append(locked, mapped)
	}
	return locked, nil
}

func (store *Store) CreateWallet(ctx context.Context, created wallet.Wallet) (wallet.Wallet, error) {
	record := WalletRecord{
		ID:            created.ID,
		OwnerType:     created.OwnerType.String(),
		OwnerID:       created.OwnerID,
		DistributorID: created.DistributorID,
		Balance:       created.Balance,
		IsActive:      created.IsActive,
		Version:       created.Version,
		CreatedAt:     created.CreatedAt.UTC(),
		UpdatedAt:     created.UpdatedAt.UTC(),
	}
	err := store.db.WithContext(ctx).Create(&record).Error
	if isUniqueViolation(err) {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeDuplicate, wallet.ErrWalletExists)
	}
	if err != nil {
		return wallet.Wallet{}, classifyError(errorSubjectWallet, errorCodeCreate, err)
	}
	return mapWallet(record)
}

func (store *Store) AdjustBalance(ctx context.Context, current wallet.Wallet, delta decimal.Decimal, at time.Time) (wallet.Wallet, error) {
	next, err := current.ApplyDelta(delta, at)
	if err != nil {
		return wallet.Wallet{}, err
	}
	result := store.db.WithContext(ctx).
		Model(&WalletRecord{}).
		Where("id = ? AND version = ?", current.ID, current.Version).
		Updates(map[string]any{
			"balance":    next.Balance,
			"version":    next.Version,
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return wallet.Wallet{}, classifyError(errorSubjectWallet, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeConflict, wallet.ErrConcurrentConflict)
	}
	return next, nil
}

func (store *Store) SetWalletActive(ctx context.Context, walletID string, active bool, at time.Time) (wallet.Wallet, error) {
	result := store.db.WithContext(ctx).
		Model(&WalletRecord{}).
		Where("id = ?", walletID).
		Updates(map[string]any{
			"is_active":  active,
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return wallet.Wallet{}, classifyError(errorSubjectWallet, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeUpdate, wallet.ErrWalletNotFound)
	}
	return store.GetWalletByID(ctx, walletID)
}

func (store *Store) ListWallets(ctx context.Context, filter wallet.WalletFilter) ([]wallet.Wallet, error) {
	query := store.db.WithContext(ctx).Model(&WalletRecord{})
	if filter.DistributorID != "" {
		query = query.Where("distributor_id = ?", filter.DistributorID)
	}
	if filter.OwnerType != "" {
		query = query.Where("owner_type = ?", filter.OwnerType.String())
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	var records []WalletRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		return nil, wrapStoreError(errorSubjectWallet, errorCodeList, err)
	}
	listed := make([]wallet.Wallet, 0, len(records))
	for _, record := range records {
		mapped, err := mapWallet(record)
		if err != nil {
			return nil, err
		}
		listed = append(listed, mapped)
	}
	return listed, nil
}

func (store *Store) AppendTransactions(ctx context.Context, transactions []wallet.Transaction) ([]wallet.Transaction, error) {
	if len(transactions) == 0 {
		return nil, nil
	}
	records := make([]TransactionRecord, 0, len(transactions))
	for _, transaction := range transactions {
		if err := transaction.Validate(); err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		records = append(records, transactionRecord(transaction))
	}
	err := store.db.WithContext(ctx).Create(&records).Error
	if isUniqueViolation(err) {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeDuplicate, wallet.ErrDuplicateIdempotencyKey)
	}
	if err != nil {
		return nil, classifyError(errorSubjectTransaction, errorCodeInsert, err)
	}
	appended := make([]wallet.Transaction, 0, len(records))
	for _, record := range records {
		mapped, err := mapTransaction(record)
		if err != nil {
			return nil, err
		}
		appended = append(appended, mapped)
	}
	return appended, nil
}

func (store *Store) QueryTransactions(ctx context.Context, filter wallet.TransactionFilter, page wallet.Page) ([]wallet.Transaction, error) {
	query := store.db.WithContext(ctx).Model(&TransactionRecord{})
	if filter.WalletID != "" {
		query = query.Where("wallet_id = ?", filter.WalletID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type.String())
	}
	if filter.CounterpartyWalletID != "" {
		query = query.Where("counterparty_wallet_id = ?", filter.CounterpartyWalletID)
	}
	if !filter.DateFrom.IsZero() {
		query = query.Where("created_at_ns >= ?", filter.DateFrom.UnixNano())
	}
	if !filter.DateTo.IsZero() {
		query = query.Where("created_at_ns < ?", filter.DateTo.UnixNano())
	}
	if page.Cursor != nil {
		cursorNs := page.Cursor.CreatedAt.UnixNano()
		query = query.Where("(created_at_ns < ? OR (created_at_ns = ? AND id < ?))", cursorNs, cursorNs, page.Cursor.ID)
	}
	query = query.Order("created_at_ns DESC").Order("id DESC")
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}
	var records []TransactionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	return mapTransactions(records)
}

func (store *Store) FindTransactionsByIdempotencyKey(ctx context.Context, idempotencyKey string) ([]wallet.Transaction, error) {
	var records []TransactionRecord
	err := store.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	return mapTransactions(records)
}

func (store *Store) InsertFieldCollection(ctx context.Context, collection wallet.FieldCollection) error {
	record := FieldCollectionRecord{
		ID:                  collection.ID,
		WalletID:            collection.WalletID,
		OwnerType:           collection.OwnerType.String(),
		OwnerID:             collection.OwnerID,
		ShopID:              collection.ShopID,
		Amount:              collection.Amount,
		Outstanding:         collection.Outstanding,
		Status:              collection.Status.String(),
		Description:         collection.Description,
		CreditTransactionID: collection.CreditTransactionID,
		CollectedAt:         collection.CollectedAt.UTC(),
		CollectedAtNs:       collection.CollectedAt.UnixNano(),
		CreatedAt:           collection.CreatedAt.UTC(),
		CreatedAtNs:         collection.CreatedAt.UnixNano(),
		UpdatedAt:           collection.UpdatedAt.UTC(),
	}
	err := store.db.WithContext(ctx).Create(&record).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectCollection, errorCodeDuplicate, wallet.ErrDuplicateCollection)
	}
	if err != nil {
		return classifyError(errorSubjectCollection, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) GetFieldCollection(ctx context.Context, collectionID string) (wallet.FieldCollection, error) {
	var record FieldCollectionRecord
	err := store.db.WithContext(ctx).Where("id = ?", collectionID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.FieldCollection{}, wrapStoreError(errorSubjectCollection, errorCodeGet, wallet.ErrCollectionNotFound)
	}
	if err != nil {
		return wallet.FieldCollection{}, wrapStoreError(errorSubjectCollection, errorCodeGet, err)
	}
	return mapFieldCollection(record)
}

func (store *Store) ListFieldCollections(ctx context.Context, walletID string, status wallet.CollectionStatus) ([]wallet.FieldCollection, error) {
	query := store.db.WithContext(ctx).Where("wallet_id = ?", walletID)
	if status != "" {
		query = query.Where("status = ?", status.String())
	}
	var records []FieldCollectionRecord
	err := query.
		Order("collected_at_ns ASC").
		Order("created_at_ns ASC").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectCollection, errorCodeList, err)
	}
	collections := make([]wallet.FieldCollection, 0, len(records))
	for _, record := range records {
		mapped, err := mapFieldCollection(record)
		if err != nil {
			return nil, err
		}
		collections = append(collections, mapped)
	}
	return collections, nil
}

func (store *Store) UpdateFieldCollections(ctx context.Context, updates []wallet.CollectionUpdate, at time.Time) error {
	for _, update := range updates {
		result := store.db.WithContext(ctx).
			Model(&FieldCollectionRecord{}).
			Where("id = ?", update.CollectionID).
			Updates(map[string]any{
				"outstanding": update.Outstanding,
				"status":      update.Status.String(),
				"updated_at":  at.UTC(),
			})
		if result.Error != nil {
			return classifyError(errorSubjectCollection, errorCodeUpdate, result.Error)
		}
		if result.RowsAffected == 0 {
			return wrapStoreError(errorSubjectCollection, errorCodeUpdate, wallet.ErrCollectionNotFound)
		}
	}
	return nil
}

func (store *Store) InsertTrailEntries(ctx context.Context, entries []wallet.TrailEntry) error {
	if len(entries) == 0 {
		return nil
	}
	records := make([]TrailEntryRecord, 0, len(entries))
	for position, entry := range entries {
		records = append(records, TrailEntryRecord{
			ID:            entry.ID,
			TransactionID: entry.TransactionID,
			Position:      position,
			CollectionID:  entry.CollectionID,
			ShopID:        entry.ShopID,
			AmountApplied: entry.AmountApplied,
			Status:        entry.Status.String(),
			CreatedAt:     entry.CreatedAt.UTC(),
		})
	}
	if err := store.db.WithContext(ctx).Create(&records).Error; err != nil {
		return classifyError(errorSubjectTrail, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) ListTrailEntries(ctx context.Context, transactionIDs []string) ([]wallet.TrailEntry, error) {
	if len(transactionIDs) == 0 {
		return nil, nil
	}
	var records []TrailEntryRecord
	err := store.db.WithContext(ctx).
		Where("transaction_id IN ?", transactionIDs).
		Order("transaction_id ASC").
		Order("position ASC").
		Find(&records).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTrail, errorCodeList, err)
	}
	entries := make([]wallet.TrailEntry, 0, len(records))
	for _, record := range records {
		status, err := wallet.ParseCollectionStatus(record.Status)
		if err != nil {
			return nil, wrapStoreError(errorSubjectTrail, errorCodeInvalid, err)
		}
		entries = append(entries, wallet.TrailEntry{
			ID:            record.ID,
			TransactionID: record.TransactionID,
			CollectionID:  record.CollectionID,
			ShopID:        record.ShopID,
			AmountApplied: record.AmountApplied,
			Status:        status,
			CreatedAt:     record.CreatedAt.UTC(),
		})
	}
	return entries, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return wallet.WrapError(errorOperationStore, subject, code, err)
}

func classifyError(subject string, code string, err error) error {
	if isConcurrencyFailure(err) {
		return wrapStoreError(subject, errorCodeConflict, wallet.ErrConcurrentConflict)
	}
	return wrapStoreError(subject, code, err)
}

func transactionRecord(transaction wallet.Transaction) TransactionRecord {
	var counterparty *string
	if transaction.CounterpartyWalletID != "" {
		value := transaction.CounterpartyWalletID
		counterparty = &value
	}
	return TransactionRecord{
		ID:                   transaction.ID,
		WalletID:             transaction.WalletID,
		Type:                 transaction.Type.String(),
		Amount:               transaction.Amount,
		BalanceBefore:        transaction.BalanceBefore,
		BalanceAfter:         transaction.BalanceAfter,
		CounterpartyWalletID: counterparty,
		Description:          transaction.Description,
		ReferenceType:        transaction.ReferenceType,
		ReferenceID:          transaction.ReferenceID,
		IdempotencyKey:       transaction.IdempotencyKey,
		InitiatedBy:          transaction.InitiatedBy,
		Metadata:             datatypesJSON(transaction.Metadata.String()),
		CreatedAt:            transaction.CreatedAt.UTC(),
		CreatedAtNs:          transaction.CreatedAt.UnixNano(),
	}
}

func mapWallet(record WalletRecord) (wallet.Wallet, error) {
	ownerType, err := wallet.ParseOwnerType(record.OwnerType)
	if err != nil {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeInvalid, err)
	}
	return wallet.Wallet{
		ID:            record.ID,
		OwnerType:     ownerType,
		OwnerID:       record.OwnerID,
		DistributorID: record.DistributorID,
		Balance:       record.Balance,
		IsActive:      record.IsActive,
		Version:       record.Version,
		CreatedAt:     record.CreatedAt.UTC(),
		UpdatedAt:     record.UpdatedAt.UTC(),
	}, nil
}

func mapTransactions(records []TransactionRecord) ([]wallet.Transaction, error) {
	transactions := make([]wallet.Transaction, 0, len(records))
	for _, record := range records {
		mapped, err := mapTransaction(record)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, mapped)
	}
	return transactions, nil
}

func mapTransaction(record TransactionRecord) (wallet.Transaction, error) {
	transactionType, err := wallet.ParseTransactionType(record.Type)
	if err != nil {
		return wallet.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	metadata, err := wallet.NewMetadataJSON(string(record.Metadata))
	if err != nil {
		return wallet.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	counterparty := ""
	if record.CounterpartyWalletID != nil {
		counterparty = *record.CounterpartyWalletID
	}
	return wallet.Transaction{
		ID:                   record.ID,
		WalletID:             record.WalletID,
		Type:                 transactionType,
		Amount:               record.Amount,
		BalanceBefore:        record.BalanceBefore,
		BalanceAfter:         record.BalanceAfter,
		CounterpartyWalletID: counterparty,
		Description:          record.Description,
		ReferenceType:        record.ReferenceType,
		ReferenceID:          record.ReferenceID,
		IdempotencyKey:       record.IdempotencyKey,
		InitiatedBy:          record.InitiatedBy,
		Metadata:             metadata,
		CreatedAt:            time.Unix(0, record.CreatedAtNs).UTC(),
	}, nil
}

func mapFieldCollection(record FieldCollectionRecord) (wallet.FieldCollection, error) {
	ownerType, err := wallet.ParseOwnerType(record.OwnerType)
	if err != nil {
		return wallet.FieldCollection{}, wrapStoreError(errorSubjectCollection, errorCodeInvalid, err)
	}
	status, err := wallet.ParseCollectionStatus(record.Status)
	if err != nil {
		return wallet.FieldCollection{}, wrapStoreError(errorSubjectCollection, errorCodeInvalid, err)
	}
	return wallet.FieldCollection{
		ID:                  record.ID,
		WalletID:            record.WalletID,
		OwnerType:           ownerType,
		OwnerID:             record.OwnerID,
		ShopID:              record.ShopID,
		Amount:              record.Amount,
		Outstanding:         record.Outstanding,
		Status:              status,
		Description:         record.Description,
		CreditTransactionID: record.CreditTransactionID,
		CollectedAt:         time.Unix(0, record.CollectedAtNs).UTC(),
		CreatedAt:           time.Unix(0, record.CreatedAtNs).UTC(),
		UpdatedAt:           record.UpdatedAt.UTC(),
	}, nil
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

func isConcurrencyFailure(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailureCode || pgErr.Code == pgDeadlockDetectedCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		primary := sqliteErr.Code() & 0xFF
		return primary == sqliteBusyCode || primary == sqliteLockedCode
	}
	return false
}
