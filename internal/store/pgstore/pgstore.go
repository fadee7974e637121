package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/teawallet/pkg/wallet"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	pgUniqueViolationCode      = "23505"
	pgSerializationFailureCode = "40001"
	pgDeadlockDetectedCode     = "40P01"
	errorOperationStore        = "store"
	errorSubjectWallet         = "wallet"
	errorSubjectTransaction    = "transaction"
	errorSubjectCollection     = "collection"
	errorSubjectTrail          = "trail"
	errorCodeBegin             = "begin"
	errorCodeCommit            = "commit"
	errorCodeCreate            = "create"
	errorCodeDuplicate         = "duplicate"
	errorCodeGet               = "get"
	errorCodeInsert            = "insert"
	errorCodeInvalid           = "invalid"
	errorCodeList              = "list"
	errorCodeLock              = "lock"
	errorCodeUpdate            = "update"
	errorCodeConflict          = "conflict"

	walletColumns = `id, owner_type, owner_id, distributor_id, balance::text, is_active, version, created_at, updated_at`

	sqlSelectWalletByOwner = `select ` + walletColumns + ` from wallets where owner_type = $1 and owner_id = $2`
	sqlSelectWalletByID    = `select ` + walletColumns + ` from wallets where id = $1`
	sqlLockWallets         = `select ` + walletColumns + ` from wallets where id = any($1) order by id for update`

	sqlInsertWallet = `
		insert into wallets(id, owner_type, owner_id, distributor_id, balance, is_active, version, created_at, updated_at)
		values ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)
	`

	sqlAdjustBalance = `
		update wallets
		set balance = $3::numeric, version = $4, updated_at = $5
		where id = $1 and version = $2
	`

	sqlSetWalletActive = `
		update wallets set is_active = $2, updated_at = $3 where id = $1
		returning ` + walletColumns

	sqlInsertTransaction = `
		insert into wallet_transactions(
			id, wallet_id, type, amount, balance_before, balance_after, counterparty_wallet_id,
			description, reference_type, reference_id, idempotency_key, initiated_by, metadata,
			created_at, created_at_ns
		)
		values (
			$1, $2, $3, $4::numeric, $5::numeric, $6::numeric, nullif($7, ''),
			$8, $9, $10, $11, $12, coalesce(nullif($13, ''), '{}')::jsonb,
			$14, $15
		)
	`

	transactionColumns = `
		id, wallet_id, type, amount::text, balance_before::text, balance_after::text,
		coalesce(counterparty_wallet_id, ''), description, reference_type, reference_id,
		idempotency_key, initiated_by, coalesce(metadata::text, '{}'), created_at_ns
	`

	sqlSelectTransactionsByKey = `select ` + transactionColumns + ` from wallet_transactions where idempotency_key = $1 order by id`

	sqlInsertFieldCollection = `
		insert into field_collections(
			id, wallet_id, owner_type, owner_id, shop_id, amount, outstanding, status, description,
			credit_transaction_id, collected_at, collected_at_ns, created_at, created_at_ns, updated_at
		)
		values ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	collectionColumns = `
		id, wallet_id, owner_type, owner_id, shop_id, amount::text, outstanding::text, status,
		description, credit_transaction_id, collected_at_ns, created_at_ns, updated_at
	`

	sqlSelectFieldCollection = `select ` + collectionColumns + ` from field_collections where id = $1`

	sqlListFieldCollections = `
		select ` + collectionColumns + ` from field_collections
		where wallet_id = $1 and ($2 = '' or status = $2)
		order by collected_at_ns, created_at_ns, id
	`

	sqlUpdateFieldCollection = `
		update field_collections set outstanding = $2::numeric, status = $3, updated_at = $4 where id = $1
	`

	sqlInsertTrailEntry = `
		insert into collection_trail_entries(id, transaction_id, position, collection_id, shop_id, amount_applied, status, created_at)
		values ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
	`

	sqlListTrailEntries = `
		select id, transaction_id, collection_id, shop_id, amount_applied::text, status, created_at
		from collection_trail_entries
		where transaction_id = any($1)
		order by transaction_id, position
	`
)

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row
}

// Store implements wallet.Store using a pgx connection pool. Inside WithTx the
// same type runs against the open transaction.
type Store struct {
	pool *pgxpool.Pool
	db   querier
	tx   pgx.Tx
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// WithTx runs fn inside a read committed transaction. Row locks taken with
// LockWallets are held until it ends.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore wallet.Store) error) error {
	if store.tx != nil {
		return fn(ctx, store)
	}
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	if err := fn(ctx, &Store{pool: store.pool, db: tx, tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) atomically(ctx context.Context, fn func(ctx context.Context, txStore *Store) error) error {
	if store.tx != nil {
		return fn(ctx, store)
	}
	return store.WithTx(ctx, func(ctx context.Context, txStore wallet.Store) error {
		return fn(ctx, txStore.(*Store))
	})
}

func (store *Store) GetWallet(ctx context.Context, owner wallet.OwnerRef) (wallet.Wallet, error) {
	found, err := scanWallet(store.db.QueryRow(ctx, sqlSelectWalletByOwner, owner.Type().String(), owner.ID()))
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, wallet.ErrWalletNotFound)
	}
	if err != nil {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, err)
	}
	return found, nil
}

func (store *Store) GetWalletByID(ctx context.Context, walletID string) (wallet.Wallet, error) {
	found, err := scanWallet(store.db.QueryRow(ctx, sqlSelectWalletByID, walletID))
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, wallet.ErrWalletNotFound)
	}
	if err != nil {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, err)
	}
	return found, nil
}

func (store *Store) LockWallets(ctx context.Context, walletIDs []string) ([]wallet.Wallet, error) {
	ordered := wallet.OrderedWalletIDs(walletIDs...)
	rows, err := store.db.Query(ctx, sqlLockWallets, ordered)
	if err != nil {
		return nil, classifyError(errorSubjectWallet, errorCodeLock, err)
	}
	defer rows.Close()
	locked := make([]wallet.Wallet, 0, len(ordered))
	for rows.Next() {
		found, err := scanWallet(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectWallet, errorCodeInvalid, err)
		}
		locked = append(locked, found)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(errorSubjectWallet, errorCodeLock, err)
	}
	if len(locked) != len(ordered) {
		return nil, wrapStoreError(errorSubjectWallet, errorCodeLock, wallet.ErrWalletNotFound)
	}
	return locked, nil
}

func (store *Store) CreateWallet(ctx context.Context, created wallet.Wallet) (wallet.Wallet, error) {
	_, err := store.db.Exec(ctx, sqlInsertWallet,
		created.ID,
		created.OwnerType.String(),
		created.OwnerID,
		created.DistributorID,
		created.Balance.String(),
		created.IsActive,
		created.Version,
		created.CreatedAt.UTC(),
		created.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeDuplicate, wallet.ErrWalletExists)
	}
	if err != nil {
		return wallet.Wallet{}, classifyError(errorSubjectWallet, errorCodeCreate, err)
	}
	return created, nil
}

func (store *Store) AdjustBalance(ctx context.Context, current wallet.Wallet, delta decimal.Decimal, at time.Time) (wallet.Wallet, error) {
	next, err := current.ApplyDelta(delta, at)
	if err != nil {
		return wallet.Wallet{}, err
	}
	tag, err := store.db.Exec(ctx, sqlAdjustBalance, current.ID, current.Version, next.Balance.String(), next.Version, at.UTC())
	if err != nil {
		return wallet.Wallet{}, classifyError(errorSubjectWallet, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeConflict, wallet.ErrConcurrentConflict)
	}
	return next, nil
}

func (store *Store) SetWalletActive(ctx context.Context, walletID string, active bool, at time.Time) (wallet.Wallet, error) {
	updated, err := scanWallet(store.db.QueryRow(ctx, sqlSetWalletActive, walletID, active, at.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeUpdate, wallet.ErrWalletNotFound)
	}
	if err != nil {
		return wallet.Wallet{}, classifyError(errorSubjectWallet, errorCodeUpdate, err)
	}
	return updated, nil
}

func (store *Store) ListWallets(ctx context.Context, filter wallet.WalletFilter) ([]wallet.Wallet, error) {
	var (
		conditions []string
		arguments  []any
	)
	if filter.DistributorID != "" {
		arguments = append(arguments, filter.DistributorID)
		conditions = append(conditions, fmt.Sprintf("distributor_id = $%d", len(arguments)))
	}
	if filter.OwnerType != "" {
		arguments = append(arguments, filter.OwnerType.String())
		conditions = append(conditions, fmt.Sprintf("owner_type = $%d", len(arguments)))
	}
	if filter.Active != nil {
		arguments = append(arguments, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(arguments)))
	}
	rows, err := store.db.Query(ctx, `select `+walletColumns+` from wallets`+whereClause(conditions)+` order by id`, arguments...)
	if err != nil {
		return nil, wrapStoreError(errorSubjectWallet, errorCodeList, err)
	}
	defer rows.Close()
	var listed []wallet.Wallet
	for rows.Next() {
		found, err := scanWallet(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectWallet, errorCodeInvalid, err)
		}
		listed = append(listed, found)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectWallet, errorCodeList, err)
	}
	return listed, nil
}

func (store *Store) AppendTransactions(ctx context.Context, transactions []wallet.Transaction) ([]wallet.Transaction, error) {
	for _, transaction := range transactions {
		if err := transaction.Validate(); err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
	}
	err := store.atomically(ctx, func(ctx context.Context, txStore *Store) error {
		for _, transaction := range transactions {
			_, err := txStore.db.Exec(ctx, sqlInsertTransaction,
				transaction.ID,
				transaction.WalletID,
				transaction.Type.String(),
				transaction.Amount.String(),
				transaction.BalanceBefore.String(),
				transaction.BalanceAfter.String(),
				transaction.CounterpartyWalletID,
				transaction.Description,
				transaction.ReferenceType,
				transaction.ReferenceID,
				transaction.IdempotencyKey,
				transaction.InitiatedBy,
				transaction.Metadata.String(),
				transaction.CreatedAt.UTC(),
				transaction.CreatedAt.UnixNano(),
			)
			if isUniqueViolation(err) {
				return wrapStoreError(errorSubjectTransaction, errorCodeDuplicate, wallet.ErrDuplicateIdempotencyKey)
			}
			if err != nil {
				return classifyError(errorSubjectTransaction, errorCodeInsert, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append([]wallet.Transaction(nil), transactions...), nil
}

func (store *Store) QueryTransactions(ctx context.Context, filter wallet.TransactionFilter, page wallet.Page) ([]wallet.Transaction, error) {
	var (
		conditions []string
		arguments  []any
	)
	add := func(format string, values ...any) {
		placeholders := make([]any, 0, len(values))
		for _, value := range values {
			arguments = append(arguments, value)
			placeholders = append(placeholders, len(arguments))
		}
		conditions = append(conditions, fmt.Sprintf(format, placeholders...))
	}
	if filter.WalletID != "" {
		add("wallet_id = $%d", filter.WalletID)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type.String())
	}
	if filter.CounterpartyWalletID != "" {
		add("counterparty_wallet_id = $%d", filter.CounterpartyWalletID)
	}
	if !filter.DateFrom.IsZero() {
		add("created_at_ns >= $%d", filter.DateFrom.UnixNano())
	}
	if !filter.DateTo.IsZero() {
		add("created_at_ns < $%d", filter.DateTo.UnixNano())
	}
	if page.Cursor != nil {
		add("(created_at_ns, id) < ($%d, $%d)", page.Cursor.CreatedAt.UnixNano(), page.Cursor.ID)
	}
	query := `select ` + transactionColumns + ` from wallet_transactions` + whereClause(conditions) + ` order by created_at_ns desc, id desc`
	if page.Limit > 0 {
		arguments = append(arguments, page.Limit)
		query += fmt.Sprintf(" limit $%d", len(arguments))
	}
	rows, err := store.db.Query(ctx, query, arguments...)
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	return scanTransactions(rows)
}

func (store *Store) FindTransactionsByIdempotencyKey(ctx context.Context, idempotencyKey string) ([]wallet.Transaction, error) {
	rows, err := store.db.Query(ctx, sqlSelectTransactionsByKey, idempotencyKey)
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	return scanTransactions(rows)
}

func (store *Store) InsertFieldCollection(ctx context.Context, collection wallet.FieldCollection) error {
	_, err := store.db.Exec(ctx, sqlInsertFieldCollection,
		collection.ID,
		collection.WalletID,
		collection.OwnerType.String(),
		collection.OwnerID,
		collection.ShopID,
		collection.Amount.String(),
		collection.Outstanding.String(),
		collection.Status.String(),
		collection.Description,
		collection.CreditTransactionID,
		collection.CollectedAt.UTC(),
		collection.CollectedAt.UnixNano(),
		collection.CreatedAt.UTC(),
		collection.CreatedAt.UnixNano(),
		collection.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectCollection, errorCodeDuplicate, wallet.ErrDuplicateCollection)
	}
	if err != nil {
		return classifyError(errorSubjectCollection, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) GetFieldCollection(ctx context.Context, collectionID string) (wallet.FieldCollection, error) {
	found, err := scanFieldCollection(store.db.QueryRow(ctx, sqlSelectFieldCollection, collectionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.FieldCollection{}, wrapStoreError(errorSubjectCollection, errorCodeGet, wallet.ErrCollectionNotFound)
	}
	if err != nil {
		return wallet.FieldCollection{}, wrapStoreError(errorSubjectCollection, errorCodeGet, err)
	}
	return found, nil
}

func (store *Store) ListFieldCollections(ctx context.Context, walletID string, status wallet.CollectionStatus) ([]wallet.FieldCollection, error) {
	rows, err := store.db.Query(ctx, sqlListFieldCollections, walletID, status.String())
	if err != nil {
		return nil, wrapStoreError(errorSubjectCollection, errorCodeList, err)
	}
	defer rows.Close()
	var collections []wallet.FieldCollection
	for rows.Next() {
		found, err := scanFieldCollection(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectCollection, errorCodeInvalid, err)
		}
		collections = append(collections, found)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectCollection, errorCodeList, err)
	}
	return collections, nil
}

func (store *Store) UpdateFieldCollections(ctx context.Context, updates []wallet.CollectionUpdate, at time.Time) error {
	return store.atomically(ctx, func(ctx context.Context, txStore *Store) error {
		for _, update := range updates {
			tag, err := txStore.db.Exec(ctx, sqlUpdateFieldCollection, update.CollectionID, update.Outstanding.String(), update.Status.String(), at.UTC())
			if err != nil {
				return classifyError(errorSubjectCollection, errorCodeUpdate, err)
			}
			if tag.RowsAffected() == 0 {
				return wrapStoreError(errorSubjectCollection, errorCodeUpdate, wallet.ErrCollectionNotFound)
			}
		}
		return nil
	})
}

func (store *Store) InsertTrailEntries(ctx context.Context, entries []wallet.TrailEntry) error {
	return store.atomically(ctx, func(ctx context.Context, txStore *Store) error {
		for position, entry := range entries {
			_, err := txStore.db.Exec(ctx, sqlInsertTrailEntry,
				entry.ID,
				entry.TransactionID,
				position,
				entry.CollectionID,
				entry.ShopID,
				entry.AmountApplied.String(),
				entry.Status.String(),
				entry.CreatedAt.UTC(),
			)
			if err != nil {
				return classifyError(errorSubjectTrail, errorCodeInsert, err)
			}
		}
		return nil
	})
}

func (store *Store) ListTrailEntries(ctx context.Context, transactionIDs []string) ([]wallet.TrailEntry, error) {
	if len(transactionIDs) == 0 {
		return nil, nil
	}
	rows, err := store.db.Query(ctx, sqlListTrailEntries, transactionIDs)
	if err != nil {
		return nil, wrapStoreError(errorSubjectTrail, errorCodeList, err)
	}
	defer rows.Close()
	var entries []wallet.TrailEntry
	for rows.Next() {
		var (
			entry       wallet.TrailEntry
			amountValue string
			statusValue string
		)
		if err := rows.Scan(&entry.ID, &entry.TransactionID, &entry.CollectionID, &entry.ShopID, &amountValue, &statusValue, &entry.CreatedAt); err != nil {
			return nil, wrapStoreError(errorSubjectTrail, errorCodeInvalid, err)
		}
		if entry.AmountApplied, err = decimal.NewFromString(amountValue); err != nil {
			return nil, wrapStoreError(errorSubjectTrail, errorCodeInvalid, err)
		}
		if entry.Status, err = wallet.ParseCollectionStatus(statusValue); err != nil {
			return nil, wrapStoreError(errorSubjectTrail, errorCodeInvalid, err)
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectTrail, errorCodeList, err)
	}
	return entries, nil
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " where " + strings.Join(conditions, " and ")
}

func scanWallet(row pgx.Row) (wallet.Wallet, error) {
	var (
		found        wallet.Wallet
		ownerType    string
		balanceValue string
	)
	if err := row.Scan(
		&found.ID,
		&ownerType,
		&found.OwnerID,
		&found.DistributorID,
		&balanceValue,
		&found.IsActive,
		&found.Version,
		&found.CreatedAt,
		&found.UpdatedAt,
	); err != nil {
		return wallet.Wallet{}, err
	}
	var err error
	if found.OwnerType, err = wallet.ParseOwnerType(ownerType); err != nil {
		return wallet.Wallet{}, err
	}
	if found.Balance, err = decimal.NewFromString(balanceValue); err != nil {
		return wallet.Wallet{}, err
	}
	found.CreatedAt = found.CreatedAt.UTC()
	found.UpdatedAt = found.UpdatedAt.UTC()
	return found, nil
}

func scanTransactions(rows pgx.Rows) ([]wallet.Transaction, error) {
	defer rows.Close()
	var transactions []wallet.Transaction
	for rows.Next() {
		var (
			transaction        wallet.Transaction
			typeValue          string
			amountValue        string
			balanceBeforeValue string
			balanceAfterValue  string
			metadataValue      string
			createdAtNs        int64
		)
		if err := rows.Scan(
			&transaction.ID,
			&transaction.WalletID,
			&typeValue,
			&amountValue,
			&balanceBeforeValue,
			&balanceAfterValue,
			&transaction.CounterpartyWalletID,
			&transaction.Description,
			&transaction.ReferenceType,
			&transaction.ReferenceID,
			&transaction.IdempotencyKey,
			&transaction.InitiatedBy,
			&metadataValue,
			&createdAtNs,
		); err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		var err error
		if transaction.Type, err = wallet.ParseTransactionType(typeValue); err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		if transaction.Amount, err = decimal.NewFromString(amountValue); err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		if transaction.BalanceBefore, err = decimal.NewFromString(balanceBeforeValue); err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		if transaction.BalanceAfter, err = decimal.NewFromString(balanceAfterValue); err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		if transaction.Metadata, err = wallet.NewMetadataJSON(metadataValue); err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		transaction.CreatedAt = time.Unix(0, createdAtNs).UTC()
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	return transactions, nil
}

func scanFieldCollection(row pgx.Row) (wallet.FieldCollection, error) {
	var (
		found            wallet.FieldCollection
		ownerType        string
		amountValue      string
		outstandingValue string
		statusValue      string
		collectedAtNs    int64
		createdAtNs      int64
	)
	if err := row.Scan(
		&found.ID,
		&found.WalletID,
		&ownerType,
		&found.OwnerID,
		&found.ShopID,
		&amountValue,
		&outstandingValue,
		&statusValue,
		&found.Description,
		&found.CreditTransactionID,
		&collectedAtNs,
		&createdAtNs,
		&found.UpdatedAt,
	); err != nil {
		return wallet.FieldCollection{}, err
	}
	var err error
	if found.OwnerType, err = wallet.ParseOwnerType(ownerType); err != nil {
		return wallet.FieldCollection{}, err
	}
	if found.Amount, err = decimal.NewFromString(amountValue); err != nil {
		return wallet.FieldCollection{}, err
	}
	if found.Outstanding, err = decimal.NewFromString(outstandingValue); err != nil {
		return wallet.FieldCollection{}, err
	}
	if found.Status, err = wallet.ParseCollectionStatus(statusValue); err != nil {
		return wallet.FieldCollection{}, err
	}
	found.CollectedAt = time.Unix(0, collectedAtNs).UTC()
	found.CreatedAt = time.Unix(0, createdAtNs).UTC()
	found.UpdatedAt = found.UpdatedAt.UTC()
	return found, nil
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	return false
}

func isConcurrencyFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailureCode || pgErr.Code == pgDeadlockDetectedCode
	}
	return false
}
