package wallet

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const (
	distributorIDValue = "dist-1"
	orderBookerIDValue = "ob-1"
	deliveryManIDValue = "dm-1"
	collectKeyValue    = "collect-1"
)

var (
	errStoreFailure = errors.New("store error")
	fixedNow        = time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
)

type stubState struct {
	wallets      map[string]Wallet
	transactions []Transaction
	collections  map[string]FieldCollection
	trail        []TrailEntry
}

func (state *stubState) clone() *stubState {
	copied := &stubState{
		wallets:      make(map[string]Wallet, len(state.wallets)),
		transactions: append([]Transaction(nil), state.transactions...),
		collections:  make(map[string]FieldCollection, len(state.collections)),
		trail:        append([]TrailEntry(nil), state.trail...),
	}
	for id, wallet := range state.wallets {
		copied.wallets[id] = wallet
	}
	for id, collection := range state.collections {
		copied.collections[id] = collection
	}
	return copied
}

type stubFaults struct {
	getWalletError       error
	lockWalletsError     error
	adjustError          error
	adjustErrorAtCall    int
	appendError          error
	listCollectionsError error
	insertTrailError     error
	findByKeyError       error
	queryError           error
	adjustCalls          int
	appendCalls          int
	beforeAppend         func(state *stubState)
}

// stubStore is an in-memory Store. WithTx works on a copy of the committed
// state and swaps it in when fn succeeds.
type stubStore struct {
	test   *testing.T
	mu     *sync.Mutex
	root   **stubState
	state  *stubState
	inTx   bool
	faults *stubFaults
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	committed := &stubState{
		wallets:     map[string]Wallet{},
		collections: map[string]FieldCollection{},
	}
	return &stubStore{test: test, mu: &sync.Mutex{}, root: &committed, faults: &stubFaults{}}
}

func (store *stubStore) view() (*stubState, func()) {
	if store.inTx {
		return store.state, func() {}
	}
	store.mu.Lock()
	return *store.root, store.mu.Unlock
}

func (store *stubStore) seedWallet(owner OwnerRef, distributorID string, balance string, active bool) Wallet {
	store.test.Helper()
	state, done := store.view()
	defer done()
	seeded := Wallet{
		ID:            "w-" + owner.ID(),
		OwnerType:     owner.Type(),
		OwnerID:       owner.ID(),
		DistributorID: distributorID,
		Balance:       decimal.RequireFromString(balance),
		IsActive:      active,
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}
	state.wallets[seeded.ID] = seeded
	return seeded
}

func (store *stubStore) seedCollection(collection FieldCollection) {
	store.test.Helper()
	state, done := store.view()
	defer done()
	state.collections[collection.ID] = collection
}

func (store *stubStore) snapshot() *stubState {
	state, done := store.view()
	defer done()
	return state.clone()
}

func (store *stubStore) GetWallet(_ context.Context, owner OwnerRef) (Wallet, error) {
	if store.faults.getWalletError != nil {
		return Wallet{}, store.faults.getWalletError
	}
	state, done := store.view()
	defer done()
	for _, candidate := range state.wallets {
		if candidate.OwnerType == owner.Type() && candidate.OwnerID == owner.ID() {
			return candidate, nil
		}
	}
	return Wallet{}, ErrWalletNotFound
}

func (store *stubStore) GetWalletByID(_ context.Context, walletID string) (Wallet, error) {
	state, done := store.view()
	defer done()
	found, ok := state.wallets[walletID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return found, nil
}

func (store *stubStore) LockWallets(_ context.Context, walletIDs []string) ([]Wallet, error) {
	if store.faults.lockWalletsError != nil {
		return nil, store.faults.lockWalletsError
	}
	state, done := store.view()
	defer done()
	locked := make([]Wallet, 0, len(walletIDs))
	for _, walletID := range OrderedWalletIDs(walletIDs...) {
		found, ok := state.wallets[walletID]
		if !ok {
			return nil, ErrWalletNotFound
		}
		locked = append(locked, found)
	}
	return locked, nil
}

func (store *stubStore) CreateWallet(_ context.Context, wallet Wallet) (Wallet, error) {
	state, done := store.view()
	defer done()
	for _, candidate := range state.wallets {
		if candidate.OwnerType == wallet.OwnerType && candidate.OwnerID == wallet.OwnerID {
			return Wallet{}, ErrWalletExists
		}
	}
	state.wallets[wallet.ID] = wallet
	return wallet, nil
}

func (store *stubStore) AdjustBalance(_ context.Context, wallet Wallet, delta decimal.Decimal, at time.Time) (Wallet, error) {
	store.faults.adjustCalls++
	if store.faults.adjustError != nil && (store.faults.adjustErrorAtCall == 0 || store.faults.adjustErrorAtCall == store.faults.adjustCalls) {
		return Wallet{}, store.faults.adjustError
	}
	state, done := store.view()
	defer done()
	current, ok := state.wallets[wallet.ID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	if current.Version != wallet.Version {
		return Wallet{}, ErrConcurrentConflict
	}
	next, err := current.ApplyDelta(delta, at)
	if err != nil {
		return Wallet{}, err
	}
	state.wallets[wallet.ID] = next
	return next, nil
}

func (store *stubStore) SetWalletActive(_ context.Context, walletID string, active bool, at time.Time) (Wallet, error) {
	state, done := store.view()
	defer done()
	current, ok := state.wallets[walletID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	current.IsActive = active
	current.UpdatedAt = at
	state.wallets[walletID] = current
	return current, nil
}

func (store *stubStore) ListWallets(_ context.Context, filter WalletFilter) ([]Wallet, error) {
	state, done := store.view()
	defer done()
	listed := make([]Wallet, 0, len(state.wallets))
	for _, candidate := range state.wallets {
		if filter.DistributorID != "" && candidate.DistributorID != filter.DistributorID {
			continue
		}
		if filter.OwnerType != "" && candidate.OwnerType != filter.OwnerType {
			continue
		}
		if filter.Active != nil && candidate.IsActive != *filter.Active {
			continue
		}
		listed = append(listed, candidate)
	}
	sort.Slice(listed, func(left, right int) bool { return listed[left].ID < listed[right].ID })
	return listed, nil
}

func (store *stubStore) AppendTransactions(_ context.Context, transactions []Transaction) ([]Transaction, error) {
	store.faults.appendCalls++
	if store.faults.appendError != nil {
		return nil, store.faults.appendError
	}
	state, done := store.view()
	defer done()
	if store.faults.beforeAppend != nil {
		store.faults.beforeAppend(state)
	}
	for _, transaction := range transactions {
		if err := transaction.Validate(); err != nil {
			return nil, err
		}
		for _, existing := range state.transactions {
			if existing.WalletID == transaction.WalletID && existing.IdempotencyKey == transaction.IdempotencyKey {
				return nil, ErrDuplicateIdempotencyKey
			}
		}
	}
	state.transactions = append(state.transactions, transactions...)
	return append([]Transaction(nil), transactions...), nil
}

func (store *stubStore) QueryTransactions(_ context.Context, filter TransactionFilter, page Page) ([]Transaction, error) {
	if store.faults.queryError != nil {
		return nil, store.faults.queryError
	}
	state, done := store.view()
	defer done()
	matched := make([]Transaction, 0, len(state.transactions))
	for _, transaction := range state.transactions {
		if !filter.Matches(transaction) {
			continue
		}
		if page.Cursor != nil && !page.Cursor.Admits(transaction) {
			continue
		}
		matched = append(matched, transaction)
	}
	sort.SliceStable(matched, func(left, right int) bool { return NewestFirst(matched[left], matched[right]) })
	if page.Limit > 0 && len(matched) > page.Limit {
		matched = matched[:page.Limit]
	}
	return matched, nil
}

func (store *stubStore) FindTransactionsByIdempotencyKey(_ context.Context, idempotencyKey string) ([]Transaction, error) {
	if store.faults.findByKeyError != nil {
		return nil, store.faults.findByKeyError
	}
	state, done := store.view()
	defer done()
	var found []Transaction
	for _, transaction := range state.transactions {
		if transaction.IdempotencyKey == idempotencyKey {
			found = append(found, transaction)
		}
	}
	return found, nil
}

func (store *stubStore) InsertFieldCollection(_ context.Context, collection FieldCollection) error {
	state, done := store.view()
	defer done()
	if _, exists := state.collections[collection.ID]; exists {
		return ErrDuplicateCollection
	}
	state.collections[collection.ID] = collection
	return nil
}

func (store *stubStore) GetFieldCollection(_ context.Context, collectionID string) (FieldCollection, error) {
	state, done := store.view()
	defer done()
	found, ok := state.collections[collectionID]
	if !ok {
		return FieldCollection{}, ErrCollectionNotFound
	}
	return found, nil
}

func (store *stubStore) ListFieldCollections(_ context.Context, walletID string, status CollectionStatus) ([]FieldCollection, error) {
	if store.faults.listCollectionsError != nil {
		return nil, store.faults.listCollectionsError
	}
	state, done := store.view()
	defer done()
	var listed []FieldCollection
	for _, collection := range state.collections {
		if collection.WalletID != walletID {
			continue
		}
		if status != "" && collection.Status != status {
			continue
		}
		listed = append(listed, collection)
	}
	sort.Slice(listed, func(left, right int) bool { return oldestFirst(listed[left], listed[right]) })
	return listed, nil
}

func (store *stubStore) UpdateFieldCollections(_ context.Context, updates []CollectionUpdate, at time.Time) error {
	state, done := store.view()
	defer done()
	for _, update := range updates {
		current, ok := state.collections[update.CollectionID]
		if !ok {
			return ErrCollectionNotFound
		}
		current.Outstanding = update.Outstanding
		current.Status = update.Status
		current.UpdatedAt = at
		state.collections[update.CollectionID] = current
	}
	return nil
}

func (store *stubStore) InsertTrailEntries(_ context.Context, entries []TrailEntry) error {
	if store.faults.insertTrailError != nil {
		return store.faults.insertTrailError
	}
	state, done := store.view()
	defer done()
	state.trail = append(state.trail, entries...)
	return nil
}

func (store *stubStore) ListTrailEntries(_ context.Context, transactionIDs []string) ([]TrailEntry, error) {
	state, done := store.view()
	defer done()
	wanted := make(map[string]struct{}, len(transactionIDs))
	for _, transactionID := range transactionIDs {
		wanted[transactionID] = struct{}{}
	}
	var listed []TrailEntry
	for _, entry := range state.trail {
		if _, ok := wanted[entry.TransactionID]; ok {
			listed = append(listed, entry)
		}
	}
	return listed, nil
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	if store.inTx {
		return fn(ctx, store)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	working := (*store.root).clone()
	txStore := &stubStore{test: store.test, mu: store.mu, root: store.root, state: working, inTx: true, faults: store.faults}
	if err := fn(ctx, txStore); err != nil {
		return err
	}
	*store.root = working
	return nil
}

type recorderLogger struct {
	mu      sync.Mutex
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.entries = append(logger.entries, entry)
}

func (logger *recorderLogger) snapshot() []OperationLog {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	return append([]OperationLog(nil), logger.entries...)
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, func() time.Time { return fixedNow }, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func mustOwner(test *testing.T, ownerType OwnerType, ownerID string) OwnerRef {
	test.Helper()
	owner, err := NewOwnerRef(ownerType.String(), ownerID)
	if err != nil {
		test.Fatalf("owner init failed: %v", err)
	}
	return owner
}

func mustDistributorID(test *testing.T, raw string) DistributorID {
	test.Helper()
	distributorID, err := NewDistributorID(raw)
	if err != nil {
		test.Fatalf("distributor id init failed: %v", err)
	}
	return distributorID
}

func mustAmount(test *testing.T, raw string) PositiveAmount {
	test.Helper()
	amount, err := ParsePositiveAmount(raw)
	if err != nil {
		test.Fatalf("amount init failed: %v", err)
	}
	return amount
}

func mustIdempotencyKey(test *testing.T, raw string) IdempotencyKey {
	test.Helper()
	key, err := NewIdempotencyKey(raw)
	if err != nil {
		test.Fatalf("idempotency key init failed: %v", err)
	}
	return key
}

func mustDecimal(test *testing.T, raw string) decimal.Decimal {
	test.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("decimal init failed: %v", err)
	}
	return value
}

// seedTeam provisions a distributor with one order booker and returns both wallets.
func seedTeam(test *testing.T, store *stubStore, distributorBalance string, bookerBalance string) (Wallet, Wallet) {
	test.Helper()
	distributor := store.seedWallet(mustOwner(test, OwnerDistributor, distributorIDValue), distributorIDValue, distributorBalance, true)
	booker := store.seedWallet(mustOwner(test, OwnerOrderBooker, orderBookerIDValue), distributorIDValue, bookerBalance, true)
	return distributor, booker
}

func collectRequest(test *testing.T, amount string, key string) CollectRequest {
	test.Helper()
	return CollectRequest{
		DistributorID:  mustDistributorID(test, distributorIDValue),
		Source:         mustOwner(test, OwnerOrderBooker, orderBookerIDValue),
		Amount:         mustAmount(test, amount),
		IdempotencyKey: mustIdempotencyKey(test, key),
		InitiatedBy:    distributorIDValue,
	}
}
