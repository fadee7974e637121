package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CollectRequest moves cash from a team member's wallet into the distributor's wallet.
type CollectRequest struct {
	DistributorID  DistributorID
	Source         OwnerRef
	Amount         PositiveAmount
	Description    string
	IdempotencyKey IdempotencyKey
	InitiatedBy    string
	Metadata       MetadataJSON
}

// CollectResult is the outcome of a collect, fresh or replayed.
type CollectResult struct {
	SourceTransaction      Transaction
	DistributorTransaction Transaction
	TrailEntries           []TrailEntry
	Replayed               bool
}

// ReferenceID returns the reference shared by both legs.
func (result CollectResult) ReferenceID() string {
	return result.DistributorTransaction.ReferenceID
}

func (request CollectRequest) validate() error {
	if request.Amount.IsZero() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if request.DistributorID.String() == "" {
		return fmt.Errorf("%w: distributor id is empty", ErrInvalidDistributorID)
	}
	if request.Source.IsZero() {
		return fmt.Errorf("%w: source owner is empty", ErrInvalidOwnerID)
	}
	if !request.Source.Type().IsTeamMember() {
		return fmt.Errorf("%w: cannot collect from %s wallet", ErrInvalidOwnerType, request.Source.Type())
	}
	if request.IdempotencyKey.String() == "" {
		return fmt.Errorf("%w: idempotency key is empty", ErrInvalidIdempotencyKey)
	}
	if strings.HasPrefix(request.IdempotencyKey.String(), fieldCollectionKeyPrefix) {
		return fmt.Errorf("%w: prefix %q is reserved for field collections", ErrInvalidIdempotencyKey, fieldCollectionKeyPrefix)
	}
	return nil
}

// CollectionService runs the collect use case.
type CollectionService struct {
	config *serviceConfig
}

// Collect debits the source wallet and credits the distributor wallet by the
// same amount, appends both legs and settles the source's pending field
// collections oldest first. A retry with the same idempotency key returns the
// original legs without touching balances.
func (service *CollectionService) Collect(ctx context.Context, request CollectRequest) (CollectResult, error) {
	result, err := service.collect(ctx, request)
	status := ""
	if err == nil && result.Replayed {
		status = OperationStatusReplayed
	}
	service.config.logOperation(ctx, OperationLog{
		Operation:      OperationCollect,
		DistributorID:  request.DistributorID.String(),
		Owner:          request.Source,
		Amount:         request.Amount,
		IdempotencyKey: request.IdempotencyKey,
		ReferenceID:    result.ReferenceID(),
		Status:         status,
		Error:          err,
	})
	return result, err
}

func (service *CollectionService) collect(ctx context.Context, request CollectRequest) (CollectResult, error) {
	if err := request.validate(); err != nil {
		return CollectResult{}, err
	}
	store := service.config.store
	distributorWallet, err := store.GetWallet(ctx, request.DistributorID.Owner())
	if err != nil {
		return CollectResult{}, err
	}
	sourceWallet, err := store.GetWallet(ctx, request.Source)
	if err != nil {
		return CollectResult{}, err
	}
	if sourceWallet.DistributorID != request.DistributorID.String() {
		return CollectResult{}, fmt.Errorf("%w: %s is not on team %s", ErrForeignWallet, request.Source, request.DistributorID)
	}

	prior, found, err := findPriorCollect(ctx, store, request, distributorWallet.ID, sourceWallet.ID)
	if err != nil {
		return CollectResult{}, err
	}
	if found {
		return prior, nil
	}
	if !distributorWallet.IsActive {
		return CollectResult{}, fmt.Errorf("%w: distributor wallet %s", ErrWalletInactive, distributorWallet.ID)
	}

	unlock, err := service.config.locker.Lock(ctx, sourceWallet.ID, distributorWallet.ID)
	if err != nil {
		return CollectResult{}, fmt.Errorf("lock wallets: %w", err)
	}
	defer unlock()

	var result CollectResult
	err = store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		prior, found, err := findPriorCollect(ctx, txStore, request, distributorWallet.ID, sourceWallet.ID)
		if err != nil {
			return err
		}
		if found {
			result = prior
			return nil
		}
		written, err := service.transfer(ctx, txStore, request, sourceWallet.ID, distributorWallet.ID)
		if err != nil {
			return err
		}
		result = written
		return nil
	})
	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		prior, found, findErr := findPriorCollect(ctx, store, request, distributorWallet.ID, sourceWallet.ID)
		if findErr != nil {
			return CollectResult{}, findErr
		}
		if found {
			return prior, nil
		}
	}
	if err != nil {
		return CollectResult{}, err
	}
	return result, nil
}

// transfer is the critical section. It runs inside a store transaction while
// both wallet locks are held.
func (service *CollectionService) transfer(ctx context.Context, txStore Store, request CollectRequest, sourceWalletID string, distributorWalletID string) (CollectResult, error) {
	locked, err := txStore.LockWallets(ctx, []string{sourceWalletID, distributorWalletID})
	if err != nil {
		return CollectResult{}, err
	}
	source, distributor, err := pickWallets(locked, sourceWalletID, distributorWalletID)
	if err != nil {
		return CollectResult{}, err
	}
	if !distributor.IsActive {
		return CollectResult{}, fmt.Errorf("%w: distributor wallet %s", ErrWalletInactive, distributor.ID)
	}
	amount := request.Amount.Decimal()
	if amount.GreaterThan(source.Balance) {
		return CollectResult{}, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientBalance, request.Amount, source.Balance.StringFixed(amountScale))
	}

	now := service.config.legTime(source, distributor)
	debited, err := txStore.AdjustBalance(ctx, source, amount.Neg(), now)
	if err != nil {
		return CollectResult{}, err
	}
	credited, err := txStore.AdjustBalance(ctx, distributor, amount, now)
	if err != nil {
		return CollectResult{}, err
	}

	ids := service.config.ids
	referenceID := ids.TimeOrderedID(now)
	outgoing := Transaction{
		ID:                   ids.TimeOrderedID(now),
		WalletID:             source.ID,
		Type:                 TransactionTransferOut,
		Amount:               amount,
		BalanceBefore:        source.Balance,
		BalanceAfter:         debited.Balance,
		CounterpartyWalletID: distributor.ID,
		Description:          describeCollect(request.Description, "Collected by distributor "+request.DistributorID.String()),
		ReferenceType:        ReferenceTypeWalletCollection,
		ReferenceID:          referenceID,
		IdempotencyKey:       request.IdempotencyKey.String(),
		InitiatedBy:          request.InitiatedBy,
		Metadata:             request.Metadata,
		CreatedAt:            now,
	}
	incoming := Transaction{
		ID:                   ids.TimeOrderedID(now),
		WalletID:             distributor.ID,
		Type:                 TransactionTransferIn,
		Amount:               amount,
		BalanceBefore:        distributor.Balance,
		BalanceAfter:         credited.Balance,
		CounterpartyWalletID: source.ID,
		Description:          describeCollect(request.Description, "Collected from "+request.Source.Type().String()+" "+request.Source.ID()),
		ReferenceType:        ReferenceTypeWalletCollection,
		ReferenceID:          referenceID,
		IdempotencyKey:       request.IdempotencyKey.String(),
		InitiatedBy:          request.InitiatedBy,
		Metadata:             request.Metadata,
		CreatedAt:            now,
	}
	appended, err := txStore.AppendTransactions(ctx, []Transaction{outgoing, incoming})
	if err != nil {
		return CollectResult{}, err
	}
	if len(appended) != 2 {
		return CollectResult{}, fmt.Errorf("append collect legs: expected 2 rows, got %d", len(appended))
	}

	pending, err := txStore.ListFieldCollections(ctx, source.ID, CollectionPending)
	if err != nil {
		return CollectResult{}, err
	}
	resolution := ResolveTrail(pending, amount)
	for index := range resolution.Entries {
		resolution.Entries[index].ID = ids.RandomID()
		resolution.Entries[index].TransactionID = appended[1].ID
		resolution.Entries[index].CreatedAt = now
	}
	if len(resolution.Entries) > 0 {
		if err := txStore.InsertTrailEntries(ctx, resolution.Entries); err != nil {
			return CollectResult{}, err
		}
		if err := txStore.UpdateFieldCollections(ctx, resolution.Updates, now); err != nil {
			return CollectResult{}, err
		}
	}
	return CollectResult{
		SourceTransaction:      appended[0],
		DistributorTransaction: appended[1],
		TrailEntries:           resolution.Entries,
	}, nil
}

// findPriorCollect looks up a collect already recorded under the request's
// idempotency key on the distributor wallet.
func findPriorCollect(ctx context.Context, store Store, request CollectRequest, distributorWalletID string, sourceWalletID string) (CollectResult, bool, error) {
	legs, err := store.FindTransactionsByIdempotencyKey(ctx, request.IdempotencyKey.String())
	if err != nil {
		return CollectResult{}, false, err
	}
	var incoming *Transaction
	for index := range legs {
		leg := legs[index]
		if leg.WalletID == distributorWalletID && leg.Type == TransactionTransferIn && leg.ReferenceType == ReferenceTypeWalletCollection {
			incoming = &legs[index]
			break
		}
	}
	if incoming == nil {
		return CollectResult{}, false, nil
	}
	var outgoing *Transaction
	for index := range legs {
		leg := legs[index]
		if leg.Type == TransactionTransferOut && leg.ReferenceID == incoming.ReferenceID {
			outgoing = &legs[index]
			break
		}
	}
	if outgoing == nil {
		return CollectResult{}, false, fmt.Errorf("%w: key %s has no transfer_out leg", ErrIdempotencyConflict, request.IdempotencyKey)
	}
	if outgoing.WalletID != sourceWalletID || !incoming.Amount.Equal(request.Amount.Decimal()) {
		return CollectResult{}, false, fmt.Errorf("%w: key %s was used for a different collect", ErrIdempotencyConflict, request.IdempotencyKey)
	}
	trail, err := store.ListTrailEntries(ctx, []string{incoming.ID})
	if err != nil {
		return CollectResult{}, false, err
	}
	return CollectResult{
		SourceTransaction:      *outgoing,
		DistributorTransaction: *incoming,
		TrailEntries:           trail,
		Replayed:               true,
	}, true, nil
}

func describeCollect(description string, fallback string) string {
	if description != "" {
		return description
	}
	return fallback
}
