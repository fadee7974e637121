package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProvisioningService creates wallets, toggles dormancy and records the shop
// collections that feed later collects.
type ProvisioningService struct {
	config *serviceConfig
}

// ProvisionWallet creates the owner's wallet on a team, or returns the existing one.
func (service *ProvisioningService) ProvisionWallet(ctx context.Context, owner OwnerRef, distributorID DistributorID) (Wallet, error) {
	provisioned, created, err := service.provisionWallet(ctx, owner, distributorID)
	status := ""
	if err == nil && !created {
		status = OperationStatusReplayed
	}
	service.config.logOperation(ctx, OperationLog{
		Operation:     OperationProvision,
		DistributorID: distributorID.String(),
		Owner:         owner,
		ReferenceID:   provisioned.ID,
		Status:        status,
		Error:         err,
	})
	return provisioned, err
}

func (service *ProvisioningService) provisionWallet(ctx context.Context, owner OwnerRef, distributorID DistributorID) (Wallet, bool, error) {
	if owner.IsZero() {
		return Wallet{}, false, fmt.Errorf("%w: owner is empty", ErrInvalidOwnerID)
	}
	if distributorID.String() == "" {
		return Wallet{}, false, fmt.Errorf("%w: distributor id is empty", ErrInvalidDistributorID)
	}
	if owner.Type() == OwnerDistributor && owner.ID() != distributorID.String() {
		return Wallet{}, false, fmt.Errorf("%w: distributor wallet %s cannot join team %s", ErrInvalidDistributorID, owner.ID(), distributorID)
	}

	store := service.config.store
	existing, err := store.GetWallet(ctx, owner)
	switch {
	case err == nil:
		return sameTeam(existing, distributorID)
	case !errors.Is(err, ErrWalletNotFound):
		return Wallet{}, false, err
	}

	now := service.config.now()
	created, err := store.CreateWallet(ctx, Wallet{
		ID:            service.config.ids.RandomID(),
		OwnerType:     owner.Type(),
		OwnerID:       owner.ID(),
		DistributorID: distributorID.String(),
		Balance:       decimal.Zero,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if errors.Is(err, ErrWalletExists) {
		existing, getErr := store.GetWallet(ctx, owner)
		if getErr != nil {
			return Wallet{}, false, getErr
		}
		return sameTeam(existing, distributorID)
	}
	if err != nil {
		return Wallet{}, false, err
	}
	return created, true, nil
}

func sameTeam(existing Wallet, distributorID DistributorID) (Wallet, bool, error) {
	if existing.DistributorID != distributorID.String() {
		return Wallet{}, false, fmt.Errorf("%w: %s already belongs to %s", ErrForeignWallet, existing.Owner(), existing.DistributorID)
	}
	return existing, false, nil
}

// SetWalletActive marks a wallet active or dormant. The balance is untouched.
func (service *ProvisioningService) SetWalletActive(ctx context.Context, owner OwnerRef, active bool) (Wallet, error) {
	updated, err := service.setWalletActive(ctx, owner, active)
	service.config.logOperation(ctx, OperationLog{
		Operation:     OperationSetActive,
		DistributorID: updated.DistributorID,
		Owner:         owner,
		ReferenceID:   updated.ID,
		Error:         err,
	})
	return updated, err
}

func (service *ProvisioningService) setWalletActive(ctx context.Context, owner OwnerRef, active bool) (Wallet, error) {
	if owner.IsZero() {
		return Wallet{}, fmt.Errorf("%w: owner is empty", ErrInvalidOwnerID)
	}
	store := service.config.store
	target, err := store.GetWallet(ctx, owner)
	if err != nil {
		return Wallet{}, err
	}
	unlock, err := service.config.locker.Lock(ctx, target.ID)
	if err != nil {
		return Wallet{}, fmt.Errorf("lock wallets: %w", err)
	}
	defer unlock()

	var updated Wallet
	err = store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		locked, err := txStore.LockWallets(ctx, []string{target.ID})
		if err != nil {
			return err
		}
		toggled, err := txStore.SetWalletActive(ctx, target.ID, active, service.config.legTime(locked...))
		if err != nil {
			return err
		}
		updated = toggled
		return nil
	})
	if err != nil {
		return Wallet{}, err
	}
	return updated, nil
}

// FieldCollectionRequest reports cash a team member gathered from a shop.
type FieldCollectionRequest struct {
	Owner        OwnerRef
	CollectionID string
	ShopID       string
	Amount       PositiveAmount
	CollectedAt  time.Time
	Description  string
	InitiatedBy  string
	Metadata     MetadataJSON
}

// FieldCollectionResult is the credit leg and the stored pending collection.
type FieldCollectionResult struct {
	Transaction Transaction
	Collection  FieldCollection
	Replayed    bool
}

func (request FieldCollectionRequest) validate() error {
	if request.Amount.IsZero() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if request.Owner.IsZero() {
		return fmt.Errorf("%w: owner is empty", ErrInvalidOwnerID)
	}
	if !request.Owner.Type().IsTeamMember() {
		return fmt.Errorf("%w: %s wallets do not take field collections", ErrInvalidOwnerType, request.Owner.Type())
	}
	if strings.TrimSpace(request.CollectionID) == "" {
		return fmt.Errorf("%w: collection id is empty", ErrInvalidCollectionID)
	}
	if strings.TrimSpace(request.ShopID) == "" {
		return fmt.Errorf("%w: shop id is empty", ErrInvalidCollectionID)
	}
	return nil
}

// RecordFieldCollection credits the owner's wallet with a shop collection and
// stores it as pending so a later collect can settle it.
func (service *ProvisioningService) RecordFieldCollection(ctx context.Context, request FieldCollectionRequest) (FieldCollectionResult, error) {
	result, err := service.recordFieldCollection(ctx, request)
	status := ""
	if err == nil && result.Replayed {
		status = OperationStatusReplayed
	}
	key, _ := NewIdempotencyKey(fieldCollectionKeyPrefix + strings.TrimSpace(request.CollectionID))
	service.config.logOperation(ctx, OperationLog{
		Operation:      OperationRecordCollection,
		DistributorID:  result.walletDistributor,
		Owner:          request.Owner,
		Amount:         request.Amount,
		IdempotencyKey: key,
		ReferenceID:    strings.TrimSpace(request.CollectionID),
		Status:         status,
		Error:          err,
	})
	return result.FieldCollectionResult, err
}

type recordedCollection struct {
	FieldCollectionResult
	walletDistributor string
}

func (service *ProvisioningService) recordFieldCollection(ctx context.Context, request FieldCollectionRequest) (recordedCollection, error) {
	if err := request.validate(); err != nil {
		return recordedCollection{}, err
	}
	request.CollectionID = strings.TrimSpace(request.CollectionID)
	request.ShopID = strings.TrimSpace(request.ShopID)

	store := service.config.store
	owner, err := store.GetWallet(ctx, request.Owner)
	if err != nil {
		return recordedCollection{}, err
	}
	recorded := recordedCollection{walletDistributor: owner.DistributorID}

	prior, found, err := findPriorFieldCollection(ctx, store, request, owner.ID)
	if err != nil {
		return recorded, err
	}
	if found {
		recorded.FieldCollectionResult = prior
		return recorded, nil
	}

	unlock, err := service.config.locker.Lock(ctx, owner.ID)
	if err != nil {
		return recorded, fmt.Errorf("lock wallets: %w", err)
	}
	defer unlock()

	err = store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		prior, found, err := findPriorFieldCollection(ctx, txStore, request, owner.ID)
		if err != nil {
			return err
		}
		if found {
			recorded.FieldCollectionResult = prior
			return nil
		}
		written, err := service.credit(ctx, txStore, request, owner.ID)
		if err != nil {
			return err
		}
		recorded.FieldCollectionResult = written
		return nil
	})
	if errors.Is(err, ErrDuplicateIdempotencyKey) || errors.Is(err, ErrDuplicateCollection) {
		prior, found, findErr := findPriorFieldCollection(ctx, store, request, owner.ID)
		if findErr != nil {
			return recorded, findErr
		}
		if found {
			recorded.FieldCollectionResult = prior
			return recorded, nil
		}
	}
	if err != nil {
		return recorded, err
	}
	return recorded, nil
}

func (service *ProvisioningService) credit(ctx context.Context, txStore Store, request FieldCollectionRequest, walletID string) (FieldCollectionResult, error) {
	locked, err := txStore.LockWallets(ctx, []string{walletID})
	if err != nil {
		return FieldCollectionResult{}, err
	}
	if len(locked) != 1 {
		return FieldCollectionResult{}, fmt.Errorf("%w: %s", ErrWalletNotFound, walletID)
	}
	current := locked[0]
	amount := request.Amount.Decimal()
	now := service.config.legTime(current)
	collectedAt := request.CollectedAt.UTC().Truncate(time.Microsecond)
	if request.CollectedAt.IsZero() {
		collectedAt = now
	}

	credited, err := txStore.AdjustBalance(ctx, current, amount, now)
	if err != nil {
		return FieldCollectionResult{}, err
	}
	description := request.Description
	if description == "" {
		description = "Field collection from shop " + request.ShopID
	}
	appended, err := txStore.AppendTransactions(ctx, []Transaction{{
		ID:             service.config.ids.TimeOrderedID(now),
		WalletID:       current.ID,
		Type:           TransactionCredit,
		Amount:         amount,
		BalanceBefore:  current.Balance,
		BalanceAfter:   credited.Balance,
		Description:    description,
		ReferenceType:  ReferenceTypeFieldCollection,
		ReferenceID:    request.CollectionID,
		IdempotencyKey: fieldCollectionKeyPrefix + request.CollectionID,
		InitiatedBy:    request.InitiatedBy,
		Metadata:       request.Metadata,
		CreatedAt:      now,
	}})
	if err != nil {
		return FieldCollectionResult{}, err
	}
	if len(appended) != 1 {
		return FieldCollectionResult{}, fmt.Errorf("append credit leg: expected 1 row, got %d", len(appended))
	}

	collection := FieldCollection{
		ID:                  request.CollectionID,
		WalletID:            current.ID,
		OwnerType:           current.OwnerType,
		OwnerID:             current.OwnerID,
		ShopID:              request.ShopID,
		Amount:              amount,
		Outstanding:         amount,
		Status:              CollectionPending,
		Description:         request.Description,
		CreditTransactionID: appended[0].ID,
		CollectedAt:         collectedAt,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := txStore.InsertFieldCollection(ctx, collection); err != nil {
		return FieldCollectionResult{}, err
	}
	return FieldCollectionResult{Transaction: appended[0], Collection: collection}, nil
}

func findPriorFieldCollection(ctx context.Context, store Store, request FieldCollectionRequest, walletID string) (FieldCollectionResult, bool, error) {
	existing, err := store.GetFieldCollection(ctx, request.CollectionID)
	if errors.Is(err, ErrCollectionNotFound) {
		return FieldCollectionResult{}, false, nil
	}
	if err != nil {
		return FieldCollectionResult{}, false, err
	}
	if existing.WalletID != walletID || existing.ShopID != request.ShopID || !existing.Amount.Equal(request.Amount.Decimal()) {
		return FieldCollectionResult{}, false, fmt.Errorf("%w: collection %s was recorded with a different payload", ErrIdempotencyConflict, request.CollectionID)
	}
	legs, err := store.FindTransactionsByIdempotencyKey(ctx, fieldCollectionKeyPrefix+request.CollectionID)
	if err != nil {
		return FieldCollectionResult{}, false, err
	}
	for _, leg := range legs {
		if leg.ID == existing.CreditTransactionID {
			return FieldCollectionResult{Transaction: leg, Collection: existing, Replayed: true}, true, nil
		}
	}
	return FieldCollectionResult{}, false, fmt.Errorf("%w: collection %s has no credit leg", ErrIdempotencyConflict, request.CollectionID)
}
