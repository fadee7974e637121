package wallet

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OwnerType enumerates the actors that hold a wallet.
type OwnerType string

const (
	OwnerDistributor OwnerType = "distributor"
	OwnerOrderBooker OwnerType = "order_booker"
	OwnerDeliveryMan OwnerType = "delivery_man"
)

// ParseOwnerType validates a raw owner type.
func ParseOwnerType(raw string) (OwnerType, error) {
	ownerType := OwnerType(strings.ToLower(strings.TrimSpace(raw)))
	switch ownerType {
	case OwnerDistributor, OwnerOrderBooker, OwnerDeliveryMan:
		return ownerType, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOwnerType, raw)
	}
}

// String returns the stored representation.
func (ownerType OwnerType) String() string {
	return string(ownerType)
}

// IsTeamMember reports whether the owner type is an order booker or delivery man.
func (ownerType OwnerType) IsTeamMember() bool {
	return ownerType == OwnerOrderBooker || ownerType == OwnerDeliveryMan
}

// OwnerRef identifies a wallet by its owner.
type OwnerRef struct {
	ownerType OwnerType
	ownerID   string
}

// NewOwnerRef validates and normalizes an owner reference.
func NewOwnerRef(rawType string, rawID string) (OwnerRef, error) {
	ownerType, err := ParseOwnerType(rawType)
	if err != nil {
		return OwnerRef{}, err
	}
	ownerID := strings.TrimSpace(rawID)
	if ownerID == "" {
		return OwnerRef{}, fmt.Errorf("%w: empty value", ErrInvalidOwnerID)
	}
	return OwnerRef{ownerType: ownerType, ownerID: ownerID}, nil
}

// Type returns the owner type.
func (owner OwnerRef) Type() OwnerType {
	return owner.ownerType
}

// ID returns the owner id.
func (owner OwnerRef) ID() string {
	return owner.ownerID
}

// IsZero reports whether the reference was never set.
func (owner OwnerRef) IsZero() bool {
	return owner.ownerType == "" && owner.ownerID == ""
}

// String renders the reference as type/id.
func (owner OwnerRef) String() string {
	return owner.ownerType.String() + "/" + owner.ownerID
}

// DistributorID identifies the distributor that owns a team.
type DistributorID struct {
	value string
}

// NewDistributorID validates and normalizes a distributor id.
func NewDistributorID(raw string) (DistributorID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DistributorID{}, fmt.Errorf("%w: empty value", ErrInvalidDistributorID)
	}
	return DistributorID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id DistributorID) String() string {
	return id.value
}

// Owner returns the distributor's own wallet reference.
func (id DistributorID) Owner() OwnerRef {
	return OwnerRef{ownerType: OwnerDistributor, ownerID: id.value}
}

// IdempotencyKey scopes duplicate detection.
type IdempotencyKey struct {
	value string
}

// NewIdempotencyKey validates and normalizes an idempotency key.
func NewIdempotencyKey(raw string) (IdempotencyKey, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return IdempotencyKey{}, fmt.Errorf("%w: empty value", ErrInvalidIdempotencyKey)
	}
	return IdempotencyKey{value: trimmed}, nil
}

// String returns the normalized key.
func (key IdempotencyKey) String() string {
	return key.value
}

// MetadataJSON stores an opaque key/value object.
type MetadataJSON struct {
	value string
}

// NewMetadataJSON validates a JSON object (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" || normalized == "null" {
		normalized = "{}"
	}
	var object map[string]any
	if err := json.Unmarshal([]byte(normalized), &object); err != nil {
		return MetadataJSON{}, fmt.Errorf("%w: must be a json object", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// String returns the normalized JSON blob.
func (metadata MetadataJSON) String() string {
	if metadata.value == "" {
		return "{}"
	}
	return metadata.value
}

// PositiveAmount is a strictly positive money amount with at most two fractional digits.
type PositiveAmount struct {
	value decimal.Decimal
}

// NewPositiveAmount validates a decimal amount.
func NewPositiveAmount(value decimal.Decimal) (PositiveAmount, error) {
	if !value.IsPositive() {
		return PositiveAmount{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if !value.Equal(value.Round(amountScale)) {
		return PositiveAmount{}, fmt.Errorf("%w: at most %d fractional digits", ErrInvalidAmount, amountScale)
	}
	return PositiveAmount{value: value}, nil
}

// ParsePositiveAmount parses a user supplied amount; a decimal comma is accepted.
func ParsePositiveAmount(raw string) (PositiveAmount, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if normalized == "" {
		return PositiveAmount{}, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	value, err := decimal.NewFromString(normalized)
	if err != nil {
		return PositiveAmount{}, fmt.Errorf("%w: not a number", ErrInvalidAmount)
	}
	return NewPositiveAmount(value)
}

// Decimal returns the underlying value.
func (amount PositiveAmount) Decimal() decimal.Decimal {
	return amount.value
}

// String renders the amount with two fractional digits.
func (amount PositiveAmount) String() string {
	return amount.value.StringFixed(amountScale)
}

// IsZero reports whether the amount was never set.
func (amount PositiveAmount) IsZero() bool {
	return amount.value.IsZero()
}

// TransactionType enumerates ledger leg kinds.
type TransactionType string

const (
	TransactionTransferIn  TransactionType = "transfer_in"
	TransactionTransferOut TransactionType = "transfer_out"
	TransactionCredit      TransactionType = "credit"
	TransactionDebit       TransactionType = "debit"
)

// ParseTransactionType validates a raw transaction type.
func ParseTransactionType(raw string) (TransactionType, error) {
	transactionType := TransactionType(strings.ToLower(strings.TrimSpace(raw)))
	switch transactionType {
	case TransactionTransferIn, TransactionTransferOut, TransactionCredit, TransactionDebit:
		return transactionType, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, raw)
	}
}

// String returns the stored representation.
func (transactionType TransactionType) String() string {
	return string(transactionType)
}

// Signed returns amount with the sign the leg applies to a balance.
func (transactionType TransactionType) Signed(amount decimal.Decimal) decimal.Decimal {
	if transactionType == TransactionTransferOut || transactionType == TransactionDebit {
		return amount.Neg()
	}
	return amount
}

// CollectionStatus tracks how much of a field collection has been reconciled.
type CollectionStatus string

const (
	CollectionPending   CollectionStatus = "pending"
	CollectionCompleted CollectionStatus = "completed"
)

// ParseCollectionStatus validates a raw collection status.
func ParseCollectionStatus(raw string) (CollectionStatus, error) {
	status := CollectionStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case CollectionPending, CollectionCompleted:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCollectionStatus, raw)
	}
}

// String returns the stored representation.
func (status CollectionStatus) String() string {
	return string(status)
}

// Wallet is the per-actor cash balance record.
type Wallet struct {
	ID            string
	OwnerType     OwnerType
	OwnerID       string
	DistributorID string
	Balance       decimal.Decimal
	IsActive      bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Owner returns the owner reference of the wallet.
func (wallet Wallet) Owner() OwnerRef {
	return OwnerRef{ownerType: wallet.OwnerType, ownerID: wallet.OwnerID}
}

// ApplyDelta returns the wallet with delta applied and its version advanced.
// The receiver is left untouched.
func (wallet Wallet) ApplyDelta(delta decimal.Decimal, at time.Time) (Wallet, error) {
	next := wallet.Balance.Add(delta)
	if next.IsNegative() {
		return Wallet{}, fmt.Errorf("%w: balance %s, delta %s", ErrInsufficientBalance, wallet.Balance.StringFixed(amountScale), delta.StringFixed(amountScale))
	}
	wallet.Balance = next
	wallet.Version++
	wallet.UpdatedAt = at
	return wallet, nil
}

// Transaction is one immutable ledger leg.
type Transaction struct {
	ID                   string
	WalletID             string
	Type                 TransactionType
	Amount               decimal.Decimal
	BalanceBefore        decimal.Decimal
	BalanceAfter         decimal.Decimal
	CounterpartyWalletID string
	Description          string
	ReferenceType        string
	ReferenceID          string
	IdempotencyKey       string
	InitiatedBy          string
	Metadata             MetadataJSON
	CreatedAt            time.Time
}

// Validate checks the structural invariants of a leg before it is appended.
func (transaction Transaction) Validate() error {
	if strings.TrimSpace(transaction.ID) == "" {
		return fmt.Errorf("%w: transaction id is empty", ErrInvalidServiceConfig)
	}
	if strings.TrimSpace(transaction.WalletID) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidWalletID)
	}
	if _, err := ParseTransactionType(transaction.Type.String()); err != nil {
		return err
	}
	if !transaction.Amount.IsPositive() {
		return fmt.Errorf("%w: leg amount must be positive", ErrInvalidAmount)
	}
	expected := transaction.BalanceBefore.Add(transaction.Type.Signed(transaction.Amount))
	if !expected.Equal(transaction.BalanceAfter) {
		return fmt.Errorf("%w: balance_after %s does not follow from %s", ErrInvalidAmount, transaction.BalanceAfter, expected)
	}
	if transaction.BalanceAfter.IsNegative() {
		return fmt.Errorf("%w: balance_after is negative", ErrInsufficientBalance)
	}
	if strings.TrimSpace(transaction.IdempotencyKey) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidIdempotencyKey)
	}
	return nil
}

// FieldCollection is cash an order booker or delivery man gathered from a shop.
type FieldCollection struct {
	ID                  string
	WalletID            string
	OwnerType           OwnerType
	OwnerID             string
	ShopID              string
	Amount              decimal.Decimal
	Outstanding         decimal.Decimal
	Status              CollectionStatus
	Description         string
	CreditTransactionID string
	CollectedAt         time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TrailEntry links part of a transfer_in leg to the field collection it settles.
type TrailEntry struct {
	ID            string
	TransactionID string
	CollectionID  string
	ShopID        string
	AmountApplied decimal.Decimal
	Status        CollectionStatus
	CreatedAt     time.Time
}

// CollectionUpdate is the new reconciliation state of a field collection.
type CollectionUpdate struct {
	CollectionID string
	Outstanding  decimal.Decimal
	Status       CollectionStatus
}

// WalletFilter narrows wallet listings. Zero values mean "any".
type WalletFilter struct {
	DistributorID string
	OwnerType     OwnerType
	Active        *bool
}

// TransactionFilter narrows history queries. Zero values mean "any".
// DateFrom is inclusive and DateTo exclusive.
type TransactionFilter struct {
	WalletID             string
	Type                 TransactionType
	CounterpartyWalletID string
	DateFrom             time.Time
	DateTo               time.Time
}

// Validate checks filter consistency.
func (filter TransactionFilter) Validate() error {
	if filter.Type != "" {
		if _, err := ParseTransactionType(filter.Type.String()); err != nil {
			return err
		}
	}
	if !filter.DateFrom.IsZero() && !filter.DateTo.IsZero() && !filter.DateFrom.Before(filter.DateTo) {
		return fmt.Errorf("%w: date_from must be before date_to", ErrInvalidDateRange)
	}
	return nil
}

// Matches reports whether a transaction satisfies the filter.
func (filter TransactionFilter) Matches(transaction Transaction) bool {
	if filter.WalletID != "" && transaction.WalletID != filter.WalletID {
		return false
	}
	if filter.Type != "" && transaction.Type != filter.Type {
		return false
	}
	if filter.CounterpartyWalletID != "" && transaction.CounterpartyWalletID != filter.CounterpartyWalletID {
		return false
	}
	if !filter.DateFrom.IsZero() && transaction.CreatedAt.Before(filter.DateFrom) {
		return false
	}
	if !filter.DateTo.IsZero() && !transaction.CreatedAt.Before(filter.DateTo) {
		return false
	}
	return true
}
