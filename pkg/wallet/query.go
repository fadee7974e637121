package wallet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// QueryService answers read-only questions about balances, team wallets and history.
type QueryService struct {
	config *serviceConfig
}

// TeamStats aggregates a distributor's team wallets at read time.
type TeamStats struct {
	TeamBalanceSum decimal.Decimal
	ActiveCount    int
	InactiveCount  int
	RoleCounts     map[OwnerType]int
}

// HistoryFilter narrows a wallet's history.
type HistoryFilter struct {
	Type         TransactionType
	Counterparty OwnerRef
	DateFrom     time.Time
	DateTo       time.Time
}

// HistoryEntry is a ledger leg with the trail entries it settled.
type HistoryEntry struct {
	Transaction Transaction
	Trail       []TrailEntry
}

// TransactionPage is one page of newest-first history.
type TransactionPage struct {
	Entries    []HistoryEntry
	NextCursor *Cursor
}

// Reconstruction is the result of replaying a wallet's history oldest-first.
type Reconstruction struct {
	Wallet           Wallet
	TransactionCount int
	ReplayedBalance  decimal.Decimal
	ChainIntact      bool
	BrokenAtID       string
}

// Consistent reports whether the history chains and reproduces the stored balance.
func (reconstruction Reconstruction) Consistent() bool {
	return reconstruction.ChainIntact && reconstruction.ReplayedBalance.Equal(reconstruction.Wallet.Balance)
}

// Balance returns the owner's wallet.
func (service *QueryService) Balance(ctx context.Context, owner OwnerRef) (Wallet, error) {
	if owner.IsZero() {
		return Wallet{}, fmt.Errorf("%w: owner is empty", ErrInvalidOwnerID)
	}
	return service.config.store.GetWallet(ctx, owner)
}

// TeamWallets lists the order booker and delivery man wallets of a team sorted
// by balance descending, ties by owner id ascending. An empty role selects both.
func (service *QueryService) TeamWallets(ctx context.Context, distributorID DistributorID, role OwnerType) ([]Wallet, error) {
	if distributorID.String() == "" {
		return nil, fmt.Errorf("%w: distributor id is empty", ErrInvalidDistributorID)
	}
	if role != "" && !role.IsTeamMember() {
		return nil, fmt.Errorf("%w: %q is not a team role", ErrInvalidOwnerType, role)
	}
	store := service.config.store
	if _, err := store.GetWallet(ctx, distributorID.Owner()); err != nil {
		return nil, err
	}
	listed, err := store.ListWallets(ctx, WalletFilter{DistributorID: distributorID.String(), OwnerType: role})
	if err != nil {
		return nil, err
	}
	members := make([]Wallet, 0, len(listed))
	for _, candidate := range listed {
		if candidate.OwnerType.IsTeamMember() {
			members = append(members, candidate)
		}
	}
	sort.SliceStable(members, func(left, right int) bool {
		if comparison := members[left].Balance.Cmp(members[right].Balance); comparison != 0 {
			return comparison > 0
		}
		if members[left].OwnerID != members[right].OwnerID {
			return members[left].OwnerID < members[right].OwnerID
		}
		return members[left].OwnerType < members[right].OwnerType
	})
	return members, nil
}

// TeamStats recomputes the team aggregate from the current wallet set.
func (service *QueryService) TeamStats(ctx context.Context, distributorID DistributorID) (TeamStats, error) {
	members, err := service.TeamWallets(ctx, distributorID, "")
	if err != nil {
		return TeamStats{}, err
	}
	stats := TeamStats{
		TeamBalanceSum: decimal.Zero,
		RoleCounts:     map[OwnerType]int{OwnerOrderBooker: 0, OwnerDeliveryMan: 0},
	}
	for _, member := range members {
		stats.TeamBalanceSum = stats.TeamBalanceSum.Add(member.Balance)
		if member.IsActive {
			stats.ActiveCount++
		} else {
			stats.InactiveCount++
		}
		stats.RoleCounts[member.OwnerType]++
	}
	return stats, nil
}

// History returns one page of the owner's legs, newest first, with the trail
// entries attached to each transfer_in leg.
func (service *QueryService) History(ctx context.Context, owner OwnerRef, filter HistoryFilter, page Page) (TransactionPage, error) {
	if owner.IsZero() {
		return TransactionPage{}, fmt.Errorf("%w: owner is empty", ErrInvalidOwnerID)
	}
	store := service.config.store
	target, err := store.GetWallet(ctx, owner)
	if err != nil {
		return TransactionPage{}, err
	}
	transactionFilter := TransactionFilter{
		WalletID: target.ID,
		Type:     filter.Type,
		DateFrom: filter.DateFrom,
		DateTo:   filter.DateTo,
	}
	if !filter.Counterparty.IsZero() {
		counterparty, err := store.GetWallet(ctx, filter.Counterparty)
		if err != nil {
			return TransactionPage{}, err
		}
		transactionFilter.CounterpartyWalletID = counterparty.ID
	}
	if err := transactionFilter.Validate(); err != nil {
		return TransactionPage{}, err
	}

	page = page.normalized()
	rows, err := store.QueryTransactions(ctx, transactionFilter, Page{Limit: page.Limit + 1, Cursor: page.Cursor})
	if err != nil {
		return TransactionPage{}, err
	}
	result := TransactionPage{}
	if len(rows) > page.Limit {
		rows = rows[:page.Limit]
		last := rows[len(rows)-1]
		result.NextCursor = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	incomingIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Type == TransactionTransferIn {
			incomingIDs = append(incomingIDs, row.ID)
		}
	}
	trailByTransaction := map[string][]TrailEntry{}
	if len(incomingIDs) > 0 {
		entries, err := store.ListTrailEntries(ctx, incomingIDs)
		if err != nil {
			return TransactionPage{}, err
		}
		for _, entry := range entries {
			trailByTransaction[entry.TransactionID] = append(trailByTransaction[entry.TransactionID], entry)
		}
	}

	result.Entries = make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		result.Entries = append(result.Entries, HistoryEntry{Transaction: row, Trail: trailByTransaction[row.ID]})
	}
	return result, nil
}

// FieldCollections lists the owner's shop collections newest first. An empty
// status selects every status.
func (service *QueryService) FieldCollections(ctx context.Context, owner OwnerRef, status CollectionStatus) ([]FieldCollection, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner is empty", ErrInvalidOwnerID)
	}
	store := service.config.store
	target, err := store.GetWallet(ctx, owner)
	if err != nil {
		return nil, err
	}
	collections, err := store.ListFieldCollections(ctx, target.ID, status)
	if err != nil {
		return nil, err
	}
	for left, right := 0, len(collections)-1; left < right; left, right = left+1, right-1 {
		collections[left], collections[right] = collections[right], collections[left]
	}
	return collections, nil
}

// Reconstruct replays the owner's full history oldest-first.
func (service *QueryService) Reconstruct(ctx context.Context, owner OwnerRef) (Reconstruction, error) {
	if owner.IsZero() {
		return Reconstruction{}, fmt.Errorf("%w: owner is empty", ErrInvalidOwnerID)
	}
	store := service.config.store
	target, err := store.GetWallet(ctx, owner)
	if err != nil {
		return Reconstruction{}, err
	}

	var history []Transaction
	page := Page{Limit: MaxPageLimit}
	for {
		rows, err := store.QueryTransactions(ctx, TransactionFilter{WalletID: target.ID}, page)
		if err != nil {
			return Reconstruction{}, err
		}
		history = append(history, rows...)
		if len(rows) < page.Limit {
			break
		}
		last := rows[len(rows)-1]
		page.Cursor = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	reconstruction := Reconstruction{
		Wallet:           target,
		TransactionCount: len(history),
		ReplayedBalance:  decimal.Zero,
		ChainIntact:      true,
	}
	for index := len(history) - 1; index >= 0; index-- {
		transaction := history[index]
		expectedAfter := transaction.BalanceBefore.Add(transaction.Type.Signed(transaction.Amount))
		if reconstruction.ChainIntact && (!transaction.BalanceBefore.Equal(reconstruction.ReplayedBalance) || !expectedAfter.Equal(transaction.BalanceAfter)) {
			reconstruction.ChainIntact = false
			reconstruction.BrokenAtID = transaction.ID
		}
		reconstruction.ReplayedBalance = transaction.BalanceAfter
	}
	return reconstruction, nil
}
