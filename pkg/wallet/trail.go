package wallet

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TrailResolution is the outcome of applying a transfer across field collections.
// Entries carry neither ID nor TransactionID; the caller assigns both.
type TrailResolution struct {
	Entries      []TrailEntry
	Updates      []CollectionUpdate
	Applied      decimal.Decimal
	Unreconciled decimal.Decimal
}

// ResolveTrail applies amount to the pending collections oldest collected_at
// first. Each collection receives min(remaining, outstanding) and is completed
// only once nothing is outstanding. Collections that are not pending are ignored
// and the input slice is not modified.
func ResolveTrail(pending []FieldCollection, amount decimal.Decimal) TrailResolution {
	candidates := make([]FieldCollection, 0, len(pending))
	for _, collection := range pending {
		if collection.Status != CollectionPending || !collection.Outstanding.IsPositive() {
			continue
		}
		candidates = append(candidates, collection)
	}
	sort.SliceStable(candidates, func(left, right int) bool {
		return oldestFirst(candidates[left], candidates[right])
	})

	resolution := TrailResolution{Applied: decimal.Zero}
	remaining := amount
	for _, collection := range candidates {
		if !remaining.IsPositive() {
			break
		}
		applied := decimal.Min(remaining, collection.Outstanding)
		outstanding := collection.Outstanding.Sub(applied)
		status := CollectionPending
		if outstanding.IsZero() {
			status = CollectionCompleted
		}
		resolution.Entries = append(resolution.Entries, TrailEntry{
			CollectionID:  collection.ID,
			ShopID:        collection.ShopID,
			AmountApplied: applied,
			Status:        status,
		})
		resolution.Updates = append(resolution.Updates, CollectionUpdate{
			CollectionID: collection.ID,
			Outstanding:  outstanding,
			Status:       status,
		})
		resolution.Applied = resolution.Applied.Add(applied)
		remaining = remaining.Sub(applied)
	}
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	resolution.Unreconciled = remaining
	return resolution
}

func oldestFirst(left FieldCollection, right FieldCollection) bool {
	if !left.CollectedAt.Equal(right.CollectedAt) {
		return left.CollectedAt.Before(right.CollectedAt)
	}
	if !left.CreatedAt.Equal(right.CreatedAt) {
		return left.CreatedAt.Before(right.CreatedAt)
	}
	return left.ID < right.ID
}
