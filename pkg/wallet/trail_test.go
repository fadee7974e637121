package wallet

import (
	"testing"
	"time"
)

func pendingCollection(test *testing.T, id string, shopID string, outstanding string, collectedAt time.Time) FieldCollection {
	test.Helper()
	return FieldCollection{
		ID:          id,
		ShopID:      shopID,
		Amount:      mustDecimal(test, outstanding),
		Outstanding: mustDecimal(test, outstanding),
		Status:      CollectionPending,
		CollectedAt: collectedAt,
	}
}

func TestResolveTrailAppliesOldestFirst(test *testing.T) {
	test.Parallel()
	pending := []FieldCollection{
		pendingCollection(test, "fc-b", "shop-b", "500", fixedNow.Add(-time.Hour)),
		pendingCollection(test, "fc-a", "shop-a", "1000", fixedNow.Add(-2*time.Hour)),
	}
	resolution := ResolveTrail(pending, mustDecimal(test, "1200"))

	if len(resolution.Entries) != 2 {
		test.Fatalf("expected two entries, got %d", len(resolution.Entries))
	}
	if resolution.Entries[0].CollectionID != "fc-a" || !resolution.Entries[0].AmountApplied.Equal(mustDecimal(test, "1000")) || resolution.Entries[0].Status != CollectionCompleted {
		test.Fatalf("unexpected first entry %+v", resolution.Entries[0])
	}
	if resolution.Entries[1].CollectionID != "fc-b" || !resolution.Entries[1].AmountApplied.Equal(mustDecimal(test, "200")) || resolution.Entries[1].Status != CollectionPending {
		test.Fatalf("unexpected second entry %+v", resolution.Entries[1])
	}
	if !resolution.Updates[1].Outstanding.Equal(mustDecimal(test, "300")) {
		test.Fatalf("expected 300 outstanding, got %s", resolution.Updates[1].Outstanding)
	}
	if !resolution.Applied.Equal(mustDecimal(test, "1200")) || !resolution.Unreconciled.IsZero() {
		test.Fatalf("unexpected totals applied=%s unreconciled=%s", resolution.Applied, resolution.Unreconciled)
	}
	if !pending[0].Outstanding.Equal(mustDecimal(test, "500")) {
		test.Fatalf("input must not be modified")
	}
}

func TestResolveTrailLeavesRemainderUnreconciled(test *testing.T) {
	test.Parallel()
	pending := []FieldCollection{
		pendingCollection(test, "fc-a", "shop-a", "100", fixedNow.Add(-2*time.Hour)),
		pendingCollection(test, "fc-b", "shop-b", "50.25", fixedNow.Add(-time.Hour)),
	}
	resolution := ResolveTrail(pending, mustDecimal(test, "400"))

	for _, entry := range resolution.Entries {
		if entry.Status != CollectionCompleted {
			test.Fatalf("every collection must be completed, got %+v", entry)
		}
	}
	if !resolution.Applied.Equal(mustDecimal(test, "150.25")) || !resolution.Unreconciled.Equal(mustDecimal(test, "249.75")) {
		test.Fatalf("unexpected totals applied=%s unreconciled=%s", resolution.Applied, resolution.Unreconciled)
	}
}

func TestResolveTrailNeverExceedsTransferAmount(test *testing.T) {
	test.Parallel()
	var pending []FieldCollection
	for index := 0; index < 10; index++ {
		pending = append(pending, pendingCollection(test, "fc-"+string(rune('a'+index)), "shop", "33.33", fixedNow.Add(time.Duration(index)*time.Minute)))
	}
	for _, raw := range []string{"0.01", "33.33", "99.99", "150", "333.30", "1000"} {
		amount := mustDecimal(test, raw)
		resolution := ResolveTrail(pending, amount)
		total := mustDecimal(test, "0")
		for _, entry := range resolution.Entries {
			total = total.Add(entry.AmountApplied)
		}
		if total.GreaterThan(amount) || !total.Equal(resolution.Applied) {
			test.Fatalf("amount %s: applied %s", raw, total)
		}
		if !total.Add(resolution.Unreconciled).Equal(amount) {
			test.Fatalf("amount %s: applied plus unreconciled must equal the transfer", raw)
		}
	}
}

func TestResolveTrailIgnoresSettledCollections(test *testing.T) {
	test.Parallel()
	settled := pendingCollection(test, "fc-done", "shop-a", "100", fixedNow.Add(-3*time.Hour))
	settled.Status = CollectionCompleted
	drained := pendingCollection(test, "fc-zero", "shop-b", "100", fixedNow.Add(-2*time.Hour))
	drained.Outstanding = mustDecimal(test, "0")

	resolution := ResolveTrail([]FieldCollection{settled, drained}, mustDecimal(test, "10"))
	if len(resolution.Entries) != 0 || !resolution.Unreconciled.Equal(mustDecimal(test, "10")) {
		test.Fatalf("expected nothing applied, got %+v", resolution)
	}
	if empty := ResolveTrail(nil, mustDecimal(test, "10")); len(empty.Entries) != 0 {
		test.Fatalf("expected no entries without pending collections")
	}
}
