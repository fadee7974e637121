package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCollectMovesFundsBetweenWallets(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	distributor, booker := seedTeam(test, store, "700", "1500")
	service := mustNewService(test, store)

	result, err := service.Collect(context.Background(), collectRequest(test, "100", collectKeyValue))
	if err != nil {
		test.Fatalf("collect failed: %v", err)
	}
	if result.Replayed {
		test.Fatalf("expected a fresh collect")
	}
	source := result.SourceTransaction
	incoming := result.DistributorTransaction
	if source.Type != TransactionTransferOut || incoming.Type != TransactionTransferIn {
		test.Fatalf("unexpected leg types: %s %s", source.Type, incoming.Type)
	}
	if !source.BalanceBefore.Equal(mustDecimal(test, "1500")) || !source.BalanceAfter.Equal(mustDecimal(test, "1400")) {
		test.Fatalf("unexpected source balances: %s -> %s", source.BalanceBefore, source.BalanceAfter)
	}
	if !incoming.BalanceBefore.Equal(mustDecimal(test, "700")) || !incoming.BalanceAfter.Equal(mustDecimal(test, "800")) {
		test.Fatalf("unexpected distributor balances: %s -> %s", incoming.BalanceBefore, incoming.BalanceAfter)
	}
	if source.ReferenceID == "" || source.ReferenceID != incoming.ReferenceID {
		test.Fatalf("legs must share a reference id: %q %q", source.ReferenceID, incoming.ReferenceID)
	}
	if source.CounterpartyWalletID != distributor.ID || incoming.CounterpartyWalletID != booker.ID {
		test.Fatalf("legs must name each other's wallet: %+v %+v", source, incoming)
	}
	if !source.Amount.Equal(incoming.Amount) {
		test.Fatalf("legs must carry the same amount")
	}
	if len(result.TrailEntries) != 0 {
		test.Fatalf("expected no trail entries, got %d", len(result.TrailEntries))
	}

	state := store.snapshot()
	if !state.wallets[booker.ID].Balance.Equal(mustDecimal(test, "1400")) {
		test.Fatalf("unexpected source balance %s", state.wallets[booker.ID].Balance)
	}
	if !state.wallets[distributor.ID].Balance.Equal(mustDecimal(test, "800")) {
		test.Fatalf("unexpected distributor balance %s", state.wallets[distributor.ID].Balance)
	}
	if len(state.transactions) != 2 {
		test.Fatalf("expected two legs, got %d", len(state.transactions))
	}
}

func TestCollectRejectsInsufficientBalanceWithoutChanges(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	seedTeam(test, store, "700", "250")
	before := store.snapshot()
	service := mustNewService(test, store)

	_, err := service.Collect(context.Background(), collectRequest(test, "300", collectKeyValue))
	if !errors.Is(err, ErrInsufficientBalance) {
		test.Fatalf("expected insufficient balance, got %v", err)
	}
	after := store.snapshot()
	for walletID, wallet := range before.wallets {
		if !after.wallets[walletID].Balance.Equal(wallet.Balance) || after.wallets[walletID].Version != wallet.Version {
			test.Fatalf("wallet %s changed: %+v -> %+v", walletID, wallet, after.wallets[walletID])
		}
	}
	if len(after.transactions) != 0 {
		test.Fatalf("expected no legs, got %d", len(after.transactions))
	}
}

func TestCollectDrainsToZero(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	_, booker := seedTeam(test, store, "0", "250.50")
	service := mustNewService(test, store)

	if _, err := service.Collect(context.Background(), collectRequest(test, "250.50", collectKeyValue)); err != nil {
		test.Fatalf("collect failed: %v", err)
	}
	if balance := store.snapshot().wallets[booker.ID].Balance; !balance.IsZero() {
		test.Fatalf("expected drained wallet, got %s", balance)
	}
}

func TestCollectReplaysIdempotentRequest(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	distributor, booker := seedTeam(test, store, "700", "1500")
	service := mustNewService(test, store)
	request := collectRequest(test, "100", collectKeyValue)

	first, err := service.Collect(context.Background(), request)
	if err != nil {
		test.Fatalf("first collect failed: %v", err)
	}
	for attempt := 0; attempt < 3; attempt++ {
		replayed, err := service.Collect(context.Background(), request)
		if err != nil {
			test.Fatalf("replay %d failed: %v", attempt, err)
		}
		if !replayed.Replayed {
			test.Fatalf("replay %d not flagged", attempt)
		}
		if replayed.SourceTransaction.ID != first.SourceTransaction.ID || replayed.DistributorTransaction.ID != first.DistributorTransaction.ID {
			test.Fatalf("replay %d returned different legs", attempt)
		}
	}
	state := store.snapshot()
	if len(state.transactions) != 2 {
		test.Fatalf("expected exactly two legs, got %d", len(state.transactions))
	}
	if !state.wallets[booker.ID].Balance.Equal(mustDecimal(test, "1400")) || !state.wallets[distributor.ID].Balance.Equal(mustDecimal(test, "800")) {
		test.Fatalf("balances changed more than once")
	}
}

func TestCollectReplaysWhenDistributorTurnsInactive(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	distributor, _ := seedTeam(test, store, "700", "1500")
	service := mustNewService(test, store)
	request := collectRequest(test, "100", collectKeyValue)
	if _, err := service.Collect(context.Background(), request); err != nil {
		test.Fatalf("collect failed: %v", err)
	}
	if _, err := store.SetWalletActive(context.Background(), distributor.ID, false, fixedNow); err != nil {
		test.Fatalf("deactivate failed: %v", err)
	}
	replayed, err := service.Collect(context.Background(), request)
	if err != nil || !replayed.Replayed {
		test.Fatalf("expected replay, got %+v %v", replayed, err)
	}
}

func TestCollectRejectsReusedKeyWithDifferentPayload(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	seedTeam(test, store, "700", "1500")
	store.seedWallet(mustOwner(test, OwnerDeliveryMan, deliveryManIDValue), distributorIDValue, "100", true)
	service := mustNewService(test, store)
	if _, err := service.Collect(context.Background(), collectRequest(test, "100", collectKeyValue)); err != nil {
		test.Fatalf("collect failed: %v", err)
	}

	testCases := []struct {
		name    string
		request func(test *testing.T) CollectRequest
	}{
		{
			name: "different amount",
			request: func(test *testing.T) CollectRequest {
				return collectRequest(test, "50", collectKeyValue)
			},
		},
		{
			name: "different source",
			request: func(test *testing.T) CollectRequest {
				request := collectRequest(test, "100", collectKeyValue)
				request.Source = mustOwner(test, OwnerDeliveryMan, deliveryManIDValue)
				return request
			},
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			_, err := service.Collect(context.Background(), testCase.request(test))
			if !errors.Is(err, ErrIdempotencyConflict) {
				test.Fatalf("expected idempotency conflict, got %v", err)
			}
		})
	}
	if count := len(store.snapshot().transactions); count != 2 {
		test.Fatalf("expected two legs, got %d", count)
	}
}

func TestCollectValidationFailures(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		mutate  func(test *testing.T, store *stubStore, request *CollectRequest)
		wantErr error
	}{
		{
			name: "zero amount",
			mutate: func(test *testing.T, store *stubStore, request *CollectRequest) {
				request.Amount = PositiveAmount{}
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "missing key",
			mutate: func(test *testing.T, store *stubStore, request *CollectRequest) {
				request.IdempotencyKey = IdempotencyKey{}
			},
			wantErr: ErrInvalidIdempotencyKey,
		},
		{
			name: "field collection key prefix",
			mutate: func(test *testing.T, store *stubStore, request *CollectRequest) {
				request.IdempotencyKey = mustIdempotencyKey(test, fieldCollectionKeyPrefix+"fc-1")
			},
			wantErr: ErrInvalidIdempotencyKey,
		},
		{
			name: "distributor as source",
			mutate: func(test *testing.T, store *stubStore, request *CollectRequest) {
				request.Source = mustOwner(test, OwnerDistributor, distributorIDValue)
			},
			wantErr: ErrInvalidOwnerType,
		},
		{
			name: "unknown source",
			mutate: func(test *testing.T, store *stubStore, request *CollectRequest) {
				request.Source = mustOwner(test, OwnerDeliveryMan, "ghost")
			},
			wantErr: ErrWalletNotFound,
		},
		{
			name: "unknown distributor",
			mutate: func(test *testing.T, store *stubStore, request *CollectRequest) {
				request.DistributorID = mustDistributorID(test, "dist-ghost")
			},
			wantErr: ErrWalletNotFound,
		},
		{
			name: "foreign source",
			mutate: func(test *testing.T, store *stubStore, request *CollectRequest) {
				store.seedWallet(mustOwner(test, OwnerDeliveryMan, "dm-other"), "dist-2", "500", true)
				request.Source = mustOwner(test, OwnerDeliveryMan, "dm-other")
			},
			wantErr: ErrForeignWallet,
		},
		{
			name: "inactive distributor",
			mutate: func(test *testing.T, store *stubStore, request *CollectRequest) {
				store.seedWallet(mustOwner(test, OwnerDistributor, distributorIDValue), distributorIDValue, "700", false)
			},
			wantErr: ErrWalletInactive,
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test)
			seedTeam(test, store, "700", "1500")
			request := collectRequest(test, "100", collectKeyValue)
			testCase.mutate(test, store, &request)
			service := mustNewService(test, store)

			_, err := service.Collect(context.Background(), request)
			if !errors.Is(err, testCase.wantErr) {
				test.Fatalf("expected %v, got %v", testCase.wantErr, err)
			}
			if count := len(store.snapshot().transactions); count != 0 {
				test.Fatalf("expected no legs, got %d", count)
			}
		})
	}
}

func TestCollectFromInactiveSourceIsAllowed(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.seedWallet(mustOwner(test, OwnerDistributor, distributorIDValue), distributorIDValue, "0", true)
	store.seedWallet(mustOwner(test, OwnerOrderBooker, orderBookerIDValue), distributorIDValue, "40", false)
	service := mustNewService(test, store)

	if _, err := service.Collect(context.Background(), collectRequest(test, "40", collectKeyValue)); err != nil {
		test.Fatalf("collect from dormant wallet failed: %v", err)
	}
}

func TestCollectRollsBackOnStoreFailures(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		configure func(faults *stubFaults)
	}{
		{
			name:      "lock rows",
			configure: func(faults *stubFaults) { faults.lockWalletsError = errStoreFailure },
		},
		{
			name: "second adjustment",
			configure: func(faults *stubFaults) {
				faults.adjustError = errStoreFailure
				faults.adjustErrorAtCall = 2
			},
		},
		{
			name:      "append legs",
			configure: func(faults *stubFaults) { faults.appendError = errStoreFailure },
		},
		{
			name:      "list pending",
			configure: func(faults *stubFaults) { faults.listCollectionsError = errStoreFailure },
		},
		{
			name:      "insert trail",
			configure: func(faults *stubFaults) { faults.insertTrailError = errStoreFailure },
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test)
			_, booker := seedTeam(test, store, "700", "1500")
			store.seedCollection(FieldCollection{
				ID: "fc-1", WalletID: booker.ID, ShopID: "shop-a",
				Amount: mustDecimal(test, "100"), Outstanding: mustDecimal(test, "100"),
				Status: CollectionPending, CollectedAt: fixedNow,
			})
			before := store.snapshot()
			testCase.configure(store.faults)
			service := mustNewService(test, store)

			_, err := service.Collect(context.Background(), collectRequest(test, "100", collectKeyValue))
			if !errors.Is(err, errStoreFailure) {
				test.Fatalf("expected store failure, got %v", err)
			}
			after := store.snapshot()
			for walletID, wallet := range before.wallets {
				if !after.wallets[walletID].Balance.Equal(wallet.Balance) {
					test.Fatalf("wallet %s changed after rollback", walletID)
				}
			}
			if len(after.transactions) != 0 || len(after.trail) != 0 {
				test.Fatalf("expected no durable rows, got %d legs %d trail", len(after.transactions), len(after.trail))
			}
			if after.collections["fc-1"].Status != CollectionPending {
				test.Fatalf("collection must stay pending")
			}
		})
	}
}

func TestCollectSettlesPendingFieldCollections(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	_, booker := seedTeam(test, store, "0", "1500")
	store.seedCollection(FieldCollection{
		ID: "fc-b", WalletID: booker.ID, ShopID: "shop-b",
		Amount: mustDecimal(test, "500"), Outstanding: mustDecimal(test, "500"),
		Status: CollectionPending, CollectedAt: fixedNow.Add(-time.Hour),
	})
	store.seedCollection(FieldCollection{
		ID: "fc-a", WalletID: booker.ID, ShopID: "shop-a",
		Amount: mustDecimal(test, "1000"), Outstanding: mustDecimal(test, "1000"),
		Status: CollectionPending, CollectedAt: fixedNow.Add(-2 * time.Hour),
	})
	service := mustNewService(test, store)

	result, err := service.Collect(context.Background(), collectRequest(test, "1200", collectKeyValue))
	if err != nil {
		test.Fatalf("collect failed: %v", err)
	}
	if len(result.TrailEntries) != 2 {
		test.Fatalf("expected two trail entries, got %d", len(result.TrailEntries))
	}
	first, second := result.TrailEntries[0], result.TrailEntries[1]
	if first.ShopID != "shop-a" || !first.AmountApplied.Equal(mustDecimal(test, "1000")) || first.Status != CollectionCompleted {
		test.Fatalf("unexpected first entry %+v", first)
	}
	if second.ShopID != "shop-b" || !second.AmountApplied.Equal(mustDecimal(test, "200")) || second.Status != CollectionPending {
		test.Fatalf("unexpected second entry %+v", second)
	}
	for _, entry := range result.TrailEntries {
		if entry.TransactionID != result.DistributorTransaction.ID {
			test.Fatalf("trail entry must point at the transfer_in leg")
		}
	}
	state := store.snapshot()
	if !state.collections["fc-b"].Outstanding.Equal(mustDecimal(test, "300")) {
		test.Fatalf("expected 300 outstanding on shop b, got %s", state.collections["fc-b"].Outstanding)
	}
	if state.collections["fc-a"].Status != CollectionCompleted {
		test.Fatalf("shop a must be completed")
	}

	replayed, err := service.Collect(context.Background(), collectRequest(test, "1200", collectKeyValue))
	if err != nil {
		test.Fatalf("replay failed: %v", err)
	}
	if len(replayed.TrailEntries) != 2 {
		test.Fatalf("replay must return the stored trail, got %d entries", len(replayed.TrailEntries))
	}
}

func TestCollectResolvesUniqueViolationAsReplay(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	distributor, booker := seedTeam(test, store, "700", "1500")
	competitor := []Transaction{
		{
			ID: "01COMPETITOROUT", WalletID: booker.ID, Type: TransactionTransferOut,
			Amount: mustDecimal(test, "100"), BalanceBefore: mustDecimal(test, "1500"), BalanceAfter: mustDecimal(test, "1400"),
			CounterpartyWalletID: distributor.ID, ReferenceType: ReferenceTypeWalletCollection, ReferenceID: "01COMPETITORREF",
			IdempotencyKey: collectKeyValue, CreatedAt: fixedNow,
		},
		{
			ID: "01COMPETITORIN", WalletID: distributor.ID, Type: TransactionTransferIn,
			Amount: mustDecimal(test, "100"), BalanceBefore: mustDecimal(test, "700"), BalanceAfter: mustDecimal(test, "800"),
			CounterpartyWalletID: booker.ID, ReferenceType: ReferenceTypeWalletCollection, ReferenceID: "01COMPETITORREF",
			IdempotencyKey: collectKeyValue, CreatedAt: fixedNow,
		},
	}
	store.faults.beforeAppend = func(working *stubState) {
		committed := *store.root
		committed.transactions = append(committed.transactions, competitor...)
		working.transactions = append(working.transactions, competitor...)
		store.faults.beforeAppend = nil
	}
	service := mustNewService(test, store)

	result, err := service.Collect(context.Background(), collectRequest(test, "100", collectKeyValue))
	if err != nil {
		test.Fatalf("collect failed: %v", err)
	}
	if !result.Replayed || result.DistributorTransaction.ID != "01COMPETITORIN" {
		test.Fatalf("expected the competitor's legs, got %+v", result)
	}
}

func TestConcurrentCollectsNeverOverdraw(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	distributor, booker := seedTeam(test, store, "0", "100")
	service := mustNewService(test, store)

	const workers = 8
	requests := make([]CollectRequest, workers)
	for worker := range requests {
		requests[worker] = collectRequest(test, "60", collectKeyValue+"-"+string(rune('a'+worker)))
	}
	var waitGroup sync.WaitGroup
	results := make(chan error, workers)
	for _, request := range requests {
		waitGroup.Add(1)
		go func(request CollectRequest) {
			defer waitGroup.Done()
			_, err := service.Collect(context.Background(), request)
			results <- err
		}(request)
	}
	waitGroup.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientBalance):
		default:
			test.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		test.Fatalf("expected exactly one collect to succeed, got %d", succeeded)
	}
	state := store.snapshot()
	if !state.wallets[booker.ID].Balance.Equal(mustDecimal(test, "40")) || !state.wallets[distributor.ID].Balance.Equal(mustDecimal(test, "60")) {
		test.Fatalf("unexpected balances %s %s", state.wallets[booker.ID].Balance, state.wallets[distributor.ID].Balance)
	}
}

func TestCollectLogsOperations(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	seedTeam(test, store, "700", "1500")
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))
	request := collectRequest(test, "100", collectKeyValue)

	if _, err := service.Collect(context.Background(), request); err != nil {
		test.Fatalf("collect failed: %v", err)
	}
	if _, err := service.Collect(context.Background(), request); err != nil {
		test.Fatalf("replay failed: %v", err)
	}
	if _, err := service.Collect(context.Background(), collectRequest(test, "5000", "collect-2")); err == nil {
		test.Fatalf("expected insufficient balance")
	}

	entries := logger.snapshot()
	if len(entries) != 3 {
		test.Fatalf("expected three log entries, got %d", len(entries))
	}
	wantStatuses := []string{OperationStatusOK, OperationStatusReplayed, OperationStatusError}
	for index, entry := range entries {
		if entry.Operation != OperationCollect || entry.Status != wantStatuses[index] {
			test.Fatalf("entry %d: unexpected %+v", index, entry)
		}
	}
	if entries[0].ReferenceID == "" || entries[0].ReferenceID != entries[1].ReferenceID {
		test.Fatalf("replay must log the original reference id")
	}
	if !entries[1].IsReplay() || !errors.Is(entries[2].Error, ErrInsufficientBalance) {
		test.Fatalf("unexpected replay/error entries: %+v %+v", entries[1], entries[2])
	}
}
