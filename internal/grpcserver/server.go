package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	walletv1 "github.com/MarkoPoloResearchLab/teawallet/api/wallet/v1"
	"github.com/MarkoPoloResearchLab/teawallet/pkg/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	errorInvalidAmount            = "invalid_amount"
	errorInvalidOwnerType         = "invalid_owner_type"
	errorInvalidOwnerID           = "invalid_owner_id"
	errorInvalidDistributorID     = "invalid_distributor_id"
	errorInvalidWalletID          = "invalid_wallet_id"
	errorInvalidCollectionID      = "invalid_collection_id"
	errorInvalidIdempotencyKey    = "invalid_idempotency_key"
	errorInvalidMetadata          = "invalid_metadata_json"
	errorInvalidTransactionType   = "invalid_transaction_type"
	errorInvalidCollectionStatus  = "invalid_collection_status"
	errorInvalidPage              = "invalid_page"
	errorInvalidDateRange         = "invalid_date_range"
	errorInvalidTimestamp         = "invalid_timestamp"
	errorWalletNotFound           = "wallet_not_found"
	errorCollectionNotFound       = "collection_not_found"
	errorInsufficientBalance      = "insufficient_balance"
	errorWalletInactive           = "wallet_inactive"
	errorForeignWallet            = "foreign_wallet"
	errorConcurrentConflict       = "concurrent_conflict"
	errorIdempotencyConflict      = "idempotency_conflict"
	errorDuplicateIdempotencyKey  = "duplicate_idempotency_key"
	errorWalletExists             = "wallet_exists"
	errorDuplicateCollection      = "duplicate_collection"
	errorInternal                 = "internal_error"

	amountScale int32 = 2
)

var errInvalidTimestamp = errors.New("invalid timestamp")

type errorMapping struct {
	source error
	code   codes.Code
	reason string
}

var errorMappings = []errorMapping{
	{wallet.ErrInvalidAmount, codes.InvalidArgument, errorInvalidAmount},
	{wallet.ErrInvalidOwnerType, codes.InvalidArgument, errorInvalidOwnerType},
	{wallet.ErrInvalidOwnerID, codes.InvalidArgument, errorInvalidOwnerID},
	{wallet.ErrInvalidDistributorID, codes.InvalidArgument, errorInvalidDistributorID},
	{wallet.ErrInvalidWalletID, codes.InvalidArgument, errorInvalidWalletID},
	{wallet.ErrInvalidCollectionID, codes.InvalidArgument, errorInvalidCollectionID},
	{wallet.ErrInvalidIdempotencyKey, codes.InvalidArgument, errorInvalidIdempotencyKey},
	{wallet.ErrInvalidMetadataJSON, codes.InvalidArgument, errorInvalidMetadata},
	{wallet.ErrInvalidTransactionType, codes.InvalidArgument, errorInvalidTransactionType},
	{wallet.ErrInvalidCollectionStatus, codes.InvalidArgument, errorInvalidCollectionStatus},
	{wallet.ErrInvalidPage, codes.InvalidArgument, errorInvalidPage},
	{wallet.ErrInvalidDateRange, codes.InvalidArgument, errorInvalidDateRange},
	{errInvalidTimestamp, codes.InvalidArgument, errorInvalidTimestamp},
	{wallet.ErrWalletNotFound, codes.NotFound, errorWalletNotFound},
	{wallet.ErrCollectionNotFound, codes.NotFound, errorCollectionNotFound},
	{wallet.ErrInsufficientBalance, codes.FailedPrecondition, errorInsufficientBalance},
	{wallet.ErrWalletInactive, codes.FailedPrecondition, errorWalletInactive},
	{wallet.ErrForeignWallet, codes.FailedPrecondition, errorForeignWallet},
	{wallet.ErrConcurrentConflict, codes.Aborted, errorConcurrentConflict},
	{wallet.ErrIdempotencyConflict, codes.AlreadyExists, errorIdempotencyConflict},
	{wallet.ErrDuplicateIdempotencyKey, codes.AlreadyExists, errorDuplicateIdempotencyKey},
	{wallet.ErrWalletExists, codes.AlreadyExists, errorWalletExists},
	{wallet.ErrDuplicateCollection, codes.AlreadyExists, errorDuplicateCollection},
}

// WalletServiceServer exposes the wallet service over gRPC.
type WalletServiceServer struct {
	walletv1.UnimplementedWalletServiceServer
	walletService *wallet.Service
	logger        *zap.Logger
}

// NewWalletServiceServer constructs a gRPC server for the wallet service. A nil
// logger discards infrastructure failures.
func NewWalletServiceServer(walletService *wallet.Service, logger *zap.Logger) *WalletServiceServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletServiceServer{walletService: walletService, logger: logger}
}

func (server *WalletServiceServer) GetBalance(ctx context.Context, request *walletv1.GetBalanceRequest) (*walletv1.GetBalanceResponse, error) {
	owner, err := wallet.NewOwnerRef(request.GetOwnerType(), request.GetOwnerId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	found, err := server.walletService.Balance(ctx, owner)
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	return &walletv1.GetBalanceResponse{Wallet: toWalletMessage(found)}, nil
}

func (server *WalletServiceServer) ListTeamWallets(ctx context.Context, request *walletv1.ListTeamWalletsRequest) (*walletv1.ListTeamWalletsResponse, error) {
	distributorID, err := wallet.NewDistributorID(request.GetDistributorId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	role, err := parseOptionalOwnerType(request.GetRole())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	members, err := server.walletService.TeamWallets(ctx, distributorID, role)
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	response := &walletv1.ListTeamWalletsResponse{Wallets: make([]*walletv1.Wallet, 0, len(members))}
	for _, member := range members {
		response.Wallets = append(response.Wallets, toWalletMessage(member))
	}
	return response, nil
}

func (server *WalletServiceServer) GetTeamStats(ctx context.Context, request *walletv1.GetTeamStatsRequest) (*walletv1.GetTeamStatsResponse, error) {
	distributorID, err := wallet.NewDistributorID(request.GetDistributorId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	stats, err := server.walletService.TeamStats(ctx, distributorID)
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	return &walletv1.GetTeamStatsResponse{
		TeamBalanceSum:   formatMoney(stats.TeamBalanceSum),
		ActiveCount:      int32(stats.ActiveCount),
		InactiveCount:    int32(stats.InactiveCount),
		OrderBookerCount: int32(stats.RoleCounts[wallet.OwnerOrderBooker]),
		DeliveryManCount: int32(stats.RoleCounts[wallet.OwnerDeliveryMan]),
	}, nil
}

func (server *WalletServiceServer) CollectFromWallet(ctx context.Context, request *walletv1.CollectFromWalletRequest) (*walletv1.CollectFromWalletResponse, error) {
	distributorID, err := wallet.NewDistributorID(request.GetDistributorId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	source, err := wallet.NewOwnerRef(request.GetFromOwnerType(), request.GetFromOwnerId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	amount, err := wallet.ParsePositiveAmount(request.GetAmount())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	idempotencyKey, err := wallet.NewIdempotencyKey(request.GetIdempotencyKey())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	metadata, err := wallet.NewMetadataJSON(request.GetMetadataJson())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	initiatedBy := request.GetInitiatedBy()
	if strings.TrimSpace(initiatedBy) == "" {
		initiatedBy = distributorID.String()
	}
	result, err := server.walletService.Collect(ctx, wallet.CollectRequest{
		DistributorID:  distributorID,
		Source:         source,
		Amount:         amount,
		Description:    request.GetDescription(),
		IdempotencyKey: idempotencyKey,
		InitiatedBy:    initiatedBy,
		Metadata:       metadata,
	})
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	return &walletv1.CollectFromWalletResponse{
		ReferenceId:            result.ReferenceID(),
		SourceTransaction:      toTransactionMessage(result.SourceTransaction, nil),
		DistributorTransaction: toTransactionMessage(result.DistributorTransaction, result.TrailEntries),
		Trail:                  toTrailMessages(result.TrailEntries),
		Replayed:               result.Replayed,
	}, nil
}

func (server *WalletServiceServer) ListTransactions(ctx context.Context, request *walletv1.ListTransactionsRequest) (*walletv1.ListTransactionsResponse, error) {
	owner, err := wallet.NewOwnerRef(request.GetOwnerType(), request.GetOwnerId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	filter := wallet.HistoryFilter{}
	if rawType := strings.TrimSpace(request.GetType()); rawType != "" {
		if filter.Type, err = wallet.ParseTransactionType(rawType); err != nil {
			return nil, server.mapToGRPCError(err)
		}
	}
	if request.GetCounterpartyType() != "" || request.GetCounterpartyId() != "" {
		if filter.Counterparty, err = wallet.NewOwnerRef(request.GetCounterpartyType(), request.GetCounterpartyId()); err != nil {
			return nil, server.mapToGRPCError(err)
		}
	}
	if filter.DateFrom, err = parseOptionalTime(request.GetDateFrom()); err != nil {
		return nil, server.mapToGRPCError(err)
	}
	if filter.DateTo, err = parseOptionalTime(request.GetDateTo()); err != nil {
		return nil, server.mapToGRPCError(err)
	}
	page, err := wallet.NewPage(int(request.GetLimit()), request.GetCursor())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	history, err := server.walletService.History(ctx, owner, filter, page)
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	response := &walletv1.ListTransactionsResponse{Transactions: make([]*walletv1.Transaction, 0, len(history.Entries))}
	for _, entry := range history.Entries {
		response.Transactions = append(response.Transactions, toTransactionMessage(entry.Transaction, entry.Trail))
	}
	if history.NextCursor != nil {
		response.NextCursor = history.NextCursor.Encode()
	}
	return response, nil
}

func (server *WalletServiceServer) ProvisionWallet(ctx context.Context, request *walletv1.ProvisionWalletRequest) (*walletv1.ProvisionWalletResponse, error) {
	owner, err := wallet.NewOwnerRef(request.GetOwnerType(), request.GetOwnerId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	distributorID, err := wallet.NewDistributorID(request.GetDistributorId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	provisioned, err := server.walletService.ProvisionWallet(ctx, owner, distributorID)
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	return &walletv1.ProvisionWalletResponse{Wallet: toWalletMessage(provisioned)}, nil
}

func (server *WalletServiceServer) SetWalletActive(ctx context.Context, request *walletv1.SetWalletActiveRequest) (*walletv1.SetWalletActiveResponse, error) {
	owner, err := wallet.NewOwnerRef(request.GetOwnerType(), request.GetOwnerId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	updated, err := server.walletService.SetWalletActive(ctx, owner, request.GetActive())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	return &walletv1.SetWalletActiveResponse{Wallet: toWalletMessage(updated)}, nil
}

func (server *WalletServiceServer) RecordFieldCollection(ctx context.Context, request *walletv1.RecordFieldCollectionRequest) (*walletv1.RecordFieldCollectionResponse, error) {
	owner, err := wallet.NewOwnerRef(request.GetOwnerType(), request.GetOwnerId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	amount, err := wallet.ParsePositiveAmount(request.GetAmount())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	collectedAt, err := parseOptionalTime(request.GetCollectedAt())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	metadata, err := wallet.NewMetadataJSON(request.GetMetadataJson())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	result, err := server.walletService.RecordFieldCollection(ctx, wallet.FieldCollectionRequest{
		Owner:        owner,
		CollectionID: request.GetCollectionId(),
		ShopID:       request.GetShopId(),
		Amount:       amount,
		CollectedAt:  collectedAt,
		Description:  request.GetDescription(),
		InitiatedBy:  request.GetInitiatedBy(),
		Metadata:     metadata,
	})
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	return &walletv1.RecordFieldCollectionResponse{
		Transaction: toTransactionMessage(result.Transaction, nil),
		Collection:  toCollectionMessage(result.Collection),
		Replayed:    result.Replayed,
	}, nil
}

func (server *WalletServiceServer) ListFieldCollections(ctx context.Context, request *walletv1.ListFieldCollectionsRequest) (*walletv1.ListFieldCollectionsResponse, error) {
	owner, err := wallet.NewOwnerRef(request.GetOwnerType(), request.GetOwnerId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	var collectionStatus wallet.CollectionStatus
	if rawStatus := strings.TrimSpace(request.GetStatus()); rawStatus != "" {
		if collectionStatus, err = wallet.ParseCollectionStatus(rawStatus); err != nil {
			return nil, server.mapToGRPCError(err)
		}
	}
	collections, err := server.walletService.FieldCollections(ctx, owner, collectionStatus)
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	response := &walletv1.ListFieldCollectionsResponse{Collections: make([]*walletv1.FieldCollection, 0, len(collections))}
	for _, collection := range collections {
		response.Collections = append(response.Collections, toCollectionMessage(collection))
	}
	return response, nil
}

func (server *WalletServiceServer) ReconstructWallet(ctx context.Context, request *walletv1.ReconstructWalletRequest) (*walletv1.ReconstructWalletResponse, error) {
	owner, err := wallet.NewOwnerRef(request.GetOwnerType(), request.GetOwnerId())
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	reconstruction, err := server.walletService.Reconstruct(ctx, owner)
	if err != nil {
		return nil, server.mapToGRPCError(err)
	}
	return &walletv1.ReconstructWalletResponse{
		Wallet:           toWalletMessage(reconstruction.Wallet),
		TransactionCount: int32(reconstruction.TransactionCount),
		ReplayedBalance:  formatMoney(reconstruction.ReplayedBalance),
		ChainIntact:      reconstruction.ChainIntact,
		BrokenAtId:       reconstruction.BrokenAtID,
		Consistent:       reconstruction.Consistent(),
	}, nil
}

func (server *WalletServiceServer) mapToGRPCError(source error) error {
	for _, mapping := range errorMappings {
		if errors.Is(source, mapping.source) {
			return status.Error(mapping.code, mapping.reason)
		}
	}
	if errors.Is(source, context.Canceled) || errors.Is(source, context.DeadlineExceeded) {
		return status.FromContextError(source).Err()
	}
	server.logger.Error("wallet operation failed", zap.Error(source))
	return status.Error(codes.Internal, errorInternal)
}

func parseOptionalOwnerType(raw string) (wallet.OwnerType, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	return wallet.ParseOwnerType(trimmed)
}

func parseOptionalTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", errInvalidTimestamp, trimmed)
	}
	return parsed.UTC(), nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatMoney(value decimal.Decimal) string {
	return value.StringFixed(amountScale)
}

func toWalletMessage(source wallet.Wallet) *walletv1.Wallet {
	return &walletv1.Wallet{
		WalletId:      source.ID,
		OwnerType:     source.OwnerType.String(),
		OwnerId:       source.OwnerID,
		DistributorId: source.DistributorID,
		Balance:       formatMoney(source.Balance),
		IsActive:      source.IsActive,
		Version:       source.Version,
		CreatedAt:     formatTime(source.CreatedAt),
		UpdatedAt:     formatTime(source.UpdatedAt),
	}
}

func toTransactionMessage(source wallet.Transaction, trail []wallet.TrailEntry) *walletv1.Transaction {
	return &walletv1.Transaction{
		TransactionId:        source.ID,
		WalletId:             source.WalletID,
		Type:                 source.Type.String(),
		Amount:               formatMoney(source.Amount),
		BalanceBefore:        formatMoney(source.BalanceBefore),
		BalanceAfter:         formatMoney(source.BalanceAfter),
		CounterpartyWalletId: source.CounterpartyWalletID,
		Description:          source.Description,
		ReferenceType:        source.ReferenceType,
		ReferenceId:          source.ReferenceID,
		IdempotencyKey:       source.IdempotencyKey,
		InitiatedBy:          source.InitiatedBy,
		MetadataJson:         source.Metadata.String(),
		CreatedAt:            formatTime(source.CreatedAt),
		Trail:                toTrailMessages(trail),
	}
}

func toTrailMessages(entries []wallet.TrailEntry) []*walletv1.TrailEntry {
	if len(entries) == 0 {
		return nil
	}
	messages := make([]*walletv1.TrailEntry, 0, len(entries))
	for _, entry := range entries {
		messages = append(messages, &walletv1.TrailEntry{
			EntryId:       entry.ID,
			TransactionId: entry.TransactionID,
			CollectionId:  entry.CollectionID,
			ShopId:        entry.ShopID,
			AmountApplied: formatMoney(entry.AmountApplied),
			Status:        entry.Status.String(),
			CreatedAt:     formatTime(entry.CreatedAt),
		})
	}
	return messages
}

func toCollectionMessage(source wallet.FieldCollection) *walletv1.FieldCollection {
	return &walletv1.FieldCollection{
		CollectionId:        source.ID,
		WalletId:            source.WalletID,
		OwnerType:           source.OwnerType.String(),
		OwnerId:             source.OwnerID,
		ShopId:              source.ShopID,
		Amount:              formatMoney(source.Amount),
		Outstanding:         formatMoney(source.Outstanding),
		Status:              source.Status.String(),
		Description:         source.Description,
		CreditTransactionId: source.CreditTransactionID,
		CollectedAt:         formatTime(source.CollectedAt),
		CreatedAt:           formatTime(source.CreatedAt),
	}
}
