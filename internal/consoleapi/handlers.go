package consoleapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	walletv1 "github.com/MarkoPoloResearchLab/teawallet/api/wallet/v1"
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	distributorOwnerType = "distributor"

	errorUnauthorized      = "unauthorized"
	errorInvalidPayload    = "invalid_payload"
	errorInvalidLimit      = "invalid_limit"
	errorForeignWallet     = "foreign_wallet"
	errorWalletUnavailable = "wallet_unavailable"
)

type httpHandler struct {
	logger       *zap.Logger
	walletClient walletv1.WalletServiceClient
	cfg          Config
}

type collectPayload struct {
	FromOwnerType  string         `json:"from_owner_type"`
	FromOwnerID    string         `json:"from_owner_id"`
	Amount         json.Number    `json:"amount"`
	Description    string         `json:"description"`
	IdempotencyKey string         `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata"`
}

func (handler *httpHandler) handleOwnWallet(ctx *gin.Context) {
	distributorID, ok := requireDistributor(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.WalletTimeout)
	defer cancel()
	response, err := handler.walletClient.GetBalance(requestCtx, &walletv1.GetBalanceRequest{
		OwnerType: distributorOwnerType,
		OwnerId:   distributorID,
	})
	if err != nil {
		handler.respondError(ctx, "balance", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"wallet": response.GetWallet()})
}

func (handler *httpHandler) handleTeamWallets(ctx *gin.Context) {
	distributorID, ok := requireDistributor(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.WalletTimeout)
	defer cancel()
	response, err := handler.walletClient.ListTeamWallets(requestCtx, &walletv1.ListTeamWalletsRequest{
		DistributorId: distributorID,
		Role:          ctx.Query("role"),
	})
	if err != nil {
		handler.respondError(ctx, "team wallets", err)
		return
	}
	wallets := response.GetWallets()
	if wallets == nil {
		wallets = []*walletv1.Wallet{}
	}
	ctx.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

func (handler *httpHandler) handleTeamStats(ctx *gin.Context) {
	distributorID, ok := requireDistributor(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.WalletTimeout)
	defer cancel()
	response, err := handler.walletClient.GetTeamStats(requestCtx, &walletv1.GetTeamStatsRequest{DistributorId: distributorID})
	if err != nil {
		handler.respondError(ctx, "team stats", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"stats": response})
}

func (handler *httpHandler) handleTeamWallet(ctx *gin.Context) {
	distributorID, ok := requireDistributor(ctx)
	if !ok {
		return
	}
	member, ok := handler.teamMember(ctx, distributorID, ctx.Param("owner_type"), ctx.Param("owner_id"))
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"wallet": member})
}

func (handler *httpHandler) handleFieldCollections(ctx *gin.Context) {
	distributorID, ok := requireDistributor(ctx)
	if !ok {
		return
	}
	member, ok := handler.teamMember(ctx, distributorID, ctx.Param("owner_type"), ctx.Param("owner_id"))
	if !ok {
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.WalletTimeout)
	defer cancel()
	response, err := handler.walletClient.ListFieldCollections(requestCtx, &walletv1.ListFieldCollectionsRequest{
		OwnerType: member.GetOwnerType(),
		OwnerId:   member.GetOwnerId(),
		Status:    ctx.Query("status"),
	})
	if err != nil {
		handler.respondError(ctx, "field collections", err)
		return
	}
	collections := response.GetCollections()
	if collections == nil {
		collections = []*walletv1.FieldCollection{}
	}
	ctx.JSON(http.StatusOK, gin.H{"collections": collections})
}

func (handler *httpHandler) handleCollect(ctx *gin.Context) {
	distributorID, ok := requireDistributor(ctx)
	if !ok {
		return
	}
	var payload collectPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorInvalidPayload, "expected JSON body"))
		return
	}
	idempotencyKey := strings.TrimSpace(payload.IdempotencyKey)
	if idempotencyKey == "" {
		idempotencyKey = strings.TrimSpace(ctx.GetHeader(idempotencyKeyHeader))
	}
	metadataJSON := ""
	if payload.Metadata != nil {
		encoded, err := json.Marshal(payload.Metadata)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse(errorInvalidPayload, "metadata must be a JSON object"))
			return
		}
		metadataJSON = string(encoded)
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.WalletTimeout)
	defer cancel()
	response, err := handler.walletClient.CollectFromWallet(requestCtx, &walletv1.CollectFromWalletRequest{
		DistributorId:  distributorID,
		FromOwnerType:  payload.FromOwnerType,
		FromOwnerId:    payload.FromOwnerID,
		Amount:         payload.Amount.String(),
		Description:    payload.Description,
		IdempotencyKey: idempotencyKey,
		InitiatedBy:    distributorID,
		MetadataJson:   metadataJSON,
	})
	if err != nil {
		handler.respondError(ctx, "collect", err)
		return
	}
	statusCode := http.StatusCreated
	if response.GetReplayed() {
		statusCode = http.StatusOK
	}
	ctx.JSON(statusCode, gin.H{"collection": response})
}

func (handler *httpHandler) handleTransactions(ctx *gin.Context) {
	distributorID, ok := requireDistributor(ctx)
	if !ok {
		return
	}
	ownerType := strings.TrimSpace(ctx.Query("owner_type"))
	ownerID := strings.TrimSpace(ctx.Query("owner_id"))
	if ownerType == "" && ownerID == "" {
		ownerType = distributorOwnerType
		ownerID = distributorID
	} else {
		member, ok := handler.teamMember(ctx, distributorID, ownerType, ownerID)
		if !ok {
			return
		}
		ownerType = member.GetOwnerType()
		ownerID = member.GetOwnerId()
	}
	var limit int64
	if rawLimit := strings.TrimSpace(ctx.Query("limit")); rawLimit != "" {
		parsed, err := strconv.ParseInt(rawLimit, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse(errorInvalidLimit, "limit must be an integer"))
			return
		}
		limit = parsed
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.WalletTimeout)
	defer cancel()
	response, err := handler.walletClient.ListTransactions(requestCtx, &walletv1.ListTransactionsRequest{
		OwnerType:        ownerType,
		OwnerId:          ownerID,
		Type:             ctx.Query("type"),
		CounterpartyType: ctx.Query("counterparty_type"),
		CounterpartyId:   ctx.Query("counterparty_id"),
		DateFrom:         ctx.Query("date_from"),
		DateTo:           ctx.Query("date_to"),
		Limit:            int32(limit),
		Cursor:           ctx.Query("cursor"),
	})
	if err != nil {
		handler.respondError(ctx, "transactions", err)
		return
	}
	transactions := response.GetTransactions()
	if transactions == nil {
		transactions = []*walletv1.Transaction{}
	}
	ctx.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"next_cursor":  response.GetNextCursor(),
	})
}

// teamMember loads a wallet and verifies it belongs to the distributor's team.
// It writes the error response itself and reports false when the caller must stop.
func (handler *httpHandler) teamMember(ctx *gin.Context, distributorID string, ownerType string, ownerID string) (*walletv1.Wallet, bool) {
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.WalletTimeout)
	defer cancel()
	response, err := handler.walletClient.GetBalance(requestCtx, &walletv1.GetBalanceRequest{
		OwnerType: ownerType,
		OwnerId:   ownerID,
	})
	if err != nil {
		handler.respondError(ctx, "team member", err)
		return nil, false
	}
	member := response.GetWallet()
	if member.GetDistributorId() != distributorID {
		ctx.JSON(http.StatusForbidden, errorResponse(errorForeignWallet, "wallet is not on your team"))
		return nil, false
	}
	return member, true
}

func (handler *httpHandler) respondError(ctx *gin.Context, action string, err error) {
	statusInfo, ok := status.FromError(err)
	if !ok {
		handler.logger.Error("wallet call failed", zap.String("action", action), zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse(errorWalletUnavailable, "wallet service unavailable"))
		return
	}
	httpStatus, code := httpStatusFor(statusInfo)
	if httpStatus >= http.StatusInternalServerError {
		handler.logger.Error("wallet call failed", zap.String("action", action), zap.Error(err))
	}
	ctx.JSON(httpStatus, errorResponse(code, statusInfo.Message()))
}

func httpStatusFor(statusInfo *status.Status) (int, string) {
	reason := statusInfo.Message()
	switch statusInfo.Code() {
	case codes.InvalidArgument:
		return http.StatusBadRequest, reason
	case codes.NotFound:
		return http.StatusNotFound, reason
	case codes.FailedPrecondition:
		if reason == errorForeignWallet {
			return http.StatusForbidden, reason
		}
		return http.StatusUnprocessableEntity, reason
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict, reason
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "wallet_timeout"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, errorWalletUnavailable
	default:
		return http.StatusBadGateway, errorWalletUnavailable
	}
}

func requireDistributor(ctx *gin.Context) (string, bool) {
	claims := getClaims(ctx)
	if claims == nil || strings.TrimSpace(claims.GetUserID()) == "" {
		ctx.JSON(http.StatusUnauthorized, errorResponse(errorUnauthorized, "missing session"))
		return "", false
	}
	return claims.GetUserID(), true
}

func getClaims(ctx *gin.Context) *sessionvalidator.Claims {
	claimsValue, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*sessionvalidator.Claims)
	return claims
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
