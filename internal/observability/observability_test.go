package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MarkoPoloResearchLab/teawallet/pkg/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func collectEntry(test *testing.T, status string, err error) wallet.OperationLog {
	test.Helper()
	owner, ownerErr := wallet.NewOwnerRef("order_booker", "ob-1")
	require.NoError(test, ownerErr)
	amount, amountErr := wallet.NewPositiveAmount(decimal.RequireFromString("300.00"))
	require.NoError(test, amountErr)
	key, keyErr := wallet.NewIdempotencyKey("collect-1")
	require.NoError(test, keyErr)
	return wallet.OperationLog{
		Operation:      wallet.OperationCollect,
		DistributorID:  "dist-1",
		Owner:          owner,
		Amount:         amount,
		IdempotencyKey: key,
		ReferenceID:    "ref-1",
		Status:         status,
		Error:          err,
	}
}

func TestZapOperationLoggerLevels(test *testing.T) {
	test.Parallel()

	testCases := []struct {
		name      string
		status    string
		err       error
		wantLevel zapcore.Level
	}{
		{name: "ok", status: wallet.OperationStatusOK, wantLevel: zapcore.InfoLevel},
		{name: "replayed", status: wallet.OperationStatusReplayed, wantLevel: zapcore.InfoLevel},
		{name: "rejection", status: wallet.OperationStatusError, err: fmt.Errorf("%w: balance 10.00", wallet.ErrInsufficientBalance), wantLevel: zapcore.WarnLevel},
		{name: "failure", status: wallet.OperationStatusError, err: errors.New("connection reset"), wantLevel: zapcore.ErrorLevel},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			core, recorded := observer.New(zapcore.DebugLevel)
			logger := NewZapOperationLogger(zap.New(core))

			logger.LogOperation(context.Background(), collectEntry(test, testCase.status, testCase.err))

			entries := recorded.All()
			require.Len(test, entries, 1)
			require.Equal(test, testCase.wantLevel, entries[0].Level)
			fields := entries[0].ContextMap()
			require.Equal(test, wallet.OperationCollect, fields["operation"])
			require.Equal(test, testCase.status, fields["status"])
			require.Equal(test, "order_booker", fields["owner_type"])
			require.Equal(test, "ob-1", fields["owner_id"])
			require.Equal(test, "300.00", fields["amount"])
			require.Equal(test, "collect-1", fields["idempotency_key"])
			require.Equal(test, "ref-1", fields["reference_id"])
			if testCase.err != nil {
				require.Contains(test, fields, "error")
			} else {
				require.NotContains(test, fields, "error")
			}
		})
	}
}

func TestMetricsCountsOperations(test *testing.T) {
	test.Parallel()
	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	require.NoError(test, err)

	ctx := context.Background()
	metrics.LogOperation(ctx, collectEntry(test, wallet.OperationStatusOK, nil))
	metrics.LogOperation(ctx, collectEntry(test, wallet.OperationStatusReplayed, nil))
	metrics.LogOperation(ctx, collectEntry(test, wallet.OperationStatusError, wallet.ErrInsufficientBalance))
	metrics.LogOperation(ctx, wallet.OperationLog{Operation: wallet.OperationProvision, Status: wallet.OperationStatusOK})

	require.Equal(test, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(wallet.OperationCollect, wallet.OperationStatusOK)))
	require.Equal(test, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(wallet.OperationCollect, wallet.OperationStatusReplayed)))
	require.Equal(test, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(wallet.OperationCollect, wallet.OperationStatusError)))
	require.Equal(test, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(wallet.OperationProvision, wallet.OperationStatusOK)))
	require.Equal(test, 300.0, testutil.ToFloat64(metrics.collected))
	require.Equal(test, 1, testutil.CollectAndCount(metrics.amounts, "teawallet_operation_amount"))
}

func TestNewMetricsRejectsDuplicateRegistration(test *testing.T) {
	test.Parallel()
	registry := prometheus.NewRegistry()
	_, err := NewMetrics(registry)
	require.NoError(test, err)

	_, err = NewMetrics(registry)
	require.Error(test, err)

	_, err = NewMetrics(nil)
	require.ErrorIs(test, err, wallet.ErrInvalidServiceConfig)
}

type countingLogger struct {
	calls int
}

func (logger *countingLogger) LogOperation(context.Context, wallet.OperationLog) {
	logger.calls++
}

func TestFanoutForwardsToEveryLogger(test *testing.T) {
	test.Parallel()
	first := &countingLogger{}
	second := &countingLogger{}
	fanout := NewFanout(first, nil, second)
	require.Len(test, fanout, 2)

	fanout.LogOperation(context.Background(), wallet.OperationLog{Operation: wallet.OperationSetActive})
	require.Equal(test, 1, first.calls)
	require.Equal(test, 1, second.calls)
}
