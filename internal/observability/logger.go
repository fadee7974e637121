package observability

import (
	"context"

	"github.com/MarkoPoloResearchLab/teawallet/pkg/wallet"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapOperationLogger writes one structured line per wallet operation.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// NewZapOperationLogger wraps logger. A nil logger discards everything.
func NewZapOperationLogger(logger *zap.Logger) *ZapOperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapOperationLogger{logger: logger.Named("wallet")}
}

// LogOperation logs ok and replayed operations at info, domain rejections at
// warn and everything else at error.
func (operationLogger *ZapOperationLogger) LogOperation(_ context.Context, entry wallet.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("distributor_id", entry.DistributorID),
		zap.String("owner_type", entry.Owner.Type().String()),
		zap.String("owner_id", entry.Owner.ID()),
	}
	if !entry.Amount.IsZero() {
		fields = append(fields, zap.String("amount", entry.Amount.String()))
	}
	if key := entry.IdempotencyKey.String(); key != "" {
		fields = append(fields, zap.String("idempotency_key", key))
	}
	if entry.ReferenceID != "" {
		fields = append(fields, zap.String("reference_id", entry.ReferenceID))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}
	operationLogger.logger.Log(levelFor(entry), "wallet operation", fields...)
}

func levelFor(entry wallet.OperationLog) zapcore.Level {
	switch {
	case entry.Error == nil:
		return zapcore.InfoLevel
	case wallet.IsRejection(entry.Error):
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Fanout forwards each operation to every wrapped logger in order.
type Fanout []wallet.OperationLogger

// NewFanout drops nil loggers.
func NewFanout(loggers ...wallet.OperationLogger) Fanout {
	fanout := make(Fanout, 0, len(loggers))
	for _, logger := range loggers {
		if logger != nil {
			fanout = append(fanout, logger)
		}
	}
	return fanout
}

// LogOperation implements wallet.OperationLogger.
func (fanout Fanout) LogOperation(ctx context.Context, entry wallet.OperationLog) {
	for _, logger := range fanout {
		logger.LogOperation(ctx, entry)
	}
}
