package wallet

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*serviceConfig)

// OperationLogger records domain-level events emitted by state-changing operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing wallet operation.
type OperationLog struct {
	Operation      string
	DistributorID  string
	Owner          OwnerRef
	Amount         PositiveAmount
	IdempotencyKey IdempotencyKey
	ReferenceID    string
	Status         string
	Error          error
}

// IsReplay reports whether the operation returned a prior result.
func (entry OperationLog) IsReplay() bool {
	return entry.Status == OperationStatusReplayed
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(config *serviceConfig) {
		config.logger = logger
	}
}

// WithLocker replaces the in-process KeyedLocker.
func WithLocker(locker Locker) ServiceOption {
	return func(config *serviceConfig) {
		config.locker = locker
	}
}

// WithIDGenerator replaces the default id generators.
func WithIDGenerator(generator IDGenerator) ServiceOption {
	return func(config *serviceConfig) {
		config.ids = generator
	}
}

func (config *serviceConfig) logOperation(ctx context.Context, entry OperationLog) {
	if config.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = OperationStatusError
		} else {
			entry.Status = OperationStatusOK
		}
	}
	config.logger.LogOperation(ctx, entry)
}
