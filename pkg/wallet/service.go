package wallet

import (
	"fmt"
	"time"
)

type serviceConfig struct {
	store  Store
	nowFn  func() time.Time
	logger OperationLogger
	locker Locker
	ids    IDGenerator
}

// now returns the clock in UTC truncated to the microsecond so timestamps
// survive every backend unchanged.
func (config *serviceConfig) now() time.Time {
	return config.nowFn().UTC().Truncate(time.Microsecond)
}

// legTime returns the timestamp for legs written against the locked wallets.
// It is strictly after each wallet's last write so (created_at, id) order
// follows write order even when the clock steps backward.
func (config *serviceConfig) legTime(locked ...Wallet) time.Time {
	at := config.now()
	for _, current := range locked {
		floor := current.UpdatedAt.UTC().Truncate(time.Microsecond)
		if !at.After(floor) {
			at = floor.Add(time.Microsecond)
		}
	}
	return at
}

// Service bundles the collection, query and provisioning use cases over one Store.
type Service struct {
	*CollectionService
	*QueryService
	*ProvisioningService
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	config := &serviceConfig{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(config)
		}
	}
	if config.locker == nil {
		config.locker = NewKeyedLocker()
	}
	if config.ids == nil {
		config.ids = newDefaultIDGenerator()
	}
	return &Service{
		CollectionService:   &CollectionService{config: config},
		QueryService:        &QueryService{config: config},
		ProvisioningService: &ProvisioningService{config: config},
	}, nil
}

func pickWallets(locked []Wallet, firstID string, secondID string) (Wallet, Wallet, error) {
	var first, second Wallet
	var foundFirst, foundSecond bool
	for _, candidate := range locked {
		switch candidate.ID {
		case firstID:
			first, foundFirst = candidate, true
		case secondID:
			second, foundSecond = candidate, true
		}
	}
	if !foundFirst || !foundSecond {
		return Wallet{}, Wallet{}, fmt.Errorf("%w: locked set is incomplete", ErrWalletNotFound)
	}
	return first, second, nil
}
