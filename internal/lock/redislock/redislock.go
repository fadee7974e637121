package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/teawallet/pkg/wallet"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix         = "teawallet:lock:"
	defaultTTL        = 10 * time.Second
	defaultMinBackoff = 5 * time.Millisecond
	defaultMaxBackoff = 200 * time.Millisecond
	releaseTimeout    = 2 * time.Second
)

// ErrInvalidConfig reports a locker that cannot be constructed.
var ErrInvalidConfig = errors.New("invalid redis lock config")

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Option configures a Locker.
type Option func(*Locker)

// WithTTL sets how long a key survives if its holder disappears.
func WithTTL(ttl time.Duration) Option {
	return func(locker *Locker) {
		locker.ttl = ttl
	}
}

// WithBackoff bounds the wait between acquisition attempts.
func WithBackoff(minBackoff time.Duration, maxBackoff time.Duration) Option {
	return func(locker *Locker) {
		locker.minBackoff = minBackoff
		locker.maxBackoff = maxBackoff
	}
}

// WithLogger receives release failures.
func WithLogger(logger *zap.Logger) Option {
	return func(locker *Locker) {
		locker.logger = logger
	}
}

// Locker implements wallet.Locker across processes with one redis key per
// wallet. Keys are taken in ascending wallet id order and released by
// compare-and-delete, so a holder whose key expired never frees someone else's.
type Locker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
	logger     *zap.Logger
}

// New builds a Locker over an existing client.
func New(client redis.UniversalClient, options ...Option) (*Locker, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is nil", ErrInvalidConfig)
	}
	locker := &Locker{
		client:     client,
		ttl:        defaultTTL,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		option(locker)
	}
	if locker.ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}
	if locker.minBackoff <= 0 || locker.maxBackoff < locker.minBackoff {
		return nil, fmt.Errorf("%w: backoff bounds %s..%s", ErrInvalidConfig, locker.minBackoff, locker.maxBackoff)
	}
	if locker.logger == nil {
		locker.logger = zap.NewNop()
	}
	return locker, nil
}

// NewClient parses a redis URL and verifies connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: redis url is required", ErrInvalidConfig)
	}
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Key returns the redis key guarding a wallet.
func Key(walletID string) string {
	return keyPrefix + walletID
}

// Lock acquires every wallet key or none of them.
func (locker *Locker) Lock(ctx context.Context, walletIDs ...string) (func(), error) {
	ordered := wallet.OrderedWalletIDs(walletIDs...)
	token := uuid.NewString()
	acquired := make([]string, 0, len(ordered))
	for _, walletID := range ordered {
		if err := locker.acquire(ctx, Key(walletID), token); err != nil {
			locker.release(ctx, acquired, token)
			return nil, err
		}
		acquired = append(acquired, Key(walletID))
	}
	var once sync.Once
	return func() {
		once.Do(func() { locker.release(ctx, acquired, token) })
	}, nil
}

func (locker *Locker) acquire(ctx context.Context, key string, token string) error {
	backoff := locker.minBackoff
	for {
		ok, err := locker.client.SetNX(ctx, key, token, locker.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > locker.maxBackoff {
			backoff = locker.maxBackoff
		}
	}
}

func (locker *Locker) release(ctx context.Context, keys []string, token string) {
	if len(keys) == 0 {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	for index := len(keys) - 1; index >= 0; index-- {
		if err := releaseScript.Run(releaseCtx, locker.client, []string{keys[index]}, token).Err(); err != nil {
			locker.logger.Warn("wallet lock release failed", zap.String("key", keys[index]), zap.Error(err))
		}
	}
}
