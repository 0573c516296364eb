package redissequencer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/ports"
)

const keyPrefix = "estated:lock:"

var errLockLost = errors.New("lock not held")

type Option func(*sequencer)

// WithLeaseTTL bounds how long a crashed holder can block a key.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(s *sequencer) {
		s.leaseTTL = ttl
	}
}

func WithRetryDelay(delay time.Duration) Option {
	return func(s *sequencer) {
		s.retryDelay = delay
	}
}

type sequencer struct {
	rdb          *redis.Client
	leaseTTL     time.Duration
	retryDelay   time.Duration
	numOfRetries int
}

// NewSequencer returns a sequencer whose locks are leases shared by every
// process pointed at the same redis instance.
func NewSequencer(rdb *redis.Client, numOfRetries int, opts ...Option) ports.Sequencer {
	s := &sequencer{
		rdb:          rdb,
		leaseTTL:     30 * time.Second,
		retryDelay:   20 * time.Millisecond,
		numOfRetries: numOfRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *sequencer) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	token := uuid.New().String()
	acquired := make([]string, 0, len(keys))
	release := func() {
		// Release must run even if the caller's ctx was canceled.
		ctx := context.Background()
		for _, key := range acquired {
			if err := s.unlock(ctx, key, token); err != nil {
				log.WithError(err).Warnf("failed to release lock %s", key)
			}
		}
	}

	for _, key := range keys {
		if err := s.lock(ctx, key, token); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (s *sequencer) Close() {
	// nolint:all
	s.rdb.Close()
}

func (s *sequencer) lock(ctx context.Context, key, token string) error {
	for {
		ok, err := s.rdb.SetNX(ctx, keyPrefix+key, token, s.leaseTTL).Result()
		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
}

// unlock deletes the lease only if it still carries token.
func (s *sequencer) unlock(ctx context.Context, key, token string) error {
	redisKey := keyPrefix + key

	var err error
	for range s.numOfRetries {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, redisKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return errLockLost
				}
				return err
			}
			if current != token {
				return errLockLost
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, redisKey)
				return nil
			})
			return err
		}, redisKey); err == nil || errors.Is(err, errLockLost) {
			return err
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf("failed to unlock %s after max number of retries: %w", key, err)
}
