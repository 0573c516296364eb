package sequencer_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/solestate/estated/internal/core/ports"
	inmemorysequencer "github.com/solestate/estated/internal/infrastructure/sequencer/inmemory"
	redissequencer "github.com/solestate/estated/internal/infrastructure/sequencer/redis"
	"github.com/stretchr/testify/require"
)

func TestSequencerImplementations(t *testing.T) {
	tests := []struct {
		name      string
		sequencer ports.Sequencer
	}{
		{"inmemory", inmemorysequencer.NewSequencer()},
	}
	if url := os.Getenv("ESTATED_TEST_REDIS_URL"); url != "" {
		redisOpts, err := redis.ParseURL(url)
		require.NoError(t, err)
		rdb := redis.NewClient(redisOpts)
		tests = append(tests, struct {
			name      string
			sequencer ports.Sequencer
		}{"redis", redissequencer.NewSequencer(
			rdb, 5, redissequencer.WithRetryDelay(5*time.Millisecond),
		)})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer tt.sequencer.Close()
			runSequencerTests(t, tt.sequencer)
		})
	}
}

func runSequencerTests(t *testing.T, seq ports.Sequencer) {
	ctx := context.Background()
	key := func(name string) string {
		return name + "-" + time.Now().Format(time.RFC3339Nano)
	}

	t.Run("mutual exclusion", func(t *testing.T) {
		k := key("mutex")
		var inside, maxInside atomic.Int32
		wg := &sync.WaitGroup{}
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := seq.Lock(ctx, k)
				require.NoError(t, err)
				defer unlock()

				n := inside.Add(1)
				if n > maxInside.Load() {
					maxInside.Store(n)
				}
				time.Sleep(5 * time.Millisecond)
				inside.Add(-1)
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), maxInside.Load())
	})

	t.Run("disjoint keys do not block", func(t *testing.T) {
		unlockA, err := seq.Lock(ctx, key("a"))
		require.NoError(t, err)
		defer unlockA()

		unlockB, err := seq.Lock(ctx, key("b"))
		require.NoError(t, err)
		unlockB()
	})

	t.Run("duplicate keys", func(t *testing.T) {
		k := key("dup")
		unlock, err := seq.Lock(ctx, k, k)
		require.NoError(t, err)
		unlock()
		// Releasing twice is a no-op.
		unlock()

		unlock, err = seq.Lock(ctx, k)
		require.NoError(t, err)
		unlock()
	})

	t.Run("context canceled while waiting", func(t *testing.T) {
		k := key("cancel")
		unlock, err := seq.Lock(ctx, k)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err = seq.Lock(waitCtx, k)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		unlock, err = seq.Lock(ctx, k)
		require.NoError(t, err)
		unlock()
	})

	t.Run("overlapping key sets", func(t *testing.T) {
		k1, k2 := key("x"), key("y")
		wg := &sync.WaitGroup{}
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				keys := []string{k1, k2}
				if i%2 == 0 {
					keys = []string{k2, k1}
				}
				unlock, err := seq.Lock(ctx, keys...)
				require.NoError(t, err)
				unlock()
			}()
		}
		wg.Wait()
	})
}
