package inmemorysequencer

import (
	"context"
	"slices"
	"sync"

	"github.com/solestate/estated/internal/core/ports"
)

type keyLock struct {
	ch   chan struct{}
	refs int
}

type sequencer struct {
	lock *sync.Mutex
	keys map[string]*keyLock
}

// NewSequencer returns a process-local sequencer.
func NewSequencer() ports.Sequencer {
	return &sequencer{
		lock: &sync.Mutex{},
		keys: make(map[string]*keyLock),
	}
}

func (s *sequencer) Lock(ctx context.Context, keys ...string) (func(), error) {
	// Keys are always taken in the same order so two callers never deadlock.
	keys = sortedUnique(keys)

	acquired := make([]string, 0, len(keys))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			s.release(acquired[i])
		}
	}

	for _, key := range keys {
		if err := s.acquire(ctx, key); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (s *sequencer) Close() {}

func (s *sequencer) acquire(ctx context.Context, key string) error {
	s.lock.Lock()
	kl, ok := s.keys[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		s.keys[key] = kl
	}
	kl.refs++
	s.lock.Unlock()

	select {
	case kl.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		s.unref(key, kl)
		return ctx.Err()
	}
}

func (s *sequencer) release(key string) {
	s.lock.Lock()
	kl := s.keys[key]
	s.lock.Unlock()

	<-kl.ch
	s.unref(key, kl)
}

func (s *sequencer) unref(key string, kl *keyLock) {
	s.lock.Lock()
	defer s.lock.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(s.keys, key)
	}
}

func sortedUnique(keys []string) []string {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
