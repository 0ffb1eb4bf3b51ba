package service

import (
	"context"
	"sync"
)

// keyedLock serializes work per content id. Entries are reference counted
// and dropped once nobody holds or waits on them.
type keyedLock struct {
	mu    sync.Mutex
	slots map[int64]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{slots: make(map[int64]*lockSlot)}
}

// acquire blocks until id is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (k *keyedLock) acquire(ctx context.Context, id int64) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[id]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		k.slots[id] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			k.release(id, s)
		}, nil
	case <-ctx.Done():
		k.release(id, s)
		return nil, ctx.Err()
	}
}

func (k *keyedLock) release(id int64, s *lockSlot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, id)
	}
}

// held returns the number of ids with a holder or waiter.
func (k *keyedLock) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
