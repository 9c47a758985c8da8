package state

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type threadLock struct {
	slot chan struct{}
	refs int
}

// Locker serializes cycles per thread id. Entries are reference counted and
// dropped once no caller holds or waits on them.
type Locker struct {
	locks *xsync.MapOf[string, *threadLock]
}

func NewLocker() *Locker {
	return &Locker{locks: xsync.NewMapOf[string, *threadLock]()}
}

// Lock blocks until the thread is free or ctx is done. The returned func
// releases the lock and is safe to call more than once.
func (l *Locker) Lock(ctx context.Context, threadID string) (func(), error) {
	if threadID == "" {
		return nil, ErrInvalidThread
	}
	lk, _ := l.locks.Compute(threadID, func(old *threadLock, loaded bool) (*threadLock, bool) {
		if !loaded {
			old = &threadLock{slot: make(chan struct{}, 1)}
		}
		old.refs++
		return old, false
	})

	select {
	case lk.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(threadID)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.slot
			l.release(threadID)
		})
	}, nil
}

// Active reports how many thread ids currently have holders or waiters.
func (l *Locker) Active() int {
	return l.locks.Size()
}

func (l *Locker) release(threadID string) {
	l.locks.Compute(threadID, func(old *threadLock, loaded bool) (*threadLock, bool) {
		if !loaded {
			return old, true
		}
		old.refs--
		return old, old.refs <= 0
	})
}
