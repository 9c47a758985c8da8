package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps state in process. Used for local runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*ConversationState
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*ConversationState),
		clock: time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, threadID string) (*ConversationState, error) {
	if threadID == "" {
		return nil, ErrInvalidThread
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.items[threadID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return st.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, st *ConversationState) error {
	next, err := nextVersion(st, s.clock())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int64
	if cur, ok := s.items[next.ThreadID]; ok {
		stored = cur.Version
	}
	if stored != st.Version {
		return ErrVersionConflict
	}
	s.items[next.ThreadID] = next
	commit(st, next)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, threadID string) error {
	if threadID == "" {
		return ErrInvalidThread
	}
	s.mu.Lock()
	delete(s.items, threadID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
