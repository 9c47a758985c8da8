package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreVersioning(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	st := NewConversationState("t1", time.Now())
	_ = st.Append(RoleUser, "hi", time.Now())
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if st.Version != 1 {
		t.Fatalf("Version = %d, want 1", st.Version)
	}

	a, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b, _ := store.Load(ctx, "t1")

	_ = a.Append(RoleAssistant, "hello", time.Now())
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("Save(a) error = %v", err)
	}

	_ = b.Append(RoleAssistant, "stale", time.Now())
	if err := store.Save(ctx, b); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("Save(b) error = %v, want ErrVersionConflict", err)
	}

	got, _ := store.Load(ctx, "t1")
	if got.Version != 2 || len(got.Messages) != 2 || got.Messages[1].Content != "hello" {
		t.Fatalf("stored = %+v", got)
	}
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	st := NewConversationState("t1", time.Now())
	_ = st.Append(RoleUser, "hi", time.Now())
	_ = store.Save(ctx, st)

	loaded, _ := store.Load(ctx, "t1")
	loaded.Messages[0].Content = "mutated"

	again, _ := store.Load(ctx, "t1")
	if again.Messages[0].Content != "hi" {
		t.Fatalf("store was mutated through loaded copy")
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Save(context.Background(), nil); !errors.Is(err, ErrNilState) {
		t.Fatalf("Save(nil) error = %v", err)
	}
	if err := store.Save(context.Background(), &ConversationState{}); !errors.Is(err, ErrInvalidThread) {
		t.Fatalf("Save(empty) error = %v", err)
	}
	if _, err := store.Load(context.Background(), "missing"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load(missing) error = %v", err)
	}
}

func TestMemoryStoreConcurrentSavesOneWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	base := NewConversationState("t1", time.Now())
	_ = base.Append(RoleUser, "hi", time.Now())
	_ = store.Save(ctx, base)

	const writers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for i := 0; i < writers; i++ {
		st, _ := store.Load(ctx, "t1")
		wg.Add(1)
		go func(st *ConversationState) {
			defer wg.Done()
			_ = st.Append(RoleAssistant, "reply", time.Now())
			err := store.Save(ctx, st)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrVersionConflict):
				conflict++
			default:
				t.Errorf("Save() error = %v", err)
			}
		}(st)
	}
	wg.Wait()

	if wins != 1 || conflict != writers-1 {
		t.Fatalf("wins=%d conflicts=%d", wins, conflict)
	}
}
