package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, opts ...StoreOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client, opts...)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	return store, mr
}

func TestRedisStoreCompareAndSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestRedisStore(t)

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
	if b.Version != 1 {
		t.Fatalf("stale Version = %d, want unchanged 1", b.Version)
	}

	got, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Version != 2 || len(got.Messages) != 2 || got.Messages[1].Content != "hello" {
		t.Fatalf("stored = %+v", got)
	}
}

func TestRedisStoreFreshKeyRejectsNonZeroVersion(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	st := NewConversationState("t-new", time.Now())
	_ = st.Append(RoleUser, "hi", time.Now())
	st.Version = 4

	if err := store.Save(context.Background(), st); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("Save() error = %v, want ErrVersionConflict", err)
	}
	if _, err := store.Load(context.Background(), "t-new"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestRedisStoreTTLAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestRedisStore(t, WithTTL(time.Hour), WithKeyPrefix("test:"))

	st := NewConversationState("t1", time.Now())
	_ = st.Append(RoleUser, "hi", time.Now())
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := mr.TTL("test:t1"); got != time.Hour {
		t.Fatalf("TTL = %v, want 1h", got)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Load(ctx, "t1"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() after expiry error = %v, want ErrStateNotFound", err)
	}

	fresh := NewConversationState("t2", time.Now())
	_ = fresh.Append(RoleUser, "hi", time.Now())
	if err := store.Save(ctx, fresh); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "t2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if mr.Exists("test:t2") {
		t.Fatal("key still present after Delete")
	}
}
