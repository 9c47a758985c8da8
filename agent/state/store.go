package state

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	ErrStateNotFound   = errors.New("conversation state not found")
	ErrNilState        = errors.New("conversation state is nil")
	ErrInvalidThread   = errors.New("thread id is empty")
	ErrVersionConflict = errors.New("conversation state version conflict")
	ErrMalformedRecord = errors.New("malformed lead record")
)

const (
	defaultStoreKeyPrefix = "leadqual:thread:"
	defaultStoreTTL       = 7 * 24 * time.Hour
	maxResponseSizeBytes  = 2 << 20
)

// Store persists ConversationState keyed by thread id.
//
// Save is a compare-and-set: it succeeds only when the stored version equals
// st.Version (0 when nothing is stored), writes st with Version+1 and updates
// st in place. Otherwise it returns ErrVersionConflict and leaves st untouched.
type Store interface {
	Load(ctx context.Context, threadID string) (*ConversationState, error)
	Save(ctx context.Context, st *ConversationState) error
	Delete(ctx context.Context, threadID string) error
}

// casScript is shared by the Redis backends. ARGV: expected version, payload,
// ttl seconds (0 keeps the key forever).
const casScript = `
local current = redis.call('GET', KEYS[1])
local expected = tonumber(ARGV[1])
local stored = 0
if current then
  local ok, decoded = pcall(cjson.decode, current)
  if ok and type(decoded) == 'table' and decoded['version'] then
    stored = tonumber(decoded['version'])
  end
end
if stored ~= expected then
  return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'EX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`

type storeOptions struct {
	keyPrefix  string
	ttl        time.Duration
	httpClient *http.Client
	clock      func() time.Time
}

// StoreOption customizes the key-value backed stores.
type StoreOption func(*storeOptions)

func WithKeyPrefix(prefix string) StoreOption {
	return func(o *storeOptions) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			o.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(o *storeOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func WithClock(clock func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func buildOptions(opts []StoreOption) (storeOptions, error) {
	o := storeOptions{
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
		clock:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.ttl < 0 {
		return o, errors.New("ttl must be >= 0")
	}
	return o, nil
}

func (o storeOptions) key(threadID string) (string, error) {
	if strings.TrimSpace(threadID) == "" {
		return "", ErrInvalidThread
	}
	return o.keyPrefix + threadID, nil
}

// nextVersion validates st and returns the copy that should be written.
func nextVersion(st *ConversationState, now time.Time) (*ConversationState, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	next := st.Clone()
	next.Version = st.Version + 1
	next.UpdatedAt = now.UTC()
	if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}
	return next, nil
}

func commit(st, written *ConversationState) {
	st.Version = written.Version
	st.UpdatedAt = written.UpdatedAt
	st.CreatedAt = written.CreatedAt
}

func ttlSeconds(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	seconds := ttl / time.Second
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
