package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	nodex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/nodes"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidThread  = nodex.ErrInvalidThread
	ErrThreadBusy     = errors.New("thread is busy")
)

const (
	defaultBrand             = "AutoStream"
	defaultTopK              = 4
	defaultCapabilityTimeout = 30 * time.Second
	maxConflictRetries       = 2

	// maxCapabilityCalls is the longest cycle: classify, retrieve, answer.
	maxCapabilityCalls = 3
	lockTimeoutSlack   = 5 * time.Second
)

type Config struct {
	Brand             string
	TopK              int
	CapabilityTimeout time.Duration
	// LockTimeout bounds the wait for a busy thread. When zero it is
	// CapabilityTimeout*3 plus 5s, so a healthy cycle ahead in the queue
	// never reports ErrThreadBusy. An explicit value below that lets
	// second messages fail while the first is still within its budget.
	LockTimeout time.Duration
}

// DerivedLockTimeout is the lock wait used when Config.LockTimeout is unset.
func DerivedLockTimeout(capabilityTimeout time.Duration) time.Duration {
	if capabilityTimeout <= 0 {
		capabilityTimeout = defaultCapabilityTimeout
	}
	return capabilityTimeout*maxCapabilityCalls + lockTimeoutSlack
}

// Orchestrator runs one classify, route, respond, persist cycle per inbound
// message. Cycles on the same thread are serialized; different threads run
// in parallel.
type Orchestrator struct {
	store     statex.Store
	models    contractx.Registry
	retriever contractx.Retriever
	locker    *statex.Locker

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	brand             string
	topK              int
	capabilityTimeout time.Duration
	lockTimeout       time.Duration

	now func() time.Time
}

func New(
	store statex.Store,
	models contractx.Registry,
	retriever contractx.Retriever,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if models == nil {
		return nil, errors.New("model registry is required")
	}
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}

	brand := strings.TrimSpace(cfg.Brand)
	if brand == "" {
		brand = defaultBrand
	}
	topK := cfg.TopK
	if topK < 1 {
		topK = defaultTopK
	}
	capabilityTimeout := cfg.CapabilityTimeout
	if capabilityTimeout <= 0 {
		capabilityTimeout = defaultCapabilityTimeout
	}
	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = DerivedLockTimeout(capabilityTimeout)
	} else if derived := DerivedLockTimeout(capabilityTimeout); lockTimeout < derived {
		log.Warn().
			Dur("lock_timeout", lockTimeout).
			Dur("healthy_cycle_max", derived).
			Msg("lock timeout is shorter than a healthy cycle; queued messages may report thread busy")
	}

	o := &Orchestrator{
		store:             store,
		models:            models,
		retriever:         retriever,
		locker:            statex.NewLocker(),
		brand:             brand,
		topK:              topK,
		capabilityTimeout: capabilityTimeout,
		lockTimeout:       lockTimeout,
		now:               time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one cycle for threadID. On error nothing was persisted.
func (o *Orchestrator) HandleMessage(ctx context.Context, threadID string, text string) (contractx.CycleResult, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return contractx.CycleResult{}, ErrInvalidThread
	}

	lockCtx, cancel := context.WithTimeout(ctx, o.lockTimeout)
	unlock, err := o.locker.Lock(lockCtx, threadID)
	cancel()
	if err != nil {
		return contractx.CycleResult{}, fmt.Errorf("%w: %s: %w", ErrThreadBusy, threadID, err)
	}
	defer unlock()

	start := time.Now()
	var out nodex.GraphOutput
	for attempt := 0; ; attempt++ {
		out, err = o.graphRunner.Invoke(ctx, nodex.GraphInput{
			ThreadID: threadID,
			Text:     text,
		})
		if err == nil || !errors.Is(err, statex.ErrVersionConflict) || attempt >= maxConflictRetries {
			break
		}
		log.Warn().Str("thread_id", threadID).Int("attempt", attempt+1).Msg("state version conflict, retrying cycle")
	}
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Dur("duration", time.Since(start)).Msg("cycle failed")
		return contractx.CycleResult{}, err
	}

	log.Info().
		Str("thread_id", threadID).
		Str("intent", string(out.Intent)).
		Str("node", string(out.Node)).
		Bool("lead_captured", out.LeadCaptured).
		Dur("duration", time.Since(start)).
		Msg("cycle completed")
	return out, nil
}

// Conversation returns the persisted state of a thread.
func (o *Orchestrator) Conversation(ctx context.Context, threadID string) (*statex.ConversationState, error) {
	return o.store.Load(ctx, threadID)
}
