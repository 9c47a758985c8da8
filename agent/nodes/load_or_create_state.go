package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

// LoadOrCreateState reads the thread, creating it lazily on first message, and
// appends the inbound user turn to a working copy.
func LoadOrCreateState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	prev, err := store.Load(ctx, in.ThreadID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrStateNotFound):
		prev = nil
	default:
		return nil, fmt.Errorf("%w: load state: %w", contractx.ErrStateStore, err)
	}

	working := prev.Clone()
	if working == nil {
		working = statex.NewConversationState(in.ThreadID, in.Now)
	}
	if err := working.Append(statex.RoleUser, in.Text, in.Now); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}

	in.Prev = prev
	in.Conversation = working
	in.LeadBefore = working.Lead.Clone()
	return in, nil
}
