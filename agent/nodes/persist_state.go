package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

// PersistState is the single write of a cycle.
func PersistState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if err := requireConversation(in); err != nil {
		return nil, err
	}
	if !in.Conversation.Extends(in.Prev) {
		return nil, fmt.Errorf("%w: cycle rewrote message history", contractx.ErrValidation)
	}

	in.Conversation.Intent = string(in.Intent)
	in.Conversation.Touch(in.Now)
	if err := store.Save(ctx, in.Conversation); err != nil {
		return nil, fmt.Errorf("%w: save state: %w", contractx.ErrStateStore, err)
	}
	return in, nil
}
