package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

var (
	ErrInvalidMessage = fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	ErrInvalidThread  = fmt.Errorf("%w: thread id is empty", contractx.ErrValidation)
)

type GraphInput struct {
	ThreadID string
	Text     string
}

type GraphOutput = contractx.CycleResult

// GraphState travels through every node of one cycle. Conversation is a
// working copy; nothing reaches the store until PersistState.
type GraphState struct {
	ThreadID string
	Text     string
	Now      time.Time

	Prev         *statex.ConversationState
	Conversation *statex.ConversationState
	LeadBefore   statex.LeadData

	Intent contractx.Intent
	Node   contractx.NodeID
	Reply  string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	threadID := strings.TrimSpace(in.ThreadID)
	if threadID == "" {
		return nil, ErrInvalidThread
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ThreadID: threadID,
		Text:     text,
		Now:      nowFn().UTC(),
	}, nil
}
