package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if err := requireConversation(in); err != nil {
		return GraphOutput{}, err
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: node produced no reply", contractx.ErrValidation)
	}

	lead := in.Conversation.Lead.Clone()
	captured := lead.Complete()
	// A thread transitions at most once, even if a later extraction cleared
	// the lead and a newer one completed it again.
	transitioned := captured && !in.LeadBefore.Complete() && !in.Prev.LeadCaptured()
	return GraphOutput{
		ThreadID:         in.ThreadID,
		Reply:            reply,
		Intent:           in.Intent,
		Node:             in.Node,
		Lead:             lead,
		LeadCaptured:     captured,
		LeadTransitioned: transitioned,
	}, nil
}
