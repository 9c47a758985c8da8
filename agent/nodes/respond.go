package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

func Greet(ctx context.Context, in *GraphState, greeter contractx.Responder, timeout time.Duration) (*GraphState, error) {
	if err := requireConversation(in); err != nil {
		return nil, err
	}
	reply, err := callCapability(ctx, timeout, "greeting", func(ctx context.Context) (string, error) {
		return greeter.Respond(ctx, contractx.ResponderRequest{
			History: in.Conversation.Recent(0),
			Lead:    in.Conversation.Lead.Clone(),
		})
	})
	if err != nil {
		return nil, err
	}
	return appendReply(in, contractx.NodeGreeting, reply)
}

// AnswerEnquiry retrieves context for the latest user message and answers
// from it. An empty search is passed through as Found=false.
func AnswerEnquiry(
	ctx context.Context,
	in *GraphState,
	retriever contractx.Retriever,
	enquirer contractx.EnquiryResponder,
	topK int,
	timeout time.Duration,
) (*GraphState, error) {
	if err := requireConversation(in); err != nil {
		return nil, err
	}
	query, ok := in.Conversation.LastUserMessage()
	if !ok {
		return nil, fmt.Errorf("%w: enquiry needs a user message", contractx.ErrValidation)
	}
	if topK < 1 {
		topK = 1
	}

	type hit struct {
		passage string
		found   bool
	}
	res, err := callCapability(ctx, timeout, "retrieval", func(ctx context.Context) (hit, error) {
		passage, found, err := retriever.Search(ctx, query, topK)
		return hit{passage: passage, found: found}, err
	})
	if err != nil {
		return nil, err
	}

	reply, err := callCapability(ctx, timeout, "enquiry", func(ctx context.Context) (string, error) {
		return enquirer.Answer(ctx, contractx.EnquiryRequest{
			History: in.Conversation.Recent(0),
			Query:   query,
			Context: res.passage,
			Found:   res.found,
		})
	})
	if err != nil {
		return nil, err
	}
	return appendReply(in, contractx.NodeEnquiry, reply)
}

// AskForLead reads the pre-cycle lead so it asks only for what is missing.
func AskForLead(ctx context.Context, in *GraphState, asker contractx.Responder, timeout time.Duration) (*GraphState, error) {
	if err := requireConversation(in); err != nil {
		return nil, err
	}
	reply, err := callCapability(ctx, timeout, "lead_ask", func(ctx context.Context) (string, error) {
		return asker.Respond(ctx, contractx.ResponderRequest{
			History: in.Conversation.Recent(0),
			Lead:    in.LeadBefore.Clone(),
		})
	})
	if err != nil {
		return nil, err
	}
	return appendReply(in, contractx.NodeLeadAsk, reply)
}

func requireConversation(in *GraphState) error {
	if in == nil || in.Conversation == nil {
		return fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}
	return nil
}

func appendReply(in *GraphState, node contractx.NodeID, reply string) (*GraphState, error) {
	if err := in.Conversation.Append(statex.RoleAssistant, reply, in.Now); err != nil {
		return nil, fmt.Errorf("%w: %s reply: %v", contractx.ErrCapabilityUnavailable, node, err)
	}
	in.Node = node
	in.Reply = reply
	return in, nil
}
