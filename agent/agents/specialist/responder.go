package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

type greeterImpl struct {
	runner textRunner
	brand  string
}

func newGreeter(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt, brand string) (*greeterImpl, error) {
	runner, err := compileConversationGraph(ctx, chatModel, systemPrompt, "specialist.greeting_graph")
	if err != nil {
		return nil, err
	}
	return &greeterImpl{runner: runner, brand: brand}, nil
}

func (g *greeterImpl) Respond(ctx context.Context, req contractx.ResponderRequest) (string, error) {
	if !hasUserTurn(req.History) {
		return "", fmt.Errorf("%w: greeting needs at least one user turn", contractx.ErrValidation)
	}
	return invokeText(ctx, g.runner, "greeting", map[string]any{"brand": g.brand}, req.History)
}

type enquirerImpl struct {
	runner textRunner
	brand  string
}

func newEnquirer(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt, brand string) (*enquirerImpl, error) {
	runner, err := compileConversationGraph(ctx, chatModel, systemPrompt, "specialist.enquiry_graph")
	if err != nil {
		return nil, err
	}
	return &enquirerImpl{runner: runner, brand: brand}, nil
}

// Answer is grounded on req.Context when req.Found; otherwise the prompt tells
// the model to admit it lacks the detail.
func (e *enquirerImpl) Answer(ctx context.Context, req contractx.EnquiryRequest) (string, error) {
	if len(req.History) == 0 {
		return "", fmt.Errorf("%w: enquiry needs history", contractx.ErrValidation)
	}
	found := req.Found && strings.TrimSpace(req.Context) != ""
	vars := map[string]any{
		"brand":   e.brand,
		"found":   found,
		"context": strings.TrimSpace(req.Context),
		"query":   req.Query,
	}
	return invokeText(ctx, e.runner, "enquiry", vars, req.History)
}

type leadAskerImpl struct {
	runner textRunner
	brand  string
}

func newLeadAsker(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt, brand string) (*leadAskerImpl, error) {
	runner, err := compileConversationGraph(ctx, chatModel, systemPrompt, "specialist.lead_ask_graph")
	if err != nil {
		return nil, err
	}
	return &leadAskerImpl{runner: runner, brand: brand}, nil
}

// Respond asks for all fields when none are known, otherwise only the missing ones.
func (a *leadAskerImpl) Respond(ctx context.Context, req contractx.ResponderRequest) (string, error) {
	missing := req.Lead.Missing()
	if len(missing) == 0 {
		missing = statex.LeadFields
	}
	vars := map[string]any{
		"brand":   a.brand,
		"missing": statex.HumanList(missing),
		"known":   knownFields(req.Lead),
	}
	return invokeText(ctx, a.runner, "lead_ask", vars, req.History)
}

func knownFields(lead statex.LeadData) string {
	parts := make([]string, 0, len(statex.LeadFields))
	for _, f := range statex.LeadFields {
		if v, ok := lead.Get(f); ok {
			parts = append(parts, f+": "+v)
		}
	}
	return strings.Join(parts, ", ")
}
