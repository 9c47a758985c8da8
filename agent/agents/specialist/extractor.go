package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
)

type extractorImpl struct {
	runner textRunner
	brand  string
}

func newExtractor(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt, brand string) (*extractorImpl, error) {
	runner, err := compileConversationGraph(ctx, chatModel, systemPrompt, "specialist.lead_extract_graph")
	if err != nil {
		return nil, err
	}
	return &extractorImpl{runner: runner, brand: brand}, nil
}

// Extract runs over the complete history and returns the model's raw record.
func (x *extractorImpl) Extract(ctx context.Context, history []contractx.Message) (string, error) {
	if !hasUserTurn(history) {
		return "", fmt.Errorf("%w: extraction needs at least one user turn", contractx.ErrValidation)
	}
	return invokeText(ctx, x.runner, "lead_extract", map[string]any{"brand": x.brand}, history)
}
