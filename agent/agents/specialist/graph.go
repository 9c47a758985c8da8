package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
)

const historyKey = "history"

type textRunner = compose.Runnable[map[string]any, *schema.Message]

// compileConversationGraph renders the system prompt as a Go template, appends
// the conversation history and calls the model.
func compileConversationGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (textRunner, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: %s: chat model is nil", contractx.ErrValidation, graphName)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: %s", contractx.ErrPromptMissing, graphName)
	}

	template := einoprompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder(historyKey, false),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}

// invokeText runs a conversation graph and returns the trimmed reply. Any
// failure, including an empty reply, is a capability failure.
func invokeText(ctx context.Context, runner textRunner, name string, vars map[string]any, history []contractx.Message) (string, error) {
	in := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		in[k] = v
	}
	in[historyKey] = toSchemaMessages(history)

	out, err := runner.Invoke(ctx, in)
	if err != nil {
		return "", fmt.Errorf("%w: %s invoke: %v", contractx.ErrCapabilityUnavailable, name, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", fmt.Errorf("%w: %s returned an empty reply", contractx.ErrCapabilityUnavailable, name)
	}
	return strings.TrimSpace(out.Content), nil
}

func toSchemaMessages(history []contractx.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case contractx.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func hasUserTurn(history []contractx.Message) bool {
	for _, m := range history {
		if m.Role == contractx.RoleUser && strings.TrimSpace(m.Content) != "" {
			return true
		}
	}
	return false
}
