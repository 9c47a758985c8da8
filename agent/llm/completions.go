package llm

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	openrouterx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/openrouter"
)

var _ einomodel.BaseChatModel = (*CompletionsModel)(nil)

var ErrStreamUnsupported = errors.New("completions model does not stream")

// CompletionsModel calls the chat completions endpoint through openai-go and
// exposes it as an eino chat model.
type CompletionsModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   *int
}

func NewCompletionsModel(cfg openrouterx.Config) (*CompletionsModel, error) {
	client := openrouterx.NewClient(cfg)
	if client == nil {
		return nil, errors.New("llm: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	return &CompletionsModel{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionToken,
	}, nil
}

func (m *CompletionsModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	temp := m.temperature
	o := einomodel.GetCommonOptions(&einomodel.Options{
		Model:       &m.model,
		Temperature: &temp,
		MaxTokens:   m.maxTokens,
	}, opts...)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case schema.Assistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	if len(messages) == 0 {
		return nil, errors.New("llm: empty prompt")
	}

	params := openai.ChatCompletionNewParams{
		Model:    *o.Model,
		Messages: messages,
	}
	if o.Temperature != nil {
		params.Temperature = openai.Float(float64(*o.Temperature))
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(*o.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion: no choices returned")
	}

	choice := resp.Choices[0]
	return &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(choice.FinishReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		},
	}, nil
}

func (m *CompletionsModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, ErrStreamUnsupported
}
