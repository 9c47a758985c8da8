package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
)

type classifierImpl struct {
	runner textRunner
	brand  string
	window int
}

func newClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt, brand string, window int) (*classifierImpl, error) {
	runner, err := compileConversationGraph(ctx, chatModel, systemPrompt, "specialist.classifier_graph")
	if err != nil {
		return nil, err
	}
	return &classifierImpl{runner: runner, brand: brand, window: window}, nil
}

// Classify always resolves to one of the fixed intents. Unrecognized model
// output falls back to DefaultIntent.
func (c *classifierImpl) Classify(ctx context.Context, history []contractx.Message) (contractx.Intent, error) {
	if !hasUserTurn(history) {
		return "", fmt.Errorf("%w: classifier needs at least one user turn", contractx.ErrValidation)
	}
	if c.window > 0 && len(history) > c.window {
		history = history[len(history)-c.window:]
	}

	raw, err := invokeText(ctx, c.runner, "classifier", map[string]any{"brand": c.brand}, history)
	if err != nil {
		return "", err
	}

	intent, ok := NormalizeIntent(raw)
	if !ok {
		log.Warn().
			Err(contractx.ErrClassificationFormat).
			Str("raw", truncate(raw, 120)).
			Str("fallback", string(intent)).
			Msg("classifier output did not match a known intent")
	}
	return intent, nil
}

// NormalizeIntent maps raw model output onto the fixed label set. ok is false
// when the fallback was used.
func NormalizeIntent(raw string) (contractx.Intent, bool) {
	s := strings.TrimSpace(raw)
	// Peel quotes and trailing periods in any nesting, e.g. `"label".`.
	for {
		next := strings.TrimSpace(strings.Trim(strings.TrimRight(s, "."), "\"'`"))
		if next == s {
			break
		}
		s = next
	}
	s = strings.ToLower(s)

	for _, intent := range contractx.Intents {
		if s == string(intent) {
			return intent, true
		}
	}
	return contractx.DefaultIntent, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
