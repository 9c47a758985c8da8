package orchestratornode

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
)

func ClassifyIntent(ctx context.Context, in *GraphState, classifier contractx.Classifier, timeout time.Duration) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	intent, err := callCapability(ctx, timeout, "classifier", func(ctx context.Context) (contractx.Intent, error) {
		return classifier.Classify(ctx, in.Conversation.Messages)
	})
	if err != nil {
		return nil, err
	}
	if !slices.Contains(contractx.Intents, intent) {
		log.Warn().
			Err(contractx.ErrClassificationFormat).
			Str("thread_id", in.ThreadID).
			Str("intent", string(intent)).
			Msg("unknown intent, using default")
		intent = contractx.DefaultIntent
	}

	in.Intent = intent
	in.Node = Route(intent)
	return in, nil
}
