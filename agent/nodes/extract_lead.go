package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

// ExtractLead re-derives the lead from the full history and replaces
// lead_data with the result. A malformed record becomes the all-null record.
func ExtractLead(ctx context.Context, in *GraphState, extractor contractx.Extractor, brand string, timeout time.Duration) (*GraphState, error) {
	if err := requireConversation(in); err != nil {
		return nil, err
	}

	raw, err := callCapability(ctx, timeout, "lead_extract", func(ctx context.Context) (string, error) {
		return extractor.Extract(ctx, in.Conversation.Recent(0))
	})
	if err != nil {
		return nil, err
	}

	lead, perr := statex.ParseLeadRecord(raw)
	if perr != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %v", contractx.ErrExtractionParse, perr)).
			Str("thread_id", in.ThreadID).
			Int("raw_len", len(raw)).
			Msg("lead extraction fell back to empty record")
		lead = statex.LeadData{}
	}

	in.Conversation.Lead = lead
	in.Conversation.MarkLeadCaptured(in.Now)
	return appendReply(in, contractx.NodeLeadExtract, LeadReply(lead, brand))
}

// LeadReply is the fixed message after an extraction pass.
func LeadReply(lead statex.LeadData, brand string) string {
	if lead.Complete() {
		return fmt.Sprintf("Successfully signed-up! Welcome to %s.", brand)
	}
	return fmt.Sprintf("Could you please provide your %s to complete the signup?", statex.HumanList(lead.Missing()))
}
