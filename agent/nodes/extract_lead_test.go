package orchestratornode

import (
	"context"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

type stubExtractor string

func (s stubExtractor) Extract(context.Context, []contractx.Message) (string, error) {
	return string(s), nil
}

func newWorkingState(t *testing.T, texts ...string) *GraphState {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conv := statex.NewConversationState("t1", now)
	for _, text := range texts {
		if err := conv.Append(statex.RoleUser, text, now); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return &GraphState{ThreadID: "t1", Now: now, Conversation: conv}
}

func TestLeadReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lead statex.LeadData
		want string
	}{
		{statex.NewLeadData("a", "b", "c"), "Successfully signed-up! Welcome to AutoStream."},
		{statex.NewLeadData("John", "", ""), "Could you please provide your contact and platform to complete the signup?"},
		{statex.NewLeadData("John", "", "YouTube"), "Could you please provide your contact to complete the signup?"},
		{statex.LeadData{}, "Could you please provide your name, contact and platform to complete the signup?"},
	}
	for _, tt := range tests {
		if got := LeadReply(tt.lead, "AutoStream"); got != tt.want {
			t.Fatalf("LeadReply(%v) = %q, want %q", tt.lead.Map(), got, tt.want)
		}
	}
}

func TestExtractLeadMalformedIsDeterministic(t *testing.T) {
	t.Parallel()

	for i := 0; i < 3; i++ {
		in := newWorkingState(t, "I'm John")
		in.Conversation.Lead = statex.NewLeadData("Old", "", "")

		out, err := ExtractLead(context.Background(), in, stubExtractor("no json here"), "AutoStream", time.Second)
		if err != nil {
			t.Fatalf("ExtractLead() error = %v", err)
		}
		if !out.Conversation.Lead.Empty() {
			t.Fatalf("lead = %v, want all null", out.Conversation.Lead.Map())
		}
		if len(out.Conversation.Messages) != 2 || out.Node != contractx.NodeLeadExtract {
			t.Fatalf("messages=%d node=%s", len(out.Conversation.Messages), out.Node)
		}
	}
}

func TestPersistStateRejectsRewrittenHistory(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	in := newWorkingState(t, "hi")
	in.Prev = in.Conversation.Clone()
	in.Conversation.Messages[0].Content = "edited"

	if _, err := PersistState(context.Background(), in, store); err == nil {
		t.Fatal("expected error for rewritten history")
	}
	if store.Len() != 0 {
		t.Fatal("state persisted despite rewritten history")
	}
}
