package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, label := range []string{"greeting", "product_inquiry", "high_intent_lead", "lead_extraction"} {
		if !strings.Contains(set.Classifier, label) {
			t.Fatalf("classifier prompt missing label %q", label)
		}
	}
	if !strings.Contains(set.Enquiry, "{{if .found}}") {
		t.Fatal("enquiry prompt must branch on retrieval result")
	}
	if !strings.Contains(set.LeadAsk, "{{.missing}}") {
		t.Fatal("lead ask prompt must reference missing fields")
	}
}
