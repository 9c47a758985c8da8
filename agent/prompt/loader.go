package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/greeting.txt
	greetingRaw string

	//go:embed template/enquiry.txt
	enquiryRaw string

	//go:embed template/lead_ask.txt
	leadAskRaw string

	//go:embed template/lead_extract.txt
	leadExtractRaw string
)

// PromptSet holds the system prompt templates. They are Go templates rendered
// by the specialist graphs.
type PromptSet struct {
	Classifier  string
	Greeting    string
	Enquiry     string
	LeadAsk     string
	LeadExtract string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier:  strings.TrimSpace(classifierRaw),
		Greeting:    strings.TrimSpace(greetingRaw),
		Enquiry:     strings.TrimSpace(enquiryRaw),
		LeadAsk:     strings.TrimSpace(leadAskRaw),
		LeadExtract: strings.TrimSpace(leadExtractRaw),
	}
}

func (p PromptSet) Validate() error {
	for name, body := range map[string]string{
		"classifier":   p.Classifier,
		"greeting":     p.Greeting,
		"enquiry":      p.Enquiry,
		"lead_ask":     p.LeadAsk,
		"lead_extract": p.LeadExtract,
	} {
		if body == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}
