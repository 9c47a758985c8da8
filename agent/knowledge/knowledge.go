package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	CategoryPlans    = "plans"
	CategoryPolicies = "policies"
)

// Base is the product corpus: plans plus policies.
type Base struct {
	Plans    []Plan   `json:"plans"`
	Policies Policies `json:"policies"`
}

type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Cost     Text     `json:"cost"`
	Limits   Limits   `json:"limits"`
	Support  string   `json:"support"`
	Features []string `json:"features,omitempty"`
}

type Limits struct {
	Resolution     Text `json:"resolution"`
	VideosPerMonth Text `json:"videos_per_month"`
}

type Policies struct {
	Refunds            string `json:"refunds"`
	SupportEligibility string `json:"support_eligibility"`
}

// Text accepts a JSON string or number.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("knowledge: expected string or number, got %s", b)
	}
	*t = Text(b)
	return nil
}

// Document is one retrievable chunk of the corpus.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
}

func Load(path string) (Base, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Base{}, fmt.Errorf("read knowledge base: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Base, error) {
	var b Base
	if err := json.Unmarshal(raw, &b); err != nil {
		return Base{}, fmt.Errorf("decode knowledge base: %w", err)
	}
	if len(b.Plans) == 0 {
		return Base{}, errors.New("knowledge base has no plans")
	}
	return b, nil
}

// Documents yields one document per plan followed by one per policy.
func (b Base) Documents() []Document {
	docs := make([]Document, 0, len(b.Plans)+2)
	for _, p := range b.Plans {
		lines := []string{
			"Plan Name: " + p.Name,
			"Price: " + string(p.Cost),
			"Resolution: " + string(p.Limits.Resolution),
			"Video Limit: " + string(p.Limits.VideosPerMonth),
			"Support Level: " + p.Support,
		}
		if len(p.Features) > 0 {
			lines = append(lines, "Features: "+strings.Join(p.Features, ", "))
		}
		docs = append(docs, Document{
			ID:       "plan:" + p.ID,
			Content:  strings.Join(lines, "\n"),
			Metadata: map[string]any{"category": CategoryPlans, "plan": p.ID},
		})
	}

	if v := strings.TrimSpace(b.Policies.Refunds); v != "" {
		docs = append(docs, Document{
			ID:       "policy:refunds",
			Content:  "Refund Policy: " + v,
			Metadata: map[string]any{"category": CategoryPolicies, "type": "refunds"},
		})
	}
	if v := strings.TrimSpace(b.Policies.SupportEligibility); v != "" {
		docs = append(docs, Document{
			ID:       "policy:support",
			Content:  "Support Policy: " + v,
			Metadata: map[string]any{"category": CategoryPolicies, "type": "support"},
		})
	}
	return docs
}
