package contract

import (
	"time"

	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

type Role = statex.Role

const (
	RoleUser      = statex.RoleUser
	RoleAssistant = statex.RoleAssistant
)

type Message = statex.Message

// AgentType selects the model settings a capability runs with.
type AgentType string

const (
	AgentTypeClassifier AgentType = "classifier"
	AgentTypeResponder  AgentType = "responder"
	AgentTypeExtractor  AgentType = "extractor"
)

// Intent is the fixed classification label set.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentProductInquiry Intent = "product_inquiry"
	IntentHighIntentLead Intent = "high_intent_lead"
	IntentLeadExtraction Intent = "lead_extraction"

	// DefaultIntent is used whenever classifier output matches no label.
	DefaultIntent = IntentProductInquiry
)

// Intents lists every label in prompt order.
var Intents = []Intent{
	IntentGreeting,
	IntentProductInquiry,
	IntentHighIntentLead,
	IntentLeadExtraction,
}

// NodeID names a response node the router can select.
type NodeID string

const (
	NodeGreeting    NodeID = "greeting"
	NodeEnquiry     NodeID = "enquiry"
	NodeLeadAsk     NodeID = "lead_ask"
	NodeLeadExtract NodeID = "lead_extract"
)

type ResponderRequest struct {
	History []Message      `json:"history"`
	Lead    statex.LeadData `json:"lead"`
}

type EnquiryRequest struct {
	History []Message `json:"history"`
	Query   string    `json:"query"`
	Context string    `json:"context"`
	Found   bool      `json:"found"`
}

// CycleResult is what one orchestrator cycle hands back to its caller.
type CycleResult struct {
	ThreadID         string          `json:"thread_id"`
	Reply            string          `json:"reply"`
	Intent           Intent          `json:"intent"`
	Node             NodeID          `json:"node"`
	Lead             statex.LeadData `json:"lead_data"`
	LeadCaptured     bool            `json:"lead_captured"`
	LeadTransitioned bool            `json:"lead_transitioned"`
}

// LeadRecord is a completed lead plus caller-supplied channel metadata.
type LeadRecord struct {
	ThreadID   string            `json:"thread_id"`
	Lead       statex.LeadData   `json:"lead"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CapturedAt time.Time         `json:"captured_at"`
}
