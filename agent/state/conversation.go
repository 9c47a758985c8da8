package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationState is the persisted source of truth for one thread.
// - Messages is append-only; turns are never reordered or removed.
// - Lead is replaced wholesale by each extraction pass.
// - Version drives optimistic concurrency in every Store.
type ConversationState struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages"`
	Intent   string    `json:"intent,omitempty"`
	Lead     LeadData  `json:"lead_data"`
	Version  int64     `json:"version"`

	// LeadCapturedAt is set once, the first time Lead becomes complete.
	// Later extractions may clear Lead but never the marker.
	LeadCapturedAt *time.Time `json:"lead_captured_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrEmptyContent = errors.New("message content is empty")
	ErrInvalidRole  = errors.New("invalid message role")
)

func NewConversationState(threadID string, now time.Time) *ConversationState {
	return &ConversationState{
		ThreadID:  threadID,
		Messages:  make([]Message, 0, 8),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *ConversationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// MarkLeadCaptured stamps LeadCapturedAt when the lead is complete and the
// thread was never captured before. It reports whether it stamped.
func (s *ConversationState) MarkLeadCaptured(now time.Time) bool {
	if s == nil || s.LeadCapturedAt != nil || !s.Lead.Complete() {
		return false
	}
	at := now.UTC()
	s.LeadCapturedAt = &at
	return true
}

func (s *ConversationState) LeadCaptured() bool {
	return s != nil && s.LeadCapturedAt != nil
}

// Append adds one turn at the end of the log.
func (s *ConversationState) Append(role Role, content string, now time.Time) error {
	if s == nil {
		return ErrNilState
	}
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: now.UTC(),
	})
	return nil
}

// Recent returns the last n messages, or all of them when n <= 0.
func (s *ConversationState) Recent(n int) []Message {
	if s == nil {
		return nil
	}
	if n <= 0 || n >= len(s.Messages) {
		return append([]Message(nil), s.Messages...)
	}
	return append([]Message(nil), s.Messages[len(s.Messages)-n:]...)
}

func (s *ConversationState) LastUserMessage() (string, bool) {
	if s == nil {
		return "", false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content, true
		}
	}
	return "", false
}

func (s *ConversationState) LastAssistantMessage() (string, bool) {
	if s == nil {
		return "", false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content, true
		}
	}
	return "", false
}

// Clone returns a deep copy so a cycle can work on state without touching
// what the store handed out.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Lead = s.Lead.Clone()
	if s.LeadCapturedAt != nil {
		at := *s.LeadCapturedAt
		out.LeadCapturedAt = &at
	}
	return &out
}

// Extends reports whether s begins with every message of prev, in order.
func (s *ConversationState) Extends(prev *ConversationState) bool {
	if prev == nil {
		return true
	}
	if s == nil || len(s.Messages) < len(prev.Messages) {
		return false
	}
	for i, m := range prev.Messages {
		got := s.Messages[i]
		if got.Role != m.Role || got.Content != m.Content {
			return false
		}
	}
	return true
}

func (s *ConversationState) Validate() error {
	if s == nil {
		return ErrNilState
	}
	if strings.TrimSpace(s.ThreadID) == "" {
		return ErrInvalidThread
	}
	if s.Version < 0 {
		return fmt.Errorf("negative version %d", s.Version)
	}
	for i, m := range s.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidRole, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d", ErrEmptyContent, i)
		}
	}
	return nil
}
