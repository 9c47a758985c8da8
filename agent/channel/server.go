// Package channel exposes conversation cycles over HTTP.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/audit"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/metrics"
)

const apologyReply = "Sorry, I'm having trouble processing that right now."

// Cycles runs one conversation cycle. Implemented by the orchestrator.
type Cycles interface {
	HandleMessage(ctx context.Context, threadID string, text string) (contractx.CycleResult, error)
}

// Conversations reads a thread's persisted state.
type Conversations interface {
	Conversation(ctx context.Context, threadID string) (*statex.ConversationState, error)
}

// Auditor records transcript rows.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

type Options struct {
	Leads    contractx.LeadSink
	Audit    Auditor
	Outbound contractx.Outbound
	Metrics  *metrics.Metrics
	// Conversations enables GET /v1/threads/{id} when set.
	Conversations Conversations
}

type Server struct {
	cycles        Cycles
	leads         contractx.LeadSink
	audit         Auditor
	outbound      contractx.Outbound
	metrics       *metrics.Metrics
	conversations Conversations

	newThreadID func() string
	now         func() time.Time
}

func NewServer(cycles Cycles, opts Options) (*Server, error) {
	if cycles == nil {
		return nil, errors.New("cycle handler is required")
	}
	s := &Server{
		cycles:        cycles,
		leads:         opts.Leads,
		audit:         opts.Audit,
		outbound:      opts.Outbound,
		metrics:       opts.Metrics,
		conversations: opts.Conversations,
		newThreadID:   uuid.NewString,
		now:           time.Now,
	}
	if s.outbound == nil {
		s.outbound = LogOutbound{}
	}
	return s, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Post("/chat", s.handleChat)
	r.Post("/webhook", s.handleWebhook)
	if s.conversations != nil {
		r.Get("/v1/threads/{id}", s.handleGetThread)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	st, err := s.conversations.Conversation(r.Context(), id)
	switch {
	case errors.Is(err, statex.ErrStateNotFound), errors.Is(err, statex.ErrInvalidThread):
		respondError(w, http.StatusNotFound, "thread_not_found", "thread not found")
		return
	case err != nil:
		log.Error().Err(err).Str("thread_id", id).Msg("load thread failed")
		respondError(w, http.StatusInternalServerError, "state_store", "could not load thread")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// runCycle executes a cycle and does the bookkeeping shared by every
// channel: metrics and lead delivery on the capture transition.
func (s *Server) runCycle(ctx context.Context, channel, threadID, text string, meta map[string]string) (contractx.CycleResult, error) {
	start := s.now()
	res, err := s.cycles.HandleMessage(ctx, threadID, text)
	if s.metrics != nil {
		s.metrics.ObserveCycle(channel, string(res.Intent), outcome(err), time.Since(start))
	}
	if err != nil {
		return res, err
	}

	if res.LeadTransitioned && s.leads != nil {
		if s.metrics != nil {
			s.metrics.LeadsCaptured.WithLabelValues(channel).Inc()
		}
		rec := contractx.LeadRecord{
			ThreadID:   res.ThreadID,
			Lead:       res.Lead.Clone(),
			Metadata:   meta,
			CapturedAt: s.now(),
		}
		if err := s.leads.Capture(ctx, rec); err != nil {
			log.Error().Err(err).Str("thread_id", res.ThreadID).Msg("lead capture failed")
		} else {
			log.Info().Str("thread_id", res.ThreadID).Str("channel", channel).Msg("lead captured")
		}
	}
	return res, nil
}

func (s *Server) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if e.At.IsZero() {
		e.At = s.now()
	}
	if err := s.audit.Record(ctx, e); err != nil {
		log.Warn().Err(err).Str("thread_id", e.Thread).Msg("audit write failed")
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, contractx.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, contractx.ErrCapabilityUnavailable):
		return metrics.OutcomeCapability
	case errors.Is(err, contractx.ErrStateStore):
		return metrics.OutcomeStateStore
	case errors.Is(err, orchestrator.ErrThreadBusy):
		return metrics.OutcomeThreadBusy
	default:
		return metrics.OutcomeInternalErr
	}
}

var (
	markupRun  = regexp.MustCompile(`[*\t]+`)
	messageRun = regexp.MustCompile(`[*\n\t]+`)
)

// cleanReply replaces runs of emphasis markers and tabs with one space.
func cleanReply(s string) string {
	return strings.TrimSpace(markupRun.ReplaceAllString(s, " "))
}

// cleanMessage also flattens newlines for messaging channels.
func cleanMessage(s string) string {
	return strings.TrimSpace(messageRun.ReplaceAllString(s, " "))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
