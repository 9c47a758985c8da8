package channel

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/audit"
)

const (
	webhookChannel     = "webhook"
	defaultProfileName = "User"
)

// handleWebhook serves messaging-provider callbacks (form fields Body, From
// and ProfileName). The sender address is the thread id and the reply goes
// out through the Outbound rather than the HTTP response.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_form", "could not parse form body")
		return
	}
	body := strings.TrimSpace(r.PostForm.Get("Body"))
	from := strings.TrimSpace(r.PostForm.Get("From"))
	profile := strings.TrimSpace(r.PostForm.Get("ProfileName"))
	if profile == "" {
		profile = defaultProfileName
	}
	if from == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "From is required")
		return
	}

	ctx := r.Context()
	log.Info().Str("thread_id", from).Str("profile_name", profile).Msg("inbound message")
	s.record(ctx, audit.Entry{Thread: from, Sender: audit.SenderUser, Message: body})

	res, err := s.runCycle(ctx, webhookChannel, from, body, map[string]string{
		"sender_number": from,
		"profile_name":  profile,
	})
	if err != nil {
		log.Error().Err(err).Str("thread_id", from).Msg("webhook cycle failed")
		s.deliver(ctx, from, apologyReply)
		respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
		return
	}

	reply := cleanMessage(res.Reply)
	s.deliver(ctx, from, reply)
	s.record(ctx, audit.Entry{
		Thread:       from,
		Sender:       audit.SenderBot,
		Message:      reply,
		Details:      audit.LeadDetails(res.Lead),
		LeadCaptured: res.LeadCaptured,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) deliver(ctx context.Context, to, body string) {
	err := s.outbound.Deliver(ctx, to, body)
	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.metrics.Deliveries.WithLabelValues(result).Inc()
	}
	if err != nil {
		log.Error().Err(err).Str("to", to).Msg("reply delivery failed")
	}
}
