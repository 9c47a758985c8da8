package channel

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

const chatChannel = "chat"

type chatRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id,omitempty"`
}

type chatResponse struct {
	Response     string           `json:"response"`
	ThreadID     string           `json:"thread_id"`
	LeadCaptured bool             `json:"lead_captured"`
	LeadData     *statex.LeadData `json:"lead_data,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "request body must be a JSON object with a query")
		return
	}
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = s.newThreadID()
	}

	res, err := s.runCycle(r.Context(), chatChannel, threadID, req.Query, map[string]string{"channel": chatChannel})
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		log.Error().Err(err).Str("thread_id", threadID).Msg("chat cycle failed")
		respondError(w, http.StatusInternalServerError, "cycle_failed", apologyReply)
		return
	}

	out := chatResponse{
		Response:     cleanReply(res.Reply),
		ThreadID:     res.ThreadID,
		LeadCaptured: res.LeadCaptured,
	}
	if res.LeadCaptured {
		lead := res.Lead.Clone()
		out.LeadData = &lead
	}
	respondJSON(w, http.StatusOK, out)
}
