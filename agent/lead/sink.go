// Package lead delivers completed leads to their destinations.
package lead

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
)

// MultiSink forwards a lead to every sink and joins their errors.
type MultiSink []contractx.LeadSink

func (m MultiSink) Capture(ctx context.Context, rec contractx.LeadRecord) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Capture(ctx, rec); err != nil {
			log.Error().Err(err).Str("thread_id", rec.ThreadID).Msg("lead sink failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink only logs the lead. Used when no other sink is configured.
type LogSink struct{}

func (LogSink) Capture(_ context.Context, rec contractx.LeadRecord) error {
	ev := log.Info().Str("thread_id", rec.ThreadID)
	for k, v := range rec.Lead.Map() {
		if s, ok := v.(string); ok {
			ev = ev.Str(k, s)
		}
	}
	ev.Msg("lead captured")
	return nil
}
