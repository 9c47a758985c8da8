package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Publisher enqueues a payload for delivery to a URL.
type Publisher interface {
	Publish(ctx context.Context, destination string, body []byte, forward map[string]string) (string, error)
}

type outboundMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// QStashOutbound hands replies to a message queue that forwards them to the
// messaging provider's send endpoint.
type QStashOutbound struct {
	publisher   Publisher
	destination string
}

func NewQStashOutbound(p Publisher, destination string) (*QStashOutbound, error) {
	if p == nil {
		return nil, errors.New("publisher is required")
	}
	if destination == "" {
		return nil, errors.New("outbound destination is required")
	}
	return &QStashOutbound{publisher: p, destination: destination}, nil
}

func (o *QStashOutbound) Deliver(ctx context.Context, to string, body string) error {
	payload, err := json.Marshal(outboundMessage{To: to, Body: body})
	if err != nil {
		return err
	}
	id, err := o.publisher.Publish(ctx, o.destination, payload, map[string]string{"To": to})
	if err != nil {
		return fmt.Errorf("publish reply: %w", err)
	}
	log.Debug().Str("to", to).Str("message_id", id).Msg("reply queued")
	return nil
}

// LogOutbound writes replies to the log only.
type LogOutbound struct{}

func (LogOutbound) Deliver(_ context.Context, to string, body string) error {
	log.Info().Str("to", to).Str("body", body).Msg("outbound reply")
	return nil
}
