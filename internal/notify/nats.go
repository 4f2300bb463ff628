package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/spec-kit/ticket-routing/internal/config"
)

const notifyStreamMaxAge = 24 * time.Hour

// message is the wire payload published per notification.
type message struct {
	Recipients []string       `json:"recipients"`
	Template   string         `json:"template"`
	Variables  map[string]any `json:"variables,omitempty"`
	SentAt     time.Time      `json:"sent_at"`
}

// NATSNotifier publishes notifications onto a JetStream stream for an
// external delivery worker to drain.
type NATSNotifier struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
}

// NewNATSNotifier connects and ensures the notification stream exists.
func NewNATSNotifier(cfg config.NATSConfig) (*NATSNotifier, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open jetstream: %w", err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject},
		MaxAge:   notifyStreamMaxAge,
		Storage:  nats.FileStorage,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		nc.Close()
		return nil, fmt.Errorf("ensure notify stream: %w", err)
	}
	return &NATSNotifier{nc: nc, js: js, subject: cfg.Subject}, nil
}

// Send publishes one notification message.
func (n *NATSNotifier) Send(ctx context.Context, recipients []string, template string, variables map[string]any) error {
	body, err := json.Marshal(message{
		Recipients: recipients,
		Template:   template,
		Variables:  variables,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if _, err := n.js.Publish(n.subject, body, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n == nil || n.nc == nil {
		return nil
	}
	n.nc.Close()
	return nil
}
