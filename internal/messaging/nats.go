package messaging

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"contactless-ordering/internal/models"
)

// NATSPublisher publishes staff notifications on a NATS subject
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at url
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("contactless-ordering"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Name identifies the sink in logs and metrics
func (p *NATSPublisher) Name() string { return "nats" }

// Publish sends one notification on the configured subject
func (p *NATSPublisher) Publish(_ context.Context, msg *models.NotificationMessage) error {
	body, err := encode(msg)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, body); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Close drains pending publishes and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
