package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"contactless-ordering/internal/logger"
	"contactless-ordering/internal/models"
)

const publishTimeout = 10 * time.Second

// Publisher fans staff notifications out to a RabbitMQ exchange
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new notification publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// Name identifies the sink in logs and metrics
func (p *Publisher) Name() string { return "rabbitmq" }

// Publish sends one notification to the fanout exchange
func (p *Publisher) Publish(ctx context.Context, msg *models.NotificationMessage) error {
	body, err := encode(msg)
	if err != nil {
		return err
	}

	channel, err := p.conn.Channel(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		p.conn.exchange, // exchange
		"",              // routing key (ignored for fanout)
		false,           // mandatory
		false,           // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Transient,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	p.logger.Debug("message_published", "", "Published notification",
		zap.String("exchange", p.conn.exchange), zap.Int("message_size", len(body)))
	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	return p.conn.Close()
}

func encode(msg *models.NotificationMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return body, nil
}
