package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"contactless-ordering/internal/logger"
)

const maxConnectAttempts = 5

// Connection wraps RabbitMQ connection with reconnection logic
type Connection struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	logger   *logger.Logger
	url      string
	exchange string
}

// New connects to RabbitMQ and declares the notifications fanout exchange
func New(ctx context.Context, url, exchange string, log *logger.Logger) (*Connection, error) {
	conn := &Connection{
		logger:   log,
		url:      url,
		exchange: exchange,
	}

	if err := conn.connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}
	return conn, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Connection) connect(ctx context.Context) error {
	var err error

	for i := 0; i < maxConnectAttempts; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if err = c.setupTopology(); err == nil {
					return nil
				}
				c.logger.Error("rabbitmq_setup_failed", "startup", "Failed to set up topology", err)
				c.close()
			} else {
				c.conn.Close()
			}
		}

		if i < maxConnectAttempts-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed", "startup", "Failed to connect to RabbitMQ, retrying", err,
				zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxConnectAttempts, err)
}

// setupTopology declares the notifications exchange. Displays bind their own
// queues to it.
func (c *Connection) setupTopology() error {
	err := c.channel.ExchangeDeclare(
		c.exchange, // name
		"fanout",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", c.exchange, err)
	}
	return nil
}

// Channel returns a live channel, reconnecting if the connection dropped
func (c *Connection) Channel(ctx context.Context) (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		c.close()
		if err := c.connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to reconnect: %w", err)
		}
	}
	return c.channel, nil
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
