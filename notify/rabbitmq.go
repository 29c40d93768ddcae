package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// EventPublisher publishes notifications to RabbitMQ topic exchanges.
type EventPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *slog.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventPublisher connects to RabbitMQ with a bounded dial timeout so
// startup does not hang indefinitely.
func NewEventPublisher(amqpURL string, logger *slog.Logger) (*EventPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{conn: conn, channel: ch, logger: logger}, nil
}

// Publish sends a message to a durable topic exchange, with the subject as
// the routing key.
func (p *EventPublisher) Publish(ctx context.Context, topic, subject, message string) error {
	if err := p.channel.ExchangeDeclare(
		topic, // name
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		// Attempt a simple channel reopen once before giving up.
		p.logger.Warn("exchange declare failed; reopening channel", "topic", topic, "error", err)
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return err
		}
		p.channel = ch
		if err := p.channel.ExchangeDeclare(topic, "topic", true, false, false, false, nil); err != nil {
			return err
		}
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.channel.PublishWithContext(pubCtx,
		topic,   // exchange
		subject, // routing key
		false,   // mandatory
		false,   // immediate
		amqp091.Publishing{
			ContentType:  "text/plain",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         []byte(message),
		},
	)
}

// Close shuts down the channel and connection.
func (p *EventPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
