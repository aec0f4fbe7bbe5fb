package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/septivank/energy-insight-engine/internal/engine"
	"github.com/septivank/energy-insight-engine/internal/service"
	"go.uber.org/zap"
)

// Routing keys on the events exchange
const (
	RoutingKeyNotificationPrefix = "notification."
	RoutingKeyDeviceRemoved      = "device.removed"
	RoutingKeyReadingProcessed   = "reading.processed"
)

// channel is the subset of *amqp.Channel used for publishing
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher handles event publishing to RabbitMQ
type Publisher struct {
	channel  channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return newPublisher(ch, exchange, logger), nil
}

func newPublisher(ch channel, exchange string, logger *zap.Logger) *Publisher {
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}
}

// PublishNotification publishes a credit notification event
func (p *Publisher) PublishNotification(ctx context.Context, event engine.NotificationEvent) error {
	return p.publish(ctx, RoutingKeyNotificationPrefix+event.Type, event.EventID, event)
}

// PublishDeviceRemoved publishes a device removal event
func (p *Publisher) PublishDeviceRemoved(ctx context.Context, event engine.DeviceRemovedEvent) error {
	return p.publish(ctx, RoutingKeyDeviceRemoved, event.EventID, event)
}

// PublishReadingProcessed publishes a stored reading event
func (p *Publisher) PublishReadingProcessed(ctx context.Context, event service.ProcessedEvent) error {
	return p.publish(ctx, RoutingKeyReadingProcessed, "", event)
}

func (p *Publisher) publish(ctx context.Context, routingKey, messageID string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    messageID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published event",
		zap.String("routing_key", routingKey),
		zap.String("message_id", messageID),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
