package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// channel is the subset of *amqp.Channel the publisher uses
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends outcome events to RabbitMQ as persistent JSON messages
type Publisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     channel
	queue  string
	logger *zap.Logger
}

// NewPublisher dials RabbitMQ and declares the durable outcome queue
func NewPublisher(url string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	p, err := newPublisher(ch, OutcomeQueue, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, queue string, logger *zap.Logger) (*Publisher, error) {
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return &Publisher{ch: ch, queue: queue, logger: logger}, nil
}

// Publish sends one message per event. It stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, race allocator.Race, version int64, evts []allocator.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, oe := range FromEvents(race, version, evts) {
		body, err := json.Marshal(oe)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", oe.Kind, err)
		}

		err = p.ch.PublishWithContext(ctx,
			"",      // default exchange
			p.queue, // routing key = queue name
			false,   // mandatory
			false,   // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now().UTC(),
				Type:         string(oe.Kind),
				Body:         body,
			})
		if err != nil {
			return fmt.Errorf("failed to publish %s event for race %s: %w", oe.Kind, oe.RaceID, err)
		}

		p.logger.Debug("Published outcome event",
			zap.String("race_id", oe.RaceID),
			zap.String("kind", string(oe.Kind)),
			zap.String("candidate_id", oe.CandidateID))
	}
	return nil
}

// Close closes the channel and connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("failed to close rabbitmq channel: %w", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogPublisher logs events instead of sending them; used when no broker is configured
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, race allocator.Race, version int64, evts []allocator.Event) error {
	for _, oe := range FromEvents(race, version, evts) {
		p.Logger.Info("Outcome",
			zap.String("race_id", oe.RaceID),
			zap.String("kind", string(oe.Kind)),
			zap.String("slot", oe.SlotName),
			zap.String("candidate_id", oe.CandidateID),
			zap.Bool("bypassed", oe.Bypassed),
			zap.String("detail", oe.Detail))
	}
	return nil
}
