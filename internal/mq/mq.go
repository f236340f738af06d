package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/config"
	"github.com/warenvoyage/apiserver/types"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to nack it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker client.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Identity lifecycle event types.
const (
	EventRegistered  = "identity.registered"
	EventUpdated     = "identity.updated"
	EventRoleChanged = "identity.role_changed"
	EventKYCReviewed = "identity.kyc_reviewed"
	EventDeleted     = "identity.deleted"
)

// Event is the JSON body published for every identity change.
type Event struct {
	Type       string     `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	Role       types.Role `json:"role"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// NewEvent builds an event of the given type for user.
func NewEvent(eventType string, user types.User) Event {
	return Event{
		Type:       eventType,
		UserID:     user.ID,
		Role:       user.Role,
		OccurredAt: time.Now().UTC(),
	}
}

// DecodeEvent parses a message body produced by Publisher.
func DecodeEvent(msg Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	return event, nil
}

// Publisher sends identity events to one channel. Failures are logged and
// never returned: events are emitted after the change has been committed.
// A Publisher without a backend drops everything.
type Publisher struct {
	backend Backend
	channel string
	logger  *slog.Logger
}

// NewPublisher constructs a Publisher. backend may be nil.
func NewPublisher(backend Backend, channel string, logger *slog.Logger) *Publisher {
	return &Publisher{backend: backend, channel: channel, logger: logger}
}

// Publish emits event on the configured channel.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.backend == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("encode identity event", slog.String("type", event.Type), slog.Any("error", err))
		return
	}
	attrs := map[string]string{"type": event.Type}
	id, err := p.backend.Publish(ctx, p.channel, data, attrs)
	if err != nil {
		p.logger.Warn("publish identity event",
			slog.String("type", event.Type),
			slog.String("user_id", event.UserID.String()),
			slog.Any("error", err),
		)
		return
	}
	p.logger.Debug("identity event published", slog.String("type", event.Type), slog.String("message_id", id))
}

// Close closes the underlying backend, if any.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}

// Open connects the backend selected by cfg.Backend. It returns a nil
// Backend when eventing is disabled.
func Open(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported mq backend %q", cfg.Backend)
	}
}
