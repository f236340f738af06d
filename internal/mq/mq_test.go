package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/warenvoyage/apiserver/config"
	"github.com/warenvoyage/apiserver/internal/logging"
	"github.com/warenvoyage/apiserver/types"
)

type recordingBackend struct {
	channel string
	data    [][]byte
	attrs   []map[string]string
	err     error
	closed  bool
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.channel = channel
	b.data = append(b.data, data)
	b.attrs = append(b.attrs, attrs)
	return "msg-1", nil
}

func (b *recordingBackend) Subscribe(context.Context, string, Handler) error { return nil }

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestPublisherEncodesEvent(t *testing.T) {
	backend := &recordingBackend{}
	publisher := NewPublisher(backend, "identity-events", logging.Discard())
	user := types.User{ID: uuid.New(), Role: types.RoleDriverIndividual}

	publisher.Publish(context.Background(), NewEvent(EventRegistered, user))

	if backend.channel != "identity-events" {
		t.Fatalf("unexpected channel %q", backend.channel)
	}
	if len(backend.data) != 1 {
		t.Fatalf("expected one message, got %d", len(backend.data))
	}
	if backend.attrs[0]["type"] != EventRegistered {
		t.Fatalf("unexpected attributes %v", backend.attrs[0])
	}

	var raw map[string]any
	if err := json.Unmarshal(backend.data[0], &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["role"] != "driver_individual" || raw["user_id"] != user.ID.String() {
		t.Fatalf("unexpected payload %v", raw)
	}

	event, err := DecodeEvent(Message{ID: "msg-1", Data: backend.data[0]})
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Type != EventRegistered || event.UserID != user.ID || event.Role != types.RoleDriverIndividual {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestPublisherSwallowsBackendErrors(t *testing.T) {
	backend := &recordingBackend{err: errors.New("broker down")}
	publisher := NewPublisher(backend, "identity-events", logging.Discard())

	publisher.Publish(context.Background(), NewEvent(EventDeleted, types.User{ID: uuid.New(), Role: types.RoleClient}))

	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !backend.closed {
		t.Fatal("backend should be closed")
	}
}

func TestNilBackendPublisherIsNoop(t *testing.T) {
	publisher := NewPublisher(nil, "identity-events", logging.Discard())
	publisher.Publish(context.Background(), NewEvent(EventUpdated, types.User{ID: uuid.New(), Role: types.RoleClient}))
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var nilPublisher *Publisher
	nilPublisher.Publish(context.Background(), Event{})
}

func TestDecodeEventRejectsUnknownRole(t *testing.T) {
	data := []byte(`{"type":"identity.updated","user_id":"` + uuid.NewString() + `","role":"pilot"}`)
	if _, err := DecodeEvent(Message{ID: "x", Data: data}); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestOpenDisabledBackend(t *testing.T) {
	backend, err := Open(context.Background(), config.MQConfig{})
	if err != nil || backend != nil {
		t.Fatalf("expected nil backend, got %v %v", backend, err)
	}
	if _, err := Open(context.Background(), config.MQConfig{Backend: "kafka"}); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
	if _, err := Open(context.Background(), config.MQConfig{Backend: "rabbitmq"}); err == nil {
		t.Fatal("expected error for missing rabbitmq url")
	}
}

func TestHeadersToAttributes(t *testing.T) {
	attrs := headersToAttributes(amqp.Table{"type": "identity.deleted", "raw": []byte("x"), "n": int32(3)})
	if attrs["type"] != "identity.deleted" || attrs["raw"] != "x" || attrs["n"] != "3" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	if headersToAttributes(nil) != nil {
		t.Fatal("empty headers should map to nil")
	}
}
