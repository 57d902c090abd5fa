// Package events fans audit log entries out to a message broker so other
// services can follow administrative activity.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/adminpanel/apiserver/config"
	"github.com/adminpanel/apiserver/types"
)

// Supported backend names for EVENTS_BACKEND.
const (
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
	BackendMemory   = "memory"
)

// ErrNoBackend is returned by NewBackend when no backend is configured.
var ErrNoBackend = errors.New("events backend not configured")

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker operations the bus relies on.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// NewBackend constructs the backend named by cfg.Backend.
func NewBackend(ctx context.Context, cfg config.EventsConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendRabbitMQ:
		return NewRabbitMQBackend(cfg.RabbitMQ)
	case BackendPubSub:
		return NewPubSubBackend(ctx, cfg.PubSub)
	case BackendMemory:
		return NewMemoryBackend(), nil
	case "":
		return nil, ErrNoBackend
	default:
		return nil, fmt.Errorf("unsupported events backend %q", cfg.Backend)
	}
}

// Bus publishes and follows audit entries on a single channel.
type Bus struct {
	backend Backend
	channel string
}

// NewBus wraps backend, sending everything to channel.
func NewBus(backend Backend, channel string) *Bus {
	return &Bus{backend: backend, channel: channel}
}

// Channel returns the channel entries are published to.
func (b *Bus) Channel() string {
	return b.channel
}

// PublishLogEntry sends entry as JSON and returns the broker message id.
func (b *Bus) PublishLogEntry(ctx context.Context, entry types.LogEntry) (string, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encoding log entry: %w", err)
	}
	attrs := map[string]string{
		"action": entry.Action,
		"admin":  entry.Admin,
	}
	return b.backend.Publish(ctx, b.channel, data, attrs)
}

// Follow blocks delivering every entry published on the channel to fn until
// ctx is cancelled or the backend fails. Undecodable messages are
// acknowledged and skipped.
func (b *Bus) Follow(ctx context.Context, fn func(ctx context.Context, entry types.LogEntry) error) error {
	return b.backend.Subscribe(ctx, b.channel, func(ctx context.Context, msg Message) error {
		var entry types.LogEntry
		if err := json.Unmarshal(msg.Data, &entry); err != nil {
			return nil
		}
		return fn(ctx, entry)
	})
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	return b.backend.Close()
}
