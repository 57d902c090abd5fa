package events

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

const memoryBuffer = 64

var errMemoryClosed = errors.New("memory backend closed")

// MemoryBackend delivers messages in-process. Messages published while a
// channel has no subscribers, or while a subscriber's buffer is full, are
// dropped. Handler errors are ignored.
type MemoryBackend struct {
	mu      sync.Mutex
	subs    map[string]map[int]chan Message
	nextID  int
	seq     atomic.Int64
	dropped atomic.Int64
	done    chan struct{}
	closed  bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		subs: make(map[string]map[int]chan Message),
		done: make(chan struct{}),
	}
}

// Publish hands the message to every current subscriber of channel without
// waiting on slow ones.
func (m *MemoryBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", errMemoryClosed
	}
	targets := make([]chan Message, 0, len(m.subs[channel]))
	for _, ch := range m.subs[channel] {
		targets = append(targets, ch)
	}
	m.mu.Unlock()

	msg := Message{
		ID:         strconv.FormatInt(m.seq.Add(1), 10),
		Data:       append([]byte(nil), data...),
		Attributes: attrs,
	}
	for _, ch := range targets {
		select {
		case ch <- msg:
		default:
			m.dropped.Add(1)
		}
	}
	return msg.ID, nil
}

// Dropped reports how many deliveries were skipped because a subscriber
// buffer was full.
func (m *MemoryBackend) Dropped() int64 {
	return m.dropped.Load()
}

// Subscribe blocks until ctx is cancelled or the backend is closed.
func (m *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}

	ch := make(chan Message, memoryBuffer)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errMemoryClosed
	}
	id := m.nextID
	m.nextID++
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[int]chan Message)
	}
	m.subs[channel][id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subs[channel], id)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return errMemoryClosed
		case msg := <-ch:
			_ = handler(ctx, msg)
		}
	}
}

// Subscribers reports how many subscribers are attached to channel.
func (m *MemoryBackend) Subscribers(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[channel])
}

// Close detaches all subscribers.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}
