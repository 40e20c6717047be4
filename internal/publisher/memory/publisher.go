// Package memory provides an in-memory publisher for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Message records one published payload.
type Message struct {
	Topic   string
	Payload any
}

// Publisher collects published messages in memory.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
	nextID   int
}

// New creates an in-memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the payload and returns a synthetic message id.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Topic: topic, Payload: payload})
	p.nextID++
	return fmt.Sprintf("mem-%d", p.nextID), nil
}

// Messages returns a copy of everything published so far.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}
