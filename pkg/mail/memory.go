package mail

import (
	"context"
	"sync"
)

// MemoryMailer records messages instead of delivering them.
type MemoryMailer struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// NewMemoryMailer constructs an empty MemoryMailer.
func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

// FailWith makes subsequent Send calls return err.
func (m *MemoryMailer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Send stores a copy of msg.
func (m *MemoryMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	msg.To = append([]string(nil), msg.To...)
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns the recorded messages in send order.
func (m *MemoryMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}
