package core

import (
	"sync"
)

// mailbox is an unbounded multiple-producer, single-consumer FIFO queue.
// Push never blocks. Pop blocks until a message is available or the
// mailbox has been closed and drained.
type mailbox struct {
	mu     sync.Mutex
	items  []*Message
	head   int
	closed bool

	// notify has capacity one; a pending token means "look again".
	notify chan struct{}
}

func newMailbox(capacity int) *mailbox {
	if capacity < 0 {
		capacity = 0
	}
	return &mailbox{
		items:  make([]*Message, 0, capacity),
		notify: make(chan struct{}, 1),
	}
}

// Push appends msg. It returns false once the mailbox is closed.
func (m *mailbox) Push(msg *Message) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, msg)
	m.mu.Unlock()

	m.wake()
	return true
}

// Pop removes the oldest message. The second result is false when the
// mailbox is closed and empty.
func (m *mailbox) Pop() (*Message, bool) {
	for {
		m.mu.Lock()
		if m.head < len(m.items) {
			msg := m.items[m.head]
			m.items[m.head] = nil
			m.head++
			if m.head == len(m.items) {
				m.items = m.items[:0]
				m.head = 0
			}
			m.mu.Unlock()
			return msg, true
		}
		if m.closed {
			m.mu.Unlock()
			return nil, false
		}
		m.mu.Unlock()

		<-m.notify
	}
}

// Close stops accepting messages. Already queued messages stay poppable.
func (m *mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wake()
}

// Len returns the number of queued messages.
func (m *mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) - m.head
}

// Drain empties the queue and returns what it held.
func (m *mailbox) Drain() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	rest := make([]*Message, len(m.items)-m.head)
	copy(rest, m.items[m.head:])
	m.items = m.items[:0]
	m.head = 0
	return rest
}

func (m *mailbox) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}
