package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Connection is one live realtime session. It is owned exclusively by the
// hub and never persisted; the principal is fixed at authentication time.
type Connection struct {
	ID          string
	Principal   domain.Principal
	DisplayName string

	mu     sync.Mutex
	send   chan Envelope
	closed bool
}

func newConnection(profile *domain.Profile, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Connection{
		ID:          uuid.NewString(),
		Principal:   profile.Principal(),
		DisplayName: profile.DisplayName,
		send:        make(chan Envelope, bufferSize),
	}
}

// Send queues an envelope without blocking. Delivery is at-most-once: a
// full buffer or a closed connection drops the event.
func (c *Connection) Send(envelope Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- envelope:
		return true
	default:
		return false
	}
}

// Outbound exposes the send queue to the transport writer.
func (c *Connection) Outbound() <-chan Envelope {
	return c.send
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
