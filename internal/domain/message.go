package domain

import "time"

// MessageType differentiates replies from system-generated thread entries.
type MessageType string

const (
	MessageTypeComment      MessageType = "comment"
	MessageTypeStatusChange MessageType = "status_change"
	MessageTypeAssignment   MessageType = "assignment"
	MessageTypeResolution   MessageType = "resolution"
)

// Valid reports whether the message type is known.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeComment, MessageTypeStatusChange, MessageTypeAssignment, MessageTypeResolution:
		return true
	}
	return false
}

// Message captures one entry in a ticket thread. Internal messages are
// visible to staff only and must never reach a non-staff ticket view.
type Message struct {
	ID          string
	TicketID    string
	SenderID    string
	Body        string
	IsInternal  bool
	MessageType MessageType
	CreatedAt   time.Time
}
