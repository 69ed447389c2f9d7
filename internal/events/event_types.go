package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketUpdated  EventType = "ticket_updated"
	EventTicketAssigned EventType = "ticket_assigned"
	EventTicketResolved EventType = "ticket_resolved"
	EventMessageAdded   EventType = "message_added"
	EventFilesUploaded  EventType = "files_uploaded"
	EventSLABreach      EventType = "sla_breach"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	TicketID  string           `json:"ticket_id"`
	Actor     domain.Principal `json:"actor"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   interface{}      `json:"payload"`
}

// FieldChange records one old-to-new transition inside an update diff.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number       string                `json:"number"`
	Title        string                `json:"title"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatorID    string                `json:"creator_id"`
	DepartmentID *string               `json:"department_id,omitempty"`
	AssigneeID   *string               `json:"assignee_id,omitempty"`
}

// TicketUpdatedPayload carries the diff of an update. Bulk marks events
// emitted as part of a bulk operation.
type TicketUpdatedPayload struct {
	Changes   map[string]FieldChange `json:"changes"`
	CreatorID string                 `json:"creator_id"`
	Bulk      bool                   `json:"bulk,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
	CreatorID  string `json:"creator_id"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	Resolution string `json:"resolution,omitempty"`
	CreatorID  string `json:"creator_id"`
}

// MessageAddedPayload payload.
type MessageAddedPayload struct {
	MessageID   string             `json:"message_id"`
	SenderID    string             `json:"sender_id"`
	MessageType domain.MessageType `json:"message_type"`
	IsInternal  bool               `json:"is_internal"`
	BodyPreview string             `json:"body_preview"`
}

// FilesUploadedPayload payload.
type FilesUploadedPayload struct {
	AttachmentIDs []string `json:"attachment_ids"`
	FileNames     []string `json:"file_names"`
}

// SLABreachPayload payload.
type SLABreachPayload struct {
	Number     string                `json:"number"`
	Priority   domain.TicketPriority `json:"priority"`
	DueAt      time.Time             `json:"due_at"`
	AssigneeID *string               `json:"assignee_id,omitempty"`
}
