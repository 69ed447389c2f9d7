package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
	DepartmentID *string               `json:"department_id"`
}

// UpdateTicketRequest carries a partial update. Absent fields stay
// untouched; an empty assignee_id unassigns. updated_at, when provided, is
// the version the client read and stale values are rejected as conflicts.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	AssigneeID  *string                `json:"assignee_id"`
	Resolution  *string                `json:"resolution"`
	UpdatedAt   *time.Time             `json:"updated_at"`
}

// BulkUpdateRequest applies one update to many tickets.
type BulkUpdateRequest struct {
	TicketIDs []string            `json:"ticket_ids"`
	Update    UpdateTicketRequest `json:"update"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	Number       string                `json:"number"`
	CreatorID    string                `json:"creator_id"`
	AssigneeID   *string               `json:"assignee_id"`
	DepartmentID *string               `json:"department_id"`
	Title        string                `json:"title"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	SLADueAt     time.Time             `json:"sla_due_at"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info including the thread.
type TicketDetailResponse struct {
	TicketSummary
	Description string            `json:"description"`
	Resolution  *string           `json:"resolution"`
	Messages    []MessageResponse `json:"messages"`
}

// TicketListResponse is the pagination envelope for listings.
type TicketListResponse struct {
	Items    []TicketSummary `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body        string              `json:"body"`
	IsInternal  bool                `json:"is_internal"`
	MessageType *domain.MessageType `json:"message_type,omitempty"`
}

// MessageResponse represents one thread entry.
type MessageResponse struct {
	ID          string             `json:"id"`
	TicketID    string             `json:"ticket_id"`
	SenderID    string             `json:"sender_id"`
	Body        string             `json:"body"`
	IsInternal  bool               `json:"is_internal"`
	MessageType domain.MessageType `json:"message_type"`
	CreatedAt   time.Time          `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	UploaderID string    `json:"uploader_id"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityResponse is one audit trail entry.
type ActivityResponse struct {
	ID        string                `json:"id"`
	TicketID  string                `json:"ticket_id"`
	ActorID   string                `json:"actor_id"`
	Action    domain.ActivityAction `json:"action"`
	Detail    string                `json:"detail"`
	CreatedAt time.Time             `json:"created_at"`
}

// AnnouncementRequest is an admin broadcast payload.
type AnnouncementRequest struct {
	Message string `json:"message"`
}
