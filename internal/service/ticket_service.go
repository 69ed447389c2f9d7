package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/policy"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/sla"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// createRetries bounds the ticket-number retry loop on unique index
// collisions.
const createRetries = 3

// FileStore abstracts attachment byte storage. Satisfied by
// storage.DiskStore.
type FileStore interface {
	Save(fileName string, content io.Reader) (string, int64, error)
	Open(key string) (io.ReadCloser, error)
	Remove(key string) error
}

// TicketService owns the ticket lifecycle: transitions, audit trail,
// cascade deletion and the events handed to the notification router.
type TicketService struct {
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	activities  repository.ActivityRepository
	profiles    repository.ProfileRepository
	files       FileStore
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	ActivityRepo   repository.ActivityRepository
	ProfileRepo    repository.ProfileRepository
	Files          FileStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		attachments: deps.AttachmentRepo,
		activities:  deps.ActivityRepo,
		profiles:    deps.ProfileRepo,
		files:       deps.Files,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Title        string
	Description  string
	Priority     domain.TicketPriority
	DepartmentID *string
}

// UpdateTicketInput carries the fields an update touches. Nil means
// untouched; AssigneeID uses a double pointer so "unassign" is expressible.
// ExpectedUpdatedAt, when set, is the row version the caller read; a stale
// value turns the write into a conflict.
type UpdateTicketInput struct {
	Title             *string
	Description       *string
	Status            *domain.TicketStatus
	Priority          *domain.TicketPriority
	AssigneeID        **string
	Resolution        *string
	ExpectedUpdatedAt *time.Time
}

// ListFilter captures list/search parameters from the API surface.
type ListFilter struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	DepartmentID *string
	AssigneeID   *string
	SearchTerm   *string
	Limit        int
	Offset       int
}

// UploadInput is one file in an upload batch.
type UploadInput struct {
	FileName string
	MimeType string
	Content  io.Reader
}

// CreateTicket validates input, assigns a unique human-readable number,
// computes the SLA deadline, optionally auto-assigns a department agent,
// records the initial activity and emits ticket_created.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Principal, input CreateTicketInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	var assigneeID *string
	if input.DepartmentID != nil {
		agents, err := s.profiles.ListByDepartmentRole(ctx, *input.DepartmentID, domain.RoleAgent)
		if err != nil {
			return nil, apperrors.NewDependencyFailure("backing store", err)
		}
		// first returned agent wins; no load balancing guarantee
		if len(agents) > 0 {
			assigneeID = &agents[0].ID
		}
	}

	now := time.Now()
	var ticket *domain.Ticket
	for attempt := 0; attempt < createRetries; attempt++ {
		candidate := &domain.Ticket{
			Number:       generateTicketNumber(now),
			CreatorID:    actor.ID,
			AssigneeID:   assigneeID,
			DepartmentID: input.DepartmentID,
			Title:        title,
			Description:  strings.TrimSpace(input.Description),
			Status:       domain.TicketStatusOpen,
			Priority:     priority,
			// deadline and created_at share one instant so the SLA
			// window is exact against persisted data
			CreatedAt: now,
			SLADueAt:  sla.DueDate(priority, now),
		}
		err := s.tickets.Create(ctx, candidate)
		if err == nil {
			ticket = candidate
			break
		}
		if !errors.Is(err, repository.ErrDuplicateTicketNumber) {
			return nil, apperrors.NewDependencyFailure("backing store", err)
		}
	}
	if ticket == nil {
		return nil, apperrors.NewConflict("could not allocate unique ticket number", nil)
	}

	s.appendActivity(ctx, ticket.ID, actor.ID, domain.ActivityTicketCreated,
		fmt.Sprintf("ticket %s created with priority %s", ticket.Number, ticket.Priority))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Number:       ticket.Number,
			Title:        ticket.Title,
			Priority:     ticket.Priority,
			CreatorID:    ticket.CreatorID,
			DepartmentID: ticket.DepartmentID,
			AssigneeID:   ticket.AssigneeID,
		},
	})
	if ticket.AssigneeID != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.TicketAssignedPayload{
				AssigneeID: *ticket.AssigneeID,
				CreatorID:  ticket.CreatorID,
			},
		})
	}
	return ticket, nil
}

// GetTicket fetches a ticket with its thread, filtered for the caller.
// Internal messages never reach non-staff viewers.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Principal, ticketID string) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !policy.CanView(actor, ticket) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	messages, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.NewDependencyFailure("backing store", err)
	}
	return ticket, policy.VisibleMessages(actor, messages), nil
}

// ListTickets returns tickets visible to the caller plus a total count for
// pagination. Non-staff see only tickets they created or are assigned to.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Principal, filter ListFilter) ([]domain.Ticket, int64, error) {
	repoFilter := repository.TicketFilter{
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		DepartmentID: filter.DepartmentID,
		AssigneeID:   filter.AssigneeID,
		SearchTerm:   filter.SearchTerm,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	if !actor.IsStaff() {
		involved := actor.ID
		repoFilter.InvolvedID = &involved
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperrors.NewDependencyFailure("backing store", err)
	}
	total, err := s.tickets.CountWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperrors.NewDependencyFailure("backing store", err)
	}
	return tickets, total, nil
}

// UpdateTicket applies a field-level update through the transition rules:
// policy check, status validation, conditional store write, one activity
// entry per changed tracked field, SLA recompute on priority change, and a
// ticket_updated event carrying the diff.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Principal, ticketID string, input UpdateTicketInput) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if input.ExpectedUpdatedAt != nil && !input.ExpectedUpdatedAt.Equal(ticket.UpdatedAt) {
		return nil, apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
	}

	touched := touchedFields(input)
	if len(touched) == 0 {
		return ticket, nil
	}
	if !policy.CanModify(actor, ticket, touched) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}

	update, changes := buildUpdate(ticket, input)
	if len(changes) == 0 {
		// identical payload re-applies cleanly: no write, no activity
		return ticket, nil
	}
	if _, ok := changes[policy.FieldPriority]; ok {
		due := sla.DueDate(*input.Priority, ticket.CreatedAt)
		update.SLADueAt = &due
	}

	updated, err := s.tickets.UpdateFields(ctx, ticket.ID, ticket.UpdatedAt, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.NewDependencyFailure("backing store", err)
	}

	s.recordChangeActivities(ctx, actor, updated.ID, changes)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: updated.ID,
		Actor:    actor,
		Payload:  events.TicketUpdatedPayload{Changes: changes, CreatorID: updated.CreatorID},
	})
	if change, ok := changes[policy.FieldStatus]; ok && change.New == string(domain.TicketStatusResolved) {
		resolution := ""
		if updated.Resolution != nil {
			resolution = *updated.Resolution
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketResolved,
			TicketID: updated.ID,
			Actor:    actor,
			Payload:  events.TicketResolvedPayload{Resolution: resolution, CreatorID: updated.CreatorID},
		})
	}
	if change, ok := changes[policy.FieldAssignee]; ok && change.New != "" {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: updated.ID,
			Actor:    actor,
			Payload: events.TicketAssignedPayload{
				AssigneeID: change.New,
				CreatorID:  updated.CreatorID,
			},
		})
	}
	return updated, nil
}

// BulkUpdate applies one field-level update across many tickets. Staff
// only. Each ticket gets a single activity entry naming the updated field
// set and its own ticket_updated event marked as bulk.
func (s *TicketService) BulkUpdate(ctx context.Context, actor domain.Principal, ticketIDs []string, input UpdateTicketInput) ([]domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	touched := touchedFields(input)
	if len(touched) == 0 {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}

	var updatedTickets []domain.Ticket
	for _, ticketID := range ticketIDs {
		ticket, err := s.fetchTicket(ctx, ticketID)
		if err != nil {
			s.logger.Warn("bulk update skipping ticket", zap.String("ticket_id", ticketID), zap.Error(err))
			continue
		}
		update, changes := buildUpdate(ticket, input)
		if len(changes) == 0 {
			updatedTickets = append(updatedTickets, *ticket)
			continue
		}
		if _, ok := changes[policy.FieldPriority]; ok {
			due := sla.DueDate(*input.Priority, ticket.CreatedAt)
			update.SLADueAt = &due
		}
		updated, err := s.tickets.UpdateFields(ctx, ticket.ID, ticket.UpdatedAt, update)
		if err != nil {
			s.logger.Warn("bulk update failed for ticket", zap.String("ticket_id", ticketID), zap.Error(err))
			continue
		}

		s.appendActivity(ctx, updated.ID, actor.ID, domain.ActivityBulkUpdated,
			fmt.Sprintf("bulk update of %s", strings.Join(touched, ", ")))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: updated.ID,
			Actor:    actor,
			Payload:  events.TicketUpdatedPayload{Changes: changes, CreatorID: updated.CreatorID, Bulk: true},
		})
		updatedTickets = append(updatedTickets, *updated)
	}
	return updatedTickets, nil
}

// DeleteTicket removes a ticket and everything it owns: stored attachment
// bytes (best-effort), attachment records, messages, activity entries,
// then the ticket row, in that order.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Principal, ticketID string) error {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !policy.CanDelete(actor, ticket) {
		return apperrors.NewForbidden("only admins may delete tickets")
	}

	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.NewDependencyFailure("backing store", err)
	}
	for _, attachment := range attachments {
		if err := s.files.Remove(attachment.StorageKey); err != nil {
			s.logger.Warn("failed to remove attachment file during cascade",
				zap.String("storage_key", attachment.StorageKey),
				zap.Error(err))
		}
	}
	if err := s.attachments.DeleteByTicket(ctx, ticket.ID); err != nil {
		return apperrors.NewDependencyFailure("backing store", err)
	}
	if err := s.messages.DeleteByTicket(ctx, ticket.ID); err != nil {
		return apperrors.NewDependencyFailure("backing store", err)
	}
	if err := s.activities.DeleteByTicket(ctx, ticket.ID); err != nil {
		return apperrors.NewDependencyFailure("backing store", err)
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return apperrors.NewDependencyFailure("backing store", err)
	}
	return nil
}

// AddMessage appends a message to a ticket thread. Internal notes require
// a staff sender.
func (s *TicketService) AddMessage(ctx context.Context, actor domain.Principal, ticketID, body string, isInternal bool, messageType domain.MessageType) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", map[string]any{"field": "body"})
	}
	if messageType == "" {
		messageType = domain.MessageTypeComment
	}
	if !messageType.Valid() {
		return nil, apperrors.NewValidationError("invalid message type", map[string]any{"message_type": messageType})
	}

	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if isInternal && !policy.CanCreateInternalMessage(actor) {
		return nil, apperrors.NewForbidden("internal notes require a staff role")
	}

	message := &domain.Message{
		TicketID:    ticket.ID,
		SenderID:    actor.ID,
		Body:        body,
		IsInternal:  isInternal,
		MessageType: messageType,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, apperrors.NewDependencyFailure("backing store", err)
	}

	s.appendActivity(ctx, ticket.ID, actor.ID, domain.ActivityMessageAdded, "message added")
	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.MessageAddedPayload{
			MessageID:   message.ID,
			SenderID:    message.SenderID,
			MessageType: message.MessageType,
			IsInternal:  message.IsInternal,
			BodyPreview: bodyPreview(message.Body, 120),
		},
	})
	return message, nil
}

// UploadAttachments stores files on disk and records them against the
// ticket. Disk write plus DB insert form one logical operation: an insert
// failure deletes the just-written file before the error surfaces.
func (s *TicketService) UploadAttachments(ctx context.Context, actor domain.Principal, ticketID string, uploads []UploadInput) ([]domain.Attachment, error) {
	if len(uploads) == 0 {
		return nil, apperrors.NewValidationError("no files provided", nil)
	}
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	var saved []domain.Attachment
	for _, upload := range uploads {
		key, size, err := s.files.Save(upload.FileName, upload.Content)
		if err != nil {
			return nil, err
		}
		attachment := &domain.Attachment{
			TicketID:   ticket.ID,
			UploaderID: actor.ID,
			FileName:   upload.FileName,
			MimeType:   upload.MimeType,
			SizeBytes:  size,
			StorageKey: key,
		}
		if err := s.attachments.Create(ctx, attachment); err != nil {
			if removeErr := s.files.Remove(key); removeErr != nil {
				s.logger.Warn("failed to clean up file after insert failure",
					zap.String("storage_key", key), zap.Error(removeErr))
			}
			return nil, apperrors.NewDependencyFailure("backing store", err)
		}
		saved = append(saved, *attachment)
	}

	names := make([]string, len(saved))
	ids := make([]string, len(saved))
	for i, attachment := range saved {
		names[i] = attachment.FileName
		ids[i] = attachment.ID
	}
	s.appendActivity(ctx, ticket.ID, actor.ID, domain.ActivityFilesUploaded,
		fmt.Sprintf("uploaded %s", strings.Join(names, ", ")))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventFilesUploaded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.FilesUploadedPayload{AttachmentIDs: ids, FileNames: names},
	})
	return saved, nil
}

// ListAttachments returns a ticket's attachment metadata.
func (s *TicketService) ListAttachments(ctx context.Context, actor domain.Principal, ticketID string) ([]domain.Attachment, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewDependencyFailure("backing store", err)
	}
	return attachments, nil
}

// OpenAttachment returns an attachment's metadata and a reader over its
// stored bytes. The caller closes the reader.
func (s *TicketService) OpenAttachment(ctx context.Context, actor domain.Principal, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return nil, nil, apperrors.NewDependencyFailure("backing store", err)
	}
	ticket, err := s.fetchTicket(ctx, attachment.TicketID)
	if err != nil {
		return nil, nil, err
	}
	if !policy.CanView(actor, ticket) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	reader, err := s.files.Open(attachment.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return attachment, reader, nil
}

// DeleteAttachment removes the record and the stored bytes. Permitted for
// staff and the original uploader.
func (s *TicketService) DeleteAttachment(ctx context.Context, actor domain.Principal, attachmentID string) error {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return apperrors.NewDependencyFailure("backing store", err)
	}
	if !actor.IsStaff() && attachment.UploaderID != actor.ID {
		return apperrors.NewForbidden("access denied")
	}

	if err := s.attachments.Delete(ctx, attachment.ID); err != nil {
		return apperrors.NewDependencyFailure("backing store", err)
	}
	if err := s.files.Remove(attachment.StorageKey); err != nil {
		// record is gone; an orphaned file is logged, not surfaced
		s.logger.Warn("failed to remove attachment file",
			zap.String("storage_key", attachment.StorageKey), zap.Error(err))
	}
	return nil
}

// ListActivities returns the audit trail for a ticket.
func (s *TicketService) ListActivities(ctx context.Context, actor domain.Principal, ticketID string, limit, offset int) ([]domain.Activity, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	activities, err := s.activities.ListByTicket(ctx, ticket.ID, limit, offset)
	if err != nil {
		return nil, apperrors.NewDependencyFailure("backing store", err)
	}
	return activities, nil
}

// SLAStatus summarizes timing health across unresolved tickets and emits
// an sla_breach event for each overdue one.
type SLAStatus struct {
	OnTrack  int             `json:"on_track"`
	DueSoon  int             `json:"due_soon"`
	Overdue  int             `json:"overdue"`
	Breached []domain.Ticket `json:"breached"`
}

// SLASummary classifies every unresolved ticket. Staff only.
func (s *TicketService) SLASummary(ctx context.Context, actor domain.Principal) (*SLAStatus, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}

	open := []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusPending}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{Statuses: open})
	if err != nil {
		return nil, apperrors.NewDependencyFailure("backing store", err)
	}

	now := time.Now()
	summary := &SLAStatus{}
	for _, ticket := range tickets {
		switch sla.Classify(now, ticket.SLADueAt) {
		case sla.StatusOverdue:
			summary.Overdue++
			summary.Breached = append(summary.Breached, ticket)
			s.publishEvent(ctx, events.Event{
				Type:     events.EventSLABreach,
				TicketID: ticket.ID,
				Actor:    actor,
				Payload: events.SLABreachPayload{
					Number:     ticket.Number,
					Priority:   ticket.Priority,
					DueAt:      ticket.SLADueAt,
					AssigneeID: ticket.AssigneeID,
				},
			})
		case sla.StatusDueSoon:
			summary.DueSoon++
		default:
			summary.OnTrack++
		}
	}
	return summary, nil
}

// Analytics aggregates ticket counts for the admin dashboard.
type Analytics struct {
	Total      int64                           `json:"total"`
	ByStatus   map[domain.TicketStatus]int64   `json:"by_status"`
	ByPriority map[domain.TicketPriority]int64 `json:"by_priority"`
	Overdue    int64                           `json:"overdue"`
}

// AnalyticsSummary counts tickets by status and priority. Staff only.
func (s *TicketService) AnalyticsSummary(ctx context.Context, actor domain.Principal) (*Analytics, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}

	summary := &Analytics{
		ByStatus:   make(map[domain.TicketStatus]int64),
		ByPriority: make(map[domain.TicketPriority]int64),
	}

	total, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, apperrors.NewDependencyFailure("backing store", err)
	}
	summary.Total = total

	for _, status := range []domain.TicketStatus{
		domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusPending,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	} {
		count, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{Statuses: []domain.TicketStatus{status}})
		if err != nil {
			return nil, apperrors.NewDependencyFailure("backing store", err)
		}
		summary.ByStatus[status] = count
	}
	for _, priority := range []domain.TicketPriority{
		domain.TicketPriorityLow, domain.TicketPriorityNormal,
		domain.TicketPriorityHigh, domain.TicketPriorityUrgent,
	} {
		count, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{Priorities: []domain.TicketPriority{priority}})
		if err != nil {
			return nil, apperrors.NewDependencyFailure("backing store", err)
		}
		summary.ByPriority[priority] = count
	}

	now := time.Now()
	overdue, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{
		Statuses:  []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusPending},
		DueBefore: &now,
	})
	if err != nil {
		return nil, apperrors.NewDependencyFailure("backing store", err)
	}
	summary.Overdue = overdue
	return summary, nil
}

func (s *TicketService) fetchTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewDependencyFailure("backing store", err)
	}
	return ticket, nil
}

func (s *TicketService) appendActivity(ctx context.Context, ticketID, actorID string, action domain.ActivityAction, detail string) {
	entry := &domain.Activity{
		TicketID: ticketID,
		ActorID:  actorID,
		Action:   action,
		Detail:   detail,
	}
	if err := s.activities.Create(ctx, entry); err != nil {
		s.logger.Error("failed to append activity entry",
			zap.String("ticket_id", ticketID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (s *TicketService) recordChangeActivities(ctx context.Context, actor domain.Principal, ticketID string, changes map[string]events.FieldChange) {
	if change, ok := changes[policy.FieldStatus]; ok {
		s.appendActivity(ctx, ticketID, actor.ID, domain.ActivityStatusChanged,
			fmt.Sprintf("status changed from %s to %s", change.Old, change.New))
	}
	if change, ok := changes[policy.FieldAssignee]; ok {
		detail := fmt.Sprintf("assignee changed from %s to %s", orUnassigned(change.Old), orUnassigned(change.New))
		s.appendActivity(ctx, ticketID, actor.ID, domain.ActivityAssigneeChanged, detail)
	}
	if change, ok := changes[policy.FieldPriority]; ok {
		s.appendActivity(ctx, ticketID, actor.ID, domain.ActivityPriorityChanged,
			fmt.Sprintf("priority changed from %s to %s", change.Old, change.New))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// touchedFields lists the fields a payload touches, for the policy check.
func touchedFields(input UpdateTicketInput) []string {
	var fields []string
	if input.Title != nil {
		fields = append(fields, policy.FieldTitle)
	}
	if input.Description != nil {
		fields = append(fields, policy.FieldDescription)
	}
	if input.Status != nil {
		fields = append(fields, policy.FieldStatus)
	}
	if input.Priority != nil {
		fields = append(fields, policy.FieldPriority)
	}
	if input.AssigneeID != nil {
		fields = append(fields, policy.FieldAssignee)
	}
	if input.Resolution != nil {
		fields = append(fields, policy.FieldResolution)
	}
	return fields
}

// buildUpdate maps inputs to a store update, keeping only fields whose
// value actually differs, and returns the diff.
func buildUpdate(ticket *domain.Ticket, input UpdateTicketInput) (repository.TicketUpdate, map[string]events.FieldChange) {
	update := repository.TicketUpdate{}
	changes := make(map[string]events.FieldChange)

	if input.Title != nil && *input.Title != ticket.Title {
		update.Title = input.Title
		changes[policy.FieldTitle] = events.FieldChange{Old: ticket.Title, New: *input.Title}
	}
	if input.Description != nil && *input.Description != ticket.Description {
		update.Description = input.Description
		changes[policy.FieldDescription] = events.FieldChange{Old: ticket.Description, New: *input.Description}
	}
	if input.Status != nil && *input.Status != ticket.Status {
		update.Status = input.Status
		changes[policy.FieldStatus] = events.FieldChange{Old: string(ticket.Status), New: string(*input.Status)}
	}
	if input.Priority != nil && *input.Priority != ticket.Priority {
		update.Priority = input.Priority
		changes[policy.FieldPriority] = events.FieldChange{Old: string(ticket.Priority), New: string(*input.Priority)}
	}
	if input.AssigneeID != nil && !equalPtr(*input.AssigneeID, ticket.AssigneeID) {
		update.AssigneeID = input.AssigneeID
		changes[policy.FieldAssignee] = events.FieldChange{Old: derefOr(ticket.AssigneeID, ""), New: derefOr(*input.AssigneeID, "")}
	}
	if input.Resolution != nil && !equalPtr(input.Resolution, ticket.Resolution) {
		update.Resolution = input.Resolution
		changes[policy.FieldResolution] = events.FieldChange{Old: derefOr(ticket.Resolution, ""), New: *input.Resolution}
	}
	return update, changes
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func orUnassigned(s string) string {
	if s == "" {
		return "unassigned"
	}
	return s
}

func bodyPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

// generateTicketNumber builds a date-prefixed candidate with a random
// suffix. Uniqueness is enforced by the store's index; callers retry on
// collision.
func generateTicketNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "TKT-" + now.UTC().Format("20060102") + "-" + suffix
}
