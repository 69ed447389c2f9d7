package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// In-memory repository implementations backing service and hub tests.
// They mirror the pgx implementations' contracts, including pgx.ErrNoRows
// on missing rows and ErrDuplicateTicketNumber on number collisions.

// MemoryTicketRepository is a map-backed TicketRepository.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewMemoryTicketRepository builds an empty repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tickets {
		if existing.Number == ticket.Number {
			return ErrDuplicateTicketNumber
		}
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.ID = uuid.NewString()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *MemoryTicketRepository) UpdateFields(_ context.Context, id string, expectedUpdatedAt time.Time, update TicketUpdate) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok || !ticket.UpdatedAt.Equal(expectedUpdatedAt) {
		return nil, pgx.ErrNoRows
	}

	if update.Title != nil {
		ticket.Title = *update.Title
	}
	if update.Description != nil {
		ticket.Description = *update.Description
	}
	if update.Status != nil {
		ticket.Status = *update.Status
	}
	if update.Priority != nil {
		ticket.Priority = *update.Priority
	}
	if update.AssigneeID != nil {
		ticket.AssigneeID = *update.AssigneeID
	}
	if update.Resolution != nil {
		ticket.Resolution = update.Resolution
	}
	if update.SLADueAt != nil {
		ticket.SLADueAt = *update.SLADueAt
	}
	ticket.UpdatedAt = time.Now()

	r.tickets[id] = ticket
	copied := ticket
	return &copied, nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *MemoryTicketRepository) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ticket := range r.tickets {
		if ticket.Number == number {
			copied := ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryTicketRepository) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *MemoryTicketRepository) CountWithFilter(_ context.Context, filter TicketFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.match(filter))), nil
}

func (r *MemoryTicketRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *MemoryTicketRepository) match(filter TicketFilter) []domain.Ticket {
	var matched []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.InvolvedID != nil {
			involved := ticket.CreatorID == *filter.InvolvedID ||
				(ticket.AssigneeID != nil && *ticket.AssigneeID == *filter.InvolvedID)
			if !involved {
				continue
			}
		}
		if filter.DepartmentID != nil && (ticket.DepartmentID == nil || *ticket.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if filter.SearchTerm != nil && *filter.SearchTerm != "" {
			term := strings.ToLower(*filter.SearchTerm)
			if !strings.Contains(strings.ToLower(ticket.Title), term) &&
				!strings.Contains(strings.ToLower(ticket.Description), term) {
				continue
			}
		}
		if filter.DueBefore != nil && !ticket.SLADueAt.Before(*filter.DueBefore) {
			continue
		}
		matched = append(matched, ticket)
	}
	return matched
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

// MemoryMessageRepository is a map-backed MessageRepository.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]domain.Message
}

// NewMemoryMessageRepository builds an empty repository.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[string]domain.Message)}
}

func (r *MemoryMessageRepository) Create(_ context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.ID = uuid.NewString()
	message.CreatedAt = time.Now()
	r.messages[message.ID] = *message
	return nil
}

func (r *MemoryMessageRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Message
	for _, message := range r.messages {
		if message.TicketID == ticketID {
			result = append(result, message)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryMessageRepository) DeleteByTicket(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, message := range r.messages {
		if message.TicketID == ticketID {
			delete(r.messages, id)
		}
	}
	return nil
}

// MemoryAttachmentRepository is a map-backed AttachmentRepository.
type MemoryAttachmentRepository struct {
	mu          sync.RWMutex
	attachments map[string]domain.Attachment
	failCreate  bool
}

// NewMemoryAttachmentRepository builds an empty repository.
func NewMemoryAttachmentRepository() *MemoryAttachmentRepository {
	return &MemoryAttachmentRepository{attachments: make(map[string]domain.Attachment)}
}

// FailNextCreate makes the next Create return an error, for exercising the
// upload cleanup path.
func (r *MemoryAttachmentRepository) FailNextCreate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreate = true
}

func (r *MemoryAttachmentRepository) Create(_ context.Context, attachment *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate {
		r.failCreate = false
		return pgx.ErrTxClosed
	}
	attachment.ID = uuid.NewString()
	attachment.CreatedAt = time.Now()
	r.attachments[attachment.ID] = *attachment
	return nil
}

func (r *MemoryAttachmentRepository) GetByID(_ context.Context, id string) (*domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attachment, ok := r.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := attachment
	return &copied, nil
}

func (r *MemoryAttachmentRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Attachment
	for _, attachment := range r.attachments {
		if attachment.TicketID == ticketID {
			result = append(result, attachment)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryAttachmentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.attachments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.attachments, id)
	return nil
}

func (r *MemoryAttachmentRepository) DeleteByTicket(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, attachment := range r.attachments {
		if attachment.TicketID == ticketID {
			delete(r.attachments, id)
		}
	}
	return nil
}

// MemoryActivityRepository is a map-backed ActivityRepository.
type MemoryActivityRepository struct {
	mu      sync.RWMutex
	entries []domain.Activity
}

// NewMemoryActivityRepository builds an empty repository.
func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{}
}

func (r *MemoryActivityRepository) Create(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity.ID = uuid.NewString()
	activity.CreatedAt = time.Now()
	r.entries = append(r.entries, *activity)
	return nil
}

func (r *MemoryActivityRepository) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Activity
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	if offset > 0 {
		if offset >= len(result) {
			return nil, nil
		}
		result = result[offset:]
	}
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryActivityRepository) DeleteByTicket(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, entry := range r.entries {
		if entry.TicketID != ticketID {
			kept = append(kept, entry)
		}
	}
	r.entries = kept
	return nil
}

// MemoryProfileRepository is a map-backed ProfileRepository.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

// NewMemoryProfileRepository builds an empty repository.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[string]domain.Profile)}
}

func (r *MemoryProfileRepository) Create(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	r.profiles[profile.ID] = *profile
	return nil
}

func (r *MemoryProfileRepository) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := profile
	return &copied, nil
}

func (r *MemoryProfileRepository) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, profile := range r.profiles {
		if profile.Email == email {
			copied := profile
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryProfileRepository) ListByDepartmentRole(_ context.Context, departmentID string, role domain.Role) ([]domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Profile
	for _, profile := range r.profiles {
		if profile.Role != role {
			continue
		}
		if profile.DepartmentID == nil || *profile.DepartmentID != departmentID {
			continue
		}
		result = append(result, profile)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryProfileRepository) ListByRole(_ context.Context, role domain.Role) ([]domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Profile
	for _, profile := range r.profiles {
		if profile.Role == role {
			result = append(result, profile)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
