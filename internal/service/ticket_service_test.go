package service_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

type fixture struct {
	service     *service.TicketService
	tickets     *repository.MemoryTicketRepository
	messages    *repository.MemoryMessageRepository
	attachments *repository.MemoryAttachmentRepository
	activities  *repository.MemoryActivityRepository
	profiles    *repository.MemoryProfileRepository
	files       *memoryFiles
	recorder    *eventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		tickets:     repository.NewMemoryTicketRepository(),
		messages:    repository.NewMemoryMessageRepository(),
		attachments: repository.NewMemoryAttachmentRepository(),
		activities:  repository.NewMemoryActivityRepository(),
		profiles:    repository.NewMemoryProfileRepository(),
		files:       newMemoryFiles(),
		recorder:    &eventRecorder{},
	}

	dispatcher := events.NewInMemoryDispatcher()
	for _, kind := range []events.EventType{
		events.EventTicketCreated, events.EventTicketUpdated, events.EventTicketAssigned,
		events.EventTicketResolved, events.EventMessageAdded, events.EventFilesUploaded,
		events.EventSLABreach,
	} {
		dispatcher.Subscribe(kind, f.recorder.record)
	}

	f.service = service.NewTicketService(service.TicketDependencies{
		TicketRepo:     f.tickets,
		MessageRepo:    f.messages,
		AttachmentRepo: f.attachments,
		ActivityRepo:   f.activities,
		ProfileRepo:    f.profiles,
		Files:          f.files,
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
	})
	return f
}

func (f *fixture) addProfile(t *testing.T, role domain.Role, departmentID *string) domain.Principal {
	t.Helper()
	profile := &domain.Profile{
		Email:        fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		DisplayName:  string(role),
		Role:         role,
		DepartmentID: departmentID,
	}
	gt.NoError(t, f.profiles.Create(context.Background(), profile)).Required()
	return profile.Principal()
}

func (f *fixture) createTicket(t *testing.T, actor domain.Principal, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.CreateTicket(context.Background(), actor, service.CreateTicketInput{
		Title:    "printer on fire",
		Priority: priority,
	})
	gt.NoError(t, err).Required()
	return ticket
}

// eventRecorder captures dispatched events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) byType(kind events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, event := range r.events {
		if event.Type == kind {
			out = append(out, event)
		}
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// memoryFiles is an in-memory service.FileStore.
type memoryFiles struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed []string
	seq     int
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{files: make(map[string][]byte)}
}

func (m *memoryFiles) Save(fileName string, content io.Reader) (string, int64, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	key := fmt.Sprintf("%d-%s", m.seq, fileName)
	m.files[key] = data
	return key, int64(len(data)), nil
}

func (m *memoryFiles) Open(key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryFiles) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *memoryFiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func TestCreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and initial activity", func(t *testing.T) {
		f := newFixture(t)
		user := f.addProfile(t, domain.RoleUser, nil)

		ticket, err := f.service.CreateTicket(ctx, user, service.CreateTicketInput{
			Title:       "  vpn drops every hour  ",
			Description: "started after the office move",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, ticket.Title).Equal("vpn drops every hour")
		gt.Value(t, ticket.Status).Equal(domain.TicketStatusOpen)
		gt.Value(t, ticket.Priority).Equal(domain.TicketPriorityNormal)
		gt.Value(t, ticket.CreatorID).Equal(user.ID)
		gt.Bool(t, strings.HasPrefix(ticket.Number, "TKT-")).True()
		gt.Value(t, ticket.SLADueAt.Sub(ticket.CreatedAt)).Equal(48 * time.Hour)

		activities, err := f.activities.ListByTicket(ctx, ticket.ID, 0, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, activities).Length(1)
		gt.Value(t, activities[0].Action).Equal(domain.ActivityTicketCreated)

		gt.Array(t, f.recorder.byType(events.EventTicketCreated)).Length(1)
		gt.Array(t, f.recorder.byType(events.EventTicketAssigned)).Length(0)
	})

	t.Run("auto-assigns first department agent", func(t *testing.T) {
		f := newFixture(t)
		dep := "dep-net"
		agent := f.addProfile(t, domain.RoleAgent, &dep)
		f.addProfile(t, domain.RoleAgent, &dep)
		user := f.addProfile(t, domain.RoleUser, nil)

		ticket, err := f.service.CreateTicket(ctx, user, service.CreateTicketInput{
			Title:        "switch port dead",
			DepartmentID: &dep,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, ticket.AssigneeID).NotNil().Required()
		gt.Value(t, *ticket.AssigneeID).Equal(agent.ID)

		gt.Array(t, f.recorder.byType(events.EventTicketAssigned)).Length(1)
	})

	t.Run("rejects missing title and bad priority", func(t *testing.T) {
		f := newFixture(t)
		user := f.addProfile(t, domain.RoleUser, nil)

		_, err := f.service.CreateTicket(ctx, user, service.CreateTicketInput{Title: "   "})
		gt.Error(t, err)

		_, err = f.service.CreateTicket(ctx, user, service.CreateTicketInput{
			Title:    "ok",
			Priority: domain.TicketPriority("blocker"),
		})
		gt.Error(t, err)
	})
}

func TestGetTicketVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	creator := f.addProfile(t, domain.RoleUser, nil)
	stranger := f.addProfile(t, domain.RoleUser, nil)
	agent := f.addProfile(t, domain.RoleAgent, nil)

	ticket := f.createTicket(t, creator, domain.TicketPriorityNormal)
	_, err := f.service.AddMessage(ctx, creator, ticket.ID, "it prints blank pages", false, domain.MessageTypeComment)
	gt.NoError(t, err).Required()
	_, err = f.service.AddMessage(ctx, agent, ticket.ID, "likely the fuser, check stock", true, domain.MessageTypeComment)
	gt.NoError(t, err).Required()

	t.Run("creator never sees internal notes", func(t *testing.T) {
		_, messages, err := f.service.GetTicket(ctx, creator, ticket.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, messages).Length(1)
		gt.Bool(t, messages[0].IsInternal).False()
	})

	t.Run("staff sees the full thread", func(t *testing.T) {
		_, messages, err := f.service.GetTicket(ctx, agent, ticket.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, messages).Length(2)
	})

	t.Run("uninvolved user is denied", func(t *testing.T) {
		_, _, err := f.service.GetTicket(ctx, stranger, ticket.ID)
		gt.Error(t, err)
		gt.Value(t, apperrors.ToDomainError(err).HTTPStatus).Equal(403)
	})
}

func TestListTicketsScoping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.addProfile(t, domain.RoleUser, nil)
	bob := f.addProfile(t, domain.RoleUser, nil)
	agent := f.addProfile(t, domain.RoleAgent, nil)

	f.createTicket(t, alice, domain.TicketPriorityNormal)
	f.createTicket(t, bob, domain.TicketPriorityNormal)

	t.Run("non-staff sees only involved tickets", func(t *testing.T) {
		tickets, total, err := f.service.ListTickets(ctx, alice, service.ListFilter{})
		gt.NoError(t, err).Required()
		gt.Array(t, tickets).Length(1)
		gt.Value(t, total).Equal(int64(1))
		gt.Value(t, tickets[0].CreatorID).Equal(alice.ID)
	})

	t.Run("staff sees everything", func(t *testing.T) {
		tickets, total, err := f.service.ListTickets(ctx, agent, service.ListFilter{})
		gt.NoError(t, err).Required()
		gt.Array(t, tickets).Length(2)
		gt.Value(t, total).Equal(int64(2))
	})
}

func TestUpdateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("status change records activity and emits diff", func(t *testing.T) {
		f := newFixture(t)
		user := f.addProfile(t, domain.RoleUser, nil)
		agent := f.addProfile(t, domain.RoleAgent, nil)
		ticket := f.createTicket(t, user, domain.TicketPriorityNormal)
		f.recorder.reset()

		status := domain.TicketStatusInProgress
		updated, err := f.service.UpdateTicket(ctx, agent, ticket.ID, service.UpdateTicketInput{Status: &status})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Status).Equal(domain.TicketStatusInProgress)

		activities, err := f.activities.ListByTicket(ctx, ticket.ID, 0, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, activities).Length(2)
		gt.Value(t, activities[1].Action).Equal(domain.ActivityStatusChanged)
		gt.Value(t, activities[1].Detail).Equal("status changed from open to in_progress")

		emitted := f.recorder.byType(events.EventTicketUpdated)
		gt.Array(t, emitted).Length(1)
		payload := emitted[0].Payload.(events.TicketUpdatedPayload)
		gt.Value(t, payload.Changes["status"].Old).Equal("open")
		gt.Value(t, payload.Changes["status"].New).Equal("in_progress")
	})

	t.Run("identical payload is a no-op", func(t *testing.T) {
		f := newFixture(t)
		user := f.addProfile(t, domain.RoleUser, nil)
		agent := f.addProfile(t, domain.RoleAgent, nil)
		ticket := f.createTicket(t, user, domain.TicketPriorityNormal)
		f.recorder.reset()

		status := ticket.Status
		priority := ticket.Priority
		updated, err := f.service.UpdateTicket(ctx, agent, ticket.ID, service.UpdateTicketInput{
			Status:   &status,
			Priority: &priority,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.UpdatedAt).Equal(ticket.UpdatedAt)

		activities, err := f.activities.ListByTicket(ctx, ticket.ID, 0, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, activities).Length(1)
		gt.Array(t, f.recorder.byType(events.EventTicketUpdated)).Length(0)
	})

	t.Run("priority change recomputes the deadline from creation", func(t *testing.T) {
		f := newFixture(t)
		user := f.addProfile(t, domain.RoleUser, nil)
		agent := f.addProfile(t, domain.RoleAgent, nil)
		ticket := f.createTicket(t, user, domain.TicketPriorityNormal)

		priority := domain.TicketPriorityUrgent
		updated, err := f.service.UpdateTicket(ctx, agent, ticket.ID, service.UpdateTicketInput{Priority: &priority})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.SLADueAt).Equal(ticket.CreatedAt.Add(4 * time.Hour))
	})

	t.Run("resolving emits ticket_resolved", func(t *testing.T) {
		f := newFixture(t)
		user := f.addProfile(t, domain.RoleUser, nil)
		agent := f.addProfile(t, domain.RoleAgent, nil)
		ticket := f.createTicket(t, user, domain.TicketPriorityNormal)
		f.recorder.reset()

		status := domain.TicketStatusResolved
		resolution := "replaced the fuser"
		_, err := f.service.UpdateTicket(ctx, agent, ticket.ID, service.UpdateTicketInput{
			Status:     &status,
			Resolution: &resolution,
		})
		gt.NoError(t, err).Required()

		resolved := f.recorder.byType(events.EventTicketResolved)
		gt.Array(t, resolved).Length(1)
		gt.Value(t, resolved[0].Payload.(events.TicketResolvedPayload).Resolution).Equal("replaced the fuser")
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		f := newFixture(t)
		user := f.addProfile(t, domain.RoleUser, nil)
		agent := f.addProfile(t, domain.RoleAgent, nil)
		ticket := f.createTicket(t, user, domain.TicketPriorityNormal)

		stale := ticket.UpdatedAt.Add(-time.Minute)
		status := domain.TicketStatusPending
		_, err := f.service.UpdateTicket(ctx, agent, ticket.ID, service.UpdateTicketInput{
			Status:            &status,
			ExpectedUpdatedAt: &stale,
		})
		gt.Error(t, err)
		gt.Value(t, apperrors.ToDomainError(err).HTTPStatus).Equal(409)
	})

	t.Run("non-staff cannot change status", func(t *testing.T) {
		f := newFixture(t)
		user := f.addProfile(t, domain.RoleUser, nil)
		ticket := f.createTicket(t, user, domain.TicketPriorityNormal)

		status := domain.TicketStatusResolved
		_, err := f.service.UpdateTicket(ctx, user, ticket.ID, service.UpdateTicketInput{Status: &status})
		gt.Error(t, err)
		gt.Value(t, apperrors.ToDomainError(err).HTTPStatus).Equal(403)
	})

	t.Run("creator may retitle their own ticket", func(t *testing.T) {
		f := newFixture(t)
		user := f.addProfile(t, domain.RoleUser, nil)
		ticket := f.createTicket(t, user, domain.TicketPriorityNormal)

		title := "printer on fire, third floor"
		updated, err := f.service.UpdateTicket(ctx, user, ticket.ID, service.UpdateTicketInput{Title: &title})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Title).Equal(title)
	})
}

func TestBulkUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.addProfile(t, domain.RoleUser, nil)
	agent := f.addProfile(t, domain.RoleAgent, nil)

	first := f.createTicket(t, user, domain.TicketPriorityNormal)
	second := f.createTicket(t, user, domain.TicketPriorityNormal)
	f.recorder.reset()

	t.Run("staff only", func(t *testing.T) {
		status := domain.TicketStatusClosed
		_, err := f.service.BulkUpdate(ctx, user, []string{first.ID}, service.UpdateTicketInput{Status: &status})
		gt.Error(t, err)
	})

	t.Run("applies to every ticket with bulk-flagged events", func(t *testing.T) {
		status := domain.TicketStatusClosed
		updated, err := f.service.BulkUpdate(ctx, agent, []string{first.ID, second.ID}, service.UpdateTicketInput{Status: &status})
		gt.NoError(t, err).Required()
		gt.Array(t, updated).Length(2)

		for _, ticketID := range []string{first.ID, second.ID} {
			activities, err := f.activities.ListByTicket(ctx, ticketID, 0, 0)
			gt.NoError(t, err).Required()
			gt.Array(t, activities).Length(2)
			gt.Value(t, activities[1].Action).Equal(domain.ActivityBulkUpdated)
		}

		emitted := f.recorder.byType(events.EventTicketUpdated)
		gt.Array(t, emitted).Length(2)
		for _, event := range emitted {
			gt.Bool(t, event.Payload.(events.TicketUpdatedPayload).Bulk).True()
		}
	})

	t.Run("skips unknown tickets instead of failing", func(t *testing.T) {
		status := domain.TicketStatusOpen
		updated, err := f.service.BulkUpdate(ctx, agent, []string{first.ID, "missing"}, service.UpdateTicketInput{Status: &status})
		gt.NoError(t, err).Required()
		gt.Array(t, updated).Length(1)
	})
}

func TestDeleteTicketCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.addProfile(t, domain.RoleUser, nil)
	agent := f.addProfile(t, domain.RoleAgent, nil)
	admin := f.addProfile(t, domain.RoleAdmin, nil)

	ticket := f.createTicket(t, user, domain.TicketPriorityNormal)
	_, err := f.service.AddMessage(ctx, user, ticket.ID, "any update?", false, domain.MessageTypeComment)
	gt.NoError(t, err).Required()
	_, err = f.service.UploadAttachments(ctx, user, ticket.ID, []service.UploadInput{
		{FileName: "screenshot.png", MimeType: "image/png", Content: strings.NewReader("pixels")},
		{FileName: "log.txt", MimeType: "text/plain", Content: strings.NewReader("boom")},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, f.files.count()).Equal(2)

	t.Run("agents cannot delete", func(t *testing.T) {
		gt.Error(t, f.service.DeleteTicket(ctx, agent, ticket.ID))
	})

	t.Run("admin delete removes everything the ticket owns", func(t *testing.T) {
		gt.NoError(t, f.service.DeleteTicket(ctx, admin, ticket.ID)).Required()

		_, err := f.tickets.GetByID(ctx, ticket.ID)
		gt.Error(t, err)

		messages, err := f.messages.ListByTicket(ctx, ticket.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, messages).Length(0)

		attachments, err := f.attachments.ListByTicket(ctx, ticket.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, attachments).Length(0)

		activities, err := f.activities.ListByTicket(ctx, ticket.ID, 0, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, activities).Length(0)

		gt.Value(t, f.files.count()).Equal(0)
	})
}

func TestAddMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.addProfile(t, domain.RoleUser, nil)
	agent := f.addProfile(t, domain.RoleAgent, nil)
	ticket := f.createTicket(t, user, domain.TicketPriorityNormal)

	t.Run("internal notes require staff", func(t *testing.T) {
		_, err := f.service.AddMessage(ctx, user, ticket.ID, "note to self", true, domain.MessageTypeComment)
		gt.Error(t, err)

		message, err := f.service.AddMessage(ctx, agent, ticket.ID, "escalating to tier 2", true, domain.MessageTypeComment)
		gt.NoError(t, err).Required()
		gt.Bool(t, message.IsInternal).True()
	})

	t.Run("empty body rejected", func(t *testing.T) {
		_, err := f.service.AddMessage(ctx, user, ticket.ID, "   ", false, domain.MessageTypeComment)
		gt.Error(t, err)
	})

	t.Run("message_added event carries a preview", func(t *testing.T) {
		f.recorder.reset()
		_, err := f.service.AddMessage(ctx, user, ticket.ID, "still broken", false, domain.MessageTypeComment)
		gt.NoError(t, err).Required()

		emitted := f.recorder.byType(events.EventMessageAdded)
		gt.Array(t, emitted).Length(1)
		gt.Value(t, emitted[0].Payload.(events.MessageAddedPayload).BodyPreview).Equal("still broken")
	})
}

func TestUploadAttachments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.addProfile(t, domain.RoleUser, nil)
	ticket := f.createTicket(t, user, domain.TicketPriorityNormal)

	t.Run("insert failure removes the stored file", func(t *testing.T) {
		f.attachments.FailNextCreate()
		_, err := f.service.UploadAttachments(ctx, user, ticket.ID, []service.UploadInput{
			{FileName: "dump.bin", MimeType: "application/octet-stream", Content: strings.NewReader("data")},
		})
		gt.Error(t, err)
		gt.Value(t, f.files.count()).Equal(0)
	})

	t.Run("success stores bytes and metadata together", func(t *testing.T) {
		saved, err := f.service.UploadAttachments(ctx, user, ticket.ID, []service.UploadInput{
			{FileName: "dump.bin", MimeType: "application/octet-stream", Content: strings.NewReader("data")},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, saved).Length(1)
		gt.Value(t, saved[0].SizeBytes).Equal(int64(4))
		gt.Value(t, f.files.count()).Equal(1)

		attachment, reader, err := f.service.OpenAttachment(ctx, user, saved[0].ID)
		gt.NoError(t, err).Required()
		defer reader.Close()
		gt.Value(t, attachment.FileName).Equal("dump.bin")
		data, err := io.ReadAll(reader)
		gt.NoError(t, err).Required()
		gt.Value(t, string(data)).Equal("data")
	})
}

func TestSLASummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.addProfile(t, domain.RoleUser, nil)
	agent := f.addProfile(t, domain.RoleAgent, nil)

	// an urgent ticket created four and a half hours ago is past its 4h
	// deadline; one due in an hour is inside the warning window
	overdue := &domain.Ticket{
		Number:    "TKT-20260829-OVRDUE",
		CreatorID: user.ID,
		Title:     "database down",
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityUrgent,
		SLADueAt:  time.Now().Add(-30 * time.Minute),
	}
	gt.NoError(t, f.tickets.Create(ctx, overdue)).Required()

	warning := &domain.Ticket{
		Number:    "TKT-20260829-DUESOO",
		CreatorID: user.ID,
		Title:     "slow dashboard",
		Status:    domain.TicketStatusInProgress,
		Priority:  domain.TicketPriorityHigh,
		SLADueAt:  time.Now().Add(time.Hour),
	}
	gt.NoError(t, f.tickets.Create(ctx, warning)).Required()

	healthy := &domain.Ticket{
		Number:    "TKT-20260829-ONTRAC",
		CreatorID: user.ID,
		Title:     "new laptop request",
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityLow,
		SLADueAt:  time.Now().Add(70 * time.Hour),
	}
	gt.NoError(t, f.tickets.Create(ctx, healthy)).Required()

	t.Run("staff only", func(t *testing.T) {
		_, err := f.service.SLASummary(ctx, user)
		gt.Error(t, err)
	})

	t.Run("classifies and flags breaches", func(t *testing.T) {
		f.recorder.reset()
		summary, err := f.service.SLASummary(ctx, agent)
		gt.NoError(t, err).Required()
		gt.Value(t, summary.Overdue).Equal(1)
		gt.Value(t, summary.DueSoon).Equal(1)
		gt.Value(t, summary.OnTrack).Equal(1)
		gt.Array(t, summary.Breached).Length(1)
		gt.Value(t, summary.Breached[0].ID).Equal(overdue.ID)

		breaches := f.recorder.byType(events.EventSLABreach)
		gt.Array(t, breaches).Length(1)
		gt.Value(t, breaches[0].TicketID).Equal(overdue.ID)
	})
}

func TestAnalyticsSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.addProfile(t, domain.RoleUser, nil)
	agent := f.addProfile(t, domain.RoleAgent, nil)

	f.createTicket(t, user, domain.TicketPriorityNormal)
	f.createTicket(t, user, domain.TicketPriorityUrgent)
	ticket := f.createTicket(t, user, domain.TicketPriorityLow)
	status := domain.TicketStatusResolved
	_, err := f.service.UpdateTicket(ctx, agent, ticket.ID, service.UpdateTicketInput{Status: &status})
	gt.NoError(t, err).Required()

	summary, err := f.service.AnalyticsSummary(ctx, agent)
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Total).Equal(int64(3))
	gt.Value(t, summary.ByStatus[domain.TicketStatusOpen]).Equal(int64(2))
	gt.Value(t, summary.ByStatus[domain.TicketStatusResolved]).Equal(int64(1))
	gt.Value(t, summary.ByPriority[domain.TicketPriorityUrgent]).Equal(int64(1))
	gt.Value(t, summary.Overdue).Equal(int64(0))

	_, err = f.service.AnalyticsSummary(ctx, user)
	gt.Error(t, err)
}
