package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mail"
	"github.com/spec-kit/support-desk/internal/realtime"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/worker"
)

// Broadcaster is the realtime fan-out surface the router pushes into.
// Satisfied by realtime.Hub.
type Broadcaster interface {
	Broadcast(room realtime.RoomID, envelope realtime.Envelope)
	BroadcastAll(envelope realtime.Envelope)
}

// EmailQueue hands delivery tasks to the background worker. Satisfied by
// worker.EmailWorker.
type EmailQueue interface {
	Enqueue(task worker.EmailTask)
}

// NotificationService routes domain events to realtime rooms and the email
// queue. Realtime pushes happen synchronously inside Publish; email goes
// through the queue and never blocks the originating mutation.
type NotificationService struct {
	cfg      config.NotificationConfig
	profiles repository.ProfileRepository
	hub      Broadcaster
	emails   EmailQueue
	logger   *zap.Logger
}

// NewNotificationService constructs the router.
func NewNotificationService(cfg config.NotificationConfig, profiles repository.ProfileRepository, hub Broadcaster, emails EmailQueue, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		cfg:      cfg,
		profiles: profiles,
		hub:      hub,
		emails:   emails,
		logger:   logger,
	}
}

// Register subscribes the router's handlers on the dispatcher.
func (n *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, n.onTicketCreated)
	dispatcher.Subscribe(events.EventTicketUpdated, n.onTicketUpdated)
	dispatcher.Subscribe(events.EventTicketAssigned, n.onTicketAssigned)
	dispatcher.Subscribe(events.EventTicketResolved, n.onTicketResolved)
	dispatcher.Subscribe(events.EventMessageAdded, n.onMessageAdded)
	dispatcher.Subscribe(events.EventFilesUploaded, n.onFilesUploaded)
	dispatcher.Subscribe(events.EventSLABreach, n.onSLABreach)
}

// ticketEventPayload is the envelope body for ticket-scoped pushes.
type ticketEventPayload struct {
	TicketID string `json:"ticket_id"`
	ActorID  string `json:"actor_id"`
	Data     any    `json:"data"`
}

func (n *NotificationService) onTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}

	envelope := realtime.NewEnvelope(realtime.EventNewTicket, ticketEventPayload{
		TicketID: event.TicketID,
		ActorID:  event.Actor.ID,
		Data:     payload,
	})
	n.hub.Broadcast(realtime.StaffRoom, envelope)
	if payload.DepartmentID != nil {
		n.hub.Broadcast(realtime.DepartmentRoom(*payload.DepartmentID), envelope)
	}
	n.hub.Broadcast(realtime.UserRoom(payload.CreatorID),
		realtime.NewEnvelope(realtime.EventNewNotification, ticketEventPayload{
			TicketID: event.TicketID,
			ActorID:  event.Actor.ID,
			Data:     payload,
		}))

	if n.cfg.EnabledFor("created") {
		recipients := dedupe(append(n.adminEmails(ctx), n.profileEmail(ctx, payload.CreatorID)))
		n.enqueueEmail(recipients, mail.TemplateTicketCreated, map[string]any{
			"ticket_id": event.TicketID,
			"number":    payload.Number,
			"title":     payload.Title,
			"priority":  string(payload.Priority),
		})
	}
	return nil
}

func (n *NotificationService) onTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return nil
	}

	n.hub.Broadcast(realtime.TicketRoom(event.TicketID),
		realtime.NewEnvelope(realtime.EventTicketUpdated, ticketEventPayload{
			TicketID: event.TicketID,
			ActorID:  event.Actor.ID,
			Data:     payload,
		}))

	// bulk sweeps would flood inboxes; realtime push is enough for those
	if payload.Bulk || !n.cfg.EnabledFor("updated") {
		return nil
	}
	// only status transitions warrant mail; retitles and reprioritizations
	// reach the room over the socket
	if _, ok := payload.Changes["status"]; !ok {
		return nil
	}
	n.enqueueEmail(dedupe([]string{n.profileEmail(ctx, payload.CreatorID)}), mail.TemplateTicketUpdated, map[string]any{
		"ticket_id": event.TicketID,
		"changes":   payload.Changes,
	})
	return nil
}

func (n *NotificationService) onTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}

	envelope := realtime.NewEnvelope(realtime.EventTicketAssigned, ticketEventPayload{
		TicketID: event.TicketID,
		ActorID:  event.Actor.ID,
		Data:     payload,
	})
	n.hub.Broadcast(realtime.UserRoom(payload.AssigneeID), envelope)
	n.hub.Broadcast(realtime.TicketRoom(event.TicketID), envelope)

	if n.cfg.EnabledFor("assigned") {
		recipients := dedupe([]string{
			n.profileEmail(ctx, payload.AssigneeID),
			n.profileEmail(ctx, payload.CreatorID),
		})
		n.enqueueEmail(recipients, mail.TemplateTicketAssigned, map[string]any{
			"ticket_id":   event.TicketID,
			"assignee_id": payload.AssigneeID,
		})
	}
	return nil
}

func (n *NotificationService) onTicketResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketResolvedPayload)
	if !ok {
		return nil
	}

	n.hub.Broadcast(realtime.TicketRoom(event.TicketID),
		realtime.NewEnvelope(realtime.EventNewNotification, ticketEventPayload{
			TicketID: event.TicketID,
			ActorID:  event.Actor.ID,
			Data:     payload,
		}))

	if n.cfg.EnabledFor("resolved") {
		n.enqueueEmail(dedupe([]string{n.profileEmail(ctx, payload.CreatorID)}), mail.TemplateTicketResolved, map[string]any{
			"ticket_id":  event.TicketID,
			"resolution": payload.Resolution,
		})
	}
	return nil
}

func (n *NotificationService) onMessageAdded(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MessageAddedPayload)
	if !ok {
		return nil
	}

	envelope := realtime.NewEnvelope(realtime.EventNewMessage, ticketEventPayload{
		TicketID: event.TicketID,
		ActorID:  event.Actor.ID,
		Data:     payload,
	})
	// internal notes go to the staff room only: the ticket room may hold
	// the ticket's creator
	if payload.IsInternal {
		n.hub.Broadcast(realtime.StaffRoom, envelope)
		return nil
	}
	n.hub.Broadcast(realtime.TicketRoom(event.TicketID), envelope)
	return nil
}

func (n *NotificationService) onFilesUploaded(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.FilesUploadedPayload)
	if !ok {
		return nil
	}
	n.hub.Broadcast(realtime.TicketRoom(event.TicketID),
		realtime.NewEnvelope(realtime.EventFilesUploaded, ticketEventPayload{
			TicketID: event.TicketID,
			ActorID:  event.Actor.ID,
			Data:     payload,
		}))
	return nil
}

func (n *NotificationService) onSLABreach(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLABreachPayload)
	if !ok {
		return nil
	}

	envelope := realtime.NewEnvelope(realtime.EventSLABreach, ticketEventPayload{
		TicketID: event.TicketID,
		ActorID:  event.Actor.ID,
		Data:     payload,
	})
	n.hub.Broadcast(realtime.AdminRoom, envelope)
	if payload.AssigneeID != nil {
		n.hub.Broadcast(realtime.UserRoom(*payload.AssigneeID), envelope)
	}
	return nil
}

// Announce pushes a system_announcement to every connection. Admin intent
// is enforced at the API layer.
func (n *NotificationService) Announce(message string, actor domain.Principal) {
	n.hub.BroadcastAll(realtime.NewEnvelope(realtime.EventSystemAnnouncement, map[string]any{
		"message":  message,
		"actor_id": actor.ID,
	}))
}

func (n *NotificationService) enqueueEmail(recipients []string, kind mail.TemplateKind, data map[string]any) {
	if n.emails == nil || len(recipients) == 0 {
		return
	}
	n.emails.Enqueue(worker.EmailTask{Recipients: recipients, Kind: kind, Data: data})
}

func (n *NotificationService) adminEmails(ctx context.Context) []string {
	emails := append([]string{}, n.cfg.AdminEmails...)
	admins, err := n.profiles.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		n.logger.Warn("failed to resolve admin recipients", zap.Error(err))
		return emails
	}
	for _, admin := range admins {
		emails = append(emails, admin.Email)
	}
	return emails
}

func (n *NotificationService) profileEmail(ctx context.Context, profileID string) string {
	if profileID == "" {
		return ""
	}
	profile, err := n.profiles.GetByID(ctx, profileID)
	if err != nil {
		n.logger.Warn("failed to resolve recipient email",
			zap.String("profile_id", profileID), zap.Error(err))
		return ""
	}
	return profile.Email
}

// dedupe drops empty and repeated addresses, preserving order.
func dedupe(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var out []string
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
