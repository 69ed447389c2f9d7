package realtime_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/realtime"
	"github.com/spec-kit/support-desk/internal/repository"
)

func newTestHub(t *testing.T) (*realtime.Hub, *repository.MemoryTicketRepository, *realtime.MemoryPresence) {
	t.Helper()
	tickets := repository.NewMemoryTicketRepository()
	presence := realtime.NewMemoryPresence()
	hub := realtime.NewHub(realtime.HubDeps{
		Tickets:    tickets,
		Presence:   presence,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
		SendBuffer: 16,
	})
	return hub, tickets, presence
}

func profileWith(id string, role domain.Role, departmentID *string) *domain.Profile {
	return &domain.Profile{
		ID:           id,
		DisplayName:  id,
		Role:         role,
		DepartmentID: departmentID,
	}
}

// drain empties a connection's outbound queue without blocking.
func drain(conn *realtime.Connection) []realtime.Envelope {
	var out []realtime.Envelope
	for {
		select {
		case envelope, ok := <-conn.Outbound():
			if !ok {
				return out
			}
			out = append(out, envelope)
		default:
			return out
		}
	}
}

func byEvent(envelopes []realtime.Envelope, event realtime.EventName) []realtime.Envelope {
	var out []realtime.Envelope
	for _, envelope := range envelopes {
		if envelope.Event == event {
			out = append(out, envelope)
		}
	}
	return out
}

func TestRegisterAutoJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("admin joins user, staff and admin rooms", func(t *testing.T) {
		hub, _, presence := newTestHub(t)
		conn := hub.Register(ctx, profileWith("admin-1", domain.RoleAdmin, nil))

		gt.Bool(t, hub.InRoom(conn, realtime.UserRoom("admin-1"))).True()
		gt.Bool(t, hub.InRoom(conn, realtime.StaffRoom)).True()
		gt.Bool(t, hub.InRoom(conn, realtime.AdminRoom)).True()
		gt.Value(t, hub.ConnectionCount()).Equal(1)

		status, err := presence.Get(ctx, "admin-1")
		gt.NoError(t, err).Required()
		gt.Value(t, status).Equal("online")
	})

	t.Run("plain user joins only their own and department rooms", func(t *testing.T) {
		hub, _, _ := newTestHub(t)
		dep := "dep-net"
		conn := hub.Register(ctx, profileWith("user-1", domain.RoleUser, &dep))

		gt.Bool(t, hub.InRoom(conn, realtime.UserRoom("user-1"))).True()
		gt.Bool(t, hub.InRoom(conn, realtime.DepartmentRoom(dep))).True()
		gt.Bool(t, hub.InRoom(conn, realtime.StaffRoom)).False()
		gt.Bool(t, hub.InRoom(conn, realtime.AdminRoom)).False()
	})

	t.Run("registration announces presence to existing connections", func(t *testing.T) {
		hub, _, _ := newTestHub(t)
		first := hub.Register(ctx, profileWith("user-1", domain.RoleUser, nil))
		drain(first)

		hub.Register(ctx, profileWith("user-2", domain.RoleUser, nil))

		updates := byEvent(drain(first), realtime.EventUserPresenceUpdated)
		gt.Array(t, updates).Length(1)
		payload := updates[0].Payload.(realtime.PresencePayload)
		gt.Value(t, payload.UserID).Equal("user-2")
		gt.Value(t, payload.Status).Equal("online")
	})
}

func TestJoinTicket(t *testing.T) {
	ctx := context.Background()
	hub, tickets, _ := newTestHub(t)

	ticket := &domain.Ticket{
		Number:    "TKT-20260829-JOIN01",
		CreatorID: "creator-1",
		Title:     "vpn broken",
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityNormal,
	}
	gt.NoError(t, tickets.Create(ctx, ticket)).Required()

	t.Run("creator joins their ticket room", func(t *testing.T) {
		conn := hub.Register(ctx, profileWith("creator-1", domain.RoleUser, nil))
		drain(conn)

		hub.HandleMessage(ctx, conn, realtime.ClientMessage{
			Action:   realtime.ActionJoinTicket,
			TicketID: ticket.ID,
		})

		joined := byEvent(drain(conn), realtime.EventJoinedTicket)
		gt.Array(t, joined).Length(1)
		gt.Bool(t, hub.InRoom(conn, realtime.TicketRoom(ticket.ID))).True()
	})

	t.Run("uninvolved user receives an error event and stays out", func(t *testing.T) {
		conn := hub.Register(ctx, profileWith("stranger-1", domain.RoleUser, nil))
		drain(conn)

		hub.JoinTicket(ctx, conn, ticket.ID)

		errEvents := byEvent(drain(conn), realtime.EventError)
		gt.Array(t, errEvents).Length(1)
		gt.Value(t, errEvents[0].Payload.(realtime.ErrorPayload).Code).Equal("FORBIDDEN")
		gt.Bool(t, hub.InRoom(conn, realtime.TicketRoom(ticket.ID))).False()
	})

	t.Run("unknown ticket yields not found", func(t *testing.T) {
		conn := hub.Register(ctx, profileWith("creator-1", domain.RoleUser, nil))
		drain(conn)

		hub.JoinTicket(ctx, conn, "missing")

		errEvents := byEvent(drain(conn), realtime.EventError)
		gt.Array(t, errEvents).Length(1)
		gt.Value(t, errEvents[0].Payload.(realtime.ErrorPayload).Code).Equal("NOT_FOUND")
	})

	t.Run("missing ticket id is a validation error", func(t *testing.T) {
		conn := hub.Register(ctx, profileWith("creator-1", domain.RoleUser, nil))
		drain(conn)

		hub.JoinTicket(ctx, conn, "")

		errEvents := byEvent(drain(conn), realtime.EventError)
		gt.Array(t, errEvents).Length(1)
		gt.Value(t, errEvents[0].Payload.(realtime.ErrorPayload).Code).Equal("VALIDATION_FAILED")
	})
}

func TestTypingExcludesSender(t *testing.T) {
	ctx := context.Background()
	hub, tickets, _ := newTestHub(t)

	ticket := &domain.Ticket{
		Number:    "TKT-20260829-TYPE01",
		CreatorID: "creator-1",
		Title:     "keyboard mushy",
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityNormal,
	}
	gt.NoError(t, tickets.Create(ctx, ticket)).Required()

	typist := hub.Register(ctx, profileWith("creator-1", domain.RoleUser, nil))
	watcher := hub.Register(ctx, profileWith("agent-1", domain.RoleAgent, nil))
	hub.JoinTicket(ctx, typist, ticket.ID)
	hub.JoinTicket(ctx, watcher, ticket.ID)
	drain(typist)
	drain(watcher)

	hub.HandleMessage(ctx, typist, realtime.ClientMessage{
		Action:   realtime.ActionTypingStart,
		TicketID: ticket.ID,
	})

	gt.Array(t, byEvent(drain(watcher), realtime.EventUserTyping)).Length(1)
	gt.Array(t, byEvent(drain(typist), realtime.EventUserTyping)).Length(0)
}

func TestTypingRequiresMembership(t *testing.T) {
	ctx := context.Background()
	hub, tickets, _ := newTestHub(t)

	ticket := &domain.Ticket{
		Number:    "TKT-20260829-TYPE02",
		CreatorID: "creator-1",
		Title:     "printer jam",
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityNormal,
	}
	gt.NoError(t, tickets.Create(ctx, ticket)).Required()

	member := hub.Register(ctx, profileWith("creator-1", domain.RoleUser, nil))
	hub.JoinTicket(ctx, member, ticket.ID)
	drain(member)

	t.Run("denied joiner cannot announce typing", func(t *testing.T) {
		stranger := hub.Register(ctx, profileWith("stranger-1", domain.RoleUser, nil))
		hub.JoinTicket(ctx, stranger, ticket.ID)
		drain(stranger)
		drain(member)

		hub.HandleMessage(ctx, stranger, realtime.ClientMessage{
			Action:   realtime.ActionTypingStart,
			TicketID: ticket.ID,
		})

		gt.Array(t, byEvent(drain(member), realtime.EventUserTyping)).Length(0)
		errEvents := byEvent(drain(stranger), realtime.EventError)
		gt.Array(t, errEvents).Length(1)
		gt.Value(t, errEvents[0].Payload.(realtime.ErrorPayload).Code).Equal("FORBIDDEN")
	})

	t.Run("leaving an unjoined room is an error event", func(t *testing.T) {
		stranger := hub.Register(ctx, profileWith("stranger-2", domain.RoleUser, nil))
		drain(stranger)

		hub.HandleMessage(ctx, stranger, realtime.ClientMessage{
			Action:   realtime.ActionLeaveTicket,
			TicketID: ticket.ID,
		})

		events := drain(stranger)
		gt.Array(t, byEvent(events, realtime.EventLeftTicket)).Length(0)
		errEvents := byEvent(events, realtime.EventError)
		gt.Array(t, errEvents).Length(1)
		gt.Value(t, errEvents[0].Payload.(realtime.ErrorPayload).Code).Equal("FORBIDDEN")
	})
}

func TestUpdatePresence(t *testing.T) {
	ctx := context.Background()
	hub, _, presence := newTestHub(t)

	conn := hub.Register(ctx, profileWith("user-1", domain.RoleUser, nil))
	drain(conn)

	hub.HandleMessage(ctx, conn, realtime.ClientMessage{
		Action: realtime.ActionUpdatePresence,
		Status: "away",
	})

	// the actor hears their own presence change
	updates := byEvent(drain(conn), realtime.EventUserPresenceUpdated)
	gt.Array(t, updates).Length(1)
	gt.Value(t, updates[0].Payload.(realtime.PresencePayload).Status).Equal("away")

	status, err := presence.Get(ctx, "user-1")
	gt.NoError(t, err).Required()
	gt.Value(t, status).Equal("away")
}

func TestUnknownActionError(t *testing.T) {
	ctx := context.Background()
	hub, _, _ := newTestHub(t)

	conn := hub.Register(ctx, profileWith("user-1", domain.RoleUser, nil))
	drain(conn)

	hub.HandleMessage(ctx, conn, realtime.ClientMessage{Action: "self_destruct"})

	errEvents := byEvent(drain(conn), realtime.EventError)
	gt.Array(t, errEvents).Length(1)
	gt.Value(t, errEvents[0].Payload.(realtime.ErrorPayload).Code).Equal("UNKNOWN_ACTION")
}

func TestUnregister(t *testing.T) {
	ctx := context.Background()
	hub, _, presence := newTestHub(t)

	leaving := hub.Register(ctx, profileWith("user-1", domain.RoleUser, nil))
	staying := hub.Register(ctx, profileWith("user-2", domain.RoleUser, nil))
	drain(staying)

	hub.Unregister(ctx, leaving)

	gt.Value(t, hub.ConnectionCount()).Equal(1)
	gt.Bool(t, hub.InRoom(leaving, realtime.UserRoom("user-1"))).False()

	updates := byEvent(drain(staying), realtime.EventUserPresenceUpdated)
	gt.Array(t, updates).Length(1)
	payload := updates[0].Payload.(realtime.PresencePayload)
	gt.Value(t, payload.UserID).Equal("user-1")
	gt.Value(t, payload.Status).Equal("offline")

	status, err := presence.Get(ctx, "user-1")
	gt.NoError(t, err).Required()
	gt.Value(t, status).Equal("offline")

	// a second unregister is a no-op
	hub.Unregister(ctx, leaving)
	gt.Value(t, hub.ConnectionCount()).Equal(1)
}
