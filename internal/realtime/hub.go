package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/policy"
)

// TicketSource provides the current ticket state for join-time access
// checks. Satisfied by repository.TicketRepository.
type TicketSource interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
}

// Hub manages authenticated connections, room membership and broadcasts.
// It is an explicit, injectable instance: construct at startup, Shutdown at
// teardown, and instantiate fresh in tests.
//
// Scaling note: membership lives in process memory, so a deployment with
// multiple API instances would need a shared broker behind Broadcast.
// Presence already goes through PresenceStore to leave that seam open.
type Hub struct {
	tickets  TicketSource
	presence PresenceStore
	logger   *zap.Logger
	metrics  *observability.Metrics
	bufSize  int

	mu    sync.RWMutex
	conns map[string]*Connection
	rooms map[RoomID]map[*Connection]struct{}
}

// HubDeps bundles hub dependencies.
type HubDeps struct {
	Tickets    TicketSource
	Presence   PresenceStore
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	SendBuffer int
}

// NewHub constructs a hub.
func NewHub(deps HubDeps) *Hub {
	presence := deps.Presence
	if presence == nil {
		presence = NewMemoryPresence()
	}
	return &Hub{
		tickets:  deps.Tickets,
		presence: presence,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		bufSize:  deps.SendBuffer,
		conns:    make(map[string]*Connection),
		rooms:    make(map[RoomID]map[*Connection]struct{}),
	}
}

// Register admits an authenticated profile and auto-joins its standing
// rooms: the private user room, the staff room for agents and admins, the
// admin room for admins, and the department room when the profile has one.
func (h *Hub) Register(ctx context.Context, profile *domain.Profile) *Connection {
	conn := newConnection(profile, h.bufSize)

	h.mu.Lock()
	h.conns[conn.ID] = conn
	h.joinLocked(conn, UserRoom(conn.Principal.ID))
	if conn.Principal.IsStaff() {
		h.joinLocked(conn, StaffRoom)
	}
	if conn.Principal.Role == domain.RoleAdmin {
		h.joinLocked(conn, AdminRoom)
	}
	if conn.Principal.DepartmentID != nil {
		h.joinLocked(conn, DepartmentRoom(*conn.Principal.DepartmentID))
	}
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	if err := h.presence.Set(ctx, conn.Principal.ID, "online"); err != nil {
		h.logger.Warn("presence store set failed", zap.Error(err))
	}
	h.BroadcastAll(NewEnvelope(EventUserPresenceUpdated, PresencePayload{
		UserID: conn.Principal.ID,
		Status: "online",
	}))

	h.logger.Debug("connection registered",
		zap.String("conn_id", conn.ID),
		zap.String("user_id", conn.Principal.ID),
		zap.String("role", string(conn.Principal.Role)))
	return conn
}

// Unregister drops a connection from all rooms, destroys it and announces
// the user going offline to every remaining connection.
func (h *Hub) Unregister(ctx context.Context, conn *Connection) {
	h.mu.Lock()
	if _, ok := h.conns[conn.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, conn.ID)
	for room, members := range h.rooms {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	conn.close()
	h.metrics.ConnectionClosed()
	if err := h.presence.Clear(ctx, conn.Principal.ID); err != nil {
		h.logger.Warn("presence store clear failed", zap.Error(err))
	}
	h.BroadcastAll(NewEnvelope(EventUserPresenceUpdated, PresencePayload{
		UserID: conn.Principal.ID,
		Status: "offline",
	}))
}

// HandleMessage dispatches one client action. Malformed or unknown actions
// produce an error event on the requesting connection, never a drop.
func (h *Hub) HandleMessage(ctx context.Context, conn *Connection, msg ClientMessage) {
	switch msg.Action {
	case ActionJoinTicket:
		h.JoinTicket(ctx, conn, msg.TicketID)
	case ActionLeaveTicket:
		h.LeaveTicket(conn, msg.TicketID)
	case ActionTypingStart:
		h.Typing(conn, msg.TicketID, true)
	case ActionTypingStop:
		h.Typing(conn, msg.TicketID, false)
	case ActionUpdatePresence:
		h.UpdatePresence(ctx, conn, msg.Status)
	default:
		conn.Send(NewEnvelope(EventError, ErrorPayload{
			Code:    "UNKNOWN_ACTION",
			Message: "unsupported action",
		}))
	}
}

// JoinTicket adds the connection to a ticket room after re-checking access
// against the current ticket state. Authorization is evaluated at join
// time only; a later revocation takes effect on the next join attempt, not
// mid-membership.
func (h *Hub) JoinTicket(ctx context.Context, conn *Connection, ticketID string) {
	if ticketID == "" {
		conn.Send(NewEnvelope(EventError, ErrorPayload{
			Code:    "VALIDATION_FAILED",
			Message: "ticket_id required",
		}))
		return
	}

	ticket, err := h.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			conn.Send(NewEnvelope(EventError, ErrorPayload{
				Code:    "NOT_FOUND",
				Message: "ticket not found",
			}))
			return
		}
		h.logger.Error("ticket lookup failed during join", zap.Error(err))
		conn.Send(NewEnvelope(EventError, ErrorPayload{
			Code:    "DEPENDENCY_UNAVAILABLE",
			Message: "ticket lookup failed",
		}))
		return
	}
	if !policy.CanView(conn.Principal, ticket) {
		conn.Send(NewEnvelope(EventError, ErrorPayload{
			Code:    "FORBIDDEN",
			Message: "access denied",
		}))
		return
	}

	room := TicketRoom(ticketID)
	h.mu.Lock()
	h.joinLocked(conn, room)
	h.mu.Unlock()

	conn.Send(NewEnvelope(EventJoinedTicket, RoomPayload{
		TicketID: ticketID,
		Room:     room.String(),
	}))
}

// LeaveTicket removes the connection from a ticket room. Leaving a room
// the connection never joined is an error event, not a silent no-op.
func (h *Hub) LeaveTicket(conn *Connection, ticketID string) {
	room := TicketRoom(ticketID)

	h.mu.Lock()
	members, ok := h.rooms[room]
	if ok {
		_, ok = members[conn]
	}
	if ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	if !ok {
		conn.Send(NewEnvelope(EventError, ErrorPayload{
			Code:    "FORBIDDEN",
			Message: "not a member of the ticket room",
		}))
		return
	}

	conn.Send(NewEnvelope(EventLeftTicket, RoomPayload{
		TicketID: ticketID,
		Room:     room.String(),
	}))
}

// Typing announces typing state to the ticket room, excluding the typist's
// own connection. Only room members may announce; membership is the access
// check here, since joining already re-validated view access.
func (h *Hub) Typing(conn *Connection, ticketID string, started bool) {
	room := TicketRoom(ticketID)
	if !h.InRoom(conn, room) {
		conn.Send(NewEnvelope(EventError, ErrorPayload{
			Code:    "FORBIDDEN",
			Message: "not a member of the ticket room",
		}))
		return
	}

	event := EventUserTyping
	if !started {
		event = EventUserStoppedTyping
	}
	h.BroadcastExcept(room, NewEnvelope(event, TypingPayload{
		TicketID: ticketID,
		UserID:   conn.Principal.ID,
		Name:     conn.DisplayName,
	}), conn)
}

// UpdatePresence records the new status and announces it to every
// connection, including the actor's own.
func (h *Hub) UpdatePresence(ctx context.Context, conn *Connection, status string) {
	if status == "" {
		conn.Send(NewEnvelope(EventError, ErrorPayload{
			Code:    "VALIDATION_FAILED",
			Message: "status required",
		}))
		return
	}
	if err := h.presence.Set(ctx, conn.Principal.ID, status); err != nil {
		h.logger.Warn("presence store set failed", zap.Error(err))
	}
	h.BroadcastAll(NewEnvelope(EventUserPresenceUpdated, PresencePayload{
		UserID: conn.Principal.ID,
		Status: status,
	}))
}

// Broadcast delivers an envelope to every member of the room.
func (h *Hub) Broadcast(room RoomID, envelope Envelope) {
	h.BroadcastExcept(room, envelope, nil)
}

// BroadcastExcept delivers to room members, skipping one connection.
func (h *Hub) BroadcastExcept(room RoomID, envelope Envelope, except *Connection) {
	h.mu.RLock()
	members := make([]*Connection, 0, len(h.rooms[room]))
	for member := range h.rooms[room] {
		if member != except {
			members = append(members, member)
		}
	}
	h.mu.RUnlock()

	for _, member := range members {
		if !member.Send(envelope) {
			h.logger.Debug("dropped realtime event",
				zap.String("event", string(envelope.Event)),
				zap.String("conn_id", member.ID))
		}
	}
	h.metrics.RecordBroadcast(string(envelope.Event))
}

// BroadcastAll delivers to every live connection.
func (h *Hub) BroadcastAll(envelope Envelope) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Send(envelope)
	}
	h.metrics.RecordBroadcast(string(envelope.Event))
}

// InRoom reports room membership.
func (h *Hub) InRoom(conn *Connection, room RoomID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][conn]
	return ok
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Shutdown closes every connection. The hub must not be reused after.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[string]*Connection)
	h.rooms = make(map[RoomID]map[*Connection]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

// joinLocked requires h.mu held for writing.
func (h *Hub) joinLocked(conn *Connection, room RoomID) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Connection]struct{})
		h.rooms[room] = members
	}
	members[conn] = struct{}{}
}
