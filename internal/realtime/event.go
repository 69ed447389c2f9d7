package realtime

import "time"

// EventName identifies a server-emitted realtime event.
type EventName string

const (
	EventJoinedTicket        EventName = "joined_ticket"
	EventLeftTicket          EventName = "left_ticket"
	EventError               EventName = "error"
	EventUserTyping          EventName = "user_typing"
	EventUserStoppedTyping   EventName = "user_stopped_typing"
	EventUserPresenceUpdated EventName = "user_presence_updated"
	EventTicketUpdated       EventName = "ticket_updated"
	EventNewMessage          EventName = "new_message"
	EventTicketAssigned      EventName = "ticket_assigned"
	EventNewTicket           EventName = "new_ticket"
	EventNewNotification     EventName = "new_notification"
	EventSLABreach           EventName = "sla_breach"
	EventSystemAnnouncement  EventName = "system_announcement"
	EventFilesUploaded       EventName = "files_uploaded"
)

// Envelope is the frame delivered to clients. Every broadcast carries an
// implicit timestamp.
type Envelope struct {
	Event     EventName `json:"event"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnvelope stamps an envelope with the current time.
func NewEnvelope(event EventName, payload any) Envelope {
	return Envelope{Event: event, Payload: payload, Timestamp: time.Now()}
}

// ClientAction identifies a client-issued request on the socket.
type ClientAction string

const (
	ActionJoinTicket     ClientAction = "join_ticket"
	ActionLeaveTicket    ClientAction = "leave_ticket"
	ActionTypingStart    ClientAction = "typing_start"
	ActionTypingStop     ClientAction = "typing_stop"
	ActionUpdatePresence ClientAction = "update_presence"
)

// ClientMessage is the inbound frame read from a connection.
type ClientMessage struct {
	Action   ClientAction `json:"action"`
	TicketID string       `json:"ticket_id,omitempty"`
	Status   string       `json:"status,omitempty"`
}

// ErrorPayload is delivered only to the requesting connection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PresencePayload announces a presence change.
type PresencePayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// TypingPayload announces typing state in a ticket room.
type TypingPayload struct {
	TicketID string `json:"ticket_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
}

// RoomPayload acknowledges a join or leave.
type RoomPayload struct {
	TicketID string `json:"ticket_id"`
	Room     string `json:"room"`
}
