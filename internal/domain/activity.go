package domain

import "time"

// ActivityAction tags what kind of change an audit entry records.
type ActivityAction string

const (
	ActivityTicketCreated   ActivityAction = "ticket_created"
	ActivityStatusChanged   ActivityAction = "status_changed"
	ActivityAssigneeChanged ActivityAction = "assignee_changed"
	ActivityPriorityChanged ActivityAction = "priority_changed"
	ActivityBulkUpdated     ActivityAction = "bulk_updated"
	ActivityMessageAdded    ActivityAction = "message_added"
	ActivityFilesUploaded   ActivityAction = "files_uploaded"
)

// Activity is an immutable audit trail entry. Entries are appended when a
// ticket changes and only removed by the ticket's deletion cascade.
type Activity struct {
	ID        string
	TicketID  string
	ActorID   string
	Action    ActivityAction
	Detail    string
	CreatedAt time.Time
}
