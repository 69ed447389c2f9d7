// Package policy evaluates whether a principal may act on a ticket. All
// checks are pure functions over the records passed in; callers re-evaluate
// on every request and never cache decisions.
package policy

import "github.com/spec-kit/support-desk/internal/domain"

// Ticket fields a caller may touch in an update.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldAssignee    = "assignee_id"
	FieldDepartment  = "department_id"
	FieldResolution  = "resolution"
)

// creatorOnlyFields are the fields a non-staff creator may modify when they
// are not also the assignee.
var creatorOnlyFields = map[string]struct{}{
	FieldTitle:       {},
	FieldDescription: {},
}

// CanView reports whether the principal may read the ticket.
func CanView(p domain.Principal, ticket *domain.Ticket) bool {
	if p.IsStaff() {
		return true
	}
	return isCreator(p, ticket) || isAssignee(p, ticket)
}

// CanModify reports whether the principal may update the named fields.
// Staff may modify anything. A non-staff assignee may modify the ticket;
// a non-staff creator who is not the assignee is limited to title and
// description.
func CanModify(p domain.Principal, ticket *domain.Ticket, fields []string) bool {
	if p.IsStaff() {
		return true
	}
	if isAssignee(p, ticket) {
		return true
	}
	if !isCreator(p, ticket) {
		return false
	}
	for _, field := range fields {
		if _, ok := creatorOnlyFields[field]; !ok {
			return false
		}
	}
	return true
}

// CanCreateInternalMessage reports whether the principal may author
// internal notes.
func CanCreateInternalMessage(p domain.Principal) bool {
	return p.IsStaff()
}

// CanDelete reports whether the principal may delete the ticket.
func CanDelete(p domain.Principal, _ *domain.Ticket) bool {
	return p.Role == domain.RoleAdmin
}

// VisibleMessages filters internal messages out for non-staff viewers.
func VisibleMessages(p domain.Principal, messages []domain.Message) []domain.Message {
	if p.IsStaff() {
		return messages
	}
	filtered := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.IsInternal {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}

func isCreator(p domain.Principal, ticket *domain.Ticket) bool {
	return ticket != nil && ticket.CreatorID == p.ID
}

func isAssignee(p domain.Principal, ticket *domain.Ticket) bool {
	return ticket != nil && ticket.AssigneeID != nil && *ticket.AssigneeID == p.ID
}
