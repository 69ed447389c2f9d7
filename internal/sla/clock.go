// Package sla derives service-level deadlines from ticket priority and
// classifies timing status against them.
package sla

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TimingStatus partitions a (now, due) pair.
type TimingStatus string

const (
	StatusOverdue TimingStatus = "overdue"
	StatusDueSoon TimingStatus = "due_soon"
	StatusOnTrack TimingStatus = "on_track"
)

// dueSoonWindow is the inclusive span before the deadline that counts as
// due_soon.
const dueSoonWindow = 2 * time.Hour

var hoursByPriority = map[domain.TicketPriority]time.Duration{
	domain.TicketPriorityUrgent: 4 * time.Hour,
	domain.TicketPriorityHigh:   24 * time.Hour,
	domain.TicketPriorityNormal: 48 * time.Hour,
	domain.TicketPriorityLow:    72 * time.Hour,
}

// DueDate computes the SLA deadline for a ticket created at createdAt.
// Unrecognized priorities fall back to the normal 48 hour window.
func DueDate(priority domain.TicketPriority, createdAt time.Time) time.Time {
	window, ok := hoursByPriority[priority]
	if !ok {
		window = hoursByPriority[domain.TicketPriorityNormal]
	}
	return createdAt.Add(window)
}

// Classify reports where now falls relative to the deadline. due_soon is
// inclusive at both 0 and 2 hours remaining.
func Classify(now, due time.Time) TimingStatus {
	remaining := due.Sub(now)
	switch {
	case remaining < 0:
		return StatusOverdue
	case remaining <= dueSoonWindow:
		return StatusDueSoon
	default:
		return StatusOnTrack
	}
}
