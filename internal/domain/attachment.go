package domain

import "time"

// Attachment stores metadata for a file uploaded against a ticket. The
// stored bytes live on disk under StorageKey; the record and the file are
// created and deleted together.
type Attachment struct {
	ID         string
	TicketID   string
	UploaderID string
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	CreatedAt  time.Time
}
