package models

import "time"

// Announcement is one corporate announcement row from the exchange feed.
// The filings resolver uses attachments as a secondary report-URL source.
type Announcement struct {
	ID            int64     `json:"id"`
	Symbol        string    `json:"symbol"`
	Subject       string    `json:"subject"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	BroadcastAt   time.Time `json:"broadcast_at"`
	CreatedAt     time.Time `json:"created_at"`
}
