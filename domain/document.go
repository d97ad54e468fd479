package domain

import "time"

// Document is the persisted unit of collaboration.
// Content is whatever the rich-text editor serializes; the server never
// interprets it beyond language detection for metadata.
type Document struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
