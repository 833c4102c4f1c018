package models

import "time"

// Thread statuses. Threads are never hard-deleted; they move between these
// states instead.
const (
	ThreadStatusActive   = "active"
	ThreadStatusArchived = "archived"
	ThreadStatusClosed   = "closed"
)

// ValidThreadStatus reports whether s is a known thread status.
func ValidThreadStatus(s string) bool {
	return s == ThreadStatusActive || s == ThreadStatusArchived || s == ThreadStatusClosed
}

// Thread is a conversation between exactly two participants, optionally tied
// to a marketplace listing. The participant pair is stored in canonical order
// (User1ID < User2ID) and is immutable after creation.
type Thread struct {
	ID            int       `db:"id" json:"id"`
	User1ID       int       `db:"user1_id" json:"user1_id"`
	User2ID       int       `db:"user2_id" json:"user2_id"`
	Subject       *string   `db:"subject" json:"subject,omitempty"`
	ListingID     *int      `db:"listing_id" json:"listing_id,omitempty"`
	Status        string    `db:"status" json:"status"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Counterparty returns the participant that is not the viewer.
func (t Thread) Counterparty(viewerID int) int {
	if t.User1ID == viewerID {
		return t.User2ID
	}
	return t.User1ID
}

// HasParticipant reports whether userID belongs to the thread.
func (t Thread) HasParticipant(userID int) bool {
	return t.User1ID == userID || t.User2ID == userID
}

// ThreadSummary is the conversation-list view of a thread for one viewer.
type ThreadSummary struct {
	ThreadID      int       `json:"thread_id"`
	Subject       *string   `json:"subject,omitempty"`
	ListingID     *int      `json:"listing_id,omitempty"`
	Status        string    `json:"status"`
	Counterparty  *Profile  `json:"counterparty"`
	LastMessage   *Message  `json:"last_message"`
	UnreadCount   int       `json:"unread_count"`
	LastMessageAt time.Time `json:"last_message_at"`
}
