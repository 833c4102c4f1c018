package models

import (
	"time"

	"github.com/lib/pq"
)

// Message classifications.
const (
	MessageTypeInquiry  = "inquiry"
	MessageTypeResponse = "response"
	MessageTypeGeneral  = "general"
)

// Message is a single directional unit of communication within a thread.
// The read flag starts false and only ever transitions false to true.
type Message struct {
	ID          int            `db:"id" json:"id"`
	ThreadID    int            `db:"thread_id" json:"thread_id"`
	SenderID    int            `db:"sender_id" json:"sender_id"`
	RecipientID int            `db:"recipient_id" json:"recipient_id"`
	Body        string         `db:"body" json:"body"`
	Subject     *string        `db:"subject" json:"subject,omitempty"`
	MessageType string         `db:"message_type" json:"message_type"`
	ListingID   *int           `db:"listing_id" json:"listing_id,omitempty"`
	Attachments pq.StringArray `db:"attachments" json:"attachments,omitempty"`
	Read        bool           `db:"read" json:"read"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// ThreadEvent is broadcasted through websockets to thread participants.
type ThreadEvent struct {
	Type     string   `json:"type"`
	Message  *Message `json:"message,omitempty"`
	ReaderID int      `json:"reader_id,omitempty"`
}
