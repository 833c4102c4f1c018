package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

const messageColumns = `id, thread_id, sender_id, recipient_id, body, subject, message_type, listing_id, attachments, read, created_at`

// CreateMessageParams carries the fields of a new outbound message.
type CreateMessageParams struct {
	ThreadID    int
	SenderID    int
	RecipientID int
	Body        string
	Subject     *string
	MessageType string
	ListingID   *int
	Attachments []string
}

// MessageRepository defines interactions with the message store.
type MessageRepository interface {
	CreateMessage(ctx context.Context, params CreateMessageParams) (models.Message, error)
	ListThreadMessages(ctx context.Context, threadID int) ([]models.Message, error)
	MarkThreadRead(ctx context.Context, threadID, recipientID int) (int64, error)
	UnreadCounts(ctx context.Context, threadIDs []int, recipientID int) (map[int]int, error)
	UnreadTotal(ctx context.Context, recipientID int) (int, error)
	LastMessages(ctx context.Context, threadIDs []int) (map[int]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage persists an outbound message. The read flag always starts
// false; the store default stamps the sent time.
func (r *MessageRepo) CreateMessage(ctx context.Context, params CreateMessageParams) (models.Message, error) {
	if params.MessageType == "" {
		params.MessageType = models.MessageTypeGeneral
	}
	attachments := params.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (thread_id, sender_id, recipient_id, body, subject, message_type, listing_id, attachments)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+messageColumns,
		params.ThreadID, params.SenderID, params.RecipientID, params.Body, params.Subject, params.MessageType, params.ListingID, pq.Array(attachments)).
		StructScan(&msg)
	return msg, err
}

// ListThreadMessages returns a thread's messages oldest first. Serial ids
// break sent-time ties, so the order matches creation order.
func (r *MessageRepo) ListThreadMessages(ctx context.Context, threadID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE thread_id=$1
        ORDER BY created_at ASC, id ASC`, threadID)
	return msgs, err
}

// MarkThreadRead flips the read flag on every unread message addressed to the
// recipient within the thread. Idempotent; returns the number of rows flipped.
func (r *MessageRepo) MarkThreadRead(ctx context.Context, threadID, recipientID int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read = TRUE
        WHERE thread_id=$1 AND recipient_id=$2 AND read = FALSE`, threadID, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UnreadCounts returns, per thread, how many messages addressed to the
// recipient are still unread. Threads without unread messages are absent from
// the map.
func (r *MessageRepo) UnreadCounts(ctx context.Context, threadIDs []int, recipientID int) (map[int]int, error) {
	counts := make(map[int]int, len(threadIDs))
	if len(threadIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT thread_id, COUNT(*) AS unread FROM messages
        WHERE thread_id = ANY($1) AND recipient_id=$2 AND read = FALSE
        GROUP BY thread_id`, pq.Array(threadIDs), recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var threadID, unread int
		if err := rows.Scan(&threadID, &unread); err != nil {
			return nil, err
		}
		counts[threadID] = unread
	}
	return counts, rows.Err()
}

// UnreadTotal aggregates unread messages addressed to the recipient across
// all threads, for the global badge.
func (r *MessageRepo) UnreadTotal(ctx context.Context, recipientID int) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE recipient_id=$1 AND read = FALSE`, recipientID)
	return total, err
}

// LastMessages returns the most recent message of each thread, keyed by
// thread id. Threads with no messages are absent from the map.
func (r *MessageRepo) LastMessages(ctx context.Context, threadIDs []int) (map[int]models.Message, error) {
	latest := make(map[int]models.Message, len(threadIDs))
	if len(threadIDs) == 0 {
		return latest, nil
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT DISTINCT ON (thread_id) `+messageColumns+` FROM messages
        WHERE thread_id = ANY($1)
        ORDER BY thread_id, created_at DESC, id DESC`, pq.Array(threadIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg models.Message
		if err := rows.StructScan(&msg); err != nil {
			return nil, err
		}
		latest[msg.ThreadID] = msg
	}
	return latest, rows.Err()
}
