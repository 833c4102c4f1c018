package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrThreadNotFound = errors.New("thread not found")

const threadColumns = `id, user1_id, user2_id, subject, listing_id, status, last_message_at, created_at`

// ThreadRepository abstracts thread persistence.
type ThreadRepository interface {
	CreateOrGetThread(ctx context.Context, initiatorID, recipientID int, subject *string, listingID *int) (models.Thread, error)
	GetThread(ctx context.Context, threadID int) (models.Thread, error)
	ListThreads(ctx context.Context, userID int) ([]models.Thread, error)
	TouchLastMessageAt(ctx context.Context, threadID int, at time.Time) error
	UpdateStatus(ctx context.Context, threadID int, status string) error
}

// ThreadRepo is a sqlx implementation of ThreadRepository.
type ThreadRepo struct {
	db *sqlx.DB
}

// NewThreadRepo constructs a ThreadRepo.
func NewThreadRepo(db *sqlx.DB) *ThreadRepo {
	return &ThreadRepo{db: db}
}

// CreateOrGetThread returns the existing thread for the participant pair and
// listing, creating it when absent. The pair is stored in canonical order so
// (a, b) and (b, a) resolve to the same thread.
func (r *ThreadRepo) CreateOrGetThread(ctx context.Context, initiatorID, recipientID int, subject *string, listingID *int) (models.Thread, error) {
	if initiatorID == recipientID {
		return models.Thread{}, errors.New("cannot start a thread with yourself")
	}
	user1, user2 := initiatorID, recipientID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	var thread models.Thread
	query := `SELECT ` + threadColumns + ` FROM threads
        WHERE user1_id=$1 AND user2_id=$2 AND listing_id IS NOT DISTINCT FROM $3`
	err := r.db.GetContext(ctx, &thread, query, user1, user2, listingID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Thread{}, err
	}

	err = r.db.QueryRowxContext(ctx, `INSERT INTO threads (user1_id, user2_id, subject, listing_id)
        VALUES ($1, $2, $3, $4) RETURNING `+threadColumns, user1, user2, subject, listingID).
		StructScan(&thread)
	return thread, err
}

// GetThread fetches a thread by id.
func (r *ThreadRepo) GetThread(ctx context.Context, threadID int) (models.Thread, error) {
	var thread models.Thread
	err := r.db.GetContext(ctx, &thread, `SELECT `+threadColumns+` FROM threads WHERE id=$1`, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Thread{}, ErrThreadNotFound
	}
	return thread, err
}

// ListThreads returns the user's threads, most recently active first.
func (r *ThreadRepo) ListThreads(ctx context.Context, userID int) ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.SelectContext(ctx, &threads, `SELECT `+threadColumns+` FROM threads
        WHERE user1_id=$1 OR user2_id=$1
        ORDER BY last_message_at DESC`, userID)
	return threads, err
}

// TouchLastMessageAt advances the thread's last-activity timestamp. GREATEST
// keeps the later value when two sends land out of order.
func (r *ThreadRepo) TouchLastMessageAt(ctx context.Context, threadID int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE threads SET last_message_at = GREATEST(last_message_at, $2) WHERE id=$1`, threadID, at)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrThreadNotFound
	}
	return nil
}

// UpdateStatus moves a thread between active, archived and closed.
func (r *ThreadRepo) UpdateStatus(ctx context.Context, threadID int, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE threads SET status=$2 WHERE id=$1`, threadID, status)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrThreadNotFound
	}
	return nil
}
