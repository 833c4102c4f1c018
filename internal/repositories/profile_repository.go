package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

// ProfileRepository reads display identities maintained by the identity
// provider sync.
type ProfileRepository interface {
	BulkProfiles(ctx context.Context, userIDs []int) ([]models.Profile, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// BulkProfiles fetches multiple display profiles in one query. Missing ids
// are simply absent from the result.
func (r *ProfileRepo) BulkProfiles(ctx context.Context, userIDs []int) ([]models.Profile, error) {
	if len(userIDs) == 0 {
		return []models.Profile{}, nil
	}
	var profiles []models.Profile
	err := r.db.SelectContext(ctx, &profiles, `SELECT user_id, full_name, company_name FROM profiles WHERE user_id = ANY($1)`, pq.Array(userIDs))
	return profiles, err
}
