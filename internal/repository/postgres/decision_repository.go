package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/gdugdh24/soundmatch-backend/internal/repository"
)

type decisionRepository struct {
	db *sqlx.DB
}

func NewDecisionRepository(db *sqlx.DB) repository.DecisionRepository {
	return &decisionRepository{db: db}
}

func (r *decisionRepository) AddLike(ctx context.Context, viewerID, candidateID int64) (bool, error) {
	return r.insert(ctx, `
		INSERT INTO profile_likes (viewer_id, candidate_id)
		VALUES ($1, $2)
		ON CONFLICT (viewer_id, candidate_id) DO NOTHING
	`, viewerID, candidateID)
}

func (r *decisionRepository) AddDislike(ctx context.Context, viewerID, candidateID int64) (bool, error) {
	return r.insert(ctx, `
		INSERT INTO profile_dislikes (viewer_id, candidate_id)
		VALUES ($1, $2)
		ON CONFLICT (viewer_id, candidate_id) DO NOTHING
	`, viewerID, candidateID)
}

func (r *decisionRepository) HasLiked(ctx context.Context, viewerID, candidateID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM profile_likes WHERE viewer_id = $1 AND candidate_id = $2)`, viewerID, candidateID)
}

func (r *decisionRepository) HasDisliked(ctx context.Context, viewerID, candidateID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM profile_dislikes WHERE viewer_id = $1 AND candidate_id = $2)`, viewerID, candidateID)
}

func (r *decisionRepository) exists(ctx context.Context, query string, viewerID, candidateID int64) (bool, error) {
	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, viewerID, candidateID); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *decisionRepository) insert(ctx context.Context, query string, viewerID, candidateID int64) (bool, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, query, viewerID, candidateID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
