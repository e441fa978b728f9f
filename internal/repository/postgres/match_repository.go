package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
)

const matchColumns = `match_id, profile_id, matched_profile_id, status, is_read, created_at, last_interaction_at`

type matchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) repository.MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(ctx context.Context, match *domain.Match) (bool, error) {
	query := `
		INSERT INTO profile_matches (match_id, profile_id, matched_profile_id, status, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (profile_id, matched_profile_id) DO NOTHING
		RETURNING created_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		match.ID, match.ProfileID, match.MatchedProfileID, string(match.Status), match.IsRead, match.CreatedAt,
	).Scan(&match.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *matchRepository) GetByUsers(ctx context.Context, profileID, matchedProfileID int64) (*domain.Match, error) {
	var match domain.Match
	query := `SELECT ` + matchColumns + ` FROM profile_matches WHERE profile_id = $1 AND matched_profile_id = $2`
	err := conn(ctx, r.db).GetContext(ctx, &match, query, profileID, matchedProfileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	return &match, nil
}

func (r *matchRepository) GetSides(ctx context.Context, matchID string) ([]domain.Match, error) {
	var matches []domain.Match
	query := `SELECT ` + matchColumns + ` FROM profile_matches WHERE match_id = $1 ORDER BY profile_id`
	err := conn(ctx, r.db).SelectContext(ctx, &matches, query, matchID)
	return matches, err
}

func (r *matchRepository) ListByProfile(ctx context.Context, profileID int64) ([]domain.Match, error) {
	var matches []domain.Match
	query := `
		SELECT ` + matchColumns + ` FROM profile_matches
		WHERE profile_id = $1
		ORDER BY COALESCE(last_interaction_at, created_at) DESC
	`
	err := conn(ctx, r.db).SelectContext(ctx, &matches, query, profileID)
	return matches, err
}

func (r *matchRepository) MarkRead(ctx context.Context, profileID int64, matchIDs []string) (int64, error) {
	query := `
		UPDATE profile_matches SET is_read = true
		WHERE profile_id = $1 AND match_id = ANY($2) AND is_read = false
	`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, profileID, pq.Array(matchIDs))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *matchRepository) SetStatus(ctx context.Context, matchID string, status domain.MatchStatus) (int64, error) {
	query := `UPDATE profile_matches SET status = $1 WHERE match_id = $2`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, string(status), matchID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *matchRepository) DeleteSide(ctx context.Context, matchID string, profileID int64) (int64, error) {
	query := `DELETE FROM profile_matches WHERE match_id = $1 AND profile_id = $2`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, matchID, profileID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *matchRepository) TouchInteraction(ctx context.Context, a, b int64, at time.Time) error {
	query := `
		UPDATE profile_matches SET last_interaction_at = $3
		WHERE (profile_id = $1 AND matched_profile_id = $2)
		   OR (profile_id = $2 AND matched_profile_id = $1)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, a, b, at)
	return err
}

func (r *matchRepository) ListOrphans(ctx context.Context, limit int) ([]domain.Match, error) {
	var matches []domain.Match
	query := `
		SELECT m.match_id, m.profile_id, m.matched_profile_id, m.status, m.is_read, m.created_at, m.last_interaction_at
		FROM profile_matches m
		LEFT JOIN profile_matches c
		  ON c.match_id = m.match_id AND c.profile_id = m.matched_profile_id
		WHERE c.match_id IS NULL
		ORDER BY m.created_at
		LIMIT $1
	`
	err := conn(ctx, r.db).SelectContext(ctx, &matches, query, limit)
	return matches, err
}
