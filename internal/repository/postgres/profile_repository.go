package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
)

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

type profileRow struct {
	ID                int64                `db:"id"`
	Name              string               `db:"name"`
	Age               int                  `db:"age"`
	Gender            string               `db:"gender"`
	Bio               *string              `db:"bio"`
	Photos            pq.StringArray       `db:"photos"`
	Music             *domain.MusicProfile `db:"music"`
	PrefGenders       pq.StringArray       `db:"pref_genders"`
	PrefMinAge        int                  `db:"pref_min_age"`
	PrefMaxAge        int                  `db:"pref_max_age"`
	PrefMaxDistanceKm *int                 `db:"pref_max_distance_km"`
	LocationLat       *float64             `db:"location_lat"`
	LocationLon       *float64             `db:"location_lon"`
	Status            string               `db:"status"`
	CreatedAt         time.Time            `db:"created_at"`
	UpdatedAt         time.Time            `db:"updated_at"`
}

const profileColumns = `
	id, name, age, gender, bio, photos, music,
	pref_genders, pref_min_age, pref_max_age, pref_max_distance_km,
	location_lat, location_lon, status, created_at, updated_at`

func (r profileRow) toDomain() *domain.Profile {
	p := &domain.Profile{
		ID:     r.ID,
		Name:   r.Name,
		Age:    r.Age,
		Gender: r.Gender,
		Bio:    r.Bio,
		Photos: []string(r.Photos),
		Music:  r.Music,
		Preferences: domain.Preferences{
			Genders:       []string(r.PrefGenders),
			MinAge:        r.PrefMinAge,
			MaxAge:        r.PrefMaxAge,
			MaxDistanceKm: r.PrefMaxDistanceKm,
		},
		Status:    domain.ProfileStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.LocationLat != nil && r.LocationLon != nil {
		p.Location = &domain.GeoPoint{Lat: *r.LocationLat, Lon: *r.LocationLon}
	}
	return p
}

func (r *profileRepository) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	db := conn(ctx, r.db)

	var row profileRow
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	if err := db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	profile := row.toDomain()

	if err := db.SelectContext(ctx, &profile.LikedIDs,
		`SELECT candidate_id FROM profile_likes WHERE viewer_id = $1 ORDER BY created_at`, id); err != nil {
		return nil, fmt.Errorf("load likes: %w", err)
	}
	if err := db.SelectContext(ctx, &profile.DislikedIDs,
		`SELECT candidate_id FROM profile_dislikes WHERE viewer_id = $1 ORDER BY created_at`, id); err != nil {
		return nil, fmt.Errorf("load dislikes: %w", err)
	}
	if err := db.SelectContext(ctx, &profile.Matches,
		`SELECT `+matchColumns+` FROM profile_matches WHERE profile_id = $1 ORDER BY created_at DESC`, id); err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) ListFeedCandidates(ctx context.Context, q repository.FeedQuery) ([]*domain.Profile, error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE status = $1
		  AND NOT (id = ANY($2))
		  AND lower(gender) = ANY($3)`
	genders := make([]string, 0, len(q.Genders))
	for _, g := range q.Genders {
		genders = append(genders, toLower(g))
	}
	args := []interface{}{string(q.Status), pq.Array(q.ExcludeIDs), pq.Array(genders)}
	argCount := 4

	if q.MinAge > 0 {
		query += fmt.Sprintf(" AND age >= $%d", argCount)
		args = append(args, q.MinAge)
		argCount++
	}
	if q.MaxAge > 0 {
		query += fmt.Sprintf(" AND age <= $%d", argCount)
		args = append(args, q.MaxAge)
		argCount++
	}
	if q.Cursor != nil {
		query += fmt.Sprintf(" AND id < $%d", argCount)
		args = append(args, *q.Cursor)
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d", argCount)
	args = append(args, q.Limit)

	var rows []profileRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	profiles := make([]*domain.Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, row.toDomain())
	}
	return profiles, nil
}

func (r *profileRepository) UpdateMusic(ctx context.Context, id int64, music *domain.MusicProfile, status domain.ProfileStatus) error {
	query := `
		UPDATE profiles
		SET music = $1, status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, music, string(status), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *profileRepository) LockPair(ctx context.Context, a, b int64) error {
	if a > b {
		a, b = b, a
	}
	var locked []int64
	query := `SELECT id FROM profiles WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`
	if err := conn(ctx, r.db).SelectContext(ctx, &locked, query, a, b); err != nil {
		return fmt.Errorf("lock profiles: %w", err)
	}
	if len(locked) != 2 {
		return domain.ErrProfileNotFound
	}
	return nil
}
