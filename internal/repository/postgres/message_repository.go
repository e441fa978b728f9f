package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
)

const messageColumns = `id, room_id, sender_id, content, status, client_id, created_at, delivered_at, read_at`

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) CreateIfAbsent(ctx context.Context, msg *domain.Message) (bool, error) {
	db := conn(ctx, r.db)

	query := `
		INSERT INTO messages (room_id, sender_id, content, status, client_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sender_id, client_id) WHERE client_id IS NOT NULL DO NOTHING
		RETURNING id
	`
	err := db.QueryRowxContext(ctx, query,
		msg.RoomID, msg.SenderID, msg.Content, string(msg.Status), msg.ClientID, msg.CreatedAt,
	).Scan(&msg.ID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) && !isUniqueViolation(err) {
		return false, err
	}
	if msg.ClientID == nil {
		return false, fmt.Errorf("insert message: %w", err)
	}

	var existing domain.Message
	lookup := `SELECT ` + messageColumns + ` FROM messages WHERE sender_id = $1 AND client_id = $2`
	if err := db.GetContext(ctx, &existing, lookup, msg.SenderID, *msg.ClientID); err != nil {
		return false, fmt.Errorf("load deduplicated message: %w", err)
	}
	*msg = existing
	return false, nil
}

func (r *messageRepository) ListByRoom(ctx context.Context, roomID string, lastID *int64, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	var err error
	if lastID != nil {
		query := `SELECT ` + messageColumns + ` FROM messages
			WHERE room_id = $1 AND id < $2
			ORDER BY id DESC LIMIT $3`
		err = conn(ctx, r.db).SelectContext(ctx, &messages, query, roomID, *lastID, limit)
	} else {
		query := `SELECT ` + messageColumns + ` FROM messages
			WHERE room_id = $1
			ORDER BY id DESC LIMIT $2`
		err = conn(ctx, r.db).SelectContext(ctx, &messages, query, roomID, limit)
	}
	return messages, err
}

func (r *messageRepository) UpdateStatus(ctx context.Context, u repository.StatusUpdate) ([]int64, error) {
	var stampColumn string
	switch u.To {
	case domain.MessageStatusDelivered:
		stampColumn = "delivered_at = $2"
	case domain.MessageStatusRead:
		stampColumn = "read_at = $2, delivered_at = COALESCE(delivered_at, $2)"
	default:
		return nil, fmt.Errorf("unsupported target status %q", u.To)
	}

	query := `UPDATE messages SET status = $1, ` + stampColumn + `
		WHERE room_id = $3 AND sender_id <> $4 AND status = ANY($5)`
	args := []interface{}{string(u.To), u.At, u.RoomID, u.RecipientID, pq.Array(domain.StatusesBefore(u.To))}
	if u.IDs != nil {
		query += ` AND id = ANY($6)`
		args = append(args, pq.Array(u.IDs))
	}
	query += ` RETURNING id`

	var ids []int64
	if err := conn(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *messageRepository) LatestByRooms(ctx context.Context, roomIDs []string) ([]domain.Message, error) {
	var messages []domain.Message
	if len(roomIDs) == 0 {
		return messages, nil
	}
	query := `
		SELECT DISTINCT ON (room_id) ` + messageColumns + `
		FROM messages
		WHERE room_id = ANY($1)
		ORDER BY room_id, id DESC
	`
	err := conn(ctx, r.db).SelectContext(ctx, &messages, query, pq.Array(roomIDs))
	return messages, err
}

func (r *messageRepository) CountUnreadRooms(ctx context.Context, roomIDs []string, profileID int64) (int, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	var count int
	query := `
		SELECT COUNT(DISTINCT room_id) FROM messages
		WHERE room_id = ANY($1) AND sender_id <> $2 AND status <> $3
	`
	err := conn(ctx, r.db).GetContext(ctx, &count, query, pq.Array(roomIDs), profileID, string(domain.MessageStatusRead))
	return count, err
}
