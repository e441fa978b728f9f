package repository

import (
	"context"
	"time"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
)

// StatusUpdate moves counterpart messages of a room forward to To. A nil
// IDs slice targets every message in the room not authored by RecipientID.
type StatusUpdate struct {
	RoomID      string
	RecipientID int64
	IDs         []int64
	To          domain.MessageStatus
	At          time.Time
}

type MessageRepository interface {
	// CreateIfAbsent inserts the message unless the sender already used its
	// client id; in that case the stored message is copied into msg and
	// false is returned.
	CreateIfAbsent(ctx context.Context, msg *domain.Message) (bool, error)
	// ListByRoom returns messages newest first, strictly older than lastID.
	ListByRoom(ctx context.Context, roomID string, lastID *int64, limit int) ([]domain.Message, error)
	UpdateStatus(ctx context.Context, u StatusUpdate) ([]int64, error)
	LatestByRooms(ctx context.Context, roomIDs []string) ([]domain.Message, error)
	CountUnreadRooms(ctx context.Context, roomIDs []string, profileID int64) (int, error)
}
