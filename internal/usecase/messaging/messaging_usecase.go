package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/metrics"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
)

const (
	DefaultFetchLimit = 50
	MaxFetchLimit     = 100
	MaxContentLength  = 4000
)

// Broadcaster fans events out over the live transport.
type Broadcaster interface {
	EmitToRoom(roomID string, event string, payload interface{})
	EmitToUser(profileID int64, event string, payload interface{})
}

// Presence answers whether a profile has a live session joined to a room.
type Presence interface {
	IsPresent(ctx context.Context, roomID string, profileID int64) (bool, error)
}

type Config struct {
	DefaultFetchLimit int
	MaxFetchLimit     int
	MaxContentLength  int
}

type MessagingUseCase struct {
	messageRepo repository.MessageRepository
	matchRepo   repository.MatchRepository
	presence    Presence
	broadcaster Broadcaster
	cfg         Config
	log         *zap.Logger
	now         func() time.Time
}

func NewMessagingUseCase(
	messageRepo repository.MessageRepository,
	matchRepo repository.MatchRepository,
	presence Presence,
	broadcaster Broadcaster,
	cfg Config,
	log *zap.Logger,
) *MessagingUseCase {
	if cfg.DefaultFetchLimit <= 0 {
		cfg.DefaultFetchLimit = DefaultFetchLimit
	}
	if cfg.MaxFetchLimit <= 0 {
		cfg.MaxFetchLimit = MaxFetchLimit
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = MaxContentLength
	}
	return &MessagingUseCase{
		messageRepo: messageRepo,
		matchRepo:   matchRepo,
		presence:    presence,
		broadcaster: broadcaster,
		cfg:         cfg,
		log:         logger.OrNop(log),
		now:         time.Now,
	}
}

type SendInput struct {
	RoomID   string
	SenderID int64
	Content  string
	ClientID *string
}

type SendResult struct {
	Message   *domain.Message
	Duplicate bool
}

type DeliveryEvent struct {
	RoomID      string    `json:"roomId"`
	MessageIDs  []int64   `json:"messageIds"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

type ReadEvent struct {
	RoomID     string    `json:"roomId"`
	MessageIDs []int64   `json:"messageIds"`
	ReadAt     time.Time `json:"readAt"`
}

type ReadResult struct {
	ModifiedCount int     `json:"modifiedCount"`
	MessageIDs    []int64 `json:"messageIds"`
}

type FetchResult struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"hasMore"`
	LastID   *int64           `json:"lastId"`
}

type Preview struct {
	RoomID           string          `json:"roomId"`
	MatchID          string          `json:"matchId"`
	MatchedProfileID int64           `json:"matchedProfileId"`
	LastMessage      *domain.Message `json:"lastMessage"`
}

// AuthorizeRoom checks that profileID belongs to roomID and that the pair
// is still matched. It returns the other member of the room.
func (uc *MessagingUseCase) AuthorizeRoom(ctx context.Context, profileID int64, roomID string) (int64, error) {
	if _, _, err := domain.ParseRoomID(roomID); err != nil {
		return 0, err
	}
	counterpartID, ok := domain.RoomCounterpart(roomID, profileID)
	if !ok {
		return 0, domain.ErrNotRoomMember
	}
	match, err := uc.matchRepo.GetByUsers(ctx, profileID, counterpartID)
	if err != nil {
		if errors.Is(err, domain.ErrMatchNotFound) {
			return 0, domain.ErrRoomNotFound
		}
		return 0, fmt.Errorf("load match: %w", err)
	}
	if match.Status != domain.MatchStatusActive {
		return 0, domain.ErrRoomNotFound
	}
	return counterpartID, nil
}

// Send persists a message once per (sender, clientId) and fans it out. The
// live socket and the REST fallback both land here; path only labels the
// metric.
func (uc *MessagingUseCase) Send(ctx context.Context, in SendInput, path string) (*SendResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > uc.cfg.MaxContentLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", domain.ErrInvalidInput, uc.cfg.MaxContentLength)
	}
	if in.ClientID != nil && strings.TrimSpace(*in.ClientID) == "" {
		in.ClientID = nil
	}

	counterpartID, err := uc.AuthorizeRoom(ctx, in.SenderID, in.RoomID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		RoomID:    in.RoomID,
		SenderID:  in.SenderID,
		Content:   content,
		Status:    domain.MessageStatusSent,
		ClientID:  in.ClientID,
		CreatedAt: uc.now(),
	}
	created, err := uc.messageRepo.CreateIfAbsent(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	// Client ids are unique per sender, so a retry must target the same room.
	if !created && msg.RoomID != in.RoomID {
		return nil, fmt.Errorf("%w: client id already used in room %s", domain.ErrInvalidInput, msg.RoomID)
	}
	metrics.RecordMessageSent(path, !created)
	if !created {
		return &SendResult{Message: msg, Duplicate: true}, nil
	}

	if err := uc.matchRepo.TouchInteraction(ctx, in.SenderID, counterpartID, msg.CreatedAt); err != nil {
		uc.log.Warn("touch match interaction", zap.String("room_id", in.RoomID), zap.Error(err))
	}

	present := uc.isPresent(ctx, in.RoomID, counterpartID)
	if uc.broadcaster != nil {
		uc.broadcaster.EmitToRoom(in.RoomID, domain.EventMessageReceive, msg)
		if !present {
			uc.broadcaster.EmitToUser(counterpartID, domain.EventMessageReceive, msg)
		}
	}

	if present {
		ids, at, err := uc.markDelivered(ctx, in.RoomID, counterpartID, []int64{msg.ID})
		if err != nil {
			uc.log.Warn("mark delivered on send", zap.Int64("message_id", msg.ID), zap.Error(err))
		} else if len(ids) > 0 {
			_ = msg.Apply(domain.MessageStatusDelivered, at)
		}
	}
	return &SendResult{Message: msg}, nil
}

func (uc *MessagingUseCase) isPresent(ctx context.Context, roomID string, profileID int64) bool {
	if uc.presence == nil {
		return false
	}
	present, err := uc.presence.IsPresent(ctx, roomID, profileID)
	if err != nil {
		uc.log.Warn("presence lookup failed", zap.String("room_id", roomID), zap.Error(err))
		return false
	}
	return present
}

// MarkDelivered moves the given counterpart messages to delivered for
// recipientID and broadcasts one delivery event.
func (uc *MessagingUseCase) MarkDelivered(ctx context.Context, recipientID int64, roomID string, ids []int64) ([]int64, error) {
	if _, err := uc.AuthorizeRoom(ctx, recipientID, roomID); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []int64{}, nil
	}
	updated, _, err := uc.markDelivered(ctx, roomID, recipientID, ids)
	return updated, err
}

// DeliverPending delivers everything still sent to recipientID in the room.
// Called when the recipient's live session joins the room.
func (uc *MessagingUseCase) DeliverPending(ctx context.Context, recipientID int64, roomID string) ([]int64, error) {
	if _, err := uc.AuthorizeRoom(ctx, recipientID, roomID); err != nil {
		return nil, err
	}
	updated, _, err := uc.markDelivered(ctx, roomID, recipientID, nil)
	return updated, err
}

func (uc *MessagingUseCase) markDelivered(ctx context.Context, roomID string, recipientID int64, ids []int64) ([]int64, time.Time, error) {
	at := uc.now()
	updated, err := uc.messageRepo.UpdateStatus(ctx, repository.StatusUpdate{
		RoomID:      roomID,
		RecipientID: recipientID,
		IDs:         ids,
		To:          domain.MessageStatusDelivered,
		At:          at,
	})
	if err != nil {
		return nil, at, fmt.Errorf("mark delivered: %w", err)
	}
	if len(updated) > 0 && uc.broadcaster != nil {
		uc.broadcaster.EmitToRoom(roomID, domain.EventMessageDelivered, DeliveryEvent{
			RoomID:      roomID,
			MessageIDs:  updated,
			DeliveredAt: at,
		})
	}
	return updated, at, nil
}

// MarkRead acknowledges the listed messages as read by profileID. Messages
// already read, or authored by profileID, are skipped. One read event covers
// every affected id.
func (uc *MessagingUseCase) MarkRead(ctx context.Context, profileID int64, roomID string, ids []int64) (*ReadResult, error) {
	if _, err := uc.AuthorizeRoom(ctx, profileID, roomID); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &ReadResult{MessageIDs: []int64{}}, nil
	}

	at := uc.now()
	updated, err := uc.messageRepo.UpdateStatus(ctx, repository.StatusUpdate{
		RoomID:      roomID,
		RecipientID: profileID,
		IDs:         ids,
		To:          domain.MessageStatusRead,
		At:          at,
	})
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	if len(updated) > 0 && uc.broadcaster != nil {
		uc.broadcaster.EmitToRoom(roomID, domain.EventMessageRead, ReadEvent{
			RoomID:     roomID,
			MessageIDs: updated,
			ReadAt:     at,
		})
	}
	return &ReadResult{ModifiedCount: len(updated), MessageIDs: updated}, nil
}

// Fetch returns one page of room history in chronological order. lastID is
// the oldest id of the previous page. hasMore only says the page was full.
func (uc *MessagingUseCase) Fetch(ctx context.Context, profileID int64, roomID string, lastID *int64, limit int) (*FetchResult, error) {
	if _, err := uc.AuthorizeRoom(ctx, profileID, roomID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = uc.cfg.DefaultFetchLimit
	}
	if limit > uc.cfg.MaxFetchLimit {
		limit = uc.cfg.MaxFetchLimit
	}

	messages, err := uc.messageRepo.ListByRoom(ctx, roomID, lastID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	result := &FetchResult{
		Messages: messages,
		HasMore:  len(messages) == limit,
	}
	if len(messages) > 0 {
		oldest := messages[0].ID
		result.LastID = &oldest
	}
	return result, nil
}

// Previews lists the profile's active conversations with their latest
// message, most recent first. Rooms without messages follow, newest match
// first.
func (uc *MessagingUseCase) Previews(ctx context.Context, profileID int64) ([]Preview, error) {
	matches, err := uc.activeMatches(ctx, profileID)
	if err != nil {
		return nil, err
	}
	roomIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		roomIDs = append(roomIDs, m.RoomID())
	}
	latest, err := uc.messageRepo.LatestByRooms(ctx, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("latest messages: %w", err)
	}
	byRoom := make(map[string]*domain.Message, len(latest))
	for i := range latest {
		byRoom[latest[i].RoomID] = &latest[i]
	}

	previews := make([]Preview, 0, len(matches))
	for _, m := range matches {
		previews = append(previews, Preview{
			RoomID:           m.RoomID(),
			MatchID:          m.ID,
			MatchedProfileID: m.MatchedProfileID,
			LastMessage:      byRoom[m.RoomID()],
		})
	}
	created := make(map[string]time.Time, len(matches))
	for _, m := range matches {
		created[m.RoomID()] = m.CreatedAt
	}
	sort.SliceStable(previews, func(i, j int) bool {
		a, b := previews[i].LastMessage, previews[j].LastMessage
		switch {
		case a != nil && b != nil:
			return a.ID > b.ID
		case a != nil:
			return true
		case b != nil:
			return false
		}
		return created[previews[i].RoomID].After(created[previews[j].RoomID])
	})
	return previews, nil
}

// UnreadConversationCount counts active rooms holding at least one message
// from the counterpart that profileID has not read.
func (uc *MessagingUseCase) UnreadConversationCount(ctx context.Context, profileID int64) (int, error) {
	matches, err := uc.activeMatches(ctx, profileID)
	if err != nil {
		return 0, err
	}
	roomIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		roomIDs = append(roomIDs, m.RoomID())
	}
	count, err := uc.messageRepo.CountUnreadRooms(ctx, roomIDs, profileID)
	if err != nil {
		return 0, fmt.Errorf("count unread rooms: %w", err)
	}
	return count, nil
}

func (uc *MessagingUseCase) activeMatches(ctx context.Context, profileID int64) ([]domain.Match, error) {
	matches, err := uc.matchRepo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	active := matches[:0]
	for _, m := range matches {
		if m.Status == domain.MatchStatusActive {
			active = append(active, m)
		}
	}
	return active, nil
}
