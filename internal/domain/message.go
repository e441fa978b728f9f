package domain

import "time"

type MessageStatus string

const (
	MessageStatusSending   MessageStatus = "sending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

var messageStatusRank = map[MessageStatus]int{
	MessageStatusSending:   0,
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
}

func (s MessageStatus) Valid() bool {
	_, ok := messageStatusRank[s]
	return ok
}

// CanTransition allows only strictly forward moves.
func (s MessageStatus) CanTransition(next MessageStatus) bool {
	from, ok := messageStatusRank[s]
	if !ok {
		return false
	}
	to, ok := messageStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// StatusesBefore lists the statuses ranked below s, for conditional updates.
func StatusesBefore(s MessageStatus) []string {
	rank, ok := messageStatusRank[s]
	if !ok {
		return nil
	}
	out := make([]string, 0, rank)
	for _, candidate := range []MessageStatus{MessageStatusSending, MessageStatusSent, MessageStatusDelivered} {
		if messageStatusRank[candidate] < rank {
			out = append(out, string(candidate))
		}
	}
	return out
}

type Message struct {
	ID          int64         `json:"id" db:"id"`
	RoomID      string        `json:"roomId" db:"room_id"`
	SenderID    int64         `json:"senderId" db:"sender_id"`
	Content     string        `json:"content" db:"content"`
	Status      MessageStatus `json:"status" db:"status"`
	ClientID    *string       `json:"clientId,omitempty" db:"client_id"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	DeliveredAt *time.Time    `json:"deliveredAt,omitempty" db:"delivered_at"`
	ReadAt      *time.Time    `json:"readAt,omitempty" db:"read_at"`
}

// Apply moves the message forward to next, stamping the matching timestamp.
func (m *Message) Apply(next MessageStatus, at time.Time) error {
	if !m.Status.CanTransition(next) {
		return ErrStatusRegression
	}
	m.Status = next
	switch next {
	case MessageStatusDelivered:
		m.DeliveredAt = &at
	case MessageStatusRead:
		if m.DeliveredAt == nil {
			m.DeliveredAt = &at
		}
		m.ReadAt = &at
	}
	return nil
}
