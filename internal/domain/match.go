package domain

import "time"

type MatchStatus string

const (
	MatchStatusActive         MatchStatus = "active"
	MatchStatusUnmatchPending MatchStatus = "unmatch_pending"
	MatchStatusUnmatched      MatchStatus = "unmatched"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusActive, MatchStatusUnmatchPending, MatchStatusUnmatched:
		return true
	}
	return false
}

var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusActive:         {MatchStatusUnmatchPending, MatchStatusUnmatched},
	MatchStatusUnmatchPending: {MatchStatusUnmatched},
}

// CanTransition reports whether a match side may move from s to next.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Match is one side of a matched pair. Both sides share the same ID.
type Match struct {
	ID                string      `json:"id" db:"match_id"`
	ProfileID         int64       `json:"profileId" db:"profile_id"`
	MatchedProfileID  int64       `json:"matchedProfileId" db:"matched_profile_id"`
	Status            MatchStatus `json:"status" db:"status"`
	IsRead            bool        `json:"isRead" db:"is_read"`
	CreatedAt         time.Time   `json:"createdAt" db:"created_at"`
	LastInteractionAt *time.Time  `json:"lastInteractionAt" db:"last_interaction_at"`
}

func (m *Match) RoomID() string {
	return RoomID(m.ProfileID, m.MatchedProfileID)
}

// Mirrors reports whether other is the counterpart side of m.
func (m *Match) Mirrors(other *Match) bool {
	return other != nil &&
		m.ID == other.ID &&
		m.ProfileID == other.MatchedProfileID &&
		m.MatchedProfileID == other.ProfileID
}

// CountUnread recomputes the number of unread matches from scratch.
func CountUnread(matches []Match) int {
	n := 0
	for _, m := range matches {
		if !m.IsRead {
			n++
		}
	}
	return n
}
