package domain

import "errors"

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrMatchNotFound    = errors.New("match not found")
	ErrRoomNotFound     = errors.New("room not found")
	ErrNotRoomMember    = errors.New("not a member of this room")
	ErrInvalidRoomID    = errors.New("invalid room id")
	ErrCannotSwipeSelf  = errors.New("cannot swipe yourself")
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyMessage     = errors.New("message content is empty")
	ErrStatusRegression = errors.New("status transition would regress")

	// ErrFeedUnavailable wraps storage failures while building a feed page.
	// It is distinct from an exhausted feed, which is not an error.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrPartialMatch and ErrPartialUnmatch mark a two-sided write that
	// left exactly one side persisted.
	ErrPartialMatch   = errors.New("match persisted on one side only")
	ErrPartialUnmatch = errors.New("unmatch applied on one side only")
)
