package domain

import (
	"sort"
	"strconv"
	"strings"
)

const roomSeparator = "_"

// RoomID returns the canonical room key for a pair of profiles.
// RoomID(a, b) == RoomID(b, a) for every pair.
func RoomID(a, b int64) string {
	ids := []string{strconv.FormatInt(a, 10), strconv.FormatInt(b, 10)}
	sort.Strings(ids)
	return ids[0] + roomSeparator + ids[1]
}

// ParseRoomID splits a room key into its two member ids.
func ParseRoomID(roomID string) (int64, int64, error) {
	parts := strings.Split(roomID, roomSeparator)
	if len(parts) != 2 {
		return 0, 0, ErrInvalidRoomID
	}
	a, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || a <= 0 {
		return 0, 0, ErrInvalidRoomID
	}
	b, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || b <= 0 || a == b {
		return 0, 0, ErrInvalidRoomID
	}
	if RoomID(a, b) != roomID {
		return 0, 0, ErrInvalidRoomID
	}
	return a, b, nil
}

// RoomCounterpart returns the other member of the room, or false if
// profileID is not a member.
func RoomCounterpart(roomID string, profileID int64) (int64, bool) {
	a, b, err := ParseRoomID(roomID)
	if err != nil {
		return 0, false
	}
	switch profileID {
	case a:
		return b, true
	case b:
		return a, true
	}
	return 0, false
}
