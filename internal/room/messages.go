// internal/room/messages.go
package room

import (
	"github.com/google/uuid"

	"github.com/mkrivenko/pokerroom/internal/engine"
)

// Outbound push messages. Every message carries the room identifier so a
// client multiplexing several tables over one socket can route it.

// stateMessage delivers a viewer-scoped snapshot plus the coordination
// fields the engine does not know about: the active turn deadline and the
// size of the waiting queue.
type stateMessage struct {
	Type     string          `json:"type"`
	RoomID   uuid.UUID       `json:"room_id"`
	Deadline *int64          `json:"deadline"` // unix millis, null when idle
	Waiting  int             `json:"waiting"`
	State    engine.Snapshot `json:"state"`
}

// timerMessage announces the remaining whole seconds of the current turn.
type timerMessage struct {
	Type      string    `json:"type"`
	RoomID    uuid.UUID `json:"room_id"`
	Remaining int       `json:"remaining"`
}

// winnerMessage announces the settled winner of a round.
type winnerMessage struct {
	Type   string     `json:"type"`
	RoomID uuid.UUID  `json:"room_id"`
	Winner winnerInfo `json:"winner"`
}

type winnerInfo struct {
	SeatID   uuid.UUID `json:"id"`
	Identity string    `json:"identity"`
	Hand     string    `json:"hand,omitempty"`
}
