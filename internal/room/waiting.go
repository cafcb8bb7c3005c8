// internal/room/waiting.go
package room

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkrivenko/pokerroom/internal/engine"
	"github.com/mkrivenko/pokerroom/internal/journal"
)

// JoinOrEnqueue seats an identity immediately when the room is between
// rounds; while a round is in progress the request is queued and drained at
// the next round boundary, so no seat ever changes mid-round. Returns true
// when the request was queued.
func (h *Hub) JoinOrEnqueue(ctx context.Context, roomID uuid.UUID, identity string, stake int64) (bool, error) {
	r := h.rooms.GetOrCreate(roomID)

	st, err := h.eng.RoundStatus(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !roundInProgress(st) && !r.WinnerAnnounced() {
		if err := h.eng.Join(ctx, roomID, identity, stake); err != nil {
			return false, err
		}
		h.Push(ctx, r)
		return false, nil
	}

	r.enqueueWaiting(identity, stake)
	h.log.Infof("room %s: queued join for %q (stake %d, waiting=%d)", r.ID, identity, stake, r.WaitingCount())
	h.record(ctx, journal.Event{
		RoomID:    r.ID,
		Kind:      journal.KindQueued,
		Identity:  identity,
		Amount:    stake,
		Timestamp: h.clock.Now().UnixMilli(),
	})
	// Push so every viewer sees the waiting count move.
	h.Push(ctx, r)
	return true, nil
}

// roundInProgress reports whether seats may not change right now. A room
// with no phase yet, or one still waiting for players, is at a boundary.
func roundInProgress(st engine.RoundStatus) bool {
	return st.Phase != "" && st.Phase != engine.PhaseWaiting
}
