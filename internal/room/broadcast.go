// internal/room/broadcast.go
package room

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkrivenko/pokerroom/internal/engine"
)

// Push fetches a redacted snapshot for every connection in the room and
// sends it, then inspects the round for end conditions. Snapshot fetches are
// independent per connection and may observe slightly different engine state
// if it mutates concurrently; settlement is idempotent and re-triggerable,
// so the staleness is acceptable.
func (h *Hub) Push(ctx context.Context, r *Room) {
	parts := h.fanOut(ctx, r)
	h.checkRoundEnd(ctx, r, parts)
}

// fanOut sends each connection its scoped snapshot and returns the
// participant list it observed. It never runs settlement, so paths that are
// themselves part of settlement or teardown can broadcast without
// re-entering the round-end check.
func (h *Hub) fanOut(ctx context.Context, r *Room) []engine.Participant {
	conns := r.Conns()

	parts, err := h.eng.Participants(ctx, r.ID)
	if err != nil {
		h.log.Warnf("room %s: participants: %v", r.ID, err)
		parts = nil
	}
	seated := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p.Identity != "" {
			seated[p.Identity] = true
		}
	}

	var deadlineMillis *int64
	if deadline, ok := r.Deadline(); ok {
		ms := deadline.UnixMilli()
		deadlineMillis = &ms
	}
	waiting := r.WaitingCount()

	for _, c := range conns {
		// Only a seated participant gets the viewer-scoped snapshot with
		// their own hand visible; everyone else is a public viewer.
		viewer := ""
		if c.Identity != "" && seated[c.Identity] {
			viewer = c.Identity
		}
		snap, err := h.eng.Snapshot(ctx, r.ID, viewer)
		if err != nil {
			h.log.Warnf("room %s: snapshot for viewer %q: %v", r.ID, viewer, err)
			continue
		}
		h.sendTo(c, stateMessage{
			Type:     "state",
			RoomID:   r.ID,
			Deadline: deadlineMillis,
			Waiting:  waiting,
			State:    snap,
		})
	}

	return parts
}

// PushRoom is the external trigger used by the HTTP surface after an action
// result: resolve the room and run a full broadcast cycle.
func (h *Hub) PushRoom(ctx context.Context, roomID uuid.UUID) {
	h.Push(ctx, h.rooms.GetOrCreate(roomID))
}

// broadcastWinner fans out the winner event to every connection.
func (h *Hub) broadcastWinner(r *Room, w engine.WinnerResult) {
	msg := winnerMessage{
		Type:   "winner",
		RoomID: r.ID,
		Winner: winnerInfo{SeatID: w.SeatID, Identity: w.Identity, Hand: w.Hand},
	}
	for _, c := range r.Conns() {
		h.sendTo(c, msg)
	}
}
