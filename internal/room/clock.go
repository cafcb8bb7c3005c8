// internal/room/clock.go
package room

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mkrivenko/pokerroom/internal/engine"
)

// The turn clock has no cancel handle. Arming a room bumps its generation
// counter before anything else happens, and every scheduled effect rechecks
// the counter before acting; a stale callback simply stops. This is the sole
// cancellation mechanism, so a rearm always supersedes any in-flight clock
// no matter how many callbacks are still pending.

// ArmTurnClock starts the countdown for the current actor. With one or zero
// participants the room is stopped instead of armed. The engine's canonical
// turn duration is preferred over the caller-supplied fallback.
func (h *Hub) ArmTurnClock(ctx context.Context, r *Room, fallback time.Duration) {
	gen := r.bumpGeneration()

	n, err := h.eng.ParticipantCount(ctx, r.ID)
	if err != nil {
		h.log.Warnf("room %s: participant count: %v", r.ID, err)
		n = 0
	}
	if n <= 1 {
		h.stopRoom(ctx, r)
		return
	}
	r.markHadTwoPlayers()

	d := fallback
	if d <= 0 {
		d = h.cfg.TurnDuration
	}
	if canonical, err := h.eng.TurnDuration(ctx, r.ID); err == nil && canonical > 0 {
		d = canonical
	} else if err != nil {
		h.log.Debugf("room %s: canonical turn duration unavailable: %v", r.ID, err)
	}

	// Another arm may have superseded this one during the engine calls; the
	// deadline write is gated on the generation in the same critical section
	// so a superseded arm cannot leave its deadline behind.
	deadline := h.clock.Now().Add(d)
	if !r.setDeadlineAt(gen, deadline) {
		return
	}
	h.broadcastTimer(r, int(d/time.Second))
	go h.runTurnClock(r, gen, deadline)
}

// ArmRoom re-arms the clock for a room by identifier with the configured
// fallback duration. Entry point for the HTTP handlers.
func (h *Hub) ArmRoom(ctx context.Context, roomID uuid.UUID) {
	h.ArmTurnClock(ctx, h.rooms.GetOrCreate(roomID), h.cfg.TurnDuration)
}

// runTurnClock announces the remaining time each tick until the deadline
// passes, then resolves the expiry. It stops rescheduling the moment the
// room's generation moves past the one it was armed under.
func (h *Hub) runTurnClock(r *Room, gen uint64, deadline time.Time) {
	for {
		<-h.clock.After(h.cfg.TickInterval)
		if r.Generation() != gen {
			return
		}
		remaining := deadline.Sub(h.clock.Now())
		if remaining <= 0 {
			h.onTurnExpired(context.Background(), r, gen)
			return
		}
		h.broadcastTimer(r, remainingSeconds(remaining))
	}
}

// onTurnExpired applies the engine's timeout resolution and decides whether
// to rearm for the next actor. If the round just ended, the lifecycle
// controller (running inside Push) owns the reset and the next arm.
func (h *Hub) onTurnExpired(ctx context.Context, r *Room, gen uint64) {
	if !r.clearDeadlineAt(gen) {
		return
	}

	if err := h.eng.AdvanceOnTimeout(ctx, r.ID); err != nil {
		h.log.Warnf("room %s: timeout resolution failed: %v", r.ID, err)
		if err := h.eng.AdvanceTurn(ctx, r.ID); err != nil {
			h.log.Errorf("room %s: turn advance fallback failed, leaving idle: %v", r.ID, err)
			h.Push(ctx, r)
			return
		}
	}

	h.Push(ctx, r)

	if st, err := h.eng.RoundStatus(ctx, r.ID); err == nil && st.Phase == engine.PhaseShowdown {
		return
	}
	if r.WinnerAnnounced() {
		return
	}
	// A connect or disconnect may have rearmed while we were resolving.
	if r.Generation() != gen {
		return
	}
	h.ArmTurnClock(ctx, r, h.cfg.TurnDuration)
}

// broadcastTimer fans out the remaining whole seconds to every connection.
func (h *Hub) broadcastTimer(r *Room, remaining int) {
	if remaining < 0 {
		remaining = 0
	}
	msg := timerMessage{Type: "timer", RoomID: r.ID, Remaining: remaining}
	for _, c := range r.Conns() {
		h.sendTo(c, msg)
	}
}

// remainingSeconds rounds a remaining duration up to whole seconds, matching
// what a client countdown should display.
func remainingSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
