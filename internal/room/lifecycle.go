// internal/room/lifecycle.go
package room

import (
	"context"

	"github.com/mkrivenko/pokerroom/internal/engine"
	"github.com/mkrivenko/pokerroom/internal/journal"
)

// Round settlement has two trigger paths. Path A fires when the engine's
// phase reaches showdown: the engine evaluates hands and settles, we
// broadcast its verdict. Path B is the safety net for rounds that end early
// because everyone but one participant folded; the engine never reaches
// showdown on its own there, so the coordinator sweeps the bets and awards
// the pot itself. Both paths flip winnerAnnounced before their first engine
// call, which is what keeps a near-simultaneous double trigger down to a
// single winner broadcast.

// checkRoundEnd inspects the round after a fan-out and runs whichever
// settlement path applies.
func (h *Hub) checkRoundEnd(ctx context.Context, r *Room, parts []engine.Participant) {
	st, err := h.eng.RoundStatus(ctx, r.ID)
	if err != nil {
		h.log.Warnf("room %s: round status: %v", r.ID, err)
		return
	}

	total := len(parts)
	var active []engine.Participant
	for _, p := range parts {
		if !p.Folded {
			active = append(active, p)
		}
	}

	if st.Phase == engine.PhaseShowdown {
		h.settleShowdown(ctx, r, total)
		return
	}
	h.settleLastStanding(ctx, r, st, total, active)
}

// settleShowdown is Path A: the engine declared a showdown, so ask it for
// the winner and broadcast the verdict.
func (h *Hub) settleShowdown(ctx context.Context, r *Room, total int) {
	if total < 2 {
		return
	}
	if !r.tryAnnounceWinner() {
		return
	}
	w, err := h.eng.DetermineWinner(ctx, r.ID)
	if err != nil || !w.Success {
		// Reopen the window so the next broadcast cycle retries.
		r.retractWinner()
		h.log.Warnf("room %s: winner determination failed (success=%v): %v", r.ID, w.Success, err)
		return
	}
	h.log.Infof("room %s: showdown winner %s (seat %s)", r.ID, w.Identity, w.SeatID)
	h.broadcastWinner(r, w)
	h.record(ctx, journal.Event{
		RoomID:    r.ID,
		Kind:      journal.KindShowdownWinner,
		Identity:  w.Identity,
		SeatID:    w.SeatID,
		Timestamp: h.clock.Now().UnixMilli(),
	})
	h.scheduleRoundReset(r)
}

// settleLastStanding is Path B: exactly one non-folded participant remains
// before any showdown. The liveness guards keep a freshly created or
// single-viewer room from "settling" a round that never really ran.
func (h *Hub) settleLastStanding(ctx context.Context, r *Room, st engine.RoundStatus, total int, active []engine.Participant) {
	if len(active) != 1 || r.WinnerAnnounced() {
		return
	}
	_, clockRunning := r.Deadline()
	if total < 2 && !r.HadTwoPlayers() {
		// Not a finished round, just a room that lost its second player
		// before play began. Stop it if anything is still running; an
		// already idle room stays untouched so the push cycle terminates.
		if clockRunning || st.HasActor || st.Pot > 0 {
			h.stopRoom(ctx, r)
		}
		return
	}
	if !(r.HadTwoPlayers() || st.HasActor || clockRunning || st.Pot > 0) {
		return
	}
	if !r.tryAnnounceWinner() {
		return
	}

	sole := active[0]
	// Outstanding bets join the pot, then the whole pot goes to the last
	// participant standing. Both writes are best-effort: a failure leaves
	// funds where the engine can still account for them.
	if err := h.eng.SweepBetsToPot(ctx, r.ID); err != nil {
		h.log.Errorf("room %s: sweep bets: %v", r.ID, err)
	}
	amount, err := h.eng.AwardPot(ctx, r.ID, sole.SeatID)
	if err != nil {
		h.log.Errorf("room %s: award pot to %s: %v", r.ID, sole.SeatID, err)
	}

	h.log.Infof("room %s: last-standing winner %s (seat %s, awarded %d)", r.ID, sole.Identity, sole.SeatID, amount)
	h.broadcastWinner(r, engine.WinnerResult{Success: true, SeatID: sole.SeatID, Identity: sole.Identity})
	h.record(ctx, journal.Event{
		RoomID:    r.ID,
		Kind:      journal.KindFallbackWinner,
		Identity:  sole.Identity,
		SeatID:    sole.SeatID,
		Amount:    amount,
		Timestamp: h.clock.Now().UnixMilli(),
	})

	if total >= 2 {
		h.scheduleRoundReset(r)
	}
	// With a single seat left the room stays idle; the settlement window
	// stays open until the next stop or reset clears it.
}

// scheduleRoundReset defers the round reset by the settlement grace delay so
// viewers see the result before the table clears. The reset is not
// cancelable: once scheduled it always fires.
func (h *Hub) scheduleRoundReset(r *Room) {
	h.clock.AfterFunc(h.cfg.SettleDelay, func() {
		h.finishRoundReset(context.Background(), r)
	})
}

// finishRoundReset is the round boundary: queued joins are admitted, the
// engine starts the next round, the per-round flags clear, and the clock
// rearms for the first actor.
func (h *Hub) finishRoundReset(ctx context.Context, r *Room) {
	h.admitWaiting(ctx, r)

	if err := h.eng.ResetRound(ctx, r.ID); err != nil {
		h.log.Errorf("room %s: round reset: %v", r.ID, err)
		// Clear the flags anyway so the next trigger can resynchronize
		// instead of wedging the settlement window open.
		r.finishReset()
		return
	}
	if err := h.eng.Deal(ctx, r.ID); err != nil {
		h.log.Debugf("room %s: deal: %v", r.ID, err)
	}
	h.ensureBlinds(ctx, r)
	r.finishReset()
	h.Push(ctx, r)
	h.ArmTurnClock(ctx, r, h.cfg.TurnDuration)
}

// admitWaiting drains the waiting queue into the engine. Entries whose join
// call fails stay queued for the next boundary.
func (h *Hub) admitWaiting(ctx context.Context, r *Room) {
	for _, e := range r.takeWaiting() {
		if err := h.eng.Join(ctx, r.ID, e.Identity, e.Stake); err != nil {
			h.log.Warnf("room %s: admission of %q failed, keeping queued: %v", r.ID, e.Identity, err)
			r.requeueWaiting(e)
			continue
		}
		h.log.Infof("room %s: admitted %q with stake %d", r.ID, e.Identity, e.Stake)
		h.record(ctx, journal.Event{
			RoomID:    r.ID,
			Kind:      journal.KindAdmitted,
			Identity:  e.Identity,
			Amount:    e.Stake,
			Timestamp: h.clock.Now().UnixMilli(),
		})
	}
}
