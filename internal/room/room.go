// internal/room/room.go
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// WaitingEntry is a join request received mid-round, held until the next
// round boundary or until the requester disconnects.
type WaitingEntry struct {
	Identity string
	Stake    int64
}

// Room is the coordination record for one live table. It owns the set of
// connections viewing the table and the flags that serialize round
// settlement; the authoritative game state lives in the rules engine.
//
// All fields are guarded by mu. Timer callbacks carry the generation they
// were scheduled under and become no-ops once the counter moves past them;
// that comparison is the only cancellation mechanism the clock has.
type Room struct {
	ID uuid.UUID

	mu              sync.Mutex
	conns           map[*Conn]struct{}
	deadline        time.Time // zero when no turn is active
	generation      uint64
	winnerAnnounced bool
	hadTwoPlayers   bool
	waiting         map[string]WaitingEntry
}

func newRoom(id uuid.UUID) *Room {
	return &Room{
		ID:      id,
		conns:   make(map[*Conn]struct{}),
		waiting: make(map[string]WaitingEntry),
	}
}

func (r *Room) attach(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = struct{}{}
}

func (r *Room) detach(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
}

// Conns returns a point-in-time copy of the connection set so fan-out can
// run without holding the room lock.
func (r *Room) Conns() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}

// NumConns returns the number of live connections.
func (r *Room) NumConns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// bumpGeneration advances the generation counter and returns the new value.
// Every clock arm calls this first, invalidating all previously scheduled
// callbacks before anything else happens.
func (r *Room) bumpGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	return r.generation
}

// Generation returns the current generation counter.
func (r *Room) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *Room) setDeadline(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadline = t
}

// setDeadlineAt sets the turn deadline only while the generation still
// equals gen, under one lock, and reports whether it did. A superseded arm
// must leave no trace, so the check and the write cannot be separated.
func (r *Room) setDeadlineAt(gen uint64, t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return false
	}
	r.deadline = t
	return true
}

// clearDeadlineAt clears the deadline only while the generation still
// equals gen, reporting whether it did.
func (r *Room) clearDeadlineAt(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return false
	}
	r.deadline = time.Time{}
	return true
}

func (r *Room) clearDeadline() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadline = time.Time{}
}

// Deadline returns the absolute expiry of the current turn, if one is armed.
func (r *Room) Deadline() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deadline, !r.deadline.IsZero()
}

// tryAnnounceWinner atomically flips winnerAnnounced from false to true and
// reports whether this caller won the race. Both winner-detection paths gate
// on this, so at most one winner broadcast goes out per settlement window.
func (r *Room) tryAnnounceWinner() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.winnerAnnounced {
		return false
	}
	r.winnerAnnounced = true
	return true
}

// retractWinner reopens the settlement window after a failed winner
// determination so a later broadcast cycle can retry.
func (r *Room) retractWinner() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winnerAnnounced = false
}

// WinnerAnnounced reports whether a settlement window is open.
func (r *Room) WinnerAnnounced() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.winnerAnnounced
}

// markHadTwoPlayers latches the two-player flag for the current round.
func (r *Room) markHadTwoPlayers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hadTwoPlayers = true
}

// HadTwoPlayers reports whether the current round ever had two participants.
// It permits fallback settlement even after the count drops below two.
func (r *Room) HadTwoPlayers() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hadTwoPlayers
}

// finishReset clears the per-round flags once a round reset completes.
func (r *Room) finishReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winnerAnnounced = false
	r.hadTwoPlayers = false
}

// enqueueWaiting inserts or overwrites the pending join request for an
// identity. The entry is drained only at the next round boundary.
func (r *Room) enqueueWaiting(identity string, stake int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waiting[identity] = WaitingEntry{Identity: identity, Stake: stake}
}

// removeWaiting drops a pending join request, typically because the
// requester disconnected before admission.
func (r *Room) removeWaiting(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.waiting, identity)
}

// takeWaiting removes and returns all pending join requests.
func (r *Room) takeWaiting() []WaitingEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]WaitingEntry, 0, len(r.waiting))
	for _, e := range r.waiting {
		out = append(out, e)
	}
	r.waiting = make(map[string]WaitingEntry)
	return out
}

// requeueWaiting puts a failed admission back unless the identity has since
// filed a newer request or left.
func (r *Room) requeueWaiting(e WaitingEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.waiting[e.Identity]; !exists {
		r.waiting[e.Identity] = e
	}
}

// WaitingCount returns the number of queued join requests.
func (r *Room) WaitingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiting)
}
