// internal/room/hub.go
package room

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/mkrivenko/pokerroom/internal/config"
	"github.com/mkrivenko/pokerroom/internal/engine"
	"github.com/mkrivenko/pokerroom/internal/journal"
)

// Hub coordinates all live tables in the process: it tracks who is connected
// to each room, runs the per-turn countdown, fans out redacted snapshots,
// detects round-ending conditions, and admits queued players at round
// boundaries. The authoritative game state stays in the rules engine; the
// hub only ever reacts to it.
type Hub struct {
	log     *logrus.Logger
	cfg     config.Coordinator
	eng     engine.Engine
	rooms   *Registry
	clock   clockwork.Clock
	journal *journal.Journal
}

// NewHub builds a hub around the given rules engine. The journal may be nil
// when no event queue is configured.
func NewHub(logger *logrus.Logger, cfg config.Coordinator, eng engine.Engine, jr *journal.Journal) *Hub {
	return &Hub{
		log:     logger,
		cfg:     cfg,
		eng:     eng,
		rooms:   NewRegistry(),
		clock:   clockwork.NewRealClock(),
		journal: jr,
	}
}

// Rooms exposes the registry for handlers that need direct room access.
func (h *Hub) Rooms() *Registry {
	return h.rooms
}

// Attach registers a connection with a room, pushes the initial state, and
// starts play if enough participants are seated.
func (h *Hub) Attach(ctx context.Context, roomID uuid.UUID, c *Conn) *Room {
	r := h.rooms.GetOrCreate(roomID)
	r.attach(c)
	h.log.Infof("room %s: connection attached (identity=%q, conns=%d)", r.ID, c.Identity, r.NumConns())
	h.Push(ctx, r)
	h.maybeAutoStart(ctx, r)
	return r
}

// Detach removes a connection from its room. A bound identity also takes its
// pending waiting entry with it; anonymous drops have no side effects beyond
// leaving the connection set.
func (h *Hub) Detach(ctx context.Context, r *Room, c *Conn) {
	r.detach(c)
	h.log.Infof("room %s: connection detached (identity=%q, conns=%d)", r.ID, c.Identity, r.NumConns())
	if c.Identity == "" {
		return
	}
	r.removeWaiting(c.Identity)
	// A participant drop may leave the room below the two-player floor;
	// rearming handles both the restart and the idle transition.
	h.ArmTurnClock(ctx, r, h.cfg.TurnDuration)
}

// maybeAutoStart begins play once at least two participants are seated.
// With fewer, the room transitions to idle instead.
func (h *Hub) maybeAutoStart(ctx context.Context, r *Room) {
	n, err := h.eng.ParticipantCount(ctx, r.ID)
	if err != nil {
		h.log.Warnf("room %s: participant count: %v", r.ID, err)
		return
	}
	if n < 2 {
		h.stopRoom(ctx, r)
		return
	}
	r.markHadTwoPlayers()
	if err := h.eng.StartRound(ctx, r.ID); err != nil {
		// Already started is the common case here; the engine rejects
		// duplicate starts.
		h.log.Debugf("room %s: start round: %v", r.ID, err)
	}
	if err := h.eng.Deal(ctx, r.ID); err != nil {
		h.log.Debugf("room %s: deal: %v", r.ID, err)
	}
	h.ensureBlinds(ctx, r)
	h.Push(ctx, r)
	h.ArmTurnClock(ctx, r, h.cfg.TurnDuration)
}

// stopRoom transitions a room to idle: the generation bump cancels any
// in-flight clock, the engine's current actor is cleared, and a final
// broadcast lets every viewer see the idle state. The broadcast skips the
// round-end check: stopping is itself a round-end outcome, and a leftover
// pot would otherwise trigger the stop branch again from inside the stop.
func (h *Hub) stopRoom(ctx context.Context, r *Room) {
	r.bumpGeneration()
	r.clearDeadline()
	r.retractWinner()
	if err := h.eng.ClearTurn(ctx, r.ID); err != nil {
		h.log.Warnf("room %s: clear turn: %v", r.ID, err)
	}
	h.fanOut(ctx, r)
}

// ensureBlinds posts the round's blinds once two participants are seated.
func (h *Hub) ensureBlinds(ctx context.Context, r *Room) {
	n, err := h.eng.ParticipantCount(ctx, r.ID)
	if err != nil || n < 2 {
		return
	}
	st, err := h.eng.RoundStatus(ctx, r.ID)
	if err != nil {
		h.log.Warnf("room %s: round status for blinds: %v", r.ID, err)
		return
	}
	if st.BlindsPosted {
		return
	}
	if err := h.eng.PostBlinds(ctx, r.ID); err != nil {
		h.log.Warnf("room %s: post blinds: %v", r.ID, err)
	}
}

// sendTo marshals and delivers one message to one connection. Failures are
// logged and swallowed; a broken connection must not disturb the rest of the
// room, and the read loop will notice the closure on its own.
func (h *Hub) sendTo(c *Conn, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorf("marshal push message: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.write(ctx, data); err != nil {
		h.log.Warnf("push to connection (identity=%q) failed: %v", c.Identity, err)
	}
}

// record appends an event to the journal when one is configured.
func (h *Hub) record(ctx context.Context, ev journal.Event) {
	if h.journal == nil {
		return
	}
	h.journal.Record(ctx, ev)
}
