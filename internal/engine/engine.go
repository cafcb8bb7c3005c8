// internal/engine/engine.go
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoRoom is returned when a room identifier matches no table.
var ErrNoRoom = errors.New("room not found")

// Phase values reported by the rules engine. The coordinator only ever
// branches on Showdown; everything else is opaque to it.
const (
	PhaseWaiting  = "waiting"
	PhaseShowdown = "showdown"
)

// Snapshot is the externally produced, viewer-redacted state of a room. The
// coordinator never inspects or mutates it; it is fetched fresh per push and
// forwarded verbatim.
type Snapshot = json.RawMessage

// RoundStatus is the slice of engine state the coordinator needs to decide
// whether a round has ended and whether blinds are due.
type RoundStatus struct {
	Phase        string
	Pot          int64
	HasActor     bool
	BlindsPosted bool
}

// Participant is one seated player as reported by the engine.
type Participant struct {
	SeatID   uuid.UUID
	Identity string
	Folded   bool
}

// WinnerResult is the outcome of a winner determination call.
type WinnerResult struct {
	Success  bool
	SeatID   uuid.UUID
	Identity string
	Hand     string
}

// ActionKind enumerates the betting actions the service forwards to the
// engine on behalf of a seated player.
type ActionKind string

const (
	ActionFold    ActionKind = "fold"
	ActionCheck   ActionKind = "check"
	ActionCall    ActionKind = "call"
	ActionRaise   ActionKind = "raise"
	ActionAllIn   ActionKind = "all_in"
	ActionReplace ActionKind = "replace"
)

// RoomOptions are the table parameters for room creation.
type RoomOptions struct {
	MaxPlayers  int   `json:"max_players"`
	MaxTurnTime int   `json:"max_turn_time"`
	BigBlind    int64 `json:"big_blind"`
	MinStack    int64 `json:"min_stack"`
	MaxStack    int64 `json:"max_stack"`
}

// DefaultRoomOptions mirrors the schema defaults.
func DefaultRoomOptions() RoomOptions {
	return RoomOptions{
		MaxPlayers:  6,
		MaxTurnTime: 30,
		BigBlind:    100,
		MinStack:    1000,
		MaxStack:    10000,
	}
}

// Engine is the authoritative rules engine consumed by the coordinator. Every
// method is a remote, possibly failing call; the coordinator treats all of
// them as best-effort and recovers on the next trigger.
type Engine interface {
	// Snapshot returns the room state redacted for the given viewer identity.
	// An empty viewer yields the public snapshot with no private hands.
	Snapshot(ctx context.Context, roomID uuid.UUID, viewer string) (Snapshot, error)

	// RoundStatus reports the current phase plus the liveness signals the
	// fallback winner path inspects.
	RoundStatus(ctx context.Context, roomID uuid.UUID) (RoundStatus, error)

	// Participants lists the currently seated players.
	Participants(ctx context.Context, roomID uuid.UUID) ([]Participant, error)

	// ParticipantCount returns the number of seated players.
	ParticipantCount(ctx context.Context, roomID uuid.UUID) (int, error)

	// TurnDuration returns the canonical turn length for the room.
	TurnDuration(ctx context.Context, roomID uuid.UUID) (time.Duration, error)

	// AdvanceOnTimeout applies the engine's timeout resolution for the
	// current actor (typically a forced fold or check).
	AdvanceOnTimeout(ctx context.Context, roomID uuid.UUID) error

	// AdvanceTurn moves play to the next actor without timeout handling.
	// Used as the last-resort fallback when AdvanceOnTimeout fails.
	AdvanceTurn(ctx context.Context, roomID uuid.UUID) error

	// ClearTurn clears the current actor and turn start, leaving the room
	// idle. Used when fewer than two participants remain.
	ClearTurn(ctx context.Context, roomID uuid.UUID) error

	// DetermineWinner runs the engine's showdown evaluation and settlement.
	DetermineWinner(ctx context.Context, roomID uuid.UUID) (WinnerResult, error)

	// SweepBetsToPot moves all outstanding bets into the pot and zeroes them.
	SweepBetsToPot(ctx context.Context, roomID uuid.UUID) error

	// AwardPot transfers the full pot to the given seat and zeroes it,
	// returning the amount awarded.
	AwardPot(ctx context.Context, roomID uuid.UUID, seatID uuid.UUID) (int64, error)

	// Join seats an identity with the given stake.
	Join(ctx context.Context, roomID uuid.UUID, identity string, stake int64) error

	// Leave removes an identity's seat.
	Leave(ctx context.Context, roomID uuid.UUID, identity string) error

	// StartRound begins play for a room that has not started yet.
	StartRound(ctx context.Context, roomID uuid.UUID) error

	// ResetRound discards the finished round and prepares the next one.
	ResetRound(ctx context.Context, roomID uuid.UUID) error

	// Deal deals hole cards for the current round. Idempotent in the engine.
	Deal(ctx context.Context, roomID uuid.UUID) error

	// PostBlinds posts the blind bets for the current round.
	PostBlinds(ctx context.Context, roomID uuid.UUID) error

	// Action applies a betting action for a seat. Amount is only meaningful
	// for ActionRaise; ActionReplace with no cards stands pat.
	Action(ctx context.Context, seatID uuid.UUID, kind ActionKind, amount int64) error

	// ReplaceCards discards the given cards during the draw phase and deals
	// replacements. An empty list stands pat.
	ReplaceCards(ctx context.Context, seatID uuid.UUID, cardIDs []uuid.UUID) error

	// RoomOfSeat resolves the room a seat belongs to.
	RoomOfSeat(ctx context.Context, seatID uuid.UUID) (uuid.UUID, error)

	// DeleteRoom removes a table entirely. Returns ErrNoRoom when the
	// identifier matches nothing.
	DeleteRoom(ctx context.Context, roomID uuid.UUID) error

	// CreateRoom creates a new table and returns its identifier.
	CreateRoom(ctx context.Context, name string, opts RoomOptions) (uuid.UUID, error)

	// ListRooms returns the engine's listing of joinable tables, verbatim.
	ListRooms(ctx context.Context) (json.RawMessage, error)
}
