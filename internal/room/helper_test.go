// internal/room/helper_test.go
package room

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/mkrivenko/pokerroom/internal/config"
	"github.com/mkrivenko/pokerroom/internal/engine"
)

// fakeEngine is an in-memory stand-in for the rules engine. Tests set the
// observable state up front and assert on the recorded calls afterwards.
type fakeEngine struct {
	mu sync.Mutex

	parts     []engine.Participant
	status    engine.RoundStatus
	turnDur   time.Duration
	snapshots map[string]engine.Snapshot // keyed by viewer, "" = public
	winner    engine.WinnerResult
	winnerErr error

	timeoutErr error
	advanceErr error
	joinErr    map[string]error

	timeoutCalls int
	advanceCalls int
	clearCalls   int
	winnerCalls  int
	sweepCalls   int
	startCalls   int
	resetCalls   int
	dealCalls    int
	blindsCalls  int

	awardedSeats []uuid.UUID
	awardAmount  int64
	joined       []WaitingEntry
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		turnDur:   3 * time.Second,
		snapshots: map[string]engine.Snapshot{"": json.RawMessage(`{"public":true}`)},
		joinErr:   make(map[string]error),
	}
}

func (f *fakeEngine) setStatus(st engine.RoundStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = st
}

func (f *fakeEngine) setParticipants(parts ...engine.Participant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts = parts
}

func (f *fakeEngine) setWinner(w engine.WinnerResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winner = w
	f.winnerErr = err
}

// engineCalls is a point-in-time snapshot of the recorded call counters.
type engineCalls struct {
	timeoutCalls int
	advanceCalls int
	clearCalls   int
	winnerCalls  int
	sweepCalls   int
	startCalls   int
	resetCalls   int
	dealCalls    int
	blindsCalls  int

	awardedSeats []uuid.UUID
	joined       []WaitingEntry
}

func (f *fakeEngine) calls() engineCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return engineCalls{
		timeoutCalls: f.timeoutCalls,
		advanceCalls: f.advanceCalls,
		clearCalls:   f.clearCalls,
		winnerCalls:  f.winnerCalls,
		sweepCalls:   f.sweepCalls,
		startCalls:   f.startCalls,
		resetCalls:   f.resetCalls,
		dealCalls:    f.dealCalls,
		blindsCalls:  f.blindsCalls,
		awardedSeats: append([]uuid.UUID(nil), f.awardedSeats...),
		joined:       append([]WaitingEntry(nil), f.joined...),
	}
}

func (f *fakeEngine) Snapshot(ctx context.Context, roomID uuid.UUID, viewer string) (engine.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap, ok := f.snapshots[viewer]; ok {
		return snap, nil
	}
	return f.snapshots[""], nil
}

func (f *fakeEngine) RoundStatus(ctx context.Context, roomID uuid.UUID) (engine.RoundStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

func (f *fakeEngine) Participants(ctx context.Context, roomID uuid.UUID) ([]engine.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Participant(nil), f.parts...), nil
}

func (f *fakeEngine) ParticipantCount(ctx context.Context, roomID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.parts), nil
}

func (f *fakeEngine) TurnDuration(ctx context.Context, roomID uuid.UUID) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.turnDur, nil
}

func (f *fakeEngine) AdvanceOnTimeout(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeoutCalls++
	return f.timeoutErr
}

func (f *fakeEngine) AdvanceTurn(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanceCalls++
	return f.advanceErr
}

func (f *fakeEngine) ClearTurn(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	f.status.HasActor = false
	return nil
}

func (f *fakeEngine) DetermineWinner(ctx context.Context, roomID uuid.UUID) (engine.WinnerResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winnerCalls++
	if f.winnerErr != nil {
		return engine.WinnerResult{}, f.winnerErr
	}
	return f.winner, nil
}

func (f *fakeEngine) SweepBetsToPot(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweepCalls++
	return nil
}

func (f *fakeEngine) AwardPot(ctx context.Context, roomID uuid.UUID, seatID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awardedSeats = append(f.awardedSeats, seatID)
	return f.awardAmount, nil
}

func (f *fakeEngine) Join(ctx context.Context, roomID uuid.UUID, identity string, stake int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.joinErr[identity]; err != nil {
		return err
	}
	f.joined = append(f.joined, WaitingEntry{Identity: identity, Stake: stake})
	return nil
}

func (f *fakeEngine) Leave(ctx context.Context, roomID uuid.UUID, identity string) error {
	return nil
}

func (f *fakeEngine) StartRound(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return nil
}

func (f *fakeEngine) ResetRound(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
	return nil
}

func (f *fakeEngine) Deal(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dealCalls++
	return nil
}

func (f *fakeEngine) PostBlinds(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blindsCalls++
	return nil
}

func (f *fakeEngine) Action(ctx context.Context, seatID uuid.UUID, kind engine.ActionKind, amount int64) error {
	return nil
}

func (f *fakeEngine) ReplaceCards(ctx context.Context, seatID uuid.UUID, cardIDs []uuid.UUID) error {
	return nil
}

func (f *fakeEngine) RoomOfSeat(ctx context.Context, seatID uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, errors.New("not seated")
}

func (f *fakeEngine) DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	return nil
}

func (f *fakeEngine) CreateRoom(ctx context.Context, name string, opts engine.RoomOptions) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (f *fakeEngine) ListRooms(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

// capture collects the decoded messages written to one connection.
type capture struct {
	mu   sync.Mutex
	msgs []map[string]interface{}

	failWrites bool
}

func newCaptureConn(identity string) (*Conn, *capture) {
	cc := &capture{}
	c := &Conn{
		Identity: identity,
		write: func(ctx context.Context, data []byte) error {
			cc.mu.Lock()
			defer cc.mu.Unlock()
			if cc.failWrites {
				return errors.New("write failed")
			}
			var m map[string]interface{}
			if err := json.Unmarshal(data, &m); err != nil {
				return err
			}
			cc.msgs = append(cc.msgs, m)
			return nil
		},
	}
	return c, cc
}

// ofType returns all captured messages with the given type field.
func (cc *capture) ofType(t string) []map[string]interface{} {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	var out []map[string]interface{}
	for _, m := range cc.msgs {
		if m["type"] == t {
			out = append(out, m)
		}
	}
	return out
}

func (cc *capture) last() map[string]interface{} {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if len(cc.msgs) == 0 {
		return nil
	}
	return cc.msgs[len(cc.msgs)-1]
}

// newTestHub wires a hub around the fake engine with a fake clock so tests
// control time explicitly.
func newTestHub(eng engine.Engine) (*Hub, *clockwork.FakeClock) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := config.Coordinator{
		TurnDuration: 30 * time.Second,
		SettleDelay:  7 * time.Second,
		TickInterval: time.Second,
	}
	h := NewHub(logger, cfg, eng, nil)
	fc := clockwork.NewFakeClock()
	h.clock = fc
	return h, fc
}
