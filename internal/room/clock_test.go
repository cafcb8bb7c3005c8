// internal/room/clock_test.go
package room

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrivenko/pokerroom/internal/engine"
)

func twoSeats() (engine.Participant, engine.Participant) {
	return engine.Participant{SeatID: uuid.New(), Identity: "a@example.com"},
		engine.Participant{SeatID: uuid.New(), Identity: "b@example.com"}
}

func TestTurnClockCountsDownAndExpiresOnce(t *testing.T) {
	eng := newFakeEngine()
	a, b := twoSeats()
	eng.setParticipants(a, b)

	h, fc := newTestHub(eng)
	r := h.Rooms().GetOrCreate(uuid.New())
	c, cc := newCaptureConn("")
	r.attach(c)

	h.ArmTurnClock(context.Background(), r, 30*time.Second)

	// The engine's canonical 3s duration wins over the 30s fallback.
	timers := cc.ofType("timer")
	require.Len(t, timers, 1)
	assert.EqualValues(t, 3, timers[0]["remaining"])

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	require.Eventually(t, func() bool {
		return len(cc.ofType("timer")) >= 2
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, cc.ofType("timer")[1]["remaining"])

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	require.Eventually(t, func() bool {
		return len(cc.ofType("timer")) >= 3
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, cc.ofType("timer")[2]["remaining"])

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	require.Eventually(t, func() bool {
		return eng.calls().timeoutCalls == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, eng.calls().timeoutCalls)
}

func TestRearmSupersedesInFlightClock(t *testing.T) {
	eng := newFakeEngine()
	a, b := twoSeats()
	eng.setParticipants(a, b)

	h, fc := newTestHub(eng)
	r := h.Rooms().GetOrCreate(uuid.New())

	ctx := context.Background()
	h.ArmTurnClock(ctx, r, 0)
	g1 := r.Generation()
	h.ArmTurnClock(ctx, r, 0)
	require.Greater(t, r.Generation(), g1)

	// Both clock goroutines are waiting; only the second may resolve.
	fc.BlockUntil(2)
	fc.Advance(time.Second)
	fc.BlockUntil(1)
	fc.Advance(time.Second)
	fc.BlockUntil(1)
	fc.Advance(time.Second)

	require.Eventually(t, func() bool {
		return eng.calls().timeoutCalls == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, eng.calls().timeoutCalls)
}

func TestArmWithSingleParticipantStopsRoom(t *testing.T) {
	eng := newFakeEngine()
	eng.setParticipants(engine.Participant{SeatID: uuid.New(), Identity: "a@example.com"})

	h, _ := newTestHub(eng)
	r := h.Rooms().GetOrCreate(uuid.New())
	c, cc := newCaptureConn("")
	r.attach(c)

	h.ArmTurnClock(context.Background(), r, 0)

	assert.Equal(t, 1, eng.calls().clearCalls)
	_, armed := r.Deadline()
	assert.False(t, armed)

	states := cc.ofType("state")
	require.NotEmpty(t, states)
	assert.Nil(t, states[len(states)-1]["deadline"])
	assert.Empty(t, cc.ofType("timer"))
}

func TestExpiryFallsBackToPlainAdvance(t *testing.T) {
	eng := newFakeEngine()
	a, b := twoSeats()
	eng.setParticipants(a, b)
	eng.timeoutErr = assert.AnError
	eng.turnDur = time.Second

	h, fc := newTestHub(eng)
	r := h.Rooms().GetOrCreate(uuid.New())

	h.ArmTurnClock(context.Background(), r, 0)
	fc.BlockUntil(1)
	fc.Advance(time.Second)

	require.Eventually(t, func() bool {
		return eng.calls().advanceCalls == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, eng.calls().timeoutCalls)
}

func TestExpiryWithBothAdvancesFailingLeavesRoomIdle(t *testing.T) {
	eng := newFakeEngine()
	a, b := twoSeats()
	eng.setParticipants(a, b)
	eng.timeoutErr = assert.AnError
	eng.advanceErr = assert.AnError
	eng.turnDur = time.Second

	h, fc := newTestHub(eng)
	r := h.Rooms().GetOrCreate(uuid.New())
	c, cc := newCaptureConn("")
	r.attach(c)

	h.ArmTurnClock(context.Background(), r, 0)
	gen := r.Generation()

	fc.BlockUntil(1)
	fc.Advance(time.Second)

	// The failure still pushes state, but no new clock is armed.
	require.Eventually(t, func() bool {
		return len(cc.ofType("state")) > 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, gen, r.Generation())
	assert.Len(t, cc.ofType("timer"), 1)
}

func TestDeadlineWritesAreGenerationGated(t *testing.T) {
	r := newRoom(uuid.New())
	stale := r.bumpGeneration()
	current := r.bumpGeneration()

	// A superseded arm must not leave its deadline behind.
	assert.False(t, r.setDeadlineAt(stale, time.Now().Add(time.Minute)))
	_, armed := r.Deadline()
	assert.False(t, armed)

	deadline := time.Now().Add(30 * time.Second)
	require.True(t, r.setDeadlineAt(current, deadline))
	got, armed := r.Deadline()
	require.True(t, armed)
	assert.Equal(t, deadline, got)

	// Same for the expiry path's clear.
	assert.False(t, r.clearDeadlineAt(stale))
	_, armed = r.Deadline()
	assert.True(t, armed)

	require.True(t, r.clearDeadlineAt(current))
	_, armed = r.Deadline()
	assert.False(t, armed)
}

func TestRemainingSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 0, remainingSeconds(0))
	assert.Equal(t, 0, remainingSeconds(-time.Second))
	assert.Equal(t, 1, remainingSeconds(200*time.Millisecond))
	assert.Equal(t, 2, remainingSeconds(1100*time.Millisecond))
	assert.Equal(t, 30, remainingSeconds(30*time.Second))
}
