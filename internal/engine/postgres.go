// internal/engine/postgres.go
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG implements Engine on top of the authoritative Postgres schema. All game
// rules live in stored functions; this type only marshals calls and results.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG connects a pgx pool to the given URL and verifies it with a ping.
func NewPG(ctx context.Context, url string) (*PG, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &PG{pool: pool}, nil
}

// Close releases the underlying pool.
func (p *PG) Close() {
	p.pool.Close()
}

// Pool exposes the underlying pool for components sharing the database,
// such as the identity store.
func (p *PG) Pool() *pgxpool.Pool {
	return p.pool
}

// fnResult is the common JSONB envelope returned by the stored functions.
type fnResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// callFn invokes a stored function returning the {success,error} envelope and
// converts a false success flag into a Go error.
func (p *PG) callFn(ctx context.Context, fn string, args ...interface{}) error {
	var raw []byte
	q := fmt.Sprintf("SELECT %s(%s) AS result", fn, placeholders(len(args)))
	if err := p.pool.QueryRow(ctx, q, args...).Scan(&raw); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	var res fnResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("%s: decode result: %w", fn, err)
	}
	if !res.Success {
		return fmt.Errorf("%s: %s", fn, res.Error)
	}
	return nil
}

func placeholders(n int) string {
	s := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			s += ", "
		}
		s += fmt.Sprintf("$%d", i)
	}
	return s
}

func (p *PG) Snapshot(ctx context.Context, roomID uuid.UUID, viewer string) (Snapshot, error) {
	var raw []byte
	var err error
	if viewer != "" {
		err = p.pool.QueryRow(ctx,
			"SELECT get_game_state_for_email($1, $2) AS result", roomID, viewer).Scan(&raw)
	} else {
		err = p.pool.QueryRow(ctx,
			"SELECT get_game_state_public($1) AS result", roomID).Scan(&raw)
	}
	if err != nil {
		return nil, fmt.Errorf("get_game_state: %w", err)
	}
	return Snapshot(raw), nil
}

func (p *PG) RoundStatus(ctx context.Context, roomID uuid.UUID) (RoundStatus, error) {
	var st RoundStatus
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(phase, ''), COALESCE(pot, 0),
		       current_player_id IS NOT NULL, COALESCE(blinds_posted, FALSE)
		FROM games WHERE id = $1`, roomID).
		Scan(&st.Phase, &st.Pot, &st.HasActor, &st.BlindsPosted)
	if err != nil {
		return RoundStatus{}, fmt.Errorf("round status: %w", err)
	}
	return st, nil
}

func (p *PG) Participants(ctx context.Context, roomID uuid.UUID) ([]Participant, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, COALESCE(email, ''), COALESCE(status, '') FROM players WHERE game_id = $1", roomID)
	if err != nil {
		return nil, fmt.Errorf("participants: %w", err)
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var pt Participant
		var status string
		if err := rows.Scan(&pt.SeatID, &pt.Identity, &status); err != nil {
			return nil, fmt.Errorf("participants scan: %w", err)
		}
		pt.Folded = status == "FOLD"
		out = append(out, pt)
	}
	return out, rows.Err()
}

func (p *PG) ParticipantCount(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		"SELECT COUNT(*)::int FROM players WHERE game_id = $1", roomID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("participant count: %w", err)
	}
	return n, nil
}

func (p *PG) TurnDuration(ctx context.Context, roomID uuid.UUID) (time.Duration, error) {
	var secs int
	err := p.pool.QueryRow(ctx,
		"SELECT COALESCE(max_turn_time, 30) FROM games WHERE id = $1", roomID).Scan(&secs)
	if err != nil {
		return 0, fmt.Errorf("turn duration: %w", err)
	}
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second, nil
}

func (p *PG) AdvanceOnTimeout(ctx context.Context, roomID uuid.UUID) error {
	return p.callFn(ctx, "check_turn_timeout", roomID)
}

func (p *PG) AdvanceTurn(ctx context.Context, roomID uuid.UUID) error {
	return p.callFn(ctx, "next_turn", roomID)
}

func (p *PG) ClearTurn(ctx context.Context, roomID uuid.UUID) error {
	_, err := p.pool.Exec(ctx,
		"UPDATE games SET current_player_id = NULL, turn_start_time = NULL WHERE id = $1", roomID)
	if err != nil {
		return fmt.Errorf("clear turn: %w", err)
	}
	return nil
}

func (p *PG) DetermineWinner(ctx context.Context, roomID uuid.UUID) (WinnerResult, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		"SELECT determine_winner($1) AS result", roomID).Scan(&raw)
	if err != nil {
		return WinnerResult{}, fmt.Errorf("determine_winner: %w", err)
	}
	var res struct {
		Success  bool      `json:"success"`
		WinnerID uuid.UUID `json:"winner_id"`
		Email    string    `json:"winner_email"`
		Hand     string    `json:"hand_description"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return WinnerResult{}, fmt.Errorf("determine_winner: decode: %w", err)
	}
	w := WinnerResult{Success: res.Success, SeatID: res.WinnerID, Identity: res.Email, Hand: res.Hand}

	// Older schema versions return only one of id/email; backfill the other.
	if w.Identity == "" && w.SeatID != uuid.Nil {
		_ = p.pool.QueryRow(ctx,
			"SELECT COALESCE(email, '') FROM players WHERE id = $1", w.SeatID).Scan(&w.Identity)
	}
	if w.SeatID == uuid.Nil && w.Identity != "" {
		_ = p.pool.QueryRow(ctx, `
			SELECT id FROM players
			WHERE game_id = $1 AND lower(email) = lower($2)
			ORDER BY id DESC LIMIT 1`, roomID, w.Identity).Scan(&w.SeatID)
	}
	return w, nil
}

func (p *PG) SweepBetsToPot(ctx context.Context, roomID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE games g SET pot = COALESCE(g.pot, 0) + (
			SELECT COALESCE(SUM(b.amount), 0)
			FROM bets b JOIN players pl ON pl.id = b.player_id
			WHERE pl.game_id = $1
		) WHERE g.id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("sweep bets: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		UPDATE bets SET amount = 0
		WHERE player_id IN (SELECT id FROM players WHERE game_id = $1)`, roomID)
	if err != nil {
		return fmt.Errorf("zero bets: %w", err)
	}
	return nil
}

func (p *PG) AwardPot(ctx context.Context, roomID uuid.UUID, seatID uuid.UUID) (int64, error) {
	var pot int64
	err := p.pool.QueryRow(ctx,
		"SELECT COALESCE(pot, 0) FROM games WHERE id = $1", roomID).Scan(&pot)
	if err != nil {
		return 0, fmt.Errorf("read pot: %w", err)
	}
	if pot <= 0 {
		return 0, nil
	}
	if _, err := p.pool.Exec(ctx,
		"UPDATE players SET stack = stack + $2 WHERE id = $1", seatID, pot); err != nil {
		return 0, fmt.Errorf("award pot: %w", err)
	}
	if _, err := p.pool.Exec(ctx,
		"UPDATE games SET pot = 0 WHERE id = $1", roomID); err != nil {
		return 0, fmt.Errorf("zero pot: %w", err)
	}
	return pot, nil
}

func (p *PG) Join(ctx context.Context, roomID uuid.UUID, identity string, stake int64) error {
	return p.callFn(ctx, "join_game", roomID, identity, stake)
}

func (p *PG) Leave(ctx context.Context, roomID uuid.UUID, identity string) error {
	var seatID uuid.UUID
	err := p.pool.QueryRow(ctx, `
		SELECT id FROM players
		WHERE game_id = $1 AND lower(email) = lower($2)
		ORDER BY id DESC LIMIT 1`, roomID, identity).Scan(&seatID)
	if err != nil {
		return fmt.Errorf("find seat: %w", err)
	}
	return p.callFn(ctx, "leave_game", seatID)
}

func (p *PG) StartRound(ctx context.Context, roomID uuid.UUID) error {
	return p.callFn(ctx, "start_game", roomID)
}

func (p *PG) ResetRound(ctx context.Context, roomID uuid.UUID) error {
	return p.callFn(ctx, "new_round", roomID)
}

func (p *PG) Deal(ctx context.Context, roomID uuid.UUID) error {
	return p.callFn(ctx, "deal_cards", roomID)
}

func (p *PG) PostBlinds(ctx context.Context, roomID uuid.UUID) error {
	return p.callFn(ctx, "apply_blinds", roomID)
}

func (p *PG) RoomOfSeat(ctx context.Context, seatID uuid.UUID) (uuid.UUID, error) {
	var roomID uuid.UUID
	err := p.pool.QueryRow(ctx,
		"SELECT game_id FROM players WHERE id = $1", seatID).Scan(&roomID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("room of seat: %w", err)
	}
	return roomID, nil
}

func (p *PG) CreateRoom(ctx context.Context, name string, opts RoomOptions) (uuid.UUID, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		"SELECT create_game($1, $2, $3, $4, $5, $6) AS result",
		name, opts.MaxPlayers, opts.MaxTurnTime, opts.BigBlind, opts.MinStack, opts.MaxStack).Scan(&raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create_game: %w", err)
	}
	var res struct {
		Success bool      `json:"success"`
		Error   string    `json:"error"`
		GameID  uuid.UUID `json:"game_id"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return uuid.Nil, fmt.Errorf("create_game: decode: %w", err)
	}
	if !res.Success {
		return uuid.Nil, fmt.Errorf("create_game: %s", res.Error)
	}
	return res.GameID, nil
}

func (p *PG) ListRooms(ctx context.Context) (json.RawMessage, error) {
	var raw []byte
	if err := p.pool.QueryRow(ctx, "SELECT get_available_games() AS result").Scan(&raw); err != nil {
		return nil, fmt.Errorf("get_available_games: %w", err)
	}
	return json.RawMessage(raw), nil
}

func (p *PG) Action(ctx context.Context, seatID uuid.UUID, kind ActionKind, amount int64) error {
	switch kind {
	case ActionFold:
		return p.callFn(ctx, "player_fold", seatID)
	case ActionCheck:
		return p.callFn(ctx, "player_check", seatID)
	case ActionCall:
		return p.callFn(ctx, "player_call", seatID)
	case ActionRaise:
		return p.callFn(ctx, "player_raise", seatID, amount)
	case ActionAllIn:
		return p.callFn(ctx, "player_all_in", seatID)
	case ActionReplace:
		return p.ReplaceCards(ctx, seatID, nil)
	default:
		return fmt.Errorf("unknown action kind %q", kind)
	}
}

func (p *PG) ReplaceCards(ctx context.Context, seatID uuid.UUID, cardIDs []uuid.UUID) error {
	if cardIDs == nil {
		cardIDs = []uuid.UUID{}
	}
	return p.callFn(ctx, "replace_cards", seatID, cardIDs)
}

func (p *PG) DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	ct, err := p.pool.Exec(ctx, "DELETE FROM games WHERE id = $1", roomID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNoRoom
	}
	return nil
}
