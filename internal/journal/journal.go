// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the coordinator events are pushed to.
// An out-of-process history consumer drains it.
const DefaultQueueName = "pokerroom_events"

// Event kinds recorded by the coordinator.
const (
	KindShowdownWinner = "showdown_winner"
	KindFallbackWinner = "fallback_winner"
	KindQueued         = "join_queued"
	KindAdmitted       = "join_admitted"
)

// Event is one coordinator occurrence worth persisting: a settlement, a
// queued join, or an admission.
type Event struct {
	RoomID    uuid.UUID `json:"room_id"`
	Kind      string    `json:"kind"`
	Identity  string    `json:"identity,omitempty"`
	SeatID    uuid.UUID `json:"seat_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Journal appends coordinator events to a Redis list. Recording is strictly
// best-effort; a queue outage never disturbs the tables.
type Journal struct {
	rdb   *redis.Client
	queue string
	log   *logrus.Logger
}

// Connect opens the Redis client and verifies it with a ping.
func Connect(logger *logrus.Logger, addr string, db int) (*Journal, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Journal{rdb: rdb, queue: DefaultQueueName, log: logger}, nil
}

// Record serializes the event and pushes it onto the queue. Errors are
// logged and swallowed.
func (j *Journal) Record(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		j.log.Errorf("journal: marshal event: %v", err)
		return
	}
	if err := j.rdb.RPush(ctx, j.queue, data).Err(); err != nil {
		j.log.Warnf("journal: push %s event for room %s: %v", ev.Kind, ev.RoomID, err)
	}
}
