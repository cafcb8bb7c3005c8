// internal/room/conn.go
package room

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

// Conn is a live transport handle bound to an optional viewer identity. An
// empty identity means the connection is anonymous and only ever receives
// public snapshots. A Conn belongs to exactly one Room and is removed from
// it on disconnect.
type Conn struct {
	Identity string

	write func(ctx context.Context, data []byte) error
}

// writeTimeout bounds a single send so one stalled connection cannot hold up
// fan-out to the rest of the room.
const writeTimeout = 3 * time.Second

// NewConn wraps a websocket connection for room fan-out.
func NewConn(sock *websocket.Conn, identity string) *Conn {
	return &Conn{
		Identity: identity,
		write: func(ctx context.Context, data []byte) error {
			return sock.Write(ctx, websocket.MessageText, data)
		},
	}
}

// Write sends a raw text frame to the client.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	return c.write(ctx, data)
}
