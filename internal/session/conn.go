// Websocket transport of a session.

package session

import (
	"context"

	"github.com/coder/websocket"
)

// Conn is the transport a Session reads from and writes to.
type Conn interface {
	// Read blocks until a full message arrives.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, msg []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

type wsConn struct {
	conn *websocket.Conn
}

// NewConn wraps an accepted websocket, messages larger than readLimit close it.
func NewConn(conn *websocket.Conn, readLimit int64) Conn {
	conn.SetReadLimit(readLimit)
	return wsConn{conn: conn}
}

func (c wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c wsConn) Write(ctx context.Context, msg []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, msg)
}

func (c wsConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c wsConn) Close(code websocket.StatusCode, reason string) error {
	return c.conn.Close(code, reason)
}
