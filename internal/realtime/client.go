package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	sendQueueSize     = 64
	writeTimeout      = 10 * time.Second
	keepAliveInterval = 25 * time.Second
	keepAliveTimeout  = 5 * time.Second
)

// Client is one authenticated realtime connection. Outbound envelopes
// go through a buffered queue drained by a single writer goroutine, so
// broadcasters never write the socket directly.
type Client struct {
	SessionID string
	UserID    string
	Name      string

	conn *websocket.Conn
	send chan Envelope

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(sessionID, userID, name string, conn *websocket.Conn) *Client {
	return &Client{
		SessionID: sessionID,
		UserID:    userID,
		Name:      name,
		conn:      conn,
		send:      make(chan Envelope, sendQueueSize),
		done:      make(chan struct{}),
	}
}

// Enqueue queues an envelope for delivery. Non-blocking: a slow or
// closing connection drops the frame rather than stalling the caller.
func (c *Client) Enqueue(env Envelope) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- env:
	default:
	}
}

// Close signals the writer and keep-alive goroutines to stop and closes
// the socket, so a read loop blocked on the connection returns and runs
// its teardown. The send channel is never closed, so concurrent Enqueue
// calls stay safe.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close(websocket.StatusPolicyViolation, "session superseded")
		}
	})
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// writeLoop drains the send queue onto the socket until the client or
// context is done.
func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case env := <-c.send:
			writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, env)
			cancel()
			if err != nil {
				c.Close()
				return
			}
		}
	}
}

// keepAliveLoop pings the peer so half-open connections are detected.
func (c *Client) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), keepAliveTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.Close()
				return
			}
		}
	}
}
