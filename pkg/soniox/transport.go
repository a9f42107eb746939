package soniox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// FrameType is the type of an outbound frame.
type FrameType int

const (
	TextFrame FrameType = iota + 1
	BinaryFrame
)

// Frame is one outbound message on a duplex connection.
type Frame struct {
	Type FrameType
	Data []byte
}

// Conn is a duplex message channel owned by exactly one session.
//
// Send may be called concurrently with Receive. Close unblocks a pending
// Receive, which then returns an error.
type Conn interface {
	Send(ctx context.Context, f Frame) error

	// Receive returns the next inbound message. It returns io.EOF when the
	// remote closed the connection normally.
	Receive() ([]byte, error)

	Close() error
}

// Transport opens duplex connections for streaming sessions.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

const defaultWriteTimeout = 10 * time.Second

// WebSocketTransport dials the real-time endpoint over a websocket.
type WebSocketTransport struct {
	// URL of the real-time endpoint.
	URL string

	// Header is sent with the upgrade request.
	Header http.Header

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// WriteTimeout bounds a single write when the send context has no
	// deadline. Defaults to 10s.
	WriteTimeout time.Duration
}

// Dial opens a websocket connection.
func (t *WebSocketTransport) Dial(ctx context.Context) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, t.URL, t.Header)
	if err != nil {
		e := &Error{Kind: KindConnection, Op: "dial", Message: fmt.Sprintf("failed to connect to %s", t.URL), Err: err}
		if resp != nil {
			e.Code = resp.StatusCode
			resp.Body.Close()
		}
		return nil, e
	}
	writeTimeout := t.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &wsConn{conn: conn, writeTimeout: writeTimeout}, nil
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) Send(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	messageType := websocket.TextMessage
	if f.Type == BinaryFrame {
		messageType = websocket.BinaryMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.writeTimeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, f.Data)
}

func (c *wsConn) Receive() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if messageType == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		// WriteControl may run concurrently with a blocked WriteMessage.
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
