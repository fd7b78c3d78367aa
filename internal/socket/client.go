// Package socket is the websocket transport between the client and the
// world server. It writes operation envelopes, correlates direct replies
// by request id, and hands every inbound response (direct or broadcast)
// to the session in arrival order.
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tabletop-core/internal/protocol"
)

type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	QueueSize        int
}

// Client owns one connection to the world server.
type Client struct {
	conn    *websocket.Conn
	inbound chan *protocol.Response

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan *protocol.Response

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects and starts the read loop.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("socket requires a server URL")
	}
	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, &protocol.TransportError{Op: "dial", Err: err}
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	c := &Client{
		conn:    conn,
		inbound: make(chan *protocol.Response, queueSize),
		pending: make(map[string]chan *protocol.Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Inbound yields every parsed response in the order the transport
// received it. The session's apply loop is the sole consumer. The
// channel closes when the connection ends.
func (c *Client) Inbound() <-chan *protocol.Response {
	return c.inbound
}

// Request sends an envelope and waits for its direct reply. The same
// response is also delivered on Inbound so the apply loop sees it in
// wire order; the caller reads its result and must not mutate it. A
// caller that gives up waiting does not stop the response from being
// applied when it arrives.
func (c *Client) Request(ctx context.Context, op protocol.Operation) (*protocol.Response, error) {
	replyCh := make(chan *protocol.Response, 1)
	c.pendingMu.Lock()
	c.pending[op.RequestID] = replyCh
	c.pendingMu.Unlock()

	if err := c.send(op); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, op.RequestID)
		c.pendingMu.Unlock()
		return nil, err
	}

	select {
	case resp := <-replyCh:
		return resp, nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, op.RequestID)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	case <-c.done:
		return nil, &protocol.TransportError{Op: "await", Err: fmt.Errorf("connection closed")}
	}
}

// Send writes an envelope without waiting for the reply; the response
// still arrives on Inbound.
func (c *Client) Send(op protocol.Operation) error {
	return c.send(op)
}

func (c *Client) send(op protocol.Operation) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(op); err != nil {
		return &protocol.TransportError{Op: "send", Err: err}
	}
	return nil
}

func (c *Client) readLoop() {
	defer func() {
		c.Close()
		close(c.inbound)
	}()
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Printf("Socket read ended: %v", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message []byte) {
	var payload map[string]interface{}
	if err := json.Unmarshal(message, &payload); err != nil {
		log.Printf("Dropping unparseable socket message: %v", err)
		return
	}
	resp, err := protocol.ParseResponse(payload)
	if err != nil {
		// malformed responses never reach a collection
		log.Printf("Dropping socket message: %v", err)
		return
	}

	// correlation is a transport concern; the request id is read off the
	// raw payload and never exposed on the typed response
	if requestID, ok := payload["requestId"].(string); ok && requestID != "" {
		c.pendingMu.Lock()
		replyCh, waiting := c.pending[requestID]
		if waiting {
			delete(c.pending, requestID)
		}
		c.pendingMu.Unlock()
		if waiting {
			replyCh <- resp
		}
	}

	select {
	case c.inbound <- resp:
	case <-c.done:
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}
