package server

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"exchange-sim/src/book"
	"exchange-sim/src/utils"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 1024 * 1024 // 1MB, wrapper documents can be large
)

// heartbeat ping payload, hex "70696e67" ("ping")
var pingPayload = []byte{0x70, 0x69, 0x6e, 0x67}

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is the per-connection context: role, lifecycle flags, the monotonic
// message counter, the connection's book replica, and its heartbeat state.
// All fields except the pump internals are owned by the engine goroutine.
type Client struct {
	id     string // registry identifier, logs only
	engine *Engine
	conn   *websocket.Conn
	send   chan []byte

	isControl  bool
	active     bool   // user completed hello/subscribe
	sessionID  string // short hex id handed out on hello
	instrument string // subscribed instrument, empty when none

	bookState *book.State
	aggState  *book.AggState

	msgCounter uint64

	// Heartbeat: alive is reset before each ping and set by the pong handler
	// (read goroutine); the timeout task terminates the connection when a
	// ping goes unanswered.
	aliveMu  sync.Mutex
	alive    bool
	pongTask *utils.Task
}

// nextID increments the connection-local counter and returns it as a decimal
// string. Called from the engine goroutine only.
func (c *Client) nextID() string {
	c.msgCounter++
	return strconv.FormatUint(c.msgCounter, 10)
}

func randomSessionID() string {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Acts as the watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.engine.unregister <- c:
		case <-c.engine.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.pongReceived()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.ClosePolicyViolation) {
				c.engine.Logger.Info("websocket error on %s: %v", c.id, err)
			}
			break
		}
		select {
		case c.engine.inbound <- inboundMessage{client: c, data: message}:
		case <-c.engine.done:
			return
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages and heartbeat pings to client
// -----------------------------------------------------------------------------

func (c *Client) writePump(pingInterval, pongTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.cancelPongTask()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Engine closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.engine.Logger.Info("write error on %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.aliveMu.Lock()
			c.alive = false
			c.aliveMu.Unlock()
			if err := c.conn.WriteControl(websocket.PingMessage, pingPayload, time.Now().Add(writeWait)); err != nil {
				return
			}
			c.armPongTimeout(pongTimeout)
		}
	}
}

// -----------------------------------------------------------------------------
// Heartbeat bookkeeping
// -----------------------------------------------------------------------------

func (c *Client) pongReceived() {
	c.aliveMu.Lock()
	c.alive = true
	task := c.pongTask
	c.pongTask = nil
	c.aliveMu.Unlock()
	task.Cancel()
}

// armPongTimeout leaves any previously armed task running: with a ping
// interval shorter than the timeout, cancelling it here would keep pushing
// the deadline forward and a silent peer would never be terminated. A stale
// task that fires after a pong finds alive true and does nothing.
func (c *Client) armPongTimeout(timeout time.Duration) {
	task := c.engine.scheduler.Schedule(timeout, func() {
		c.aliveMu.Lock()
		alive := c.alive
		c.aliveMu.Unlock()
		if !alive {
			c.engine.Logger.Warning("heartbeat timeout, terminating %s", c.id)
			c.conn.Close()
		}
	})
	c.aliveMu.Lock()
	c.pongTask = task
	c.aliveMu.Unlock()
}

func (c *Client) cancelPongTask() {
	c.aliveMu.Lock()
	task := c.pongTask
	c.pongTask = nil
	c.aliveMu.Unlock()
	task.Cancel()
}

// -----------------------------------------------------------------------------
// Close handling
// -----------------------------------------------------------------------------

// sendClose starts the close handshake with a policy code; the peer's close
// reply ends the read pump and tears the connection down.
func (c *Client) sendClose(code int, reason string) {
	frame := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
}

// terminate drops the connection without a handshake.
func (c *Client) terminate() {
	_ = c.conn.Close()
}

func (c *Client) roleLabel() string {
	if c.isControl {
		return "control"
	}
	return "user"
}
