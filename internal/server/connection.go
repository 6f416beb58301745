package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/thedecree/internal/validate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Outbound buffer per connection. A full buffer drops the connection
	// rather than blocking the room.
	sendBufferSize = 256
)

// Connection is one WebSocket client. Reads are pumped into the hub's
// handler; writes go through a buffered channel so broadcasts never block
// on a slow peer.
type Connection struct {
	id        string
	server    *Server
	ws        *websocket.Conn
	send      chan *Message
	logger    *log.Logger
	limits    *validate.RateLimiter
	closeOnce sync.Once

	// session is set once identify/create/join succeeds. Only the read
	// pump goroutine touches it.
	session *PlayerSession
}

func newConnection(id string, server *Server, ws *websocket.Conn) *Connection {
	return &Connection{
		id:     id,
		server: server,
		ws:     ws,
		send:   make(chan *Message, sendBufferSize),
		logger: server.logger.WithPrefix("conn").With("conn", id),
		limits: validate.NewRateLimiter(server.clock),
	}
}

// SendMessage queues a message for the write pump. A full buffer closes
// the connection; the client reconnects and resyncs from the snapshot.
// Safe to call concurrently with Close: a send racing the channel close
// is recovered and reported as an error.
func (c *Connection) SendMessage(msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("send on closed connection", "error", r)
			err = fmt.Errorf("connection closed")
		}
	}()

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("send buffer full, dropping connection")
		_ = c.Close()
		return fmt.Errorf("send buffer full")
	}
}

// Close shuts the send channel and the socket exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.send)
		err = c.ws.Close()
	})
	return err
}

func (c *Connection) sendError(code, message string) {
	c.server.metrics.ErrorsSent.WithLabelValues(code).Inc()
	msg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("failed to build error message", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

// readPump pumps messages from the WebSocket to the hub. One per
// connection; the goroutine exits on read error and unregisters itself.
func (c *Connection) readPump() {
	defer func() {
		c.server.unregister(c)
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if c.session != nil {
			c.session.UpdateHeartbeat(c.server.clock.Now())
		}
		return nil
	})

	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("unexpected close", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump pumps messages from the send channel to the WebSocket and
// keeps the ping ticker running.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// rateCategory buckets message types for throttling.
func rateCategory(t MessageType) validate.Category {
	switch t {
	case MessageTypePing:
		return validate.CategoryHeartbeat
	case MessageTypeReconnect:
		return validate.CategoryConnection
	case MessageTypeCreateRoom, MessageTypeJoinRoom, MessageTypeLeaveRoom:
		return validate.CategoryRoom
	default:
		return validate.CategoryGame
	}
}

// handleMessage demultiplexes one inbound frame. A panic in a handler is
// reported as an internal error instead of killing the pump.
func (c *Connection) handleMessage(msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic handling message", "type", msg.Type, "panic", r)
			c.sendError(ErrCodeInternalError, "internal server error")
		}
	}()

	c.server.metrics.MessagesReceived.WithLabelValues(msg.Type.String()).Inc()

	if !c.limits.Allow(rateCategory(msg.Type)) {
		c.logger.Warn("rate limited", "type", msg.Type)
		c.sendError(ErrCodeRateLimited, "too many requests, slow down")
		return
	}

	if c.session != nil {
		c.session.UpdateHeartbeat(c.server.clock.Now())
	}

	switch msg.Type {
	case MessageTypePing:
		pong, err := NewMessage(MessageTypePong, nil)
		if err == nil {
			_ = c.SendMessage(pong)
		}
	case MessageTypeCreateRoom:
		c.server.handleCreateRoom(c, msg)
	case MessageTypeJoinRoom:
		c.server.handleJoinRoom(c, msg)
	case MessageTypeReconnect:
		c.server.handleReconnect(c, msg)
	case MessageTypeLeaveRoom:
		c.server.handleLeaveRoom(c)
	case MessageTypeReady:
		c.server.handleReady(c)
	case MessageTypeStartGame:
		c.server.handleStartGame(c)
	case MessageTypeRestartGame:
		c.server.handleRestartGame(c)
	case MessageTypeDealerCall:
		c.server.handleDealerCall(c, msg)
	case MessageTypeSelectFirstDealerCard:
		c.server.handleSelectFirstDealerCard(c, msg)
	case MessageTypePlayCards:
		c.server.handlePlayCards(c, msg)
	case MessageTypeSetAuto:
		c.server.handleSetAuto(c, msg)
	default:
		c.logger.Warn("unknown message type", "type", msg.Type)
		c.sendError(ErrCodeInvalidPlay, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}
