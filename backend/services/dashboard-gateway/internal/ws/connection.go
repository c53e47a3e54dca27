package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer   = 16
	readLimit    = 4 * 1024
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// subscribeMessage is what a client sends to change its session filter.
type subscribeMessage struct {
	SessionID *int64 `json:"session_id"`
}

// Connection is one live feed subscriber.
type Connection struct {
	id           string
	ws           *websocket.Conn
	send         chan []byte
	sessionID    atomic.Int64
	logger       *zap.Logger
	writeTimeout time.Duration
	onClose      func(id string)
}

// NewConnection wraps an upgraded socket. sessionID 0 subscribes to every
// session.
func NewConnection(id string, conn *websocket.Conn, sessionID int64, writeTimeout time.Duration, logger *zap.Logger, onClose func(string)) *Connection {
	c := &Connection{
		id:           id,
		ws:           conn,
		send:         make(chan []byte, sendBuffer),
		logger:       logger.With(zap.String("conn_id", id)),
		writeTimeout: writeTimeout,
		onClose:      onClose,
	}
	c.sessionID.Store(sessionID)
	return c
}

func (c *Connection) ID() string { return c.id }

// Wants reports whether the subscriber follows sessionID.
func (c *Connection) Wants(sessionID int64) bool {
	filter := c.sessionID.Load()
	return filter == 0 || filter == sessionID
}

// Start runs the write pump in the background and blocks in the read pump.
func (c *Connection) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Debug("live connection read closed", zap.Error(err))
			return
		}

		var sub subscribeMessage
		if err := json.Unmarshal(message, &sub); err != nil || sub.SessionID == nil || *sub.SessionID < 0 {
			c.logger.Debug("ignoring live client message")
			continue
		}
		c.sessionID.Store(*sub.SessionID)
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send enqueues msg, dropping it when the subscriber is too slow.
func (c *Connection) Send(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

// cleanup unregisters before closing send so the hub never writes to a
// closed channel.
func (c *Connection) cleanup() {
	if c.onClose != nil {
		c.onClose(c.id)
	}
	close(c.send)
	_ = c.ws.Close()
}
