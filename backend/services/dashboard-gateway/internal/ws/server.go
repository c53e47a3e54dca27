package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades /ws/live requests.
type Server struct {
	hub          *Hub
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds the live feed endpoint. checkOrigin may be nil to accept
// any origin.
func NewServer(hub *Hub, writeTimeout time.Duration, checkOrigin func(*http.Request) bool, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		hub:          hub,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleWS subscribes the caller. The optional session_id query parameter
// limits the feed to one session.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	var sessionID int64
	if raw := r.URL.Query().Get("session_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			http.Error(w, "invalid session_id", http.StatusBadRequest)
			return
		}
		sessionID = id
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := NewConnection(uuid.NewString(), conn, sessionID, s.writeTimeout, s.logger, func(id string) {
		s.hub.Remove(id)
		cancel()
	})
	s.hub.Add(connection)

	go connection.Start(ctx)
	s.logger.Info("live subscriber connected",
		zap.String("conn_id", connection.ID()),
		zap.Int64("session_id", sessionID),
	)
}
