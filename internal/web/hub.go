package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/justestif/go-stagehand/internal/catalog"
)

// Effect types sent to the room layer.
const (
	EffectJoin         = "join"
	EffectLeave        = "leave"
	EffectSetNextTrack = "set_next_track"
)

const (
	writeTimeout = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 20 * time.Second
	maxReadBytes = 4096
)

// Effect is one stage or queue mutation.
type Effect struct {
	ID    uuid.UUID      `json:"id"`
	Type  string         `json:"type"`
	Entry *catalog.Entry `json:"entry,omitempty"`
	At    time.Time      `json:"at"`
}

// Hub fans effects out to every connected room-layer client. Effects are
// fire-and-forget: with no client connected they are dropped.
type Hub struct {
	sessions *SessionStore
	upgrader websocket.Upgrader
	logger   *slog.Logger
	now      func() time.Time
}

// NewHub creates a Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions: NewSessionStore(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger,
		now:    time.Now,
	}
}

// RequestJoinStage broadcasts a join effect.
func (h *Hub) RequestJoinStage(context.Context) error {
	h.broadcast(Effect{Type: EffectJoin})
	return nil
}

// RequestLeaveStage broadcasts a leave effect.
func (h *Hub) RequestLeaveStage(context.Context) error {
	h.broadcast(Effect{Type: EffectLeave})
	return nil
}

// SetNextTrack broadcasts the track to queue next.
func (h *Hub) SetNextTrack(_ context.Context, e catalog.Entry) error {
	h.broadcast(Effect{Type: EffectSetNextTrack, Entry: &e})
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return h.sessions.Len()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.sessions.CloseAll()
}

func (h *Hub) broadcast(e Effect) {
	e.ID = uuid.New()
	e.At = h.now().UTC()

	sessions := h.sessions.All()
	if len(sessions) == 0 {
		h.logger.Debug("no effect clients, dropping effect", "type", e.Type)
		return
	}
	for _, sess := range sessions {
		if !sess.offer(e) {
			h.logger.Warn("effect client lagging, dropping effect", "session", sess.ID, "type", e.Type)
		}
	}
}

// ServeHTTP upgrades the request and streams effects until the client goes
// away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(r.RemoteAddr)
	h.sessions.Add(sess)
	h.logger.Info("effect client connected", "session", sess.ID, "remote", sess.RemoteAddr)

	go h.readLoop(conn, sess)
	h.writeLoop(conn, sess)

	h.sessions.Delete(sess.ID)
	_ = conn.Close()
	h.logger.Info("effect client disconnected", "session", sess.ID)
}

// readLoop discards client messages; it exists to process control frames
// and notice disconnects.
func (h *Hub) readLoop(conn *websocket.Conn, sess *Session) {
	defer sess.close()

	conn.SetReadLimit(maxReadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, sess *Session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
			return
		case e := <-sess.send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				h.logger.Warn("writing effect", "session", sess.ID, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
