// Package ws owns the websocket session registry for the gateway. One
// session per user; a reconnect replaces the old session, and clients that
// cannot keep up with the push stream are evicted rather than allowed to
// block the round loop.
package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jbdekhoooff08512/Win5x/internal/config"
	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
)

type CloseReason string

const (
	ReasonWriteError CloseReason = "write_error"
	ReasonPingError  CloseReason = "ping_error"
	ReasonReadError  CloseReason = "read_error"
	ReasonReplaced   CloseReason = "replaced_by_new_connection"
	ReasonShutdown   CloseReason = "server_shutdown"
	ReasonSlowClient CloseReason = "slow_client"
)

// sendTimeout bounds how long a direct push may wait on a full session
// buffer before the session is declared slow and evicted.
const sendTimeout = 5 * time.Second

// Session is one user's live websocket connection.
type Session struct {
	UserID    int64
	conn      *websocket.Conn
	send      chan []byte
	manager   *Manager
	closeOnce sync.Once
}

// Manager is the session registry. All registry mutations go through the
// mutex; sessions unregister themselves when their read pump exits.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	cfg      config.WebSocketConfig
	quit     chan struct{}
	dropped  atomic.Uint64
}

func NewManager(cfg config.WebSocketConfig) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		cfg:      cfg,
		quit:     make(chan struct{}),
	}
}

// Register attaches a new session for userID, displacing any existing one.
func (m *Manager) Register(conn *websocket.Conn, userID int64) *Session {
	s := &Session{
		UserID:  userID,
		conn:    conn,
		send:    make(chan []byte, m.cfg.SendBufferSize),
		manager: m,
	}

	m.mu.Lock()
	if old, ok := m.sessions[userID]; ok {
		old.close(ReasonReplaced, nil)
	}
	m.sessions[userID] = s
	m.mu.Unlock()

	return s
}

// detach removes s from the registry if it is still the registered session
// for its user. A session replaced by a reconnect must not remove its
// successor.
func (m *Manager) detach(s *Session) {
	m.mu.Lock()
	if cur, ok := m.sessions[s.UserID]; ok && cur == s {
		delete(m.sessions, s.UserID)
	}
	m.mu.Unlock()
}

// Run logs registry health until Shutdown. Session lifecycle itself is
// handled inline by Register/detach.
func (m *Manager) Run() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.InfoGlobal().
				Int("online", m.Online()).
				Uint64("dropped_messages", m.dropped.Load()).
				Msg("🔌 ws registry")
		case <-m.quit:
			return
		}
	}
}

// Broadcast pushes message to every session. A session with a full buffer
// is evicted; the round stream must never block on one slow reader.
func (m *Manager) Broadcast(message []byte) {
	m.mu.RLock()
	var slow []*Session
	for _, s := range m.sessions {
		select {
		case s.send <- message:
		default:
			m.dropped.Add(1)
			slow = append(slow, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range slow {
		s.close(ReasonSlowClient, nil)
		m.detach(s)
	}
}

// SendToUser pushes message to one user, waiting up to sendTimeout for
// buffer room before giving the session up as slow.
func (m *Manager) SendToUser(userID int64, message []byte) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case s.send <- message:
		return
	default:
	}

	t := time.NewTimer(sendTimeout)
	defer t.Stop()
	select {
	case s.send <- message:
	case <-t.C:
		s.close(ReasonSlowClient, nil)
		m.detach(s)
	}
}

// Online reports the number of connected sessions.
func (m *Manager) Online() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session and stops the Run loop.
func (m *Manager) Shutdown() {
	close(m.quit)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.close(ReasonShutdown, nil)
	}
	m.sessions = make(map[int64]*Session)
}

func (s *Session) close(r CloseReason, err error) {
	s.closeOnce.Do(func() {
		logger.Warn(context.Background()).
			Int64("user_id", s.UserID).
			Str("reason", string(r)).
			Err(err).
			Msg("🔌 ws session closed")
		s.conn.Close()
	})
}

// WritePump drains the send buffer onto the wire and keeps the connection
// alive with pings. One per session, started by the http handler.
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.manager.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-s.send:
			// A write deadline has to exist so a peer that stops
			// reading cannot pin the server.
			s.conn.SetWriteDeadline(time.Now().Add(s.manager.cfg.WriteWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.close(ReasonWriteError, err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.manager.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close(ReasonPingError, err)
				return
			}
		}
	}
}

// ReadPump reads client frames and hands them to handleMessage. It owns
// session teardown: when the read side dies the session detaches.
func (s *Session) ReadPump(handleMessage func(int64, []byte)) {
	var readErr error
	defer func() {
		s.close(ReasonReadError, readErr)
		s.manager.detach(s)
	}()

	s.conn.SetReadLimit(s.manager.cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.manager.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.manager.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				readErr = err
			}
			return
		}
		handleMessage(s.UserID, message)
	}
}
