package server

import (
	"sync"
	"time"
)

// transport is the session's view of its connection. Connection implements
// it; tests substitute a recorder.
type transport interface {
	SendMessage(msg *Message) error
	Close() error
}

// PlayerSession binds a transport to a stable identity. The playerId
// survives reconnects; the transport handle is swapped in place.
type PlayerSession struct {
	mu sync.RWMutex

	id      string
	guestID string
	name    string

	roomID    string
	seatIndex int
	isReady   bool
	isHost    bool

	connected     bool
	lastHeartbeat time.Time
	conn          transport
}

// NewPlayerSession creates a connected session with a fresh heartbeat.
func NewPlayerSession(id, name, guestID string, conn transport, now time.Time) *PlayerSession {
	return &PlayerSession{
		id:            id,
		guestID:       guestID,
		name:          name,
		seatIndex:     -1,
		connected:     true,
		lastHeartbeat: now,
		conn:          conn,
	}
}

// ID returns the stable player id.
func (s *PlayerSession) ID() string {
	return s.id
}

// GuestID returns the client-supplied persistent identity, if any.
func (s *PlayerSession) GuestID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guestID
}

// Name returns the sanitised display name.
func (s *PlayerSession) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName updates the display name (reconnects may refresh it).
func (s *PlayerSession) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// RoomID returns the current room, empty when unseated.
func (s *PlayerSession) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

// SetRoom seats the session.
func (s *PlayerSession) SetRoom(roomID string, seatIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.seatIndex = seatIndex
}

// ClearRoom unseats the session and resets room-scoped flags.
func (s *PlayerSession) ClearRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = ""
	s.seatIndex = -1
	s.isReady = false
	s.isHost = false
}

// SeatIndex returns the session's seat in its room.
func (s *PlayerSession) SeatIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seatIndex
}

// IsReady reports the ready flag.
func (s *PlayerSession) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isReady
}

// SetReady sets the ready flag.
func (s *PlayerSession) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isReady = ready
}

// IsHost reports the host flag.
func (s *PlayerSession) IsHost() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isHost
}

// SetHost sets the host flag.
func (s *PlayerSession) SetHost(host bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isHost = host
}

// IsConnected reports transport liveness.
func (s *PlayerSession) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// SetConnected flips transport liveness.
func (s *PlayerSession) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// ReplaceTransport swaps in a new connection on reconnect and refreshes
// the heartbeat.
func (s *PlayerSession) ReplaceTransport(conn transport, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	s.connected = true
	s.lastHeartbeat = now
}

// UpdateHeartbeat records client liveness.
func (s *PlayerSession) UpdateHeartbeat(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = now
}

// IsTimedOut reports whether the last heartbeat is older than the timeout.
func (s *PlayerSession) IsTimedOut(now time.Time, timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastHeartbeat) > timeout
}

// Send delivers an event to this player only. Disconnected sessions drop
// silently; the reconnect snapshot restores their view.
func (s *PlayerSession) Send(messageType MessageType, payload interface{}) error {
	s.mu.RLock()
	conn := s.conn
	connected := s.connected
	s.mu.RUnlock()

	if !connected || conn == nil {
		return nil
	}
	msg, err := NewMessage(messageType, payload)
	if err != nil {
		return err
	}
	return conn.SendMessage(msg)
}

// UsesTransport reports whether this session is still bound to the given
// transport. Stale pumps check this before marking a disconnect.
func (s *PlayerSession) UsesTransport(conn transport) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn == conn
}

// CloseTransport closes the underlying connection if any.
func (s *PlayerSession) CloseTransport() {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Info returns the public projection broadcast to peers.
func (s *PlayerSession) Info() PlayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PlayerInfo{
		ID:          s.id,
		Name:        s.name,
		SeatIndex:   s.seatIndex,
		IsReady:     s.isReady,
		IsHost:      s.isHost,
		IsConnected: s.connected,
	}
}
