package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/thedecree/internal/game"
	"github.com/lox/thedecree/internal/gameid"
	"github.com/lox/thedecree/internal/validate"
)

const sweepInterval = 30 * time.Second

// Server is the hub: it owns every connection, session and room, upgrades
// WebSockets and serves the ops endpoints.
type Server struct {
	cfg     *Config
	logger  *log.Logger
	clock   quartz.Clock
	metrics *Metrics
	ids     *gameid.Generator

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	started  time.Time

	mu           sync.RWMutex
	conns        map[string]*Connection
	sessions     map[string]*PlayerSession
	rooms        map[string]*Room
	disconnected map[string]time.Time // playerID -> when the transport dropped
}

// New creates a server. A nil clock uses the real one.
func New(cfg *Config, logger *log.Logger, clock quartz.Clock) *Server {
	if clock == nil {
		clock = quartz.NewReal()
	}
	s := &Server{
		cfg:          cfg,
		logger:       logger.WithPrefix("server"),
		clock:        clock,
		metrics:      NewMetrics(),
		ids:          gameid.NewGenerator(nil),
		conns:        make(map[string]*Connection),
		sessions:     make(map[string]*PlayerSession),
		rooms:        make(map[string]*Room),
		disconnected: make(map[string]time.Time),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.CORSOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == cfg.CORSOrigin
		},
	}
	return s
}

// Routes builds the HTTP mux: the WebSocket endpoint plus the ops sidecar.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.started = s.clock.Now()
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Routes(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.cfg.Addr())
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		waiter := s.clock.TickerFunc(ctx, sweepInterval, func() error {
			s.sweep()
			return nil
		}, "sweep")
		err := waiter.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.shutdown()
		return s.httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// shutdown dismisses every room and closes every connection.
func (s *Server) shutdown() {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	conns := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, r := range rooms {
		r.Dismiss()
	}
	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}
	c := newConnection(s.ids.Generate(), s, ws)

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	s.metrics.ActiveConnections.Inc()
	s.logger.Debug("connection opened", "conn", c.id, "remote", r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

// unregister handles transport loss. Mid-game players keep their seat for
// the reconnect window; everyone else is removed from their room.
func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	if _, ok := s.conns[c.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.conns, c.id)
	session := c.session
	s.mu.Unlock()
	s.metrics.ActiveConnections.Dec()

	if session == nil {
		return
	}
	// A reconnect may already have moved the session to a new transport;
	// a stale pump must not mark it disconnected.
	if !session.UsesTransport(c) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.rooms[session.RoomID()]
	if room != nil && room.Playing() && room.HasPlayer(session.ID()) {
		s.disconnected[session.ID()] = s.clock.Now()
		room.MarkDisconnected(session.ID())
		s.logger.Info("player disconnected mid-game, holding seat",
			"player", session.ID(), "room", room.ID())
		return
	}
	if room != nil {
		s.removeFromRoomLocked(room, session.ID())
	}
	delete(s.sessions, session.ID())
	s.logger.Debug("session closed", "player", session.ID())
}

// removeFromRoomLocked removes a player and reaps the room if it empties.
func (s *Server) removeFromRoomLocked(room *Room, playerID string) {
	if room.RemovePlayer(playerID) {
		room.Dismiss()
		delete(s.rooms, room.ID())
		s.metrics.ActiveRooms.Dec()
		s.logger.Info("room empty, dismissed", "room", room.ID())
	}
	s.metrics.SeatedPlayers.Dec()
	delete(s.disconnected, playerID)
}

// errorCodeFor maps rejection errors onto wire error codes.
func errorCodeFor(err error) string {
	switch {
	case errors.Is(err, ErrGameNotStarted):
		return ErrCodeGameNotStarted
	case errors.Is(err, ErrRoomFull):
		return ErrCodeRoomFull
	case errors.Is(err, ErrNotInRoom):
		return ErrCodeRoomNotFound
	case errors.Is(err, game.ErrNotDealer):
		return ErrCodeNotDealer
	case errors.Is(err, game.ErrAlreadyPlayed), errors.Is(err, game.ErrAlreadySelected):
		return ErrCodeAlreadyPlayed
	case errors.Is(err, game.ErrInvalidCards):
		return ErrCodeInvalidCards
	case errors.Is(err, game.ErrUnknownPlayer):
		return ErrCodeNotYourTurn
	case errors.Is(err, game.ErrWrongState), errors.Is(err, game.ErrInvalidCall),
		errors.Is(err, ErrGameInProgress), errors.Is(err, ErrNotHost), errors.Is(err, ErrNotAllReady):
		return ErrCodeInvalidPlay
	default:
		return ErrCodeInternalError
	}
}

func decode[T any](c *Connection, msg *Message) (T, bool) {
	var data T
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(ErrCodeInvalidPlay, "malformed payload")
		return data, false
	}
	return data, true
}

// requireRoom resolves the caller's session and room.
func (s *Server) requireRoom(c *Connection) (*PlayerSession, *Room, bool) {
	session := c.session
	if session == nil || session.RoomID() == "" {
		c.sendError(ErrCodeRoomNotFound, "not in a room")
		return nil, nil, false
	}
	s.mu.RLock()
	room := s.rooms[session.RoomID()]
	s.mu.RUnlock()
	if room == nil {
		c.sendError(ErrCodeRoomNotFound, "room no longer exists")
		return nil, nil, false
	}
	return session, room, true
}

// newSession validates identity input and registers a session bound to
// this connection.
func (s *Server) newSession(c *Connection, playerName, guestID string) (*PlayerSession, bool) {
	name, err := validate.PlayerName(playerName)
	if err != nil {
		c.sendError(ErrCodeInvalidPlay, err.Error())
		return nil, false
	}
	playerID := ""
	if guestID != "" {
		if err := validate.GuestID(guestID); err != nil {
			c.sendError(ErrCodeInvalidPlay, err.Error())
			return nil, false
		}
		playerID = guestID
	} else {
		playerID = "player_" + s.ids.Generate()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[playerID]; ok && existing.RoomID() != "" {
		c.sendError(ErrCodeInvalidPlay, "identity already in a room, use reconnect")
		return nil, false
	}
	// A roomless leftover from an earlier leave is superseded.
	if c.session != nil {
		delete(s.sessions, c.session.ID())
	}
	session := NewPlayerSession(playerID, name, guestID, c, s.clock.Now())
	s.sessions[playerID] = session
	c.session = session
	return session, true
}

func (s *Server) handleCreateRoom(c *Connection, msg *Message) {
	if c.session != nil && c.session.RoomID() != "" {
		c.sendError(ErrCodeInvalidPlay, "already in a room")
		return
	}
	data, ok := decode[CreateRoomData](c, msg)
	if !ok {
		return
	}
	session, ok := s.newSession(c, data.PlayerName, data.GuestID)
	if !ok {
		return
	}

	maxPlayers := data.MaxPlayers
	if maxPlayers < 2 {
		maxPlayers = 4
	}
	if maxPlayers > s.cfg.MaxPlayersPerRoom {
		maxPlayers = s.cfg.MaxPlayersPerRoom
	}
	gameMode := data.GameMode
	if gameMode == "" {
		gameMode = "the_decree"
	}

	room := newRoom(s.ids.Generate(), gameMode, maxPlayers, s.clock, s.logger,
		game.Config{ActionTimeout: s.cfg.ActionTimeout()}, s.cfg.EndGameDelay())
	room.onGameOver = s.metrics.GamesCompleted.Inc
	if err := room.AddPlayer(session); err != nil {
		c.sendError(errorCodeFor(err), err.Error())
		return
	}

	s.mu.Lock()
	s.rooms[room.ID()] = room
	s.mu.Unlock()
	s.metrics.ActiveRooms.Inc()
	s.metrics.SeatedPlayers.Inc()

	_ = session.Send(MessageTypeRoomCreated, RoomCreatedData{
		RoomID:     room.ID(),
		PlayerID:   session.ID(),
		PlayerName: session.Name(),
		MaxPlayers: maxPlayers,
	})
	_ = session.Send(MessageTypeRoomJoined, room.JoinedSnapshot(session.ID()))
	s.logger.Info("room created", "room", room.ID(), "host", session.ID())
}

func (s *Server) handleJoinRoom(c *Connection, msg *Message) {
	if c.session != nil && c.session.RoomID() != "" {
		c.sendError(ErrCodeInvalidPlay, "already in a room")
		return
	}
	data, ok := decode[JoinRoomData](c, msg)
	if !ok {
		return
	}
	s.mu.RLock()
	room := s.rooms[data.RoomID]
	s.mu.RUnlock()
	if room == nil {
		c.sendError(ErrCodeRoomNotFound, "room not found")
		return
	}
	session, ok := s.newSession(c, data.PlayerName, data.GuestID)
	if !ok {
		return
	}
	if err := room.AddPlayer(session); err != nil {
		s.mu.Lock()
		delete(s.sessions, session.ID())
		c.session = nil
		s.mu.Unlock()
		session.ClearRoom()
		c.sendError(errorCodeFor(err), err.Error())
		return
	}
	s.metrics.SeatedPlayers.Inc()

	room.Broadcast(MessageTypePlayerJoined, PlayerJoinedData{Player: session.Info()}, session.ID())
	_ = session.Send(MessageTypeRoomJoined, room.JoinedSnapshot(session.ID()))
}

// handleReconnect re-binds a held seat to a fresh transport and replays
// the authoritative snapshot.
func (s *Server) handleReconnect(c *Connection, msg *Message) {
	data, ok := decode[ReconnectData](c, msg)
	if !ok {
		return
	}
	s.mu.Lock()
	room := s.rooms[data.RoomID]
	if room == nil {
		s.mu.Unlock()
		c.sendError(ErrCodeRoomNotFound, "room not found")
		return
	}
	session := s.sessions[data.PlayerID]
	if session == nil && data.GuestID != "" {
		for _, candidate := range s.sessions {
			if candidate.GuestID() == data.GuestID && candidate.RoomID() == room.ID() {
				session = candidate
				break
			}
		}
	}
	if session == nil || session.RoomID() != room.ID() || !room.HasPlayer(session.ID()) {
		s.mu.Unlock()
		c.sendError(ErrCodeRoomNotFound, "no held seat to reconnect to")
		return
	}
	if !room.Playing() {
		s.mu.Unlock()
		c.sendError(ErrCodeGameNotStarted, "no game in progress to reconnect to")
		return
	}
	// Only a seat whose transport actually dropped may be re-bound; a
	// reconnect naming a live player must not steal their connection.
	if _, held := s.disconnected[session.ID()]; !held {
		s.mu.Unlock()
		c.sendError(ErrCodeInvalidPlay, "player is still connected")
		return
	}
	delete(s.disconnected, session.ID())
	c.session = session
	s.mu.Unlock()

	if data.PlayerName != "" {
		if name, err := validate.PlayerName(data.PlayerName); err == nil {
			session.SetName(name)
		}
	}
	session.ReplaceTransport(c, s.clock.Now())

	snapshot, err := room.Rejoin(session)
	if err != nil {
		c.sendError(errorCodeFor(err), err.Error())
		return
	}
	_ = session.Send(MessageTypeRoomJoined, room.JoinedSnapshot(session.ID()))
	_ = session.Send(MessageTypeReconnectSuccess, snapshot)
	s.logger.Info("player reconnected", "player", session.ID(), "room", room.ID())
}

func (s *Server) handleLeaveRoom(c *Connection) {
	session, room, ok := s.requireRoom(c)
	if !ok {
		return
	}
	s.mu.Lock()
	s.removeFromRoomLocked(room, session.ID())
	s.mu.Unlock()
}

func (s *Server) handleReady(c *Connection) {
	session, room, ok := s.requireRoom(c)
	if !ok {
		return
	}
	if _, err := room.SetPlayerReady(session.ID(), !session.IsReady()); err != nil {
		c.sendError(errorCodeFor(err), err.Error())
	}
}

func (s *Server) handleStartGame(c *Connection) {
	session, room, ok := s.requireRoom(c)
	if !ok {
		return
	}
	if err := room.StartGame(session.ID()); err != nil {
		c.sendError(errorCodeFor(err), err.Error())
		return
	}
	s.metrics.GamesStarted.Inc()
}

func (s *Server) handleRestartGame(c *Connection) {
	session, room, ok := s.requireRoom(c)
	if !ok {
		return
	}
	if err := room.RestartGame(session.ID()); err != nil {
		c.sendError(errorCodeFor(err), err.Error())
	}
}

func (s *Server) handleDealerCall(c *Connection, msg *Message) {
	session, room, ok := s.requireRoom(c)
	if !ok {
		return
	}
	data, ok := decode[DealerCallData](c, msg)
	if !ok {
		return
	}
	if data.PlayerID != "" && data.PlayerID != session.ID() {
		c.sendError(ErrCodeNotYourTurn, "playerId does not match session")
		return
	}
	if err := room.HandleDealerCall(session.ID(), data.CardsToPlay); err != nil {
		c.sendError(errorCodeFor(err), err.Error())
	}
}

func (s *Server) handleSelectFirstDealerCard(c *Connection, msg *Message) {
	session, room, ok := s.requireRoom(c)
	if !ok {
		return
	}
	data, ok := decode[SelectFirstDealerCardData](c, msg)
	if !ok {
		return
	}
	if data.PlayerID != "" && data.PlayerID != session.ID() {
		c.sendError(ErrCodeNotYourTurn, "playerId does not match session")
		return
	}
	if err := validate.Card(data.Card); err != nil {
		c.sendError(ErrCodeInvalidCards, err.Error())
		return
	}
	if err := room.HandleSelectFirstDealerCard(session.ID(), data.Card); err != nil {
		c.sendError(errorCodeFor(err), err.Error())
	}
}

func (s *Server) handlePlayCards(c *Connection, msg *Message) {
	session, room, ok := s.requireRoom(c)
	if !ok {
		return
	}
	data, ok := decode[PlayCardsData](c, msg)
	if !ok {
		return
	}
	if data.PlayerID != "" && data.PlayerID != session.ID() {
		c.sendError(ErrCodeNotYourTurn, "playerId does not match session")
		return
	}
	if err := validate.Cards(data.Cards); err != nil {
		c.sendError(ErrCodeInvalidCards, err.Error())
		return
	}
	if err := room.HandlePlayCards(session.ID(), data.Cards); err != nil {
		c.sendError(errorCodeFor(err), err.Error())
	}
}

func (s *Server) handleSetAuto(c *Connection, msg *Message) {
	session, room, ok := s.requireRoom(c)
	if !ok {
		return
	}
	data, ok := decode[SetAutoData](c, msg)
	if !ok {
		return
	}
	if err := room.HandleSetAuto(session.ID(), data.IsAuto, game.AutoReasonManual); err != nil {
		c.sendError(errorCodeFor(err), err.Error())
	}
}

// sweep reaps timed-out heartbeats, expired reconnect windows and idle
// rooms. Runs on the hub clock so tests drive it deterministically.
func (s *Server) sweep() {
	now := s.clock.Now()

	s.mu.RLock()
	var stale []*Connection
	for _, c := range s.conns {
		if c.session != nil && c.session.IsConnected() &&
			c.session.IsTimedOut(now, s.cfg.DisconnectTimeout()) {
			stale = append(stale, c)
		}
	}
	s.mu.RUnlock()
	for _, c := range stale {
		s.logger.Info("heartbeat timeout, dropping connection", "player", c.session.ID())
		_ = c.Close()
	}

	s.mu.Lock()
	for playerID, droppedAt := range s.disconnected {
		if now.Sub(droppedAt) <= s.cfg.ReconnectWindow() {
			continue
		}
		session := s.sessions[playerID]
		s.logger.Info("reconnect window expired, removing player", "player", playerID)
		if session != nil {
			if room := s.rooms[session.RoomID()]; room != nil {
				s.removeFromRoomLocked(room, playerID)
			}
		}
		delete(s.sessions, playerID)
		delete(s.disconnected, playerID)
	}

	for id, room := range s.rooms {
		if now.Sub(room.LastActivity()) <= s.cfg.RoomIdleTimeout() {
			continue
		}
		s.logger.Info("room idle, dismissing", "room", id)
		for _, playerID := range room.PlayerIDs() {
			if session := s.sessions[playerID]; session != nil {
				session.ClearRoom()
				session.CloseTransport()
				delete(s.sessions, playerID)
			}
			delete(s.disconnected, playerID)
			s.metrics.SeatedPlayers.Dec()
		}
		room.Dismiss()
		delete(s.rooms, id)
		s.metrics.ActiveRooms.Dec()
	}
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": s.clock.Now(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	type roomStat struct {
		ID          string    `json:"id"`
		State       RoomState `json:"state"`
		PlayerCount int       `json:"playerCount"`
	}

	s.mu.RLock()
	roomStats := make([]roomStat, 0, len(s.rooms))
	for _, r := range s.rooms {
		roomStats = append(roomStats, roomStat{
			ID:          r.ID(),
			State:       r.State(),
			PlayerCount: r.PlayerCount(),
		})
	}
	stats := map[string]interface{}{
		"connections":  len(s.conns),
		"players":      len(s.sessions),
		"rooms":        len(s.rooms),
		"disconnected": len(s.disconnected),
		"roomDetails":  roomStats,
	}
	if !s.started.IsZero() {
		stats["uptimeSeconds"] = int(s.clock.Now().Sub(s.started).Seconds())
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		http.Error(w, fmt.Sprintf("encoding stats: %v", err), http.StatusInternalServerError)
	}
}
