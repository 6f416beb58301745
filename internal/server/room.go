package server

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/thedecree/internal/deck"
	"github.com/lox/thedecree/internal/game"
	"github.com/lox/thedecree/internal/randutil"
)

// RoomState is the room's lifecycle phase.
type RoomState string

const (
	RoomWaiting  RoomState = "waiting"
	RoomReady    RoomState = "ready"
	RoomPlaying  RoomState = "playing"
	RoomFinished RoomState = "finished"
)

var (
	ErrRoomFull       = errors.New("room is full")
	ErrGameInProgress = errors.New("game already in progress")
	ErrNotInRoom      = errors.New("player not in room")
	ErrNotHost        = errors.New("only the host may start the game")
	ErrNotAllReady    = errors.New("all players must be ready")
	ErrGameNotStarted = errors.New("no game in progress")
)

// Room owns one engine and the sessions seated at it. All mutations are
// serialised under mu; engine event emissions happen synchronously inside
// that critical section and fan out before the operation returns.
type Room struct {
	id         string
	gameMode   string
	maxPlayers int

	clock    quartz.Clock
	logger   *log.Logger
	gameCfg  game.Config
	endDelay time.Duration

	mu           sync.Mutex
	state        RoomState
	players      map[string]*PlayerSession
	order        []string // join order: seat assignment and host succession
	hostID       string
	createdAt    time.Time
	lastActivity time.Time
	engine       *game.Engine
	restartVotes map[string]bool
	timers       *timerSet
	dismissed    bool

	// onGameOver, when set, fires once per completed game.
	onGameOver func()
}

func newRoom(id, gameMode string, maxPlayers int, clock quartz.Clock, logger *log.Logger, gameCfg game.Config, endDelay time.Duration) *Room {
	r := &Room{
		id:           id,
		gameMode:     gameMode,
		maxPlayers:   maxPlayers,
		clock:        clock,
		logger:       logger.WithPrefix("room").With("room", id),
		gameCfg:      gameCfg,
		endDelay:     endDelay,
		state:        RoomWaiting,
		players:      make(map[string]*PlayerSession),
		restartVotes: make(map[string]bool),
		createdAt:    clock.Now(),
		lastActivity: clock.Now(),
	}
	// Timer callbacks re-enter the room serialised and are dropped once the
	// room is dismissed, so a late deal never touches a dead engine.
	r.timers = newTimerSet(clock, func(fn func()) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.dismissed {
			return
		}
		fn()
	})
	return r
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// GameMode returns the configured mode tag.
func (r *Room) GameMode() string { return r.gameMode }

// MaxPlayers returns the seat count.
func (r *Room) MaxPlayers() int { return r.maxPlayers }

// State returns the room's lifecycle phase.
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// PlayerCount returns the number of seated sessions, disconnected included.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// HostID returns the current host.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// LastActivity returns the idle-sweep reference time.
func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

// PlayerIDs returns the seated player ids in join order.
func (r *Room) PlayerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// HasPlayer reports whether the player is still seated.
func (r *Room) HasPlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.players[playerID]
	return ok
}

func (r *Room) touchLocked() {
	r.lastActivity = r.clock.Now()
}

// AddPlayer seats a session. The first joiner becomes host.
func (r *Room) AddPlayer(s *PlayerSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == RoomPlaying || r.state == RoomFinished {
		return ErrGameInProgress
	}
	if len(r.players) >= r.maxPlayers {
		return ErrRoomFull
	}

	seat := r.nextSeatLocked()
	s.SetRoom(r.id, seat)
	r.players[s.ID()] = s
	r.order = append(r.order, s.ID())
	if r.hostID == "" {
		r.hostID = s.ID()
		s.SetHost(true)
	}
	r.touchLocked()
	r.logger.Info("player joined", "player", s.ID(), "name", s.Name(), "seat", seat, "players", len(r.players))
	return nil
}

// nextSeatLocked returns the lowest seat index not currently occupied.
func (r *Room) nextSeatLocked() int {
	used := make(map[int]bool, len(r.players))
	for _, p := range r.players {
		used[p.SeatIndex()] = true
	}
	for seat := 0; seat < r.maxPlayers; seat++ {
		if !used[seat] {
			return seat
		}
	}
	return len(r.players)
}

// RemovePlayer detaches a session. The earliest-joined survivor inherits
// the host seat and is marked ready so the restart flow stays symmetric.
// Returns whether the room is now empty.
func (r *Room) RemovePlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removePlayerLocked(playerID)
}

func (r *Room) removePlayerLocked(playerID string) bool {
	s, ok := r.players[playerID]
	if !ok {
		return len(r.players) == 0
	}
	delete(r.players, playerID)
	for i, id := range r.order {
		if id == playerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	delete(r.restartVotes, playerID)
	s.ClearRoom()
	r.touchLocked()

	// A leaver mid-game hands their seat to auto-play; the engine keeps
	// the seat so the round can complete.
	if r.engine != nil {
		_ = r.engine.SetPlayerAuto(playerID, true, game.AutoReasonDisconnect)
	}

	r.broadcastLocked(MessageTypePlayerLeft, PlayerLeftData{PlayerID: playerID}, "")

	if r.hostID == playerID && len(r.order) > 0 {
		r.hostID = r.order[0]
		promoted := r.players[r.hostID]
		promoted.SetHost(true)
		promoted.SetReady(true)
		r.broadcastLocked(MessageTypeHostChanged, HostChangedData{NewHostID: r.hostID}, "")
		r.broadcastLocked(MessageTypePlayerReady, PlayerReadyData{PlayerID: r.hostID, IsReady: true}, "")
	}
	r.refreshWaitingStateLocked()

	r.logger.Info("player left", "player", playerID, "remaining", len(r.players))
	return len(r.players) == 0
}

// SetPlayerReady toggles a ready flag and reports the new value.
func (r *Room) SetPlayerReady(playerID string, ready bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.players[playerID]
	if !ok {
		return false, ErrNotInRoom
	}
	s.SetReady(ready)
	r.touchLocked()
	r.broadcastLocked(MessageTypePlayerReady, PlayerReadyData{PlayerID: playerID, IsReady: ready}, "")
	r.refreshWaitingStateLocked()
	return ready, nil
}

// refreshWaitingStateLocked keeps the waiting/ready distinction current
// outside of games.
func (r *Room) refreshWaitingStateLocked() {
	if r.state == RoomPlaying || r.state == RoomFinished {
		return
	}
	if r.allReadyLocked() {
		r.state = RoomReady
	} else {
		r.state = RoomWaiting
	}
}

// IsAllPlayersReady reports whether a game can start: two or more players,
// all ready.
func (r *Room) IsAllPlayersReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allReadyLocked()
}

func (r *Room) allReadyLocked() bool {
	if len(r.players) < 2 {
		return false
	}
	for _, s := range r.players {
		if !s.IsReady() {
			return false
		}
	}
	return true
}

// StartGame constructs the engine and begins the delayed deal. Host only,
// all-ready only.
func (r *Room) StartGame(callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if callerID != r.hostID {
		return ErrNotHost
	}
	if r.state != RoomWaiting && r.state != RoomReady {
		return ErrGameInProgress
	}
	if !r.allReadyLocked() {
		return ErrNotAllReady
	}

	seats := make([]game.Seat, 0, len(r.order))
	for _, id := range r.order {
		seats = append(seats, game.Seat{ID: id, Name: r.players[id].Name()})
	}
	rng := randutil.New(randutil.EntropySeed())
	r.engine = game.NewEngine(seats, r.gameCfg, r.logger, rng, r.clock, r.timers, game.Conservative{})
	r.engine.Subscribe(roomSink{r})
	r.restartVotes = make(map[string]bool)
	r.state = RoomPlaying
	r.touchLocked()

	r.broadcastLocked(MessageTypeGameStart, GameStartData{Players: r.playersInfoLocked()}, "")
	if err := r.engine.Start(); err != nil {
		r.engine = nil
		r.state = RoomWaiting
		return err
	}
	r.logger.Info("game started", "players", len(seats))
	return nil
}

// RestartGame records a "play again" vote. Each click marks the caller
// ready; once every seated player has clicked, the engine is torn down and
// the room returns to waiting with ready flags preserved.
func (r *Room) RestartGame(callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.players[callerID]
	if !ok {
		return ErrNotInRoom
	}
	s.SetReady(true)
	r.broadcastLocked(MessageTypePlayerReady, PlayerReadyData{PlayerID: callerID, IsReady: true}, "")
	r.touchLocked()

	if r.engine == nil {
		// Engine already gone; extra clicks are ready no-ops.
		r.refreshWaitingStateLocked()
		return nil
	}

	r.restartVotes[callerID] = true
	for _, id := range r.order {
		if !r.restartVotes[id] {
			return nil
		}
	}
	r.logger.Info("all players voted to restart, tearing down engine")
	r.teardownEngineLocked()
	return nil
}

// teardownEngineLocked dismisses the engine and returns to waiting.
// Ready flags are left as they are.
func (r *Room) teardownEngineLocked() {
	if r.engine != nil {
		r.engine.Cleanup()
		r.engine = nil
	}
	r.timers.CancelAll()
	r.restartVotes = make(map[string]bool)
	r.state = RoomWaiting
	r.refreshWaitingStateLocked()
}

// endGame runs after the end-of-game delay: engine torn down, everyone
// unready, back to waiting.
func (r *Room) endGame() {
	if r.engine != nil {
		r.engine.Cleanup()
		r.engine = nil
	}
	r.restartVotes = make(map[string]bool)
	for _, s := range r.players {
		s.SetReady(false)
	}
	r.state = RoomWaiting
	r.touchLocked()
	r.logger.Info("game ended, room back to waiting")
}

// Playing reports whether a game is running.
func (r *Room) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == RoomPlaying || r.state == RoomFinished
}

// HandleDealerCall forwards a dealer call to the engine.
func (r *Room) HandleDealerCall(playerID string, cardsToPlay int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return ErrGameNotStarted
	}
	r.touchLocked()
	return r.engine.DealerCall(playerID, cardsToPlay)
}

// HandleSelectFirstDealerCard forwards an election card to the engine.
func (r *Room) HandleSelectFirstDealerCard(playerID string, card deck.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return ErrGameNotStarted
	}
	r.touchLocked()
	return r.engine.SelectFirstDealerCard(playerID, card)
}

// HandlePlayCards forwards a play to the engine.
func (r *Room) HandlePlayCards(playerID string, cards []deck.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return ErrGameNotStarted
	}
	r.touchLocked()
	return r.engine.PlayCards(playerID, cards)
}

// HandleSetAuto toggles auto-play for a seat.
func (r *Room) HandleSetAuto(playerID string, isAuto bool, reason game.AutoReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return ErrGameNotStarted
	}
	r.touchLocked()
	return r.engine.SetPlayerAuto(playerID, isAuto, reason)
}

// MarkDisconnected flips a mid-game session to auto-play without removing
// it from the room, so the seat survives for the reconnect window.
func (r *Room) MarkDisconnected(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.players[playerID]
	if !ok {
		return
	}
	s.SetConnected(false)
	if r.engine != nil {
		_ = r.engine.SetPlayerAuto(playerID, true, game.AutoReasonDisconnect)
	}
	r.broadcastLocked(MessageTypePlayerLeft, PlayerLeftData{PlayerID: playerID}, "")
	r.touchLocked()
}

// Rejoin swaps a reconnecting session back into the live set and builds
// the private snapshot it needs.
func (r *Room) Rejoin(s *PlayerSession) (*ReconnectSuccessData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[s.ID()]; !ok {
		return nil, ErrNotInRoom
	}
	s.SetConnected(true)
	r.touchLocked()

	r.broadcastLocked(MessageTypePlayerJoined, PlayerJoinedData{Player: s.Info()}, s.ID())
	if r.engine != nil {
		_ = r.engine.SetPlayerAuto(s.ID(), false, game.AutoReasonManual)
	}

	snapshot := &ReconnectSuccessData{
		RoomID:   r.id,
		PlayerID: s.ID(),
		HostID:   r.hostID,
		Players:  r.playersInfoLocked(),
	}
	if r.engine != nil {
		if p := r.engine.Player(s.ID()); p != nil {
			snapshot.HandCards = p.Hand
		}
		snapshot.Community = r.engine.Community()
		snapshot.GameState = r.gameStateLocked()
	}
	return snapshot, nil
}

// JoinedSnapshot builds the room_joined payload for one player.
func (r *Room) JoinedSnapshot(playerID string) RoomJoinedData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomJoinedData{
		RoomID:           r.id,
		PlayerID:         playerID,
		MyPlayerIDInRoom: playerID,
		HostID:           r.hostID,
		Players:          r.playersInfoLocked(),
		MaxPlayers:       r.maxPlayers,
	}
}

// Broadcast sends an event to every connected session, optionally
// excluding one player.
func (r *Room) Broadcast(messageType MessageType, payload interface{}, exclude string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(messageType, payload, exclude)
}

func (r *Room) broadcastLocked(messageType MessageType, payload interface{}, exclude string) {
	for id, s := range r.players {
		if id == exclude {
			continue
		}
		if err := s.Send(messageType, payload); err != nil {
			r.logger.Error("broadcast send failed", "player", id, "type", messageType, "error", err)
		}
	}
}

// SendToPlayer sends an event to one seated player.
func (r *Room) SendToPlayer(playerID string, messageType MessageType, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendToPlayerLocked(playerID, messageType, payload)
}

func (r *Room) sendToPlayerLocked(playerID string, messageType MessageType, payload interface{}) {
	s, ok := r.players[playerID]
	if !ok {
		return
	}
	if err := s.Send(messageType, payload); err != nil {
		r.logger.Error("private send failed", "player", playerID, "type", messageType, "error", err)
	}
}

func (r *Room) playersInfoLocked() []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.players[id].Info())
	}
	return infos
}

// gameStateLocked builds the authoritative snapshot for reconnects.
func (r *Room) gameStateLocked() *GameStateUpdateData {
	if r.engine == nil {
		return nil
	}
	update := &GameStateUpdateData{
		State:    r.engine.State().String(),
		DeckSize: r.engine.DeckSize(),
	}
	var dealerID string
	if round := r.engine.Round(); round != nil {
		update.RoundNumber = round.Number
		update.DealerID = round.DealerID
		update.CardsToPlay = round.CardsToPlay
		dealerID = round.DealerID
	}
	for _, p := range r.engine.Players() {
		isTurn := r.engine.State() == game.StateDealerCall && p.ID == dealerID ||
			r.engine.State() == game.StatePlayerSelection && !p.HasPlayed
		var isReady bool
		if s, ok := r.players[p.ID]; ok {
			isReady = s.IsReady()
		}
		update.Players = append(update.Players, GameStatePlayer{
			ID:        p.ID,
			CardCount: len(p.Hand),
			IsReady:   isReady,
			IsTurn:    isTurn,
			SeatIndex: p.SeatIndex,
			Score:     p.Score,
			IsAuto:    p.IsAuto,
		})
	}
	return update
}

// Dismiss tears the room down: all timers cancelled, engine cleaned up.
// The hub drops the room from its directory afterwards.
func (r *Room) Dismiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissed = true
	if r.engine != nil {
		r.engine.Cleanup()
		r.engine = nil
	}
	r.timers.CancelAll()
}

// roomSink adapts the room into the engine's event sink. OnEvent runs with
// the room lock already held by whichever operation produced the event, so
// it uses the locked send paths directly.
type roomSink struct {
	r *Room
}

func (rs roomSink) OnEvent(ev game.Event) {
	r := rs.r
	switch e := ev.(type) {
	case game.DealCardsEvent:
		counts := make(map[string]int, len(r.players))
		for _, p := range r.engine.Players() {
			counts[p.ID] = len(p.Hand)
		}
		r.sendToPlayerLocked(e.PlayerID, MessageTypeDealCards, DealCardsData{
			PlayerID:      e.PlayerID,
			HandCards:     e.HandCards,
			AllHandCounts: counts,
			DeckSize:      e.DeckSize,
		})
	case game.CommunityCardsEvent:
		r.broadcastLocked(MessageTypeCommunityCards, CommunityCardsData{
			Cards:     e.Cards,
			GameState: e.State.String(),
		}, "")
	case game.RequestFirstDealerEvent:
		r.broadcastLocked(MessageTypeRequestFirstDealer, RequestFirstDealerData{
			GameState: e.State.String(),
		}, "")
	case game.PlayerSelectedCardEvent:
		r.broadcastLocked(MessageTypePlayerSelectedCard, PlayerSelectedCardData{PlayerID: e.PlayerID}, "")
	case game.FirstDealerRevealEvent:
		selections := make([]SelectionInfo, 0, len(e.Selections))
		for _, sel := range e.Selections {
			selections = append(selections, SelectionInfo{PlayerID: sel.PlayerID, Card: sel.Card})
		}
		r.broadcastLocked(MessageTypeFirstDealerReveal, FirstDealerRevealData{
			Selections: selections,
			DealerID:   e.DealerID,
			GameState:  e.State.String(),
		}, "")
	case game.DealerSelectedEvent:
		r.broadcastLocked(MessageTypeDealerSelected, DealerSelectedData{
			DealerID:    e.DealerID,
			RoundNumber: e.RoundNumber,
			GameState:   e.State.String(),
		}, "")
	case game.DealerCalledEvent:
		r.broadcastLocked(MessageTypeDealerCalled, DealerCalledData{
			DealerID:    e.DealerID,
			CardsToPlay: e.CardsToPlay,
			GameState:   e.State.String(),
		}, "")
	case game.PlayerPlayedEvent:
		r.broadcastLocked(MessageTypePlayerPlayed, PlayerPlayedData{
			PlayerID:  e.PlayerID,
			CardCount: e.CardCount,
		}, "")
	case game.ShowdownEvent:
		results := make([]ShowdownResult, 0, len(e.Results))
		for _, res := range e.Results {
			results = append(results, ShowdownResult{
				PlayerID:     res.PlayerID,
				Cards:        res.Cards,
				HandType:     int(res.HandType),
				HandTypeName: res.HandTypeName,
				Score:        res.Score,
				IsWinner:     res.IsWinner,
			})
		}
		r.broadcastLocked(MessageTypeShowdown, ShowdownData{Results: results, GameState: e.State.String()}, "")
	case game.RoundEndEvent:
		r.broadcastLocked(MessageTypeRoundEnd, RoundEndData{
			WinnerID:  e.WinnerID,
			LoserID:   e.LoserID,
			Scores:    e.Scores,
			GameState: e.State.String(),
		}, "")
	case game.HandRefilledEvent:
		r.sendToPlayerLocked(e.PlayerID, MessageTypeHandRefilled, HandRefilledData{
			PlayerID:  e.PlayerID,
			HandCards: e.HandCards,
			DeckSize:  e.DeckSize,
		})
	case game.GameOverEvent:
		r.state = RoomFinished
		r.broadcastLocked(MessageTypeGameOver, GameOverData{
			WinnerID:    e.WinnerID,
			Scores:      e.Scores,
			TotalRounds: e.TotalRounds,
			GameState:   e.State.String(),
		}, "")
		if r.onGameOver != nil {
			r.onGameOver()
		}
		r.timers.Schedule("end", r.endDelay, r.endGame)
	case game.PlayerAutoChangedEvent:
		r.broadcastLocked(MessageTypePlayerAutoChanged, PlayerAutoChangedData{
			PlayerID: e.PlayerID,
			IsAuto:   e.IsAuto,
			Reason:   e.Reason,
		}, "")
	}
}
