// Package game implements the authoritative TheDecree state machine: deal,
// dealer election, dealer call, card selection, showdown, scoring and
// refill. The engine is synchronous; delayed transitions are requested
// through a Scheduler the room provides, and every mutation happens under
// the room's serialisation.
package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/thedecree/internal/deck"
	"github.com/lox/thedecree/internal/poker"
)

// Protocol rejections. The room maps these onto wire error codes.
var (
	ErrWrongState      = errors.New("action not legal in current state")
	ErrUnknownPlayer   = errors.New("player not in game")
	ErrNotDealer       = errors.New("only the dealer may call")
	ErrInvalidCall     = errors.New("dealer call must be 1, 2 or 3")
	ErrAlreadyPlayed   = errors.New("player already played this round")
	ErrAlreadySelected = errors.New("player already selected a card")
	ErrInvalidCards    = errors.New("cards are not playable from this hand")
)

// Scheduler posts delayed callbacks into the room's serialised loop.
// Scheduling a key cancels any earlier timer with the same key; CancelAll
// runs at teardown so no callback touches a dismissed engine.
type Scheduler interface {
	Schedule(key string, d time.Duration, fn func())
	Cancel(key string)
	CancelAll()
}

// Seat describes one participant at engine construction.
type Seat struct {
	ID   string
	Name string
}

// Config holds the engine's tunables. Zero values take the defaults below.
type Config struct {
	DealDelay     time.Duration // pause between start and the deal
	ScoringDelay  time.Duration // pause between scoring and refill
	AutoPlayDelay time.Duration // auto-play "thinking" time
	ActionTimeout time.Duration // inactivity before a seat flips to auto

	// NewDeck overrides deck construction; tests stack decks through it.
	NewDeck func(rng *rand.Rand) *deck.Deck
}

const (
	DefaultDealDelay     = 500 * time.Millisecond
	DefaultScoringDelay  = 2 * time.Second
	DefaultAutoPlayDelay = 2 * time.Second
	DefaultActionTimeout = 30 * time.Second

	handSize      = 5
	communitySize = 4
)

func (c Config) withDefaults() Config {
	if c.DealDelay == 0 {
		c.DealDelay = DefaultDealDelay
	}
	if c.ScoringDelay == 0 {
		c.ScoringDelay = DefaultScoringDelay
	}
	if c.AutoPlayDelay == 0 {
		c.AutoPlayDelay = DefaultAutoPlayDelay
	}
	if c.ActionTimeout == 0 {
		c.ActionTimeout = DefaultActionTimeout
	}
	if c.NewDeck == nil {
		c.NewDeck = func(rng *rand.Rand) *deck.Deck {
			d := deck.NewDeck(rng)
			d.Shuffle()
			return d
		}
	}
	return c
}

// Engine runs one game of TheDecree for one room.
type Engine struct {
	cfg      Config
	logger   *log.Logger
	rng      *rand.Rand
	clock    quartz.Clock
	sched    Scheduler
	strategy Strategy
	subs     []Subscriber

	state                 State
	players               []*Player // seat order
	byID                  map[string]*Player
	community             []deck.Card
	deck                  *deck.Deck
	firstDealerSelections map[string]deck.Card
	round                 *Round
	done                  bool
}

// NewEngine seats the players and prepares a game in the setup state.
func NewEngine(seats []Seat, cfg Config, logger *log.Logger, rng *rand.Rand, clock quartz.Clock, sched Scheduler, strategy Strategy) *Engine {
	if strategy == nil {
		strategy = Conservative{}
	}
	e := &Engine{
		cfg:                   cfg.withDefaults(),
		logger:                logger.WithPrefix("engine"),
		rng:                   rng,
		clock:                 clock,
		sched:                 sched,
		strategy:              strategy,
		state:                 StateSetup,
		byID:                  make(map[string]*Player, len(seats)),
		firstDealerSelections: make(map[string]deck.Card, len(seats)),
	}
	for i, seat := range seats {
		p := &Player{ID: seat.ID, Name: seat.Name, SeatIndex: i}
		e.players = append(e.players, p)
		e.byID[seat.ID] = p
	}
	return e
}

// Subscribe registers an event sink. Events are delivered synchronously.
func (e *Engine) Subscribe(sub Subscriber) {
	e.subs = append(e.subs, sub)
}

func (e *Engine) publish(ev Event) {
	for _, sub := range e.subs {
		sub.OnEvent(ev)
	}
}

// State returns the engine's current phase.
func (e *Engine) State() State { return e.state }

// Players returns the seated players in seat order.
func (e *Engine) Players() []*Player { return e.players }

// Player looks up a seated player by id.
func (e *Engine) Player(id string) *Player { return e.byID[id] }

// Community returns the shared cards.
func (e *Engine) Community() []deck.Card { return e.community }

// DeckSize returns the number of undrawn cards.
func (e *Engine) DeckSize() int {
	if e.deck == nil {
		return 0
	}
	return e.deck.Remaining()
}

// Round returns the current round, nil before the first dealer call.
func (e *Engine) Round() *Round { return e.round }

// Start schedules the deal. Valid once, from the setup state.
func (e *Engine) Start() error {
	if e.state != StateSetup {
		return ErrWrongState
	}
	if len(e.players) < 2 {
		return fmt.Errorf("need at least 2 players, have %d", len(e.players))
	}
	e.logger.Info("game starting", "players", len(e.players))
	e.sched.Schedule("deal", e.cfg.DealDelay, e.deal)
	return nil
}

// deal shuffles, deals 4 community cards and 5 cards to each player, and
// opens the dealer election.
func (e *Engine) deal() {
	if e.done || e.state != StateSetup {
		return
	}
	e.deck = e.cfg.NewDeck(e.rng)

	e.community = e.deck.DrawN(communitySize)
	deck.Sort(e.community)
	for _, p := range e.players {
		p.Hand = e.deck.DrawN(handSize)
		deck.Sort(p.Hand)
	}

	for _, p := range e.players {
		e.publish(DealCardsEvent{PlayerID: p.ID, HandCards: p.Hand, DeckSize: e.deck.Remaining()})
	}
	e.state = StateFirstDealerSelection
	e.publish(CommunityCardsEvent{Cards: e.community, State: e.state})
	e.publish(RequestFirstDealerEvent{State: e.state})

	for _, p := range e.players {
		e.armDeadline(p)
	}
	e.logger.Debug("dealt", "community", e.community, "deckSize", e.deck.Remaining())
}

// SelectFirstDealerCard records one player's election card. When every
// player has selected, the reveal elects the dealer and the first round
// begins.
func (e *Engine) SelectFirstDealerCard(playerID string, card deck.Card) error {
	if e.state != StateFirstDealerSelection {
		return ErrWrongState
	}
	p, ok := e.byID[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if _, selected := e.firstDealerSelections[playerID]; selected {
		return ErrAlreadySelected
	}
	if !card.Valid() || !p.HasCard(card) {
		return ErrInvalidCards
	}

	e.firstDealerSelections[playerID] = card
	e.playerActed(p)
	e.publish(PlayerSelectedCardEvent{PlayerID: playerID})

	if len(e.firstDealerSelections) == len(e.players) {
		e.revealFirstDealer()
	}
	return nil
}

func (e *Engine) revealFirstDealer() {
	selections := make([]DealerSelection, 0, len(e.players))
	var dealerID string
	var best deck.Card
	for _, p := range e.players {
		card := e.firstDealerSelections[p.ID]
		selections = append(selections, DealerSelection{PlayerID: p.ID, Card: card})
		if dealerID == "" || deck.Compare(card, best) > 0 {
			dealerID, best = p.ID, card
		}
	}

	e.logger.Info("first dealer elected", "dealer", dealerID, "card", best)
	e.startNewRound(dealerID, func() {
		e.publish(FirstDealerRevealEvent{Selections: selections, DealerID: dealerID, State: e.state})
	})
}

// startNewRound opens a round for the given dealer. preReveal, when set,
// fires after the state flips but before the dealer announcement, so the
// election reveal reaches clients carrying the dealer_call state.
func (e *Engine) startNewRound(dealerID string, preReveal func()) {
	number := 1
	if e.round != nil {
		number = e.round.Number + 1
	}
	for _, p := range e.players {
		p.resetRound()
	}
	e.round = newRound(number, dealerID)
	e.state = StateDealerCall

	if preReveal != nil {
		preReveal()
	}
	e.publish(DealerSelectedEvent{DealerID: dealerID, RoundNumber: number, State: e.state})

	e.armDeadline(e.byID[dealerID])
}

// DealerCall sets how many cards every player reveals this round.
func (e *Engine) DealerCall(playerID string, cardsToPlay int) error {
	if e.state != StateDealerCall {
		return ErrWrongState
	}
	p, ok := e.byID[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if playerID != e.round.DealerID {
		return ErrNotDealer
	}
	if cardsToPlay < 1 || cardsToPlay > 3 {
		return ErrInvalidCall
	}
	// A call no hand can answer would wedge the round.
	if min := e.minHandSize(); cardsToPlay > min {
		return fmt.Errorf("%w: call of %d exceeds smallest hand of %d", ErrInvalidCall, cardsToPlay, min)
	}

	e.round.CardsToPlay = cardsToPlay
	e.state = StatePlayerSelection
	e.playerActed(p)
	e.publish(DealerCalledEvent{DealerID: playerID, CardsToPlay: cardsToPlay, State: e.state})

	for _, pl := range e.players {
		e.armDeadline(pl)
	}
	return nil
}

// PlayCards commits a player's reveal for the round. Cards stay in the hand
// until the refill removes them.
func (e *Engine) PlayCards(playerID string, cards []deck.Card) error {
	if e.state != StatePlayerSelection {
		return ErrWrongState
	}
	p, ok := e.byID[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if p.HasPlayed {
		return ErrAlreadyPlayed
	}
	if !e.isValidPlay(p, cards) {
		return ErrInvalidCards
	}

	played := make([]deck.Card, len(cards))
	copy(played, cards)
	p.PlayedCards = played
	p.HasPlayed = true
	e.round.Plays[playerID] = played
	e.playerActed(p)

	e.publish(PlayerPlayedEvent{PlayerID: playerID, CardCount: len(played)})

	if e.allPlayed() {
		e.showdown()
	}
	return nil
}

// isValidPlay guards engine invariants before any mutation: exact count,
// ownership, no duplicates.
func (e *Engine) isValidPlay(p *Player, cards []deck.Card) bool {
	if len(cards) != e.round.CardsToPlay {
		return false
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() || seen[c] || !p.HasCard(c) {
			return false
		}
		seen[c] = true
	}
	return true
}

func (e *Engine) allPlayed() bool {
	for _, p := range e.players {
		if !p.HasPlayed {
			return false
		}
	}
	return true
}

// showdown evaluates every reveal against the community cards and scores
// the round.
func (e *Engine) showdown() {
	e.state = StateShowdown

	results := make([]PlayerResult, 0, len(e.players))
	var winner, loser *Player
	var bestRank, worstRank poker.HandRank
	for _, p := range e.players {
		combined := make([]deck.Card, 0, len(p.PlayedCards)+len(e.community))
		combined = append(combined, p.PlayedCards...)
		combined = append(combined, e.community...)
		rank := poker.Evaluate(combined)
		e.round.Results[p.ID] = rank

		if winner == nil || poker.Compare(rank, bestRank) > 0 {
			winner, bestRank = p, rank
		}
		if loser == nil || poker.Compare(rank, worstRank) < 0 {
			loser, worstRank = p, rank
		}
	}
	e.round.WinnerID = winner.ID
	e.round.LoserID = loser.ID

	for _, p := range e.players {
		rank := e.round.Results[p.ID]
		results = append(results, PlayerResult{
			PlayerID:     p.ID,
			Cards:        e.round.Plays[p.ID],
			HandType:     rank.Type(),
			HandTypeName: rank.Type().String(),
			Score:        rank.Type().BaseScore(),
			IsWinner:     p.ID == winner.ID,
		})
	}
	e.publish(ShowdownEvent{Results: results, State: e.state})

	e.score()
}

func (e *Engine) score() {
	e.state = StateScoring
	for _, p := range e.players {
		p.Score += e.round.Results[p.ID].Type().BaseScore()
	}
	e.byID[e.round.WinnerID].Score++

	e.logger.Info("round scored",
		"round", e.round.Number,
		"winner", e.round.WinnerID,
		"loser", e.round.LoserID)
	e.publish(RoundEndEvent{
		WinnerID: e.round.WinnerID,
		LoserID:  e.round.LoserID,
		Scores:   e.scores(),
		State:    e.state,
	})

	e.sched.Schedule("refill", e.cfg.ScoringDelay, e.refill)
}

// refill removes played cards from hands, then deals one card at a time in
// dealer-first rotation until every hand holds five cards or the deck runs
// out, so short decks distribute fairly.
func (e *Engine) refill() {
	if e.done || e.state != StateScoring {
		return
	}
	for _, p := range e.players {
		p.removeFromHand(p.PlayedCards)
	}

	rotation := e.rotationFromDealer()
	for {
		drew := false
		for _, p := range rotation {
			if len(p.Hand) >= handSize {
				continue
			}
			card, ok := e.deck.Draw()
			if !ok {
				break
			}
			p.Hand = append(p.Hand, card)
			drew = true
		}
		if !drew || e.deck.IsEmpty() {
			break
		}
	}

	for _, p := range e.players {
		deck.Sort(p.Hand)
		e.publish(HandRefilledEvent{PlayerID: p.ID, HandCards: p.Hand, DeckSize: e.deck.Remaining()})
	}

	for _, p := range e.players {
		if len(p.Hand) == 0 {
			e.gameOver()
			return
		}
	}
	e.startNewRound(e.round.LoserID, nil)
}

// rotationFromDealer returns the players starting at the dealer's seat.
func (e *Engine) rotationFromDealer() []*Player {
	start := e.byID[e.round.DealerID].SeatIndex
	rotation := make([]*Player, 0, len(e.players))
	for i := 0; i < len(e.players); i++ {
		rotation = append(rotation, e.players[(start+i)%len(e.players)])
	}
	return rotation
}

func (e *Engine) gameOver() {
	e.state = StateGameOver
	e.sched.CancelAll()

	// Ties break to the lowest seat index.
	winner := e.players[0]
	for _, p := range e.players[1:] {
		if p.Score > winner.Score {
			winner = p
		}
	}

	e.logger.Info("game over", "winner", winner.ID, "rounds", e.round.Number)
	e.publish(GameOverEvent{
		WinnerID:    winner.ID,
		Scores:      e.scores(),
		TotalRounds: e.round.Number,
		State:       e.state,
	})
}

func (e *Engine) scores() map[string]int {
	scores := make(map[string]int, len(e.players))
	for _, p := range e.players {
		scores[p.ID] = p.Score
	}
	return scores
}

func (e *Engine) minHandSize() int {
	min := handSize
	for _, p := range e.players {
		if len(p.Hand) < min {
			min = len(p.Hand)
		}
	}
	return min
}

// SetPlayerAuto flips a seat in or out of auto-play. Turning auto on while
// an action is pending schedules the deliberation timer.
func (e *Engine) SetPlayerAuto(playerID string, isAuto bool, reason AutoReason) error {
	p, ok := e.byID[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if p.IsAuto == isAuto {
		return nil
	}
	p.IsAuto = isAuto
	p.AutoReason = reason
	e.publish(PlayerAutoChangedEvent{PlayerID: playerID, IsAuto: isAuto, Reason: reason})

	if e.state == StateGameOver {
		return nil
	}
	if e.actionPending(p) {
		e.armDeadline(p)
	} else {
		e.cancelTimers(p.ID)
	}
	return nil
}

// CheckAutoPlayTimeouts acts for every auto seat whose deliberation delay
// has elapsed. The per-player timers call this through runAuto; sweeps may
// call it directly as a safety net.
func (e *Engine) CheckAutoPlayTimeouts() {
	now := e.clock.Now()
	for _, p := range e.players {
		if p.IsAuto && e.actionPending(p) && !p.AutoStartTime.IsZero() &&
			!now.Before(p.AutoStartTime.Add(e.cfg.AutoPlayDelay)) {
			e.runAuto(p.ID)
		}
	}
}

// Cleanup cancels all timers. Called at room teardown; the engine must not
// emit afterwards.
func (e *Engine) Cleanup() {
	e.done = true
	e.sched.CancelAll()
}

// actionPending reports whether the game is waiting on this player.
func (e *Engine) actionPending(p *Player) bool {
	switch e.state {
	case StateFirstDealerSelection:
		_, selected := e.firstDealerSelections[p.ID]
		return !selected
	case StateDealerCall:
		return p.ID == e.round.DealerID
	case StatePlayerSelection:
		return !p.HasPlayed
	default:
		return false
	}
}

// armDeadline starts the waiting clock for a pending player: auto seats get
// the deliberation timer, live seats get the inactivity deadline.
func (e *Engine) armDeadline(p *Player) {
	id := p.ID
	e.cancelTimers(id)
	if p.IsAuto {
		p.AutoStartTime = e.clock.Now()
		e.sched.Schedule("auto:"+id, e.cfg.AutoPlayDelay, func() { e.runAuto(id) })
		return
	}
	e.sched.Schedule("deadline:"+id, e.cfg.ActionTimeout, func() { e.timeoutPlayer(id) })
}

func (e *Engine) playerActed(p *Player) {
	p.LastActionTime = e.clock.Now()
	e.cancelTimers(p.ID)
}

func (e *Engine) cancelTimers(playerID string) {
	e.sched.Cancel("auto:" + playerID)
	e.sched.Cancel("deadline:" + playerID)
}

func (e *Engine) timeoutPlayer(playerID string) {
	p, ok := e.byID[playerID]
	if !ok || p.IsAuto || !e.actionPending(p) {
		return
	}
	e.logger.Info("player timed out, enabling auto-play", "player", playerID, "state", e.state)
	_ = e.SetPlayerAuto(playerID, true, AutoReasonTimeout)
}

// runAuto performs the pending action for an auto seat through the same
// entry points a client uses, so validation and completion checks apply.
func (e *Engine) runAuto(playerID string) {
	p, ok := e.byID[playerID]
	if !ok || !p.IsAuto || !e.actionPending(p) {
		return
	}

	var err error
	switch e.state {
	case StateFirstDealerSelection:
		err = e.SelectFirstDealerCard(playerID, e.strategy.SelectFirstDealerCard(p.Hand))
	case StateDealerCall:
		call := e.strategy.DealerCall(p.Hand, e.community)
		if min := e.minHandSize(); call > min {
			call = min
		}
		if call < 1 {
			call = 1
		}
		err = e.DealerCall(playerID, call)
	case StatePlayerSelection:
		err = e.PlayCards(playerID, e.strategy.SelectPlayCards(p.Hand, e.round.CardsToPlay))
	}
	if err != nil {
		e.logger.Error("auto-play action rejected", "player", playerID, "state", e.state, "error", err)
	}
}
