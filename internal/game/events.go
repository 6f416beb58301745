package game

import (
	"github.com/lox/thedecree/internal/deck"
	"github.com/lox/thedecree/internal/poker"
)

// EventType identifies a game domain event.
type EventType string

const (
	EventTypeDealCards            EventType = "deal_cards"
	EventTypeCommunityCards       EventType = "community_cards"
	EventTypeRequestFirstDealer   EventType = "request_first_dealer_selection"
	EventTypePlayerSelectedCard   EventType = "player_selected_card"
	EventTypeFirstDealerReveal    EventType = "first_dealer_reveal"
	EventTypeDealerSelected       EventType = "dealer_selected"
	EventTypeDealerCalled         EventType = "dealer_called"
	EventTypePlayerPlayed         EventType = "player_played"
	EventTypeShowdown             EventType = "showdown"
	EventTypeRoundEnd             EventType = "round_end"
	EventTypeHandRefilled         EventType = "hand_refilled"
	EventTypeGameOver             EventType = "game_over"
	EventTypePlayerAutoChanged    EventType = "player_auto_changed"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}

// Event is anything the engine emits during a game. Emissions are
// synchronous with the operation that produced them; the subscriber fans
// them out before control returns.
type Event interface {
	EventType() EventType
}

// PrivateEvent marks events that must only reach one player and never
// traverse the broadcast path.
type PrivateEvent interface {
	Event
	Recipient() string
}

// Subscriber receives engine events.
type Subscriber interface {
	OnEvent(event Event)
}

// DealCardsEvent carries a player's private hand after the deal.
type DealCardsEvent struct {
	PlayerID  string
	HandCards []deck.Card
	DeckSize  int
}

func (e DealCardsEvent) EventType() EventType { return EventTypeDealCards }
func (e DealCardsEvent) Recipient() string    { return e.PlayerID }

// CommunityCardsEvent announces the four shared cards.
type CommunityCardsEvent struct {
	Cards []deck.Card
	State State
}

func (e CommunityCardsEvent) EventType() EventType { return EventTypeCommunityCards }

// RequestFirstDealerEvent asks every player to reveal one card.
type RequestFirstDealerEvent struct {
	State State
}

func (e RequestFirstDealerEvent) EventType() EventType { return EventTypeRequestFirstDealer }

// PlayerSelectedCardEvent is the anonymised "player X selected" signal.
type PlayerSelectedCardEvent struct {
	PlayerID string
}

func (e PlayerSelectedCardEvent) EventType() EventType { return EventTypePlayerSelectedCard }

// FirstDealerRevealEvent shows every submitted card and the elected dealer.
type FirstDealerRevealEvent struct {
	Selections []DealerSelection
	DealerID   string
	State      State
}

func (e FirstDealerRevealEvent) EventType() EventType { return EventTypeFirstDealerReveal }

// DealerSelection pairs a player with the card they revealed.
type DealerSelection struct {
	PlayerID string
	Card     deck.Card
}

// DealerSelectedEvent opens a round with its dealer.
type DealerSelectedEvent struct {
	DealerID    string
	RoundNumber int
	State       State
}

func (e DealerSelectedEvent) EventType() EventType { return EventTypeDealerSelected }

// DealerCalledEvent announces how many cards the round plays.
type DealerCalledEvent struct {
	DealerID    string
	CardsToPlay int
	State       State
}

func (e DealerCalledEvent) EventType() EventType { return EventTypeDealerCalled }

// PlayerPlayedEvent reports that a player committed cards. It carries the
// count only; the cards stay hidden until showdown.
type PlayerPlayedEvent struct {
	PlayerID  string
	CardCount int
}

func (e PlayerPlayedEvent) EventType() EventType { return EventTypePlayerPlayed }

// PlayerResult is one player's showdown outcome.
type PlayerResult struct {
	PlayerID     string
	Cards        []deck.Card
	HandType     poker.HandType
	HandTypeName string
	Score        int
	IsWinner     bool
}

// ShowdownEvent carries every player's evaluated hand.
type ShowdownEvent struct {
	Results []PlayerResult
	State   State
}

func (e ShowdownEvent) EventType() EventType { return EventTypeShowdown }

// RoundEndEvent closes the scoring phase.
type RoundEndEvent struct {
	WinnerID string
	LoserID  string
	Scores   map[string]int
	State    State
}

func (e RoundEndEvent) EventType() EventType { return EventTypeRoundEnd }

// HandRefilledEvent carries a player's private hand after the refill.
type HandRefilledEvent struct {
	PlayerID  string
	HandCards []deck.Card
	DeckSize  int
}

func (e HandRefilledEvent) EventType() EventType { return EventTypeHandRefilled }
func (e HandRefilledEvent) Recipient() string    { return e.PlayerID }

// GameOverEvent ends the game with final scores.
type GameOverEvent struct {
	WinnerID    string
	Scores      map[string]int
	TotalRounds int
	State       State
}

func (e GameOverEvent) EventType() EventType { return EventTypeGameOver }

// PlayerAutoChangedEvent reports auto-play flips.
type PlayerAutoChangedEvent struct {
	PlayerID string
	IsAuto   bool
	Reason   AutoReason
}

func (e PlayerAutoChangedEvent) EventType() EventType { return EventTypePlayerAutoChanged }

// AutoReason explains why a player entered or left auto-play.
type AutoReason string

const (
	AutoReasonManual     AutoReason = "manual"
	AutoReasonTimeout    AutoReason = "timeout"
	AutoReasonDisconnect AutoReason = "disconnect"
)
