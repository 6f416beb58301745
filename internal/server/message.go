package server

import (
	"encoding/json"
	"time"

	"github.com/lox/thedecree/internal/deck"
	"github.com/lox/thedecree/internal/game"
)

// Message is the wire envelope: every frame is a typed event with a
// structured payload.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload in an envelope with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var dataBytes json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		dataBytes = b
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server payloads. Unknown fields are ignored by encoding/json;
// required fields are checked by the handlers.

type CreateRoomData struct {
	PlayerName string `json:"playerName"`
	GameMode   string `json:"gameMode"`
	MaxPlayers int    `json:"maxPlayers"`
	GuestID    string `json:"guestId,omitempty"`
}

type JoinRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	GuestID    string `json:"guestId,omitempty"`
}

type ReconnectData struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId,omitempty"`
	GuestID    string `json:"guestId,omitempty"`
	PlayerName string `json:"playerName"`
}

type DealerCallData struct {
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	CardsToPlay int    `json:"cardsToPlay"`
}

type SelectFirstDealerCardData struct {
	RoomID   string    `json:"roomId"`
	PlayerID string    `json:"playerId"`
	Card     deck.Card `json:"card"`
}

type PlayCardsData struct {
	RoomID   string      `json:"roomId"`
	PlayerID string      `json:"playerId"`
	Cards    []deck.Card `json:"cards"`
}

type SetAutoData struct {
	IsAuto bool `json:"isAuto"`
}

// Server → Client payloads.

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PlayerInfo is the public projection of a session broadcast to peers.
// Private state (the hand itself) never appears here.
type PlayerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SeatIndex   int    `json:"seatIndex"`
	IsReady     bool   `json:"isReady"`
	IsHost      bool   `json:"isHost"`
	IsConnected bool   `json:"isConnected"`
}

type RoomCreatedData struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	MaxPlayers int    `json:"maxPlayers"`
}

type RoomJoinedData struct {
	RoomID           string       `json:"roomId"`
	PlayerID         string       `json:"playerId"`
	MyPlayerIDInRoom string       `json:"myPlayerIdInRoom"`
	HostID           string       `json:"hostId"`
	Players          []PlayerInfo `json:"players"`
	MaxPlayers       int          `json:"maxPlayers"`
}

type PlayerJoinedData struct {
	Player PlayerInfo `json:"player"`
}

type PlayerLeftData struct {
	PlayerID string `json:"playerId"`
}

type PlayerReadyData struct {
	PlayerID string `json:"playerId"`
	IsReady  bool   `json:"isReady"`
}

type HostChangedData struct {
	NewHostID string `json:"newHostId"`
}

type GameStartData struct {
	Players []PlayerInfo `json:"players"`
}

type DealCardsData struct {
	PlayerID      string         `json:"playerId"`
	HandCards     []deck.Card    `json:"handCards"`
	AllHandCounts map[string]int `json:"allHandCounts,omitempty"`
	DeckSize      int            `json:"deckSize,omitempty"`
}

type CommunityCardsData struct {
	Cards     []deck.Card `json:"cards"`
	GameState string      `json:"gameState"`
}

type RequestFirstDealerData struct {
	GameState string `json:"gameState"`
}

type PlayerSelectedCardData struct {
	PlayerID string `json:"playerId"`
}

type SelectionInfo struct {
	PlayerID string    `json:"playerId"`
	Card     deck.Card `json:"card"`
}

type FirstDealerRevealData struct {
	Selections []SelectionInfo `json:"selections"`
	DealerID   string          `json:"dealerId"`
	GameState  string          `json:"gameState"`
}

type DealerSelectedData struct {
	DealerID    string `json:"dealerId"`
	RoundNumber int    `json:"roundNumber"`
	GameState   string `json:"gameState"`
}

type DealerCalledData struct {
	DealerID    string `json:"dealerId"`
	CardsToPlay int    `json:"cardsToPlay"`
	GameState   string `json:"gameState"`
}

type PlayerPlayedData struct {
	PlayerID  string `json:"playerId"`
	CardCount int    `json:"cardCount"`
}

type ShowdownResult struct {
	PlayerID     string      `json:"playerId"`
	Cards        []deck.Card `json:"cards"`
	HandType     int         `json:"handType"`
	HandTypeName string      `json:"handTypeName"`
	Score        int         `json:"score"`
	IsWinner     bool        `json:"isWinner"`
}

type ShowdownData struct {
	Results   []ShowdownResult `json:"results"`
	GameState string           `json:"gameState"`
}

type RoundEndData struct {
	WinnerID  string         `json:"winnerId"`
	LoserID   string         `json:"loserId"`
	Scores    map[string]int `json:"scores"`
	GameState string         `json:"gameState"`
}

type HandRefilledData struct {
	PlayerID  string      `json:"playerId"`
	HandCards []deck.Card `json:"handCards"`
	DeckSize  int         `json:"deckSize"`
}

type GameOverData struct {
	WinnerID    string         `json:"winnerId"`
	Scores      map[string]int `json:"scores"`
	TotalRounds int            `json:"totalRounds"`
	GameState   string         `json:"gameState"`
}

type GameStatePlayer struct {
	ID        string `json:"id"`
	CardCount int    `json:"cardCount"`
	IsReady   bool   `json:"isReady"`
	IsTurn    bool   `json:"isTurn"`
	SeatIndex int    `json:"seatIndex"`
	Score     int    `json:"score"`
	IsAuto    bool   `json:"isAuto"`
}

type GameStateUpdateData struct {
	State       string            `json:"state"`
	RoundNumber int               `json:"roundNumber"`
	DealerID    string            `json:"dealerId,omitempty"`
	CardsToPlay int               `json:"cardsToPlay,omitempty"`
	DeckSize    int               `json:"deckSize"`
	Players     []GameStatePlayer `json:"players"`
}

type PlayerAutoChangedData struct {
	PlayerID string          `json:"playerId"`
	IsAuto   bool            `json:"isAuto"`
	Reason   game.AutoReason `json:"reason"`
}

// ReconnectSuccessData is the full snapshot a reconnecting player needs to
// render without guessing, including their private hand.
type ReconnectSuccessData struct {
	RoomID    string               `json:"roomId"`
	PlayerID  string               `json:"playerId"`
	HostID    string               `json:"hostId"`
	Players   []PlayerInfo         `json:"players"`
	HandCards []deck.Card          `json:"handCards,omitempty"`
	Community []deck.Card          `json:"communityCards,omitempty"`
	GameState *GameStateUpdateData `json:"gameState,omitempty"`
}
