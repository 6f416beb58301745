package game

import (
	"github.com/lox/thedecree/internal/deck"
	"github.com/lox/thedecree/internal/poker"
)

// Round tracks one dealer call and its plays.
type Round struct {
	Number      int
	DealerID    string
	CardsToPlay int
	Plays       map[string][]deck.Card
	WinnerID    string
	LoserID     string
	Results     map[string]poker.HandRank
}

func newRound(number int, dealerID string) *Round {
	return &Round{
		Number:   number,
		DealerID: dealerID,
		Plays:    make(map[string][]deck.Card),
		Results:  make(map[string]poker.HandRank),
	}
}
