package game

import (
	"time"

	"github.com/lox/thedecree/internal/deck"
)

// Player is the engine's view of a seated player.
type Player struct {
	ID        string
	Name      string
	SeatIndex int

	Hand        []deck.Card
	Score       int
	PlayedCards []deck.Card
	HasPlayed   bool

	IsAuto         bool
	AutoReason     AutoReason
	AutoStartTime  time.Time
	LastActionTime time.Time
}

// HasCard reports whether the player's hand contains the card.
func (p *Player) HasCard(c deck.Card) bool {
	for _, held := range p.Hand {
		if held == c {
			return true
		}
	}
	return false
}

// removeFromHand removes each played card from the hand, one occurrence per
// played card.
func (p *Player) removeFromHand(cards []deck.Card) {
	for _, c := range cards {
		for i, held := range p.Hand {
			if held == c {
				p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
				break
			}
		}
	}
}

// resetRound clears the per-round fields.
func (p *Player) resetRound() {
	p.PlayedCards = nil
	p.HasPlayed = false
}
