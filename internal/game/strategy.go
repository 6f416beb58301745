package game

import (
	rand "math/rand/v2"

	"github.com/lox/thedecree/internal/deck"
)

// Strategy decides moves for auto-played seats. Implementations are pure:
// they inspect the player's private view and return a move without touching
// engine state.
type Strategy interface {
	// SelectFirstDealerCard picks the card to reveal during dealer election.
	SelectFirstDealerCard(hand []deck.Card) deck.Card
	// DealerCall chooses how many cards the round plays, 1..3.
	DealerCall(hand, community []deck.Card) int
	// SelectPlayCards picks n cards from the hand to commit.
	SelectPlayCards(hand []deck.Card, n int) []deck.Card
}

// Conservative is the default strategy: reveal the smallest card, call one,
// play the smallest cards.
type Conservative struct{}

func (Conservative) SelectFirstDealerCard(hand []deck.Card) deck.Card {
	return pickExtreme(hand, false)
}

func (Conservative) DealerCall(hand, community []deck.Card) int {
	return 1
}

func (Conservative) SelectPlayCards(hand []deck.Card, n int) []deck.Card {
	return pickSmallest(hand, n)
}

// Aggressive reveals the largest card and calls three.
type Aggressive struct{}

func (Aggressive) SelectFirstDealerCard(hand []deck.Card) deck.Card {
	return pickExtreme(hand, true)
}

func (Aggressive) DealerCall(hand, community []deck.Card) int {
	return 3
}

func (Aggressive) SelectPlayCards(hand []deck.Card, n int) []deck.Card {
	sorted := sortedCopy(hand)
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[len(sorted)-n:]
}

// RandomStrategy picks uniformly from the legal moves.
type RandomStrategy struct {
	Rng *rand.Rand
}

func (s RandomStrategy) SelectFirstDealerCard(hand []deck.Card) deck.Card {
	if len(hand) == 0 {
		return 0
	}
	return hand[s.Rng.IntN(len(hand))]
}

func (s RandomStrategy) DealerCall(hand, community []deck.Card) int {
	return 1 + s.Rng.IntN(3)
}

func (s RandomStrategy) SelectPlayCards(hand []deck.Card, n int) []deck.Card {
	if n > len(hand) {
		n = len(hand)
	}
	perm := s.Rng.Perm(len(hand))
	cards := make([]deck.Card, 0, n)
	for _, idx := range perm[:n] {
		cards = append(cards, hand[idx])
	}
	return cards
}

func sortedCopy(hand []deck.Card) []deck.Card {
	sorted := make([]deck.Card, len(hand))
	copy(sorted, hand)
	deck.Sort(sorted)
	return sorted
}

func pickSmallest(hand []deck.Card, n int) []deck.Card {
	sorted := sortedCopy(hand)
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

func pickExtreme(hand []deck.Card, largest bool) deck.Card {
	if len(hand) == 0 {
		return 0
	}
	best := hand[0]
	for _, c := range hand[1:] {
		cmp := deck.Compare(c, best)
		if (largest && cmp > 0) || (!largest && cmp < 0) {
			best = c
		}
	}
	return best
}
