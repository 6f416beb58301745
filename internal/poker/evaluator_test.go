package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/thedecree/internal/deck"
)

func cards(spec ...deck.Card) []deck.Card { return spec }

func c(s deck.Suit, r deck.Rank) deck.Card { return deck.New(s, r) }

func TestHandTypeOrdering(t *testing.T) {
	ordered := []HandType{
		HighCard, Pair, TwoPair, ThreeOfAKind, Straight,
		Flush, FullHouse, FourOfAKind, StraightFlush, RoyalFlush,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].BaseScore(), ordered[i-1].BaseScore())
	}
	assert.Equal(t, 0, HighCard.BaseScore())
	assert.Equal(t, 9, RoyalFlush.BaseScore())
}

func TestEvaluateClassification(t *testing.T) {
	tests := []struct {
		name string
		in   []deck.Card
		want HandType
	}{
		{
			"royal flush",
			cards(c(deck.Spades, deck.Ace), c(deck.Spades, deck.King), c(deck.Spades, deck.Queen),
				c(deck.Spades, deck.Jack), c(deck.Spades, deck.Ten)),
			RoyalFlush,
		},
		{
			"straight flush",
			cards(c(deck.Hearts, deck.Nine), c(deck.Hearts, deck.Eight), c(deck.Hearts, deck.Seven),
				c(deck.Hearts, deck.Six), c(deck.Hearts, deck.Five)),
			StraightFlush,
		},
		{
			"steel wheel is a straight flush, not royal",
			cards(c(deck.Clubs, deck.Ace), c(deck.Clubs, deck.Two), c(deck.Clubs, deck.Three),
				c(deck.Clubs, deck.Four), c(deck.Clubs, deck.Five)),
			StraightFlush,
		},
		{
			"four of a kind",
			cards(c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Nine), c(deck.Clubs, deck.Nine),
				c(deck.Diamonds, deck.Nine), c(deck.Spades, deck.King)),
			FourOfAKind,
		},
		{
			"full house",
			cards(c(deck.Spades, deck.Ten), c(deck.Hearts, deck.Ten), c(deck.Clubs, deck.Ten),
				c(deck.Spades, deck.Four), c(deck.Hearts, deck.Four)),
			FullHouse,
		},
		{
			"flush",
			cards(c(deck.Diamonds, deck.Ace), c(deck.Diamonds, deck.Ten), c(deck.Diamonds, deck.Seven),
				c(deck.Diamonds, deck.Four), c(deck.Diamonds, deck.Two)),
			Flush,
		},
		{
			"straight",
			cards(c(deck.Spades, deck.Ten), c(deck.Hearts, deck.Nine), c(deck.Clubs, deck.Eight),
				c(deck.Diamonds, deck.Seven), c(deck.Spades, deck.Six)),
			Straight,
		},
		{
			"wheel straight",
			cards(c(deck.Spades, deck.Ace), c(deck.Hearts, deck.Two), c(deck.Clubs, deck.Three),
				c(deck.Diamonds, deck.Four), c(deck.Spades, deck.Five)),
			Straight,
		},
		{
			"three of a kind",
			cards(c(deck.Spades, deck.Jack), c(deck.Hearts, deck.Jack), c(deck.Clubs, deck.Jack),
				c(deck.Diamonds, deck.Four), c(deck.Spades, deck.Nine)),
			ThreeOfAKind,
		},
		{
			"two pair",
			cards(c(deck.Spades, deck.Queen), c(deck.Hearts, deck.Queen), c(deck.Clubs, deck.Eight),
				c(deck.Diamonds, deck.Eight), c(deck.Spades, deck.Two)),
			TwoPair,
		},
		{
			"pair",
			cards(c(deck.Spades, deck.Six), c(deck.Hearts, deck.Six), c(deck.Clubs, deck.Ace),
				c(deck.Diamonds, deck.Nine), c(deck.Spades, deck.Three)),
			Pair,
		},
		{
			"high card",
			cards(c(deck.Spades, deck.Ace), c(deck.Hearts, deck.Jack), c(deck.Clubs, deck.Eight),
				c(deck.Diamonds, deck.Six), c(deck.Spades, deck.Three)),
			HighCard,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.in).Type())
		})
	}
}

func TestEvaluateBestOfSeven(t *testing.T) {
	// 3 played + 4 community: the best five must be picked.
	hand := cards(
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Nine), c(deck.Clubs, deck.Nine),
		c(deck.Diamonds, deck.Nine), c(deck.Spades, deck.King), c(deck.Hearts, deck.Three),
		c(deck.Clubs, deck.Two),
	)
	rank := Evaluate(hand)
	assert.Equal(t, FourOfAKind, rank.Type())
}

func TestEvaluateRejectsBadSizes(t *testing.T) {
	assert.Equal(t, HandRank(0), Evaluate(nil))
	assert.Equal(t, HandRank(0), Evaluate(cards(c(deck.Spades, deck.Ace))))
}

func TestRoyalFlushBeatsStraightFlush(t *testing.T) {
	royal := Evaluate(cards(c(deck.Spades, deck.Ace), c(deck.Spades, deck.King),
		c(deck.Spades, deck.Queen), c(deck.Spades, deck.Jack), c(deck.Spades, deck.Ten)))
	sf := Evaluate(cards(c(deck.Hearts, deck.King), c(deck.Hearts, deck.Queen),
		c(deck.Hearts, deck.Jack), c(deck.Hearts, deck.Ten), c(deck.Hearts, deck.Nine)))
	assert.Equal(t, 1, Compare(royal, sf))
}

func TestKickersBreakTies(t *testing.T) {
	aceHigh := Evaluate(cards(c(deck.Spades, deck.Ace), c(deck.Hearts, deck.Jack),
		c(deck.Clubs, deck.Eight), c(deck.Diamonds, deck.Six), c(deck.Spades, deck.Three)))
	kingHigh := Evaluate(cards(c(deck.Spades, deck.King), c(deck.Hearts, deck.Jack),
		c(deck.Clubs, deck.Eight), c(deck.Diamonds, deck.Six), c(deck.Spades, deck.Three)))
	require.Equal(t, HighCard, aceHigh.Type())
	require.Equal(t, HighCard, kingHigh.Type())
	assert.Equal(t, 1, Compare(aceHigh, kingHigh))

	// Same pair, second kicker decides.
	a := Evaluate(cards(c(deck.Spades, deck.Six), c(deck.Hearts, deck.Six),
		c(deck.Clubs, deck.Ace), c(deck.Diamonds, deck.Nine), c(deck.Spades, deck.Three)))
	b := Evaluate(cards(c(deck.Clubs, deck.Six), c(deck.Diamonds, deck.Six),
		c(deck.Hearts, deck.Ace), c(deck.Spades, deck.Eight), c(deck.Hearts, deck.Three)))
	assert.Equal(t, 1, Compare(a, b))
}

func TestSuitsNeverBreakShowdownTies(t *testing.T) {
	a := Evaluate(cards(c(deck.Spades, deck.Ace), c(deck.Hearts, deck.Jack),
		c(deck.Clubs, deck.Eight), c(deck.Diamonds, deck.Six), c(deck.Spades, deck.Three)))
	b := Evaluate(cards(c(deck.Diamonds, deck.Ace), c(deck.Spades, deck.Jack),
		c(deck.Hearts, deck.Eight), c(deck.Clubs, deck.Six), c(deck.Diamonds, deck.Three)))
	assert.Equal(t, 0, Compare(a, b))
}

func TestHigherStraightWins(t *testing.T) {
	wheel := Evaluate(cards(c(deck.Spades, deck.Ace), c(deck.Hearts, deck.Two),
		c(deck.Clubs, deck.Three), c(deck.Diamonds, deck.Four), c(deck.Spades, deck.Five)))
	sixHigh := Evaluate(cards(c(deck.Spades, deck.Two), c(deck.Hearts, deck.Three),
		c(deck.Clubs, deck.Four), c(deck.Diamonds, deck.Five), c(deck.Spades, deck.Six)))
	require.Equal(t, Straight, wheel.Type())
	require.Equal(t, Straight, sixHigh.Type())
	assert.Equal(t, 1, Compare(sixHigh, wheel), "wheel is the lowest straight")
}

func TestFullHouseFromTwoTrips(t *testing.T) {
	// Seven cards with two sets of trips: higher trips fill the house.
	rank := Evaluate(cards(
		c(deck.Spades, deck.Nine), c(deck.Hearts, deck.Nine), c(deck.Clubs, deck.Nine),
		c(deck.Spades, deck.Four), c(deck.Hearts, deck.Four), c(deck.Clubs, deck.Four),
		c(deck.Diamonds, deck.Ace),
	))
	assert.Equal(t, FullHouse, rank.Type())
}
