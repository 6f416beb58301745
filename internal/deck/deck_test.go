package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/thedecree/internal/randutil"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := NewDeck(randutil.New(1))
	require.Equal(t, 52, d.Remaining())

	seen := make(map[Card]bool)
	for {
		c, ok := d.Draw()
		if !ok {
			break
		}
		assert.True(t, c.Valid())
		assert.False(t, seen[c], "duplicate %v", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestShuffleIsSeedDeterministic(t *testing.T) {
	a := NewDeck(randutil.New(42))
	b := NewDeck(randutil.New(42))
	a.Shuffle()
	b.Shuffle()
	assert.Equal(t, a.DrawN(52), b.DrawN(52))

	c := NewDeck(randutil.New(43))
	c.Shuffle()
	d := NewDeck(randutil.New(42))
	d.Shuffle()
	assert.NotEqual(t, c.DrawN(52), d.DrawN(52))
}

func TestNewStackedDealsInOrder(t *testing.T) {
	cards := []Card{New(Spades, Ace), New(Hearts, King), New(Clubs, Two)}
	d := NewStacked(cards)
	require.Equal(t, 3, d.Remaining())

	got := d.DrawN(3)
	assert.Equal(t, cards, got)
	assert.True(t, d.IsEmpty())
}

func TestDrawFromEmptyDeck(t *testing.T) {
	d := NewStacked(nil)
	_, ok := d.Draw()
	assert.False(t, ok)
	assert.Empty(t, d.DrawN(5))
}

func TestDrawNClampsToRemaining(t *testing.T) {
	d := NewStacked([]Card{New(Spades, Ace), New(Spades, Two)})
	got := d.DrawN(5)
	assert.Len(t, got, 2)
	assert.True(t, d.IsEmpty())
}
