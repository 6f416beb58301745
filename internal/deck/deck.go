package deck

import rand "math/rand/v2"

// Deck holds the undrawn portion of a 52-card deck.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a full ordered deck that shuffles with the provided rng.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	for s := Diamonds; s <= Hearts; s++ {
		for r := Ace; r <= King; r++ {
			d.cards = append(d.cards, New(s, r))
		}
	}
	return d
}

// NewStacked creates a deck that deals the given cards in order. Tests use
// this to rig hands.
func NewStacked(cards []Card) *Deck {
	stacked := make([]Card, len(cards))
	copy(stacked, cards)
	return &Deck{cards: stacked}
}

// Shuffle randomises the deck in place with Fisher-Yates.
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return 0, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// DrawN draws up to n cards.
func (d *Deck) DrawN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	cards := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		card, ok := d.Draw()
		if !ok {
			break
		}
		cards = append(cards, card)
	}
	return cards
}

// Remaining returns the number of undrawn cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// IsEmpty reports whether the deck is exhausted.
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}
