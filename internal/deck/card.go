package deck

import (
	"fmt"
	"sort"
)

// Suit occupies the high nibble of a card byte.
type Suit uint8

const (
	Diamonds Suit = iota
	Spades
	Clubs
	Hearts
)

// String returns the suit symbol.
func (s Suit) String() string {
	switch s {
	case Diamonds:
		return "♦"
	case Spades:
		return "♠"
	case Clubs:
		return "♣"
	case Hearts:
		return "♥"
	default:
		return "?"
	}
}

// Weight orders suits for tiebreaks: spade > heart > club > diamond.
func (s Suit) Weight() int {
	switch s {
	case Spades:
		return 3
	case Hearts:
		return 2
	case Clubs:
		return 1
	case Diamonds:
		return 0
	default:
		return -1
	}
}

// Rank occupies the low nibble of a card byte, A=1 .. K=13.
type Rank uint8

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the rank letter.
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		if r >= Two && r <= Nine {
			return fmt.Sprintf("%d", r)
		}
		return "?"
	}
}

// TexasValue returns the comparison value under Texas ranking: aces are
// high (14), everything else is face value.
func (r Rank) TexasValue() int {
	if r == Ace {
		return 14
	}
	return int(r)
}

// Card is an 8-bit playing card: high nibble suit, low nibble rank.
type Card uint8

// New builds a card from suit and rank.
func New(s Suit, r Rank) Card {
	return Card(uint8(s)<<4 | uint8(r))
}

// Suit returns the card's suit.
func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

// Rank returns the card's rank.
func (c Card) Rank() Rank {
	return Rank(c & 0x0f)
}

// Valid reports whether the byte encodes one of the 52 cards.
func (c Card) Valid() bool {
	return c.Suit() <= Hearts && c.Rank() >= Ace && c.Rank() <= King
}

// TexasValue returns the Texas comparison value of the card's rank.
func (c Card) TexasValue() int {
	return c.Rank().TexasValue()
}

// String returns e.g. "A♠".
func (c Card) String() string {
	if !c.Valid() {
		return fmt.Sprintf("#%02x", uint8(c))
	}
	return c.Rank().String() + c.Suit().String()
}

// Compare orders two cards by Texas rank, breaking ties by suit weight.
// Used for the first-dealer election.
func Compare(a, b Card) int {
	if av, bv := a.TexasValue(), b.TexasValue(); av != bv {
		if av > bv {
			return 1
		}
		return -1
	}
	if aw, bw := a.Suit().Weight(), b.Suit().Weight(); aw != bw {
		if aw > bw {
			return 1
		}
		return -1
	}
	return 0
}

// Sort orders cards ascending by Texas rank, suit weight as tiebreak.
// Hands and community cards are always presented to clients this way.
func Sort(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return Compare(cards[i], cards[j]) < 0
	})
}
