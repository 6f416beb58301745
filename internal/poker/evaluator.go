// Package poker classifies and compares Texas Hold'em hands for TheDecree
// showdowns. Hands of 5 to 7 cards are reduced to their best 5-card
// combination and packed into an integer rank so comparison is a single
// integer compare.
package poker

import (
	"sort"

	"github.com/lox/thedecree/internal/deck"
)

// HandType classifies a 5-card hand, ascending strength.
type HandType uint8

const (
	HighCard HandType = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns a human-readable hand description.
func (t HandType) String() string {
	switch t {
	case HighCard:
		return "High Card"
	case Pair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// BaseScore returns the per-round score every player earns for this hand
// type. The round winner gets one extra point on top.
func (t HandType) BaseScore() int {
	return int(t)
}

// HandRank packs a hand type and its tiebreakers into a totally ordered
// uint32: type in bits 24+, then up to five 4-bit rank nibbles high to low.
type HandRank uint32

// Type returns the hand type component of the rank.
func (hr HandRank) Type() HandType {
	return HandType(hr >> 24)
}

func pack(t HandType, tiebreaks ...int) HandRank {
	hr := HandRank(t) << 24
	shift := 16
	for _, tb := range tiebreaks {
		hr |= HandRank(tb) << shift
		shift -= 4
	}
	return hr
}

// Compare is a total order over hand ranks: 1 if a wins, -1 if b wins,
// 0 for an exact tie.
func Compare(a, b HandRank) int {
	if a > b {
		return 1
	}
	if a < b {
		return -1
	}
	return 0
}

// Evaluate finds the best 5-card hand among 5..7 cards.
func Evaluate(cards []deck.Card) HandRank {
	if len(cards) < 5 || len(cards) > 7 {
		return 0
	}

	// A flush rules out the full houses and quads that could beat it when
	// there are at most 7 cards, so flushes can be resolved first.
	if flush, ok := flushValues(cards); ok {
		if high, ok := straightHigh(flush); ok {
			if high == 14 {
				return pack(RoyalFlush)
			}
			return pack(StraightFlush, high)
		}
		return pack(Flush, flush[0], flush[1], flush[2], flush[3], flush[4])
	}

	counts := countValues(cards)

	if quad := highestWithCount(counts, 4); quad > 0 {
		kicker := kickers(counts, 1, quad)
		return pack(FourOfAKind, quad, kicker[0])
	}

	trips := highestWithCount(counts, 3)
	if trips > 0 {
		if fullPair := highestWithCountExcept(counts, 2, trips); fullPair > 0 {
			return pack(FullHouse, trips, fullPair)
		}
	}

	if high, ok := straightHigh(distinctValues(counts)); ok {
		return pack(Straight, high)
	}

	if trips > 0 {
		ks := kickers(counts, 2, trips)
		return pack(ThreeOfAKind, trips, ks[0], ks[1])
	}

	hiPair := highestWithCount(counts, 2)
	if hiPair > 0 {
		if loPair := highestWithCountExcept(counts, 2, hiPair); loPair > 0 {
			kicker := kickers(counts, 1, hiPair, loPair)
			return pack(TwoPair, hiPair, loPair, kicker[0])
		}
		ks := kickers(counts, 3, hiPair)
		return pack(Pair, hiPair, ks[0], ks[1], ks[2])
	}

	ks := kickers(counts, 5)
	return pack(HighCard, ks[0], ks[1], ks[2], ks[3], ks[4])
}

// countValues counts cards by Texas value, indexed 2..14.
func countValues(cards []deck.Card) [15]int {
	var counts [15]int
	for _, c := range cards {
		counts[c.TexasValue()]++
	}
	return counts
}

// flushValues returns the Texas values of the flush suit sorted descending,
// trimmed to the best five, if any suit holds five or more cards.
func flushValues(cards []deck.Card) ([]int, bool) {
	var bySuit [4][]int
	for _, c := range cards {
		s := c.Suit()
		bySuit[s] = append(bySuit[s], c.TexasValue())
	}
	for _, values := range bySuit {
		if len(values) >= 5 {
			sort.Sort(sort.Reverse(sort.IntSlice(values)))
			return values, true
		}
	}
	return nil, false
}

// distinctValues returns the distinct Texas values present, descending.
func distinctValues(counts [15]int) []int {
	values := make([]int, 0, 13)
	for v := 14; v >= 2; v-- {
		if counts[v] > 0 {
			values = append(values, v)
		}
	}
	return values
}

// straightHigh finds the highest straight among the given values and
// returns its top value. A-2-3-4-5 counts as a 5-high straight.
func straightHigh(values []int) (int, bool) {
	var present [15]bool
	for _, v := range values {
		present[v] = true
	}
	for high := 14; high >= 6; high-- {
		run := true
		for v := high; v > high-5; v-- {
			if !present[v] {
				run = false
				break
			}
		}
		if run {
			return high, true
		}
	}
	// Wheel: ace plays low.
	if present[14] && present[2] && present[3] && present[4] && present[5] {
		return 5, true
	}
	return 0, false
}

// highestWithCount finds the highest value held at least n times.
func highestWithCount(counts [15]int, n int) int {
	for v := 14; v >= 2; v-- {
		if counts[v] >= n {
			return v
		}
	}
	return 0
}

// highestWithCountExcept is highestWithCount skipping one value. A second
// set of trips qualifies as the pair of a full house.
func highestWithCountExcept(counts [15]int, n, except int) int {
	for v := 14; v >= 2; v-- {
		if v != except && counts[v] >= n {
			return v
		}
	}
	return 0
}

// kickers returns the top n values not in used, descending. Values held
// multiple times still count once per kicker slot in a 5-card hand.
func kickers(counts [15]int, n int, used ...int) []int {
	isUsed := make(map[int]bool, len(used))
	for _, u := range used {
		isUsed[u] = true
	}
	out := make([]int, 0, n)
	for v := 14; v >= 2 && len(out) < n; v-- {
		if counts[v] > 0 && !isUsed[v] {
			out = append(out, v)
		}
	}
	for len(out) < n {
		out = append(out, 0)
	}
	return out
}
