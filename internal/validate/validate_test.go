package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/thedecree/internal/deck"
)

func TestPlayerName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  error
	}{
		{"plain", "Alice", "Alice", nil},
		{"trimmed", "  Bob  ", "Bob", nil},
		{"empty defaults to guest", "", "Guest", nil},
		{"whitespace defaults to guest", "   ", "Guest", nil},
		{"digits and symbols", "Player_1 #2-x", "Player_1 #2-x", nil},
		{"han letters", "玩家一", "玩家一", nil},
		{"too long", strings.Repeat("a", 51), "", ErrNameTooLong},
		{"control characters", "evil\x00name", "", ErrNameBadChars},
		{"emoji rejected", "bob🃏", "", ErrNameBadChars},
		{"fake guest prefix", "guest_not-a-uuid", "", ErrBadGuestID},
		{"real guest id passes", "guest_9b2d8c1e-4f3a-4b6c-9d2e-1a2b3c4d5e6f", "guest_9b2d8c1e-4f3a-4b6c-9d2e-1a2b3c4d5e6f", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlayerName(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuestID(t *testing.T) {
	valid := "guest_9b2d8c1e-4f3a-4b6c-9d2e-1a2b3c4d5e6f"
	assert.NoError(t, GuestID(valid))
	assert.NoError(t, GuestID(valid+"_12345"), "numeric session suffix")

	assert.Error(t, GuestID("player_9b2d8c1e-4f3a-4b6c-9d2e-1a2b3c4d5e6f"), "wrong prefix")
	assert.Error(t, GuestID("guest_"), "missing uuid")
	assert.Error(t, GuestID("guest_9b2d8c1e-4f3a-1b6c-9d2e-1a2b3c4d5e6f"), "uuid v1 rejected")
	assert.Error(t, GuestID(valid+"_12a45"), "non-digit suffix")
	assert.Error(t, GuestID(valid+"_"), "empty suffix")
	assert.Error(t, GuestID(valid+"x"), "suffix without separator")
}

func TestCards(t *testing.T) {
	assert.ErrorIs(t, Cards(nil), ErrNoCards)
	assert.ErrorIs(t, Cards([]deck.Card{
		deck.New(deck.Spades, deck.Ace),
		deck.New(deck.Spades, deck.Two),
		deck.New(deck.Spades, deck.Three),
		deck.New(deck.Spades, deck.Four),
	}), ErrTooManyCards)
	assert.ErrorIs(t, Cards([]deck.Card{
		deck.New(deck.Spades, deck.Ace),
		deck.New(deck.Spades, deck.Ace),
	}), ErrDuplicateCards)
	assert.ErrorIs(t, Cards([]deck.Card{deck.Card(0xff)}), ErrInvalidCardByte)

	assert.NoError(t, Cards([]deck.Card{
		deck.New(deck.Spades, deck.Ace),
		deck.New(deck.Hearts, deck.Ace),
		deck.New(deck.Clubs, deck.Ace),
	}))
}

func TestCard(t *testing.T) {
	assert.NoError(t, Card(deck.New(deck.Diamonds, deck.King)))
	assert.ErrorIs(t, Card(deck.Card(0x0e)), ErrInvalidCardByte)
}
