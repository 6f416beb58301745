// Package validate checks protocol input before any state mutates and
// throttles abusive connections.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/lox/thedecree/internal/deck"
)

const (
	maxNameLength = 50
	maxPlayCards  = 3

	guestPrefix = "guest_"
)

var (
	ErrNameTooLong     = errors.New("player name exceeds 50 characters")
	ErrNameBadChars    = errors.New("player name contains disallowed characters")
	ErrBadGuestID      = errors.New("guest id must be guest_<uuid-v4> with optional _N suffix")
	ErrNoCards         = errors.New("cards array is empty")
	ErrTooManyCards    = errors.New("cards array exceeds play limit")
	ErrDuplicateCards  = errors.New("cards array contains duplicates")
	ErrInvalidCardByte = errors.New("card byte outside the 52-card range")
)

// PlayerName sanitises a display name: trims whitespace, defaults empty
// input to "Guest", enforces length and alphabet. Names that claim the
// guest prefix must be well-formed guest ids.
func PlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Guest", nil
	}
	if len([]rune(name)) > maxNameLength {
		return "", ErrNameTooLong
	}
	for _, r := range name {
		if !allowedNameRune(r) {
			return "", fmt.Errorf("%w: %q", ErrNameBadChars, r)
		}
	}
	if strings.HasPrefix(name, guestPrefix) {
		if err := GuestID(name); err != nil {
			return "", err
		}
	}
	return name, nil
}

// allowedNameRune admits letters (including Han), digits, space and _-#.
func allowedNameRune(r rune) bool {
	switch r {
	case ' ', '_', '-', '#':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// GuestID validates the persistent guest identity format:
// guest_<uuid-v4>, optionally suffixed with _<digits> for the session.
func GuestID(id string) error {
	if !strings.HasPrefix(id, guestPrefix) {
		return ErrBadGuestID
	}
	rest := id[len(guestPrefix):]
	if len(rest) < 36 {
		return ErrBadGuestID
	}
	u, err := uuid.Parse(rest[:36])
	if err != nil || u.Version() != 4 {
		return ErrBadGuestID
	}
	suffix := rest[36:]
	if suffix == "" {
		return nil
	}
	if len(suffix) < 2 || suffix[0] != '_' {
		return ErrBadGuestID
	}
	for _, r := range suffix[1:] {
		if r < '0' || r > '9' {
			return ErrBadGuestID
		}
	}
	return nil
}

// Cards checks well-formedness of a card array from the wire: non-empty,
// within the play limit, no duplicates, every byte a real card. The engine
// separately checks count against the dealer call and ownership.
func Cards(cards []deck.Card) error {
	if len(cards) == 0 {
		return ErrNoCards
	}
	if len(cards) > maxPlayCards {
		return ErrTooManyCards
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("%w: %#02x", ErrInvalidCardByte, uint8(c))
		}
		if seen[c] {
			return ErrDuplicateCards
		}
		seen[c] = true
	}
	return nil
}

// Card checks a single card byte.
func Card(c deck.Card) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %#02x", ErrInvalidCardByte, uint8(c))
	}
	return nil
}
