// Package domain defines core data structures used throughout the balance monitor.
package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
)

// ErrInvalidCardNumber is returned when a card number is not exactly 12 digits.
var ErrInvalidCardNumber = errors.New("card number must be exactly 12 digits")

// CardNumber is a validated 12-digit prepaid card number.
type CardNumber string

// ParseCardNumber strips whitespace from the raw input and validates
// that the remainder is exactly 12 digits.
func ParseCardNumber(raw string) (CardNumber, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if len(cleaned) != 12 {
		return "", ErrInvalidCardNumber
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", ErrInvalidCardNumber
		}
	}

	return CardNumber(cleaned), nil
}

// Masked returns the card number with everything but the first four digits hidden.
func (c CardNumber) Masked() string {
	if len(c) < 4 {
		return "****"
	}
	return string(c[:4]) + "********"
}

func (c CardNumber) String() string {
	return string(c)
}

// Registration binds a chat user to the card they monitor.
type Registration struct {
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username,omitempty"`
	Card      CardNumber `json:"card_number"`
	CreatedAt time.Time  `json:"created_at"`
}
