// Package fetcher obtains the current balance snapshot for a card from the
// bank's web portal.
package fetcher

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kronevakt/kronevakt/internal/domain"
)

// ErrFetchFailed marks any failure to obtain a snapshot: unreachable portal,
// timeout, or a page the parser no longer understands. Callers must treat it
// as "unknown", never as "unchanged".
var ErrFetchFailed = errors.New("balance fetch failed")

// FetchError wraps the underlying failure while still matching ErrFetchFailed,
// so callers can branch on the cause (for example a deadline) when they need to.
type FetchError struct {
	cause error
}

// NewFetchError wraps cause as a fetch failure.
func NewFetchError(cause error) *FetchError {
	return &FetchError{cause: cause}
}

func (e *FetchError) Error() string {
	return "balance fetch failed: " + e.cause.Error()
}

func (e *FetchError) Unwrap() error { return e.cause }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// Fetcher returns the current balance snapshot for a card.
type Fetcher interface {
	FetchBalance(ctx context.Context, card domain.CardNumber) (domain.BalanceSnapshot, error)
}
