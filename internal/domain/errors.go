package domain

import (
	"errors"
	"fmt"
)

// Validation failures for trade input. Rejected before persistence, nothing
// is written. Handlers map these to 422 responses.
var (
	ErrInvalidQuantity = errors.New("trade quantity must be positive")
	ErrInvalidPrice    = errors.New("trade price must be positive")
	ErrInvalidSide     = errors.New("trade side must be BUY or SELL")
	ErrUnknownAsset    = errors.New("unknown asset")
)

// SellExceedsHoldingError is returned when a SELL would take the net holding
// negative. It carries the current holding so callers can show an actionable
// message.
type SellExceedsHoldingError struct {
	Requested float64
	Held      float64
}

func (e *SellExceedsHoldingError) Error() string {
	return fmt.Sprintf("sell quantity %g exceeds current holding of %g", e.Requested, e.Held)
}

// IsValidationError reports whether err is a trade input rejection
func IsValidationError(err error) bool {
	var sellErr *SellExceedsHoldingError
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidSide) ||
		errors.Is(err, ErrUnknownAsset) ||
		errors.As(err, &sellErr)
}
