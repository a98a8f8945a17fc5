package types

import (
	"errors"
	"fmt"
	"strings"
)

// Side is the direction of a signal or of a market action (the action being
// executed: a BUY pays more under slippage, a SELL receives less).
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

var ErrUnknownSide = errors.New("unknown side")

// ParseSide maps a side string to BUY or SELL, case-insensitively.
// Synonyms such as LONG/SHORT are the signal adapter's concern, not the
// engine's; anything else is a fatal input error.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
}

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}
