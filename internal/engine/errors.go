package engine

import "errors"

// Input errors are fatal and surface immediately, with no partial result.
var (
	ErrBarsNotSorted = errors.New("bar series is not sorted by strictly increasing time")
	ErrInvalidConfig = errors.New("invalid backtest config")
)
