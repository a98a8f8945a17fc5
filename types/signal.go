package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is a strategy's recommendation to enter long or short at a given
// time and price. Signals are produced outside the engine and consumed in
// time order, original order breaking ties for equal timestamps.
type Signal struct {
	Time   time.Time
	Side   Side
	Price  decimal.Decimal
	Source string
}

func NewSignal(
	t time.Time,
	side Side,
	price decimal.Decimal,
	source string,
) Signal {
	return Signal{
		Time:   t,
		Side:   side,
		Price:  price,
		Source: source,
	}
}
