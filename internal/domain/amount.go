package domain

import "math"

// Notional returns qty × price in quote units. Both operands must be
// non-negative; a product that does not fit in an int64 is ErrAmountOverflow.
func Notional(qty, price int64) (int64, error) {
	if qty < 0 || price < 0 {
		return 0, ErrInvalidAmount
	}
	if qty == 0 || price == 0 {
		return 0, nil
	}
	if qty > math.MaxInt64/price {
		return 0, ErrAmountOverflow
	}
	return qty * price, nil
}

// addAmount adds two non-negative amounts, failing on overflow.
func addAmount(a, b int64) (int64, error) {
	if b > math.MaxInt64-a {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}
