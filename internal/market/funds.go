package market

import "math"

// Funds is a conservation-preserving amount of the marketplace asset.
// Amounts only move between containers via Split and MergeFunds, both of
// which preserve the total exactly: no rounding, no fees, no silent
// wraparound. The zero value is an empty container.
type Funds struct {
	amount uint64
}

// NewFunds returns a container holding the given amount.
func NewFunds(amount uint64) Funds {
	return Funds{amount: amount}
}

// ZeroFunds returns an empty container.
func ZeroFunds() Funds {
	return Funds{}
}

// Value returns the contained amount.
func (f Funds) Value() uint64 {
	return f.amount
}

// Split extracts amount from the container, returning the remainder and the
// extracted portion. Fails with ErrInsufficientFunds if amount exceeds the
// contained value.
func (f Funds) Split(amount uint64) (remainder, extracted Funds, err error) {
	if amount > f.amount {
		return Funds{}, Funds{}, ErrInsufficientFunds
	}
	return Funds{amount: f.amount - amount}, Funds{amount: amount}, nil
}

// MergeFunds combines two containers. Fails with ErrBalanceOverflow if the
// combined amount does not fit in uint64.
func MergeFunds(a, b Funds) (Funds, error) {
	if a.amount > math.MaxUint64-b.amount {
		return Funds{}, ErrBalanceOverflow
	}
	return Funds{amount: a.amount + b.amount}, nil
}
