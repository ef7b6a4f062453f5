package domain

import "fmt"

// Amount is a monetary value in minor currency units (cents). The ledger never
// uses floating point, so repeated additions and subtractions cannot drift.
type Amount int64

// Add returns the sum of two amounts.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a minus b, failing with InvalidAmountError when the result would
// be negative. Balances in the ledger are non-negative except through the
// administrative override path.
func (a Amount) Sub(b Amount) (Amount, error) {
	r := a - b
	if r < 0 {
		return 0, InvalidAmountError{Op: "subtract", Amount: r}
	}
	return r, nil
}

// SubAllowNegative returns a minus b without the non-negative guard. Reserved
// for administrative corrections driven by dispute resolution.
func (a Amount) SubAllowNegative(b Amount) Amount { return a - b }

// IsNonNegative reports whether the amount is zero or positive.
func (a Amount) IsNonNegative() bool { return a >= 0 }

// String renders the amount in major units with two decimals, e.g. "40.00".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
