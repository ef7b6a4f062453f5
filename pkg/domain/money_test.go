package domain

import (
	"errors"
	"testing"
)

func TestAmountSubGuardsNegative(t *testing.T) {
	a := Amount(4_000)
	got, err := a.Sub(1_500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2_500 {
		t.Fatalf("expected 2500, got %d", got)
	}

	_, err = Amount(100).Sub(200)
	var invalid InvalidAmountError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidAmountError, got %v", err)
	}
}

func TestAmountSubAllowNegative(t *testing.T) {
	if got := Amount(100).SubAllowNegative(250); got != -150 {
		t.Fatalf("expected -150, got %d", got)
	}
}

func TestAmountStringRendersMajorUnits(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{4_000, "40.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-1_234, "-12.34"},
		{100_000_000, "1000000.00"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Amount(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRepeatedArithmeticDoesNotDrift(t *testing.T) {
	var total Amount
	for i := 0; i < 10_000; i++ {
		total = total.Add(1) // one cent at a time
	}
	if total != 10_000 {
		t.Fatalf("expected exactly 10000 cents, got %d", total)
	}
	for i := 0; i < 10_000; i++ {
		var err error
		total, err = total.Sub(1)
		if err != nil {
			t.Fatalf("unexpected underflow at step %d: %v", i, err)
		}
	}
	if total != 0 {
		t.Fatalf("expected exact zero, got %d", total)
	}
}

func TestUnfundedAmountIdentity(t *testing.T) {
	p := Project{TotalAmount: 500_000, PaidAmount: 100_000, EscrowBalance: 150_000}
	if got := p.UnfundedAmount(); got != 250_000 {
		t.Fatalf("expected 250000 unfunded, got %d", got)
	}
}
