package money

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	m, err := New(1500, "krw")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Currency != "KRW" {
		t.Errorf("currency = %s, want KRW", m.Currency)
	}
	if _, err := New(100, "WONS"); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("New(4-letter) = %v, want %v", err, ErrInvalidCurrency)
	}
}

func TestAdd(t *testing.T) {
	sum, err := Won(100).Add(Won(250))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Amount != 350 {
		t.Errorf("sum = %d, want 350", sum.Amount)
	}
	if _, err := Won(100).Add(Must(100, "USD")); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("mixed currency Add = %v, want %v", err, ErrCurrencyMismatch)
	}
}

func TestDivRound(t *testing.T) {
	tests := []struct {
		amount  int64
		divisor int64
		want    int64
	}{
		{1000000, 3, 333333},
		{10, 4, 3},
		{10, 5, 2},
		{9, 2, 5},
		{1, 3, 0},
	}
	for _, tt := range tests {
		got, err := Won(tt.amount).DivRound(tt.divisor)
		if err != nil {
			t.Fatalf("DivRound(%d/%d): %v", tt.amount, tt.divisor, err)
		}
		if got.Amount != tt.want {
			t.Errorf("DivRound(%d/%d) = %d, want %d", tt.amount, tt.divisor, got.Amount, tt.want)
		}
	}
	if _, err := Won(100).DivRound(0); !errors.Is(err, ErrZeroDivisor) {
		t.Errorf("DivRound by zero = %v, want %v", err, ErrZeroDivisor)
	}
}

func TestMultiply(t *testing.T) {
	if got := Won(90000).Multiply(10); got.Amount != 900000 {
		t.Errorf("Multiply = %d, want 900000", got.Amount)
	}
}

func TestPredicates(t *testing.T) {
	if !Won(0).IsZero() || Won(1).IsZero() {
		t.Error("IsZero misreported")
	}
	if !Won(1).IsPositive() || Won(0).IsPositive() || Won(-5).IsPositive() {
		t.Error("IsPositive misreported")
	}
}
