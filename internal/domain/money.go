package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when a monetary amount is negative.
	ErrInvalidAmount = errors.New("money amount cannot be negative")

	// ErrInvalidCurrency is returned when a currency code is empty or blank.
	ErrInvalidCurrency = errors.New("money currency cannot be empty")

	// ErrCurrencyMismatch is returned when an operation mixes two currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// Money is an immutable (amount, currency) value object.
// The currency code is normalized to uppercase at construction.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney constructs a Money value.
// Returns ErrInvalidAmount for negative amounts and ErrInvalidCurrency
// for an empty or whitespace-only currency code.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	if strings.TrimSpace(currency) == "" {
		return Money{}, ErrInvalidCurrency
	}
	return Money{
		amount:   amount,
		currency: strings.ToUpper(strings.TrimSpace(currency)),
	}, nil
}

// Amount returns the monetary amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the normalized currency code.
func (m Money) Currency() string {
	return m.currency
}

// Add returns the sum of two Money values with the same currency.
// Returns ErrCurrencyMismatch if the currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Mul returns this Money scaled by the given factor.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// Equal reports structural equality: same amount and same currency.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// String renders the value as "<amount> <currency>" for logs.
func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}
