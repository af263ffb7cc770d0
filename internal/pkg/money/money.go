package money

import (
	"errors"
	"fmt"
	"math"
)

var ErrNegativeAmount = errors.New("money cannot be negative")

// Money is an amount in minor currency units (paise for INR).
type Money struct {
	cents int64
}

func New(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{cents: cents}, nil
}

// FromCents builds Money without validation; callers guarantee cents >= 0.
func FromCents(cents int64) Money {
	return Money{cents: cents}
}

func FromMajor(units int64) Money {
	return Money{cents: units * 100}
}

func Zero() Money {
	return Money{}
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) Major() float64 {
	return float64(m.cents) / 100.0
}

func (m Money) IsZero() bool {
	return m.cents == 0
}

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

// Sub floors at zero.
func (m Money) Sub(other Money) Money {
	if other.cents >= m.cents {
		return Money{}
	}
	return Money{cents: m.cents - other.cents}
}

func (m Money) Times(n int) Money {
	return Money{cents: m.cents * int64(n)}
}

// Scale multiplies by a non-negative factor, rounding half away from zero.
func (m Money) Scale(factor float64) Money {
	if factor <= 0 {
		return Money{}
	}
	return Money{cents: int64(math.Round(float64(m.cents) * factor))}
}

func (m Money) GreaterThan(other Money) bool {
	return m.cents > other.cents
}

func (m Money) LessThan(other Money) bool {
	return m.cents < other.cents
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", m.cents/100, m.cents%100)
}
