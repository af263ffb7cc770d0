package fare

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"transit-booking/internal/pkg/money"
)

var (
	ErrInvalidPromoCode       = errors.New("invalid promo code format")
	ErrInvalidDiscountAmount  = errors.New("discount amount cannot be negative")
	ErrInvalidDiscountPercent = errors.New("percentage discount must be between 0 and 100")
	ErrInvalidDiscount        = errors.New("discount must be either a fixed amount or a percentage")
	ErrPromoExpired           = errors.New("promo has expired")
	ErrPromoNotYetValid       = errors.New("promo is not yet valid")
)

var promoCodeRegex = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

func NormalizePromoCode(code string) (string, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if !promoCodeRegex.MatchString(code) {
		return "", ErrInvalidPromoCode
	}
	return code, nil
}

type Discount struct {
	amountOff  *money.Money
	percentOff *float64
}

func NewDiscount(amountOffCents *int64, percentOff *float64) (Discount, error) {
	if (amountOffCents == nil) == (percentOff == nil) {
		return Discount{}, ErrInvalidDiscount
	}
	if amountOffCents != nil {
		m, err := money.New(*amountOffCents)
		if err != nil {
			return Discount{}, ErrInvalidDiscountAmount
		}
		return Discount{amountOff: &m}, nil
	}
	if *percentOff < 0 || *percentOff > 100 {
		return Discount{}, ErrInvalidDiscountPercent
	}
	p := *percentOff
	return Discount{percentOff: &p}, nil
}

func (d Discount) IsPercentage() bool { return d.percentOff != nil }

func (d Discount) AmountOffCents() *int64 {
	if d.amountOff == nil {
		return nil
	}
	c := d.amountOff.Cents()
	return &c
}

func (d Discount) PercentOff() *float64 {
	return d.percentOff
}

// AmountFor never exceeds the price it is applied to.
func (d Discount) AmountFor(price money.Money) money.Money {
	var off money.Money
	if d.percentOff != nil {
		off = price.Scale(*d.percentOff / 100.0)
	} else if d.amountOff != nil {
		off = *d.amountOff
	}
	if off.GreaterThan(price) {
		return price
	}
	return off
}

type Promo struct {
	code      string
	discount  Discount
	validFrom *time.Time
	validTo   *time.Time
}

func NewPromo(code string, amountOffCents *int64, percentOff *float64, validFrom, validTo *time.Time) (*Promo, error) {
	normalized, err := NormalizePromoCode(code)
	if err != nil {
		return nil, err
	}
	discount, err := NewDiscount(amountOffCents, percentOff)
	if err != nil {
		return nil, err
	}
	return &Promo{
		code:      normalized,
		discount:  discount,
		validFrom: validFrom,
		validTo:   validTo,
	}, nil
}

func (p *Promo) ValidateAt(t time.Time) error {
	if p.validFrom != nil && t.Before(*p.validFrom) {
		return ErrPromoNotYetValid
	}
	if p.validTo != nil && t.After(*p.validTo) {
		return ErrPromoExpired
	}
	return nil
}

func (p *Promo) Code() string          { return p.code }
func (p *Promo) Discount() Discount    { return p.discount }
func (p *Promo) ValidFrom() *time.Time { return p.validFrom }
func (p *Promo) ValidTo() *time.Time   { return p.validTo }
