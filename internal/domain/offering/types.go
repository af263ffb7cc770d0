package offering

import (
	"errors"
	"strings"
)

var (
	ErrInvalidKind     = errors.New("invalid transport kind")
	ErrInvalidClass    = errors.New("booking class not offered")
	ErrInvalidOffering = errors.New("invalid offering")
)

type Kind string

const (
	KindTrain  Kind = "train"
	KindBus    Kind = "bus"
	KindFlight Kind = "flight"
	KindTaxi   Kind = "taxi"
	KindMetro  Kind = "metro"
)

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsValid() bool {
	switch k {
	case KindTrain, KindBus, KindFlight, KindTaxi, KindMetro:
		return true
	default:
		return false
	}
}

// Scheduled kinds carry a fixed departure time and per-seat fares.
func (k Kind) Scheduled() bool {
	return k != KindTaxi
}

// PerVehicle reports whether one booking occupies a whole vehicle regardless of passenger count.
func (k Kind) PerVehicle() bool {
	return k == KindTaxi
}

type Class string

const (
	ClassVehicle Class = "vehicle"
	ClassGeneral Class = "general"
)

func (c Class) String() string {
	return string(c)
}

func NormalizeClass(s string) Class {
	return Class(strings.ToLower(strings.TrimSpace(s)))
}
