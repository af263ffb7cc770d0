package booking

import (
	"strings"
)

const maxPassengerAge = 120

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale, nil
	case "female", "f":
		return GenderFemale, nil
	case "other", "o":
		return GenderOther, nil
	default:
		return "", ErrInvalidPassengerData
	}
}

type Passenger struct {
	Name   string
	Age    int
	Gender Gender
}

func NewPassenger(name string, age int, gender string) (Passenger, error) {
	name = strings.TrimSpace(name)
	if name == "" || age <= 0 || age > maxPassengerAge {
		return Passenger{}, ErrInvalidPassengerData
	}
	g, err := ParseGender(gender)
	if err != nil {
		return Passenger{}, err
	}
	return Passenger{Name: name, Age: age, Gender: g}, nil
}

type PassengerInput struct {
	Name   string
	Age    int
	Gender string
}

// ParsePassengers requires exactly one complete passenger per requested seat.
func ParsePassengers(in []PassengerInput, requested int) ([]Passenger, error) {
	if len(in) == 0 || len(in) != requested {
		return nil, ErrInvalidPassengerData
	}
	out := make([]Passenger, 0, len(in))
	for _, p := range in {
		passenger, err := NewPassenger(p.Name, p.Age, p.Gender)
		if err != nil {
			return nil, err
		}
		out = append(out, passenger)
	}
	return out, nil
}
