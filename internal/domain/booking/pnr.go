package booking

import (
	"crypto/rand"
	"math/big"
	"strings"

	"transit-booking/internal/domain/offering"
)

const pnrDigits = 10

type PNRGenerator interface {
	Generate(kind offering.Kind) (string, error)
}

// RandomPNRGenerator issues KIND + 10 random digits, e.g. TRAIN4821930571.
type RandomPNRGenerator struct{}

func NewRandomPNRGenerator() *RandomPNRGenerator {
	return &RandomPNRGenerator{}
}

func (g *RandomPNRGenerator) Generate(kind offering.Kind) (string, error) {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(kind.String()))
	ten := big.NewInt(10)
	for range pnrDigits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}
