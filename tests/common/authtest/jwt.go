//go:build unit || e2e

package authtest

import (
	"testing"
	"time"

	"transit-booking/internal/pkg/config"
	"transit-booking/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type JWTHelper struct {
	cfg config.JWTConfig
}

func NewJWTHelper(cfg config.JWTConfig) *JWTHelper {
	return &JWTHelper{cfg: cfg}
}

func (h *JWTHelper) GenerateToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	duration, err := time.ParseDuration(h.cfg.Duration)
	require.NoError(t, err)
	token, err := jwt.NewService(h.cfg.Secret, duration).GenerateToken(userID)
	require.NoError(t, err)
	return token
}

func (h *JWTHelper) CreateExpiredToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewService(h.cfg.Secret, -time.Minute).GenerateToken(userID)
	require.NoError(t, err)
	return token
}

// BearerHeader returns the Authorization header value for userID.
func (h *JWTHelper) BearerHeader(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	return "Bearer " + h.GenerateToken(t, userID)
}
