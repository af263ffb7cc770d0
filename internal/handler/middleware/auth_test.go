//go:build unit

package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"transit-booking/internal/handler/middleware"
	"transit-booking/internal/pkg/config"
	"transit-booking/internal/pkg/jwt"
	"transit-booking/tests/common/authtest"
	"transit-booking/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *authtest.JWTHelper) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.NewTestConfig()
	duration, err := time.ParseDuration(cfg.JWT.Duration)
	require.NoError(t, err)
	auth := middleware.NewAuthMiddleware(jwt.NewService(cfg.JWT.Secret, duration))

	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		id, ok := middleware.GetUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": id})
	})
	r.GET("/users/:userId/wallet", auth.RequireAuth(), auth.RequireSelf("userId"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, authtest.NewJWTHelper(cfg.JWT)
}

func TestRequireAuth(t *testing.T) {
	r, helper := newAuthRouter(t)
	userID := uuid.New()

	t.Run("有効なトークン", func(t *testing.T) {
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/me", nil, helper.GenerateToken(t, userID))

		var body struct {
			UserID uuid.UUID `json:"userId"`
		}
		httptest.AssertSuccessResponse(t, rec, http.StatusOK, &body)
		assert.Equal(t, userID, body.UserID)
	})

	t.Run("トークンなし", func(t *testing.T) {
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/me", nil, "")
		httptest.AssertErrorResponse(t, rec, http.StatusUnauthorized, "Access token required")
	})

	t.Run("期限切れ", func(t *testing.T) {
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/me", nil, helper.CreateExpiredToken(t, userID))
		httptest.AssertErrorResponse(t, rec, http.StatusUnauthorized, "Invalid or expired token")
	})

	t.Run("別の鍵で署名", func(t *testing.T) {
		token, err := jwt.NewService("another-secret-another-secret-32", time.Hour).GenerateToken(userID)
		require.NoError(t, err)
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/me", nil, token)
		httptest.AssertErrorResponse(t, rec, http.StatusUnauthorized, "Invalid or expired token")
	})

	t.Run("Bearer以外のスキーム", func(t *testing.T) {
		rec := httptest.PerformRequestWithHeaders(t, r, http.MethodGet, "/me", nil,
			map[string]string{"Authorization": "Basic " + helper.GenerateToken(t, userID)}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireSelf(t *testing.T) {
	r, helper := newAuthRouter(t)
	userID := uuid.New()
	token := helper.GenerateToken(t, userID)

	t.Run("本人", func(t *testing.T) {
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/users/"+userID.String()+"/wallet", nil, token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("他人", func(t *testing.T) {
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/users/"+uuid.NewString()+"/wallet", nil, token)
		httptest.AssertErrorResponse(t, rec, http.StatusForbidden, "Access denied")
	})

	t.Run("不正なID", func(t *testing.T) {
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/users/me/wallet", nil, token)
		httptest.AssertErrorResponse(t, rec, http.StatusBadRequest, "Invalid user ID format")
	})
}
