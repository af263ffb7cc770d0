//go:build unit

package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := &Logger{logger: slog.New(slog.NewJSONHandler(&buf, nil)), timezone: time.UTC}

	r := gin.New()
	r.Use(l.LoggingMiddleware())
	r.POST("/api/bookings", func(c *gin.Context) {
		c.String(http.StatusCreated, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
	req.Header.Set("Idempotency-Key", "5f0c6a52-8f5e-4b3a-9d57-2f4c1f1e0a11")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	requestID := rec.Body.String()
	require.NotEmpty(t, requestID)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var started, completed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &started))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &completed))

	t.Run("開始ログにリクエスト情報が含まれる", func(t *testing.T) {
		assert.Equal(t, "Request started", started["msg"])
		assert.Equal(t, requestID, started["request_id"])
		assert.Equal(t, http.MethodPost, started["method"])
		assert.Equal(t, "/api/bookings", started["path"])
		assert.Equal(t, "5f0c6a52-8f5e-4b3a-9d57-2f4c1f1e0a11", started["idempotency_key"])
	})

	t.Run("完了ログにステータスが含まれる", func(t *testing.T) {
		assert.Equal(t, "Request completed", completed["msg"])
		assert.Equal(t, requestID, completed["request_id"])
		assert.Equal(t, "/api/bookings", completed["path"])
		assert.EqualValues(t, http.StatusCreated, completed["status_code"])
	})
}
