//go:build unit || e2e

package httptest

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"transit-booking/internal/handler/httperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertSuccessResponse checks the status and, for 2xx responses, decodes the
// body into target when one is given.
func AssertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder, status int, target any) {
	t.Helper()

	if !assert.Equal(t, status, w.Code, "unexpected status, body: %s", w.Body.String()) {
		return
	}
	if target == nil || status < 200 || status >= 300 {
		return
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "body: %s", w.Body.String())
}

// AssertErrorResponse checks the status and that the error envelope's message
// contains msg, and returns the envelope for reason and detail checks.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) httperr.Response {
	t.Helper()

	assert.Equal(t, status, w.Code, "unexpected status, body: %s", w.Body.String())

	var resp httperr.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	if msg != "" {
		assert.Contains(t, resp.Error.Message, msg)
	}
	return resp
}

// AssertErrorReason checks the status and the machine-readable reason.
func AssertErrorReason(t *testing.T, w *httptest.ResponseRecorder, status int, reason string) httperr.Response {
	t.Helper()

	resp := AssertErrorResponse(t, w, status, "")
	assert.Equal(t, reason, resp.Reason)
	return resp
}
