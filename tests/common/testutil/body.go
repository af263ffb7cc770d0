//go:build unit || e2e

package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// BodyEdit changes a decoded request body before it is sent.
type BodyEdit func(map[string]any)

// JSONBody turns a request DTO into its wire form so a test can drop or
// override individual fields.
func JSONBody(t *testing.T, v any, edits ...BodyEdit) map[string]any {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &body))

	for _, edit := range edits {
		edit(body)
	}
	return body
}

func Without(keys ...string) BodyEdit {
	return func(m map[string]any) {
		for _, k := range keys {
			delete(m, k)
		}
	}
}

func With(key string, value any) BodyEdit {
	return func(m map[string]any) { m[key] = value }
}
