package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TokenIssuer signs a bearer token for a caller.
type TokenIssuer func(caller identity.Caller) (string, error)

// APIClient drives a gin engine in-process and decodes the response envelope.
type APIClient struct {
	Engine *gin.Engine
	Issue  TokenIssuer
}

// Do sends a JSON request as caller. A nil caller sends no Authorization header.
func (a *APIClient) Do(t *testing.T, caller *identity.Caller, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = ToJSONReader(t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != nil {
		require.NotNil(t, a.Issue, "client has no token issuer")
		token, err := a.Issue(*caller)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Engine.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

// DataField returns a field of the object carried in a success envelope.
func DataField(t *testing.T, resp dto.Response, key string) any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "expected an object in data, got %T", resp.Data)
	return data[key]
}

// DataID returns data.id from a success envelope.
func DataID(t *testing.T, resp dto.Response) string {
	t.Helper()
	id, ok := DataField(t, resp, "id").(string)
	require.True(t, ok, "expected data.id")
	return id
}

// AssertErrorCode checks the status and the envelope error code together.
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, resp dto.Response, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	assert.False(t, resp.Success)
	if assert.NotNil(t, resp.Error) {
		assert.Equal(t, code, resp.Error.Code)
	}
}

// AssertConflict checks a 409 referential conflict naming the blocking category.
func AssertConflict(t *testing.T, w *httptest.ResponseRecorder, resp dto.Response, category string, count int64) {
	t.Helper()
	AssertErrorCode(t, w, resp, http.StatusConflict, dto.ErrCodeReferentialConflict)
	if resp.Error == nil {
		return
	}
	require.NotNil(t, resp.Error.Conflict, "conflict detail missing")
	assert.Equal(t, category, resp.Error.Conflict.Category)
	assert.Equal(t, count, resp.Error.Conflict.Count)
}

// JSONResponseAs parses the recorded body into T.
func JSONResponseAs[T any](t *testing.T, tc *TestContext) T {
	t.Helper()

	var result T
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &result), "Failed to parse JSON response")
	return result
}

// ToJSONReader converts a value to a JSON io.Reader.
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
