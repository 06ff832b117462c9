package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func passthrough(t *testing.T, gotUser **User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUser = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestRequireMissingHeader(t *testing.T) {
	m := NewMiddleware(testManager(), zap.NewNop())
	var user *User

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nodes/", nil)
	m.Require(passthrough(t, &user)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	body := decodeEnvelope(t, rr)
	assert.Equal(t, float64(0), body["status"])
	assert.Equal(t, "authorization header required", body["message"])
	assert.Equal(t, map[string]interface{}{}, body["data"])
	assert.Nil(t, user)
}

func TestRequireInvalidToken(t *testing.T) {
	m := NewMiddleware(testManager(), zap.NewNop())
	var user *User

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nodes/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	m.Require(passthrough(t, &user)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, float64(0), body["status"])
	assert.Equal(t, "invalid or expired token", body["message"])
}

func TestRequireRejectsRefreshToken(t *testing.T) {
	jm := testManager()
	m := NewMiddleware(jm, zap.NewNop())
	var user *User

	token, err := jm.GenerateRefreshToken(3, 1)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nodes/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	m.Require(passthrough(t, &user)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Nil(t, user)
}

func TestRequireValidToken(t *testing.T) {
	jm := testManager()
	m := NewMiddleware(jm, zap.NewNop())
	var user *User

	token, err := jm.GenerateAccessToken(42, 2)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nodes/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	m.Require(passthrough(t, &user)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, user)
	assert.Equal(t, uint(42), user.ID)
	assert.True(t, user.IsAdmin())
}

func TestOptionalAnonymousPasses(t *testing.T) {
	m := NewMiddleware(testManager(), zap.NewNop())
	var user *User

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/aqi/months/node-01", nil)
	m.Optional(passthrough(t, &user)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, user)
}

func TestOptionalBadTokenRejected(t *testing.T) {
	m := NewMiddleware(testManager(), zap.NewNop())
	var user *User

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/aqi/months/node-01", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	m.Optional(passthrough(t, &user)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, float64(0), body["status"])
}
