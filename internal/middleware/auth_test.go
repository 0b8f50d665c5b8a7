package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticValidator map[string]string

func (v staticValidator) ValidateJWT(token string) (string, error) {
	if userID, ok := v[token]; ok {
		return userID, nil
	}
	return "", errors.New("invalid token")
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("viewer=" + GetUserID(r.Context())))
}

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(staticValidator{"good": "user-1"})(http.HandlerFunc(echoUser))

	rec := serve(h, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "viewer=user-1", rec.Body.String())

	for _, header := range []string{"", "Bearer bad", "Basic good", "Bearer"} {
		rec := serve(h, header)
		assert.Equalf(t, http.StatusUnauthorized, rec.Code, "header %q", header)

		var body map[string]map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Unauthenticated", body["errors"]["kind"])
	}
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(staticValidator{"good": "user-1"})(http.HandlerFunc(echoUser))

	rec := serve(h, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "viewer=", rec.Body.String())

	rec = serve(h, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "viewer=user-1", rec.Body.String())

	rec = serve(h, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, "Token good")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
