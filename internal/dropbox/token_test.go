package dropbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewTokenSource_RefreshesOnceAndReuses(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "app-key", r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "short-lived", "token_type": "bearer", "expires_in": 14400}`)
	}))
	defer srv.Close()

	endpoint := oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}
	ts := NewTokenSource(context.Background(), "app-key", "refresh-1", endpoint, slog.Default())

	for range 3 {
		tok, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "short-lived", tok.AccessToken)
	}

	assert.Equal(t, 1, calls)
}

func TestNewTokenSource_RevokedRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "invalid_grant", "error_description": "refresh token is malformed"}`)
	}))
	defer srv.Close()

	endpoint := oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}
	ts := NewTokenSource(context.Background(), "app-key", "bad", endpoint, nil)

	_, err := ts.Token()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining token")
}
