package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/model"
)

func TestAuthCodeURL(t *testing.T) {
	p := NewGoogleProvider(config.GoogleConfig{ClientID: "client-1", CallbackURL: "http://localhost:5000/google/callback"})

	u, err := url.Parse(p.AuthCodeURL("state-123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "profile email", q.Get("scope"))
	assert.Equal(t, "http://localhost:5000/google/callback", q.Get("redirect_uri"))
}

func fakeGoogle(t *testing.T, info map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func providerFor(srv *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider(config.GoogleConfig{ClientID: "id", ClientSecret: "secret", CallbackURL: "http://localhost/cb"})
	p.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func TestIdentify(t *testing.T) {
	srv := fakeGoogle(t, map[string]any{"sub": "123", "email": "ada@example.com", "name": "Ada", "picture": "https://img/ada.png"})

	u, err := providerFor(srv).Identify(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: "123", Email: "ada@example.com", Name: "Ada", Picture: "https://img/ada.png"}, u)
}

func TestIdentifyBadCode(t *testing.T) {
	srv := fakeGoogle(t, map[string]any{"sub": "123", "email": "ada@example.com"})

	_, err := providerFor(srv).Identify(context.Background(), "bad-code")
	assert.ErrorContains(t, err, "exchange code")
}

func TestIdentifyRequiresEmail(t *testing.T) {
	srv := fakeGoogle(t, map[string]any{"sub": "123", "name": "No Mail"})

	_, err := providerFor(srv).Identify(context.Background(), "good-code")
	assert.ErrorIs(t, err, ErrNoEmail)
}
