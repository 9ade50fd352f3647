// Package auth adapts Google's OAuth2 login to the application's User type.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/model"
)

// UserInfoURL is Google's OpenID Connect userinfo endpoint.
const UserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ErrNoEmail is returned when the account does not disclose an email.
var ErrNoEmail = errors.New("google account has no email")

// GoogleProvider runs the authorization code flow against Google.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider requests the profile and email scopes.
func NewGoogleProvider(cfg config.GoogleConfig) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: UserInfoURL,
	}
}

// AuthCodeURL is where the browser is sent to sign in.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Identify exchanges the authorization code and loads the signed-in user.
func (p *GoogleProvider) Identify(ctx context.Context, code string) (model.User, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return model.User{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return model.User{}, err
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return model.User{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.User{}, fmt.Errorf("fetch userinfo: unexpected status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return model.User{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" {
		return model.User{}, ErrNoEmail
	}
	return model.User{ID: info.Sub, Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}
