package oauth

import (
	"context"
	"fmt"

	"github.com/livingvectors/lv-api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(cfg config.OAuthConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) DisplayName() string {
	return "Google"
}

func (p *GoogleProvider) GetConsentURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*Assertion, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	profile, err := fetchProfile(p.config.Client(ctx, token), p.userInfoURL, p.Name())
	if err != nil {
		return nil, err
	}

	// OpenID Connect userinfo uses "sub"; the legacy v2 endpoint uses "id".
	accountID := profileID(profile, "sub", "id")
	if accountID == "" {
		return nil, fmt.Errorf("google profile has no subject")
	}

	email, _ := profile["email"].(string)
	name, _ := profile["name"].(string)
	picture, _ := profile["picture"].(string)

	return &Assertion{
		Account: credentialsFromToken(p.Name(), accountID, token),
		User: UserInfo{
			Email:     email,
			Name:      name,
			AvatarURL: picture,
		},
		Profile: profile,
	}, nil
}
