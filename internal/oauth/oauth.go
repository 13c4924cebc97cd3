package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// UserInfo is the partial user record a provider asserts.
type UserInfo struct {
	Email     string
	Name      string
	AvatarURL string
}

// AccountCredentials is the provider-side half of a sign-in.
type AccountCredentials struct {
	Type              string
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	IDToken           string
	TokenType         string
	Scope             string
	SessionState      string
	ExpiresAt         *int64
}

// Assertion is everything a provider tells us about a sign-in attempt.
type Assertion struct {
	Account AccountCredentials
	User    UserInfo
	Profile map[string]any
}

type Provider interface {
	GetConsentURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Assertion, error)
	Name() string
	DisplayName() string
}

func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// credentialsFromToken copies the token fields every provider stores on the account row.
func credentialsFromToken(provider, accountID string, token *oauth2.Token) AccountCredentials {
	creds := AccountCredentials{
		Type:              "oauth",
		Provider:          provider,
		ProviderAccountID: accountID,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		TokenType:         token.TokenType,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		creds.IDToken = idToken
	}
	if scope, ok := token.Extra("scope").(string); ok {
		creds.Scope = scope
	}
	if !token.Expiry.IsZero() {
		exp := token.Expiry.Unix()
		creds.ExpiresAt = &exp
	}
	return creds
}

// fetchProfile GETs a provider's user endpoint and decodes the raw JSON object.
func fetchProfile(client *http.Client, url, provider string) (map[string]any, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s api returned status %d", provider, resp.StatusCode)
	}

	var profile map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return profile, nil
}

// profileID renders the provider's "id"/"sub" claim, which is numeric for GitHub and GitLab.
func profileID(profile map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := profile[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}
