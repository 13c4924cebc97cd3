package oauth

import (
	"context"
	"fmt"

	"github.com/livingvectors/lv-api/internal/config"
	"golang.org/x/oauth2"
)

var gitlabEndpoint = oauth2.Endpoint{
	AuthURL:  "https://gitlab.com/oauth/authorize",
	TokenURL: "https://gitlab.com/oauth/token",
}

const gitlabUserURL = "https://gitlab.com/api/v4/user"

type GitLabProvider struct {
	config  *oauth2.Config
	userURL string
}

func NewGitLabProvider(cfg config.OAuthConfig) *GitLabProvider {
	return &GitLabProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read_user"},
			Endpoint:     gitlabEndpoint,
		},
		userURL: gitlabUserURL,
	}
}

func (p *GitLabProvider) Name() string {
	return "gitlab"
}

func (p *GitLabProvider) DisplayName() string {
	return "GitLab"
}

func (p *GitLabProvider) GetConsentURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *GitLabProvider) ExchangeCode(ctx context.Context, code string) (*Assertion, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	profile, err := fetchProfile(p.config.Client(ctx, token), p.userURL, p.Name())
	if err != nil {
		return nil, err
	}

	email, _ := profile["email"].(string)
	name, _ := profile["name"].(string)
	if name == "" {
		name, _ = profile["username"].(string)
	}
	avatar, _ := profile["avatar_url"].(string)

	return &Assertion{
		Account: credentialsFromToken(p.Name(), profileID(profile, "id"), token),
		User: UserInfo{
			Email:     email,
			Name:      name,
			AvatarURL: avatar,
		},
		Profile: profile,
	}, nil
}
