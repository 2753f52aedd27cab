package login

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Identity is everything a provider callback yields: the normalized profile,
// the tokens to store and, where the provider exposes one, the raw friends
// payload.
type Identity struct {
	Profile Profile
	Tokens  Tokens
	Friends json.RawMessage
}

type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

type Providers map[string]Provider

func NewProviders(providers ...Provider) Providers {
	out := make(Providers, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		out[p.Name()] = p
	}
	return out
}

func (p Providers) Get(name string) (Provider, bool) {
	provider, ok := p[name]
	return provider, ok
}

func fetchJSON(client *http.Client, url string) ([]byte, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s: status %d", url, resp.StatusCode)
	}
	return body, nil
}

type GoogleProvider struct {
	config  *oauth2.Config
	apiBase string
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		apiBase: "https://www.googleapis.com",
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	body, err := fetchJSON(p.config.Client(ctx, token), p.apiBase+"/oauth2/v3/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}

	profile := Profile{
		ID:          info.Sub,
		DisplayName: info.Name,
		Raw:         body,
	}
	if info.Email != "" {
		profile.Emails = []ProfileEmail{{Value: info.Email, Verified: info.EmailVerified}}
	}
	if info.Picture != "" {
		profile.Photos = []ProfilePhoto{{Value: info.Picture}}
	}

	return &Identity{Profile: profile, Tokens: TokensFromOAuth(token)}, nil
}

type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

func NewGitHubProvider(clientID, clientSecret, redirectURL string) *GitHubProvider {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBase: "https://api.github.com",
	}
}

func (p *GitHubProvider) Name() string {
	return "github"
}

func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	client := p.config.Client(ctx, token)
	body, err := fetchJSON(client, p.apiBase+"/user")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	var info struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}

	profile := Profile{
		ID:          strconv.FormatInt(info.ID, 10),
		Username:    info.Login,
		DisplayName: info.Name,
		Raw:         body,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = info.Login
	}
	if info.AvatarURL != "" {
		profile.Photos = []ProfilePhoto{{Value: info.AvatarURL}}
	}

	emails, err := p.fetchEmails(client)
	if err != nil {
		return nil, fmt.Errorf("failed to get emails: %w", err)
	}
	profile.Emails = emails

	return &Identity{Profile: profile, Tokens: TokensFromOAuth(token)}, nil
}

// fetchEmails lists the account's addresses with the primary one first.
func (p *GitHubProvider) fetchEmails(client *http.Client) ([]ProfileEmail, error) {
	body, err := fetchJSON(client, p.apiBase+"/user/emails")
	if err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(body, &emails); err != nil {
		return nil, err
	}

	out := make([]ProfileEmail, 0, len(emails))
	for _, e := range emails {
		entry := ProfileEmail{Value: e.Email, Verified: e.Verified}
		if e.Primary {
			out = append([]ProfileEmail{entry}, out...)
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

type FacebookProvider struct {
	config  *oauth2.Config
	apiBase string
	logger  *slog.Logger
}

func NewFacebookProvider(clientID, clientSecret, redirectURL string, logger *slog.Logger) *FacebookProvider {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &FacebookProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "public_profile", "user_friends"},
			Endpoint:     facebook.Endpoint,
		},
		apiBase: "https://graph.facebook.com",
		logger:  logger.With("component", "facebook_provider"),
	}
}

func (p *FacebookProvider) Name() string {
	return "facebook"
}

func (p *FacebookProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *FacebookProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	client := p.config.Client(ctx, token)
	body, err := fetchJSON(client, p.apiBase+"/me?fields=id,name,first_name,last_name,email,verified,picture.type(large)")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	var info struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Verified  bool   `json:"verified"`
		Picture   struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}

	profile := Profile{
		ID:          info.ID,
		DisplayName: info.Name,
		Raw:         body,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = strings.TrimSpace(info.FirstName + " " + info.LastName)
	}
	if info.Email != "" {
		profile.Emails = []ProfileEmail{{Value: info.Email, Verified: info.Verified}}
	}
	if info.Picture.Data.URL != "" {
		profile.Photos = []ProfilePhoto{{Value: info.Picture.Data.URL}}
	}

	friends, err := fetchJSON(client, p.apiBase+"/me/friends")
	if err != nil {
		// Friends are optional; the login itself still succeeds.
		p.logger.Warn("failed to fetch friends", "error", err, "provider_id", profile.ID)
		friends = nil
	}

	return &Identity{
		Profile: profile,
		Tokens:  TokensFromOAuth(token),
		Friends: friends,
	}, nil
}
