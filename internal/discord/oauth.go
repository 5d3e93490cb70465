package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prperemyshlev/guild-rejoin/internal/config"
	"github.com/prperemyshlev/guild-rejoin/internal/domain"
	"golang.org/x/oauth2"
)

// OAuth talks to the Discord OAuth2 endpoints on behalf of a user
type OAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
	apiBaseURL string
	timeout    time.Duration
}

// NewOAuth creates the OAuth2 client for the configured application
func NewOAuth(cfg config.DiscordConfig) *OAuth {
	apiBaseURL := strings.TrimRight(cfg.APIBaseURL, "/")

	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: apiBaseURL + "/oauth2/token",
				// Discord expects the client credentials in the form body
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: cfg.RequestTimeout.Duration},
		apiBaseURL: apiBaseURL,
		timeout:    cfg.RequestTimeout.Duration,
	}
}

// AuthCodeURL returns the consent page URL carrying state
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token set
func (o *OAuth) Exchange(ctx context.Context, code string) (*domain.TokenSet, error) {
	ctx, cancel := o.clientContext(ctx)
	defer cancel()

	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("discord: code exchange failed: %w", classifyTokenError(err, ErrCodeRejected))
	}

	return tokenSet(token), nil
}

// Refresh performs a refresh_token grant
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error) {
	ctx, cancel := o.clientContext(ctx)
	defer cancel()

	source := o.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("discord: token refresh failed: %w", classifyTokenError(err, domain.ErrRefreshDenied))
	}

	return tokenSet(token), nil
}

// CurrentUser fetches the profile of the user owning accessToken
func (o *OAuth) CurrentUser(ctx context.Context, accessToken string) (*domain.User, error) {
	ctx, cancel := o.clientContext(ctx)
	defer cancel()

	client := o.config.Client(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.apiBaseURL+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("discord: failed to build user request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord: failed to get current user: %w", classifyTransportError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("discord: failed to read user response: %w", classifyTransportError(err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord: failed to fetch user: status %d, body: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		ID         string  `json:"id"`
		Username   string  `json:"username"`
		GlobalName *string `json:"global_name"`
		Avatar     *string `json:"avatar"`
		Email      *string `json:"email"`
		Locale     *string `json:"locale"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("discord: failed to unmarshal user: %w", err)
	}

	if raw.ID == "" {
		return nil, fmt.Errorf("discord: user response has no id")
	}

	return &domain.User{
		ID:         raw.ID,
		Username:   raw.Username,
		GlobalName: raw.GlobalName,
		Avatar:     raw.Avatar,
		Email:      raw.Email,
		Locale:     raw.Locale,
	}, nil
}

func (o *OAuth) clientContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	return context.WithTimeout(ctx, o.timeout)
}

func tokenSet(token *oauth2.Token) *domain.TokenSet {
	expiresIn := time.Duration(token.ExpiresIn) * time.Second
	if expiresIn == 0 && !token.Expiry.IsZero() {
		expiresIn = time.Until(token.Expiry)
	}

	var scopes []string
	if scope, ok := token.Extra("scope").(string); ok {
		scopes = strings.Fields(scope)
	}

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &domain.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    tokenType,
		Scopes:       scopes,
		ExpiresIn:    expiresIn,
	}
}
