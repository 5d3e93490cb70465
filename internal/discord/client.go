package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prperemyshlev/guild-rejoin/internal/config"
	"github.com/prperemyshlev/guild-rejoin/internal/domain"
)

// Client calls the Discord REST API with the bot token
type Client struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
	timeout    time.Duration
}

// NewClient creates a bot client
func NewClient(cfg config.DiscordConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout.Duration},
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		botToken:   cfg.BotToken,
		timeout:    cfg.RequestTimeout.Duration,
	}
}

// AddGuildMember adds a user to a guild using the user's access token.
// Membership is decided by status code only.
func (c *Client) AddGuildMember(ctx context.Context, guildID, userID, accessToken string) (domain.MembershipStatus, error) {
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)

	status, body, err := c.do(ctx, http.MethodPut, path, map[string]string{"access_token": accessToken})
	if err != nil {
		return 0, err
	}

	switch status {
	case http.StatusCreated:
		return domain.MembershipAdded, nil
	case http.StatusNoContent, http.StatusConflict:
		return domain.MembershipAlreadyMember, nil
	default:
		return 0, &domain.MembershipError{Code: status, Body: string(body)}
	}
}

// SendDirectMessage opens a DM channel with the user and posts content to it
func (c *Client) SendDirectMessage(ctx context.Context, userID, content string) error {
	status, body, err := c.do(ctx, http.MethodPost, "/users/@me/channels", map[string]string{"recipient_id": userID})
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("discord: dm channel failed %d: %s", status, string(body))
	}

	var channel struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &channel); err != nil || channel.ID == "" {
		return fmt.Errorf("discord: dm channel response has no id")
	}

	status, body, err = c.do(ctx, http.MethodPost, "/channels/"+channel.ID+"/messages", map[string]string{"content": content})
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("discord: dm send failed %d: %s", status, string(body))
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("discord: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("discord: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("discord: %s %s: %w", method, path, classifyTransportError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("discord: %s %s: %w", method, path, classifyTransportError(err))
	}

	return resp.StatusCode, body, nil
}
