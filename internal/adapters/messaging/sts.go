package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// TokenSource provides bearer tokens for the WhatsApp API.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// GetToken returns the token.
func (t StaticToken) GetToken(context.Context) (string, error) {
	return string(t), nil
}

// STSConfig holds STS authentication configuration.
type STSConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// STSTokenResponse represents the OAuth2 token response.
type STSTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// STSTokenRequest represents the OAuth2 client credentials request.
type STSTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

// STSClient manages OAuth2 token acquisition and caching.
type STSClient struct {
	config     STSConfig
	httpClient *http.Client
	token      string
	expiresAt  time.Time
	mu         sync.RWMutex
}

// NewSTSClient creates a new STS client with token caching.
func NewSTSClient(config STSConfig) *STSClient {
	return &STSClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// GetToken returns a cached token, refreshing it within 60 seconds of expiry.
func (c *STSClient) GetToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if time.Now().Before(c.expiresAt.Add(-60 * time.Second)) {
		token := c.token
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(c.expiresAt.Add(-60 * time.Second)) {
		return c.token, nil
	}

	token, expiresIn, err := c.fetchToken(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch token from STS: %w", err)
	}

	c.token = token
	c.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)

	return token, nil
}

func (c *STSClient) fetchToken(ctx context.Context) (string, int, error) {
	body, err := json.Marshal(STSTokenRequest{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		GrantType:    "client_credentials",
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("STS error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var tokenResp STSTokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return "", 0, fmt.Errorf("unmarshal response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", 0, errors.New("empty access token in response")
	}

	return tokenResp.AccessToken, tokenResp.ExpiresIn, nil
}
