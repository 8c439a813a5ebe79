package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tasktrack/backend/internal/config"
)

// Client talks to the identity provider over HTTP. Transient network errors
// are retried with backoff; 4xx responses are not.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	logger     *slog.Logger
}

func NewClient(cfg config.IdentityConfig) *Client {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		maxRetries: maxRetries,
		logger:     slog.Default().With("component", "identity_client"),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*Session, error) {
	return c.postSession(ctx, "/auth/v1/signup", credentialsRequest{
		Email:    email,
		Password: password,
		FullName: fullName,
	}, "")
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.postSession(ctx, "/auth/v1/token?grant_type=password", credentialsRequest{
		Email:    email,
		Password: password,
	}, "")
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return c.postSession(ctx, "/auth/v1/token?grant_type=refresh_token", refreshRequest{
		RefreshToken: refreshToken,
	}, "")
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.post(ctx, "/auth/v1/logout", nil, accessToken)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: logout returned %d", ErrProviderDown, resp.StatusCode)
	}
	// 401 on logout means the token was already dead; treat as signed out.
	return nil
}

func (c *Client) postSession(ctx context.Context, path string, body interface{}, token string) (*Session, error) {
	resp, err := c.post(ctx, path, body, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		payload, _ := io.ReadAll(resp.Body)
		c.logger.Debug("provider rejected credentials", "path", path, "status", resp.StatusCode, "body", string(payload))
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: %s returned %d", ErrProviderDown, path, resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}
	return &session, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, token string) (*http.Response, error) {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err = c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		c.logger.WarnContext(ctx, "provider request failed, retrying",
			"path", path,
			"attempt", attempt+1,
			"error", err,
		)

		if attempt < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrProviderDown, lastErr)
}
