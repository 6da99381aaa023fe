// Package client is a Go client for the GitTrends auth API. The session
// credential lives in the HTTP cookie jar, exactly as a browser would hold
// it; callers never see the raw token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

var (
	ErrConflict     = errors.New("email already registered")
	ErrUnauthorized = errors.New("invalid email or password")
	ErrValidation   = errors.New("invalid request")
)

// User is the public projection the API returns.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	GitHubUsername string    `json:"github_username,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, name string) (*User, error) {
	return c.postAuth(ctx, "/api/auth/signup", map[string]string{
		"email": email, "password": password, "name": name,
	}, http.StatusCreated)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	return c.postAuth(ctx, "/api/auth/signin", map[string]string{
		"email": email, "password": password,
	}, http.StatusOK)
}

// SignOut always succeeds from the caller's perspective; the server clears
// the cookie even when no session exists.
func (c *Client) SignOut(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sign-out returned %d", resp.StatusCode)
	}
	return nil
}

// Me returns the signed-in user, or nil when nobody is signed in. nil is a
// normal answer, not an error.
func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("who-am-i returned %d", resp.StatusCode)
	}

	var body struct {
		User *User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	return body.User, nil
}

func (c *Client) postAuth(ctx context.Context, path string, payload map[string]string, wantStatus int) (*User, error) {
	resp, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return nil, statusError(resp)
	}

	var body struct {
		User User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	return &body.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	var body *bytes.Buffer
	if payload != nil {
		body = &bytes.Buffer{}
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			return nil, err
		}
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func statusError(resp *http.Response) error {
	var apiErr struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	switch resp.StatusCode {
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest:
		if apiErr.Message != "" {
			return fmt.Errorf("%w: %s", ErrValidation, apiErr.Message)
		}
		return ErrValidation
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Message)
	}
}
