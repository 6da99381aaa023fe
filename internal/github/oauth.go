// Package github is the external OAuth collaborator: it builds the
// authorization redirect and exchanges a callback code for a GitHub
// identity. It never touches the users table.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

const defaultAPIBaseURL = "https://api.github.com"

// ErrNoEmail means GitHub returned a usable identity without any verified
// email address, so there is nothing to reconcile the account on.
var ErrNoEmail = errors.New("github identity has no verified email")

// Identity is the identity assertion produced by a successful exchange.
type Identity struct {
	ID        string
	Email     string
	Username  string
	Name      string
	AvatarURL string
}

type Client struct {
	cfg *oauth2.Config

	// Overridable for tests.
	apiBaseURL string
	httpClient *http.Client
}

func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     githuboauth.Endpoint,
		},
		apiBaseURL: defaultAPIBaseURL,
		httpClient: http.DefaultClient,
	}
}

// WithEndpoints points the client at substitute OAuth and API endpoints,
// used by tests running against httptest servers.
func (c *Client) WithEndpoints(authURL, tokenURL, apiBaseURL string) *Client {
	c.cfg.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	c.apiBaseURL = apiBaseURL
	return c
}

// AuthCodeURL builds the GitHub authorization redirect for the given state.
func (c *Client) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state)
}

// Exchange trades the authorization code for an access token and resolves
// the user behind it. The token is used once and discarded: only the locally
// minted session credential survives the callback.
func (c *Client) Exchange(ctx context.Context, code string) (*Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	user, err := c.fetchUser(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	email := user.Email
	if email == "" {
		email, err = c.fetchPrimaryEmail(ctx, tok.AccessToken)
		if err != nil {
			return nil, err
		}
	}
	if email == "" {
		return nil, ErrNoEmail
	}

	return &Identity{
		ID:        strconv.FormatInt(user.ID, 10),
		Email:     email,
		Username:  user.Login,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (c *Client) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	var user githubUser
	if err := c.getJSON(ctx, accessToken, "/user", &user); err != nil {
		return nil, fmt.Errorf("failed to fetch github user: %w", err)
	}
	if user.ID == 0 {
		return nil, errors.New("github returned an empty user")
	}
	return &user, nil
}

func (c *Client) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []githubEmail
	if err := c.getJSON(ctx, accessToken, "/user/emails", &emails); err != nil {
		return "", fmt.Errorf("failed to fetch github emails: %w", err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github api %s returned %d: %s", path, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
