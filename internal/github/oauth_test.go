package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// fakeGitHub stands in for both the OAuth token endpoint and the REST API.
type fakeGitHub struct {
	user       map[string]interface{}
	emails     []map[string]interface{}
	failToken  bool
	seenGrants []url.Values
}

func (f *fakeGitHub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.seenGrants = append(f.seenGrants, r.Form)
		if f.failToken {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "gho_test",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(f.user)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(f.emails)
	})
	return httptest.NewServer(mux)
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient("client-id", "client-secret", "http://localhost/api/auth/callback").
		WithEndpoints(srv.URL+"/login/oauth/authorize", srv.URL+"/login/oauth/access_token", srv.URL)
}

func TestAuthCodeURLCarriesState(t *testing.T) {
	c := NewClient("client-id", "client-secret", "http://localhost/api/auth/callback")
	u := c.AuthCodeURL("state-123")
	if !strings.Contains(u, "state=state-123") {
		t.Fatalf("auth url missing state: %s", u)
	}
	if !strings.Contains(u, "client_id=client-id") {
		t.Fatalf("auth url missing client id: %s", u)
	}
}

func TestExchangeResolvesIdentity(t *testing.T) {
	fake := &fakeGitHub{
		user: map[string]interface{}{
			"id": 12345, "login": "octocat", "name": "Octo Cat",
			"email": "octo@example.com", "avatar_url": "https://example.com/a.png",
		},
	}
	srv := fake.server(t)
	defer srv.Close()

	ident, err := newTestClient(srv).Exchange(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if ident.ID != "12345" || ident.Email != "octo@example.com" || ident.Username != "octocat" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
	if len(fake.seenGrants) != 1 || fake.seenGrants[0].Get("code") != "the-code" {
		t.Fatalf("token endpoint did not receive the code: %+v", fake.seenGrants)
	}
}

func TestExchangeFallsBackToPrimaryEmail(t *testing.T) {
	fake := &fakeGitHub{
		user: map[string]interface{}{"id": 99, "login": "octocat"},
		emails: []map[string]interface{}{
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "octo@example.com", "primary": true, "verified": true},
		},
	}
	srv := fake.server(t)
	defer srv.Close()

	ident, err := newTestClient(srv).Exchange(context.Background(), "code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if ident.Email != "octo@example.com" {
		t.Fatalf("expected primary email, got %q", ident.Email)
	}
}

func TestExchangeNoVerifiedEmail(t *testing.T) {
	fake := &fakeGitHub{
		user: map[string]interface{}{"id": 99, "login": "octocat"},
		emails: []map[string]interface{}{
			{"email": "unverified@example.com", "primary": true, "verified": false},
		},
	}
	srv := fake.server(t)
	defer srv.Close()

	if _, err := newTestClient(srv).Exchange(context.Background(), "code"); err != ErrNoEmail {
		t.Fatalf("expected ErrNoEmail, got %v", err)
	}
}

func TestExchangeTokenFailure(t *testing.T) {
	fake := &fakeGitHub{failToken: true}
	srv := fake.server(t)
	defer srv.Close()

	if _, err := newTestClient(srv).Exchange(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error from failed token exchange")
	}
}
