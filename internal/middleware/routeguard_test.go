package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gittrends-dev/gittrends-backend/internal/token"
	"github.com/gofiber/fiber/v2"
)

func newGuardedApp(t *testing.T) (*fiber.App, *token.Service) {
	t.Helper()
	tokens := token.NewService("guard-test-secret", time.Hour)

	app := fiber.New()
	app.Use(RouteGuard(tokens))

	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/", ok)
	app.Get("/about", ok)
	app.Get("/dashboard", ok)
	app.Get("/projects/:id", ok)
	app.Get("/api/auth/me", ok)
	app.Get("/api/favorites", ok)
	return app, tokens
}

func guardRequest(t *testing.T, app *fiber.App, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func TestPublicPathsPassWithoutCookie(t *testing.T) {
	app, _ := newGuardedApp(t)
	for _, path := range []string{"/", "/about", "/api/auth/me"} {
		resp := guardRequest(t, app, path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestProtectedPageRedirectsPreservingPath(t *testing.T) {
	app, _ := newGuardedApp(t)

	resp := guardRequest(t, app, "/dashboard")
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login?redirectTo=%2Fdashboard" {
		t.Fatalf("redirect = %q", loc)
	}

	resp = guardRequest(t, app, "/projects/42")
	if loc := resp.Header.Get("Location"); loc != "/login?redirectTo=%2Fprojects%2F42" {
		t.Fatalf("redirect = %q", loc)
	}
}

func TestProtectedAPIPathReturns401(t *testing.T) {
	app, _ := newGuardedApp(t)

	resp := guardRequest(t, app, "/api/favorites")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		t.Fatalf("machine client got a redirect to %q", loc)
	}
}

func TestValidSessionPasses(t *testing.T) {
	app, tokens := newGuardedApp(t)

	raw, err := tokens.Mint(token.Claims{UserID: "u1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	ck := &http.Cookie{Name: "auth-token", Value: raw}

	for _, path := range []string{"/dashboard", "/api/favorites"} {
		resp := guardRequest(t, app, path, ck)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s with session = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestInvalidAndExpiredTokensDenied(t *testing.T) {
	app, _ := newGuardedApp(t)

	expiredSvc := token.NewService("guard-test-secret", time.Hour)
	expiredSvc.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	expired, err := expiredSvc.Mint(token.Claims{UserID: "u1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	for _, value := range []string{"garbage", expired} {
		resp := guardRequest(t, app, "/dashboard", &http.Cookie{Name: "auth-token", Value: value})
		if resp.StatusCode != http.StatusTemporaryRedirect {
			t.Fatalf("cookie %q: status = %d, want redirect", value, resp.StatusCode)
		}
	}
}

func TestStaticAssetsPassThrough(t *testing.T) {
	app, _ := newGuardedApp(t)

	// No route registered: a 404 proves the guard let the request through
	// instead of redirecting it.
	resp := guardRequest(t, app, "/assets/logo.png")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 pass-through", resp.StatusCode)
	}
}

func TestUnknownProtectedPathStillGuarded(t *testing.T) {
	app, _ := newGuardedApp(t)

	resp := guardRequest(t, app, "/settings")
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", resp.StatusCode)
	}
}
