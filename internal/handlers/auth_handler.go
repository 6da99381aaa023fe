package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/gittrends-dev/gittrends-backend/internal/config"
	"github.com/gittrends-dev/gittrends-backend/internal/dto"
	"github.com/gittrends-dev/gittrends-backend/internal/github"
	"github.com/gittrends-dev/gittrends-backend/internal/metrics"
	"github.com/gittrends-dev/gittrends-backend/internal/models"
	"github.com/gittrends-dev/gittrends-backend/internal/store"
	"github.com/gittrends-dev/gittrends-backend/internal/token"
	"github.com/gofiber/fiber/v2"
)

const (
	// SessionCookieName carries the minted session token; the browser holds
	// the only copy.
	SessionCookieName = "auth-token"
	// StateCookieName carries the OAuth CSRF state between the redirect to
	// GitHub and the callback.
	StateCookieName = "oauth-state"

	exchangeTimeout = 10 * time.Second
)

// UserStore is the slice of the credential store the gateway needs.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateLocal(ctx context.Context, email, password, name string) (*models.User, error)
	UpsertFromGitHub(ctx context.Context, ident store.GitHubIdentity) (*models.User, error)
	VerifyLocalCredentials(ctx context.Context, email, password string) (*models.User, error)
}

// OAuthExchanger is the external identity provider seen from the gateway.
type OAuthExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*github.Identity, error)
}

type AuthHandler struct {
	store   UserStore
	tokens  *token.Service
	oauth   OAuthExchanger
	metrics *metrics.Collector
	cfg     *config.Config
}

func NewAuthHandler(users UserStore, tokens *token.Service, oauth OAuthExchanger, collector *metrics.Collector, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		store:   users,
		tokens:  tokens,
		oauth:   oauth,
		metrics: collector,
		cfg:     cfg,
	}
}

func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		h.metrics.RecordSignUp("invalid")
		return badRequest(c, "Invalid request body")
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		h.metrics.RecordSignUp("invalid")
		return badRequest(c, "Invalid email address")
	}
	if len(req.Password) < 8 {
		h.metrics.RecordSignUp("invalid")
		return badRequest(c, "Password must be at least 8 characters")
	}

	user, err := h.store.CreateLocal(c.Context(), email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			h.metrics.RecordSignUp("conflict")
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "User with this email already exists",
			})
		}
		h.metrics.RecordSignUp("error")
		slog.Error("sign-up failed", "action", "signup", "error", err.Error())
		return internalError(c)
	}

	if err := h.issueSession(c, user); err != nil {
		h.metrics.RecordSignUp("error")
		return internalError(c)
	}

	h.metrics.RecordSignUp("success")
	return c.Status(fiber.StatusCreated).JSON(dto.AuthResponse{
		Message: "User created successfully",
		User:    dto.NewUserResponse(user),
	})
}

func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		h.metrics.RecordSignIn("invalid")
		return badRequest(c, "Invalid request body")
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		h.metrics.RecordSignIn("invalid")
		return badRequest(c, "Email and password are required")
	}

	user, err := h.store.VerifyLocalCredentials(c.Context(), email, req.Password)
	if err != nil {
		// One message for unknown email, OAuth-only account and wrong
		// password alike.
		if errors.Is(err, store.ErrInvalidCredentials) {
			h.metrics.RecordSignIn("unauthorized")
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid email or password",
			})
		}
		h.metrics.RecordSignIn("error")
		slog.Error("sign-in failed", "action", "signin", "error", err.Error())
		return internalError(c)
	}

	if err := h.issueSession(c, user); err != nil {
		h.metrics.RecordSignIn("error")
		return internalError(c)
	}

	h.metrics.RecordSignIn("success")
	return c.JSON(dto.AuthResponse{
		Message: "Authentication successful",
		User:    dto.NewUserResponse(user),
	})
}

// SignOut overwrites the session cookie with an expired empty value. It is
// idempotent: signing out twice, or with no session at all, still succeeds.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	h.clearSessionCookie(c)
	h.metrics.RecordSignOut()
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Me resolves the current session. "Nobody is signed in" is a 200 with a
// null user, never an error, so the verify and lookup failures all collapse
// to the same answer.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	raw := c.Cookies(SessionCookieName)
	if raw == "" {
		return c.JSON(dto.SessionResponse{User: nil})
	}

	claims, err := h.tokens.Verify(raw)
	if err != nil {
		return c.JSON(dto.SessionResponse{User: nil})
	}

	user, err := h.store.FindByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Deleted out-of-band: treat as unauthenticated.
			return c.JSON(dto.SessionResponse{User: nil})
		}
		slog.Error("current-user lookup failed", "action", "me", "user_id", claims.UserID, "error", err.Error())
		return internalError(c)
	}

	resp := dto.NewUserResponse(user)
	return c.JSON(dto.SessionResponse{User: &resp})
}

// GitHubLogin starts the OAuth handshake: a fresh random state goes into a
// short-lived cookie and into the authorization URL.
func (h *AuthHandler) GitHubLogin(c *fiber.Ctx) error {
	state, err := newState()
	if err != nil {
		slog.Error("failed to generate oauth state", "action", "oauth_start", "error", err.Error())
		return internalError(c)
	}

	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(h.cfg.OAuthStateTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect(h.oauth.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

// Callback completes the OAuth handshake. Every failure redirects back to
// the login surface with a machine-readable error code; no step is retried
// and nothing is written before the exchange succeeds.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if provErr := c.Query("error"); provErr != "" {
		h.metrics.RecordOAuthCallback("provider_error")
		return h.loginRedirect(c, provErr)
	}

	code := c.Query("code")
	if code == "" {
		h.metrics.RecordOAuthCallback("missing_code")
		return h.loginRedirect(c, "missing_code")
	}

	state := c.Query("state")
	saved := c.Cookies(StateCookieName)
	h.clearStateCookie(c)
	if state == "" || saved == "" || state != saved {
		slog.Warn("oauth state mismatch", "action", "oauth_callback")
		h.metrics.RecordOAuthCallback("invalid_state")
		return h.loginRedirect(c, "invalid_state")
	}

	ctx, cancel := context.WithTimeout(c.Context(), exchangeTimeout)
	defer cancel()

	ident, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, github.ErrNoEmail) {
			h.metrics.RecordOAuthCallback("no_user_data")
			return h.loginRedirect(c, "no_user_data")
		}
		slog.Error("oauth exchange failed", "action", "oauth_callback", "error", err.Error())
		h.metrics.RecordOAuthCallback("exchange_error")
		return h.loginRedirect(c, "exchange_error")
	}

	user, err := h.store.UpsertFromGitHub(c.Context(), store.GitHubIdentity{
		ID:        ident.ID,
		Email:     normalizeEmail(ident.Email),
		Username:  ident.Username,
		Name:      ident.Name,
		AvatarURL: ident.AvatarURL,
	})
	if err != nil {
		slog.Error("oauth upsert failed", "action", "oauth_callback", "error", err.Error())
		h.metrics.RecordOAuthCallback("database_error")
		return h.loginRedirect(c, "database_error")
	}

	if err := h.issueSession(c, user); err != nil {
		h.metrics.RecordOAuthCallback("server_error")
		return h.loginRedirect(c, "server_error")
	}

	h.metrics.RecordOAuthCallback("success")
	return c.Redirect("/", fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) issueSession(c *fiber.Ctx, user *models.User) error {
	raw, err := h.tokens.Mint(token.Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
	})
	if err != nil {
		slog.Error("failed to mint session token", "action", "mint", "user_id", user.ID.String(), "error", err.Error())
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    raw,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearStateCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) loginRedirect(c *fiber.Ctx, code string) error {
	return c.Redirect("/login?error="+code, fiber.StatusTemporaryRedirect)
}

func newState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}
