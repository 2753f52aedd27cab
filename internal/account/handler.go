package account

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/eleven-am/guild-backend/internal/auth"
	"github.com/eleven-am/guild-backend/internal/login"
	"github.com/eleven-am/guild-backend/internal/shared"
	"github.com/eleven-am/guild-backend/internal/user"
	"github.com/labstack/echo/v4"
)

type Authenticator interface {
	Authenticate(ctx context.Context, in AuthenticateInput) (*user.User, error)
}

type Handler struct {
	service   Authenticator
	providers login.Providers
	sessions  *auth.SessionManager
	origins   map[string]struct{}
	logger    *slog.Logger
}

func NewHandler(service Authenticator, providers login.Providers, sessions *auth.SessionManager, allowedOrigins []string, logger *slog.Logger) *Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
		if o != "" {
			origins[o] = struct{}{}
		}
	}

	return &Handler{
		service:   service,
		providers: providers,
		sessions:  sessions,
		origins:   origins,
		logger:    logger.With("component", "account_handler"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/:provider", h.Login)
	g.GET("/:provider/callback", h.Callback)
	g.POST("/logout", h.Logout)
}

// sanitizeRedirectURI keeps same-site paths and absolute URLs on an allowed
// origin. Anything else collapses to "".
func (h *Handler) sanitizeRedirectURI(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "/") {
		if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
			return ""
		}
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	if _, ok := h.origins[scheme+"://"+strings.ToLower(u.Host)]; !ok {
		return ""
	}
	return raw
}

func (h *Handler) provider(c echo.Context) (login.Provider, error) {
	name := c.Param("provider")
	p, ok := h.providers.Get(name)
	if !ok {
		return nil, shared.NotFound("unknown_provider", "unknown login provider: "+name)
	}
	return p, nil
}

// @Summary      Start provider login
// @Description  Redirects to the provider's consent screen. The optional return URL must be a relative path or sit on an allowed origin.
// @Tags         auth
// @Param        provider  path   string  true   "Provider name"  Enums(google, facebook, github)
// @Param        return    query  string  false  "URL to return to after login"
// @Success      307  "Redirect to provider"
// @Failure      404  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /auth/{provider} [get]
func (h *Handler) Login(c echo.Context) error {
	p, err := h.provider(c)
	if err != nil {
		return err
	}

	state, err := h.sessions.BeginOAuth(c, h.sanitizeRedirectURI(c.QueryParam("return")))
	if err != nil {
		h.logger.Error("failed to begin oauth", "error", err, "provider", p.Name())
		return shared.InternalError("state_failed", "failed to start login")
	}

	return c.Redirect(http.StatusTemporaryRedirect, p.AuthURL(state))
}

// @Summary      Provider login callback
// @Description  Completes the OAuth exchange, resolves or creates the user, links the login, imports provider friends and sets the session cookie.
// @Tags         auth
// @Param        provider  path   string  true   "Provider name"
// @Param        code      query  string  true   "Authorization code"
// @Param        state     query  string  true   "OAuth state"
// @Success      307  "Redirect to the return URL"
// @Failure      400  {object}  shared.APIError
// @Failure      404  {object}  shared.APIError
// @Failure      502  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /auth/{provider}/callback [get]
func (h *Handler) Callback(c echo.Context) error {
	p, err := h.provider(c)
	if err != nil {
		return err
	}
	return h.handleCallback(c, p)
}

func (h *Handler) handleCallback(c echo.Context, p login.Provider) error {
	if oauthErr := c.QueryParam("error"); oauthErr != "" {
		return shared.BadRequest("oauth_error", "provider returned error: "+oauthErr)
	}

	redirect, err := h.sessions.CompleteOAuth(c, c.QueryParam("state"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidState) {
			h.logger.Warn("oauth state rejected", "error", err)
		}
		return shared.BadRequest("invalid_state", "invalid oauth state")
	}

	code := c.QueryParam("code")
	if code == "" {
		return shared.BadRequest("missing_code", "authorization code is required")
	}

	ctx := c.Request().Context()
	identity, err := p.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("oauth exchange failed", "error", err, "provider", p.Name())
		return shared.BadGateway("exchange_failed", "failed to exchange authorization code")
	}

	u, err := h.service.Authenticate(ctx, AuthenticateInput{
		SessionUserID: h.sessions.UserID(c),
		Provider:      p.Name(),
		Identity:      identity,
	})
	if err != nil {
		h.logger.Error("authentication failed", "error", err, "provider", p.Name())
		return shared.InternalError("login_failed", "failed to complete login")
	}

	if err := h.sessions.Create(c, u.ID); err != nil {
		h.logger.Error("failed to create session", "error", err, "user_id", u.ID)
		return shared.InternalError("session_failed", "failed to create session")
	}

	return c.Redirect(http.StatusTemporaryRedirect, returnURL(redirect, u.ID))
}

// returnURL tags absolute return URLs with the user id so cross-origin
// clients learn who signed in.
func returnURL(redirect, userID string) string {
	if redirect == "" {
		return "/"
	}
	if strings.HasPrefix(redirect, "/") {
		return redirect
	}

	u, err := url.Parse(redirect)
	if err != nil {
		return "/"
	}
	q := u.Query()
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u.String()
}

// @Summary      Logout
// @Description  Clears the session cookie
// @Tags         auth
// @Success      204  "No Content"
// @Router       /auth/logout [post]
func (h *Handler) Logout(c echo.Context) error {
	h.sessions.Clear(c)
	return c.NoContent(http.StatusNoContent)
}
