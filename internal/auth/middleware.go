package auth

import (
	"context"

	"github.com/eleven-am/guild-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

type contextKey string

const viewerKey contextKey = "viewer_id"

type Middleware struct {
	sessions *SessionManager
}

func NewMiddleware(sessions *SessionManager) *Middleware {
	return &Middleware{sessions: sessions}
}

func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := m.sessions.UserID(c)
		if userID == "" {
			return shared.Unauthorized("auth_required", "authentication required")
		}
		SetViewer(c, userID)
		return next(c)
	}
}

// OptionalAuthenticate records the viewer when the request carries a valid
// session and lets anonymous requests through.
func (m *Middleware) OptionalAuthenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if userID := m.sessions.UserID(c); userID != "" {
			SetViewer(c, userID)
		}
		return next(c)
	}
}

func WithViewer(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, viewerKey, userID)
}

func SetViewer(c echo.Context, userID string) {
	c.SetRequest(c.Request().WithContext(WithViewer(c.Request().Context(), userID)))
}

// ViewerID returns the authenticated user id, or "" for anonymous requests.
func ViewerID(ctx context.Context) string {
	id, _ := ctx.Value(viewerKey).(string)
	return id
}

func RequireAuth(c echo.Context) (string, error) {
	userID := ViewerID(c.Request().Context())
	if userID == "" {
		return "", shared.Unauthorized("auth_required", "authentication required")
	}
	return userID, nil
}
