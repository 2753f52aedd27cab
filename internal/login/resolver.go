package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eleven-am/guild-backend/internal/shared"
	"github.com/eleven-am/guild-backend/internal/user"
)

// DefaultPlaceholders mark provider avatars that are too small to keep.
var DefaultPlaceholders = []string{"50x50"}

type UserFinder interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	FindByVerifiedEmail(ctx context.Context, email string) (*user.User, error)
	UpdateImageURL(ctx context.Context, id, imageURL string) error
}

type LoginFinder interface {
	GetByProvider(ctx context.Context, provider, providerID string) (*Login, error)
}

type FindUserInput struct {
	SessionUserID string
	Provider      string
	Profile       Profile
}

type Resolver struct {
	users        UserFinder
	logins       LoginFinder
	placeholders []string
	logger       *slog.Logger
}

func NewResolver(users UserFinder, logins LoginFinder, placeholders []string, logger *slog.Logger) *Resolver {
	if len(placeholders) == 0 {
		placeholders = DefaultPlaceholders
	}
	return &Resolver{
		users:        users,
		logins:       logins,
		placeholders: placeholders,
		logger:       logger.With("component", "login_resolver"),
	}
}

// FindUser picks the account an incoming provider login belongs to: the
// session user first, then the user owning this provider identity, then the
// user holding the profile's first email if the provider verified it. It
// returns nil when none applies.
func (r *Resolver) FindUser(ctx context.Context, in FindUserInput) (*user.User, error) {
	u, err := r.find(ctx, in)
	if err != nil || u == nil {
		return u, err
	}

	r.upgradeAvatar(ctx, u, in.Profile.FirstPhoto())
	return u, nil
}

func (r *Resolver) find(ctx context.Context, in FindUserInput) (*user.User, error) {
	if in.SessionUserID != "" {
		u, err := r.users.GetByID(ctx, in.SessionUserID)
		switch {
		case err == nil:
			return u, nil
		case !errors.Is(err, shared.ErrNotFound):
			return nil, fmt.Errorf("load session user: %w", err)
		}
		r.logger.Warn("session user no longer exists", "user_id", in.SessionUserID)
	}

	if in.Profile.ID != "" {
		l, err := r.logins.GetByProvider(ctx, in.Provider, in.Profile.ID)
		switch {
		case err == nil:
			u, err := r.users.GetByID(ctx, l.UserID)
			if err == nil {
				return u, nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("load login owner: %w", err)
			}
		case !errors.Is(err, shared.ErrNotFound):
			return nil, fmt.Errorf("find login: %w", err)
		}
	}

	email, ok := in.Profile.FirstEmail()
	if !ok || !email.Verified {
		return nil, nil
	}

	u, err := r.users.FindByVerifiedEmail(ctx, email.Value)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *Resolver) needsAvatar(current string) bool {
	if current == "" {
		return true
	}
	for _, marker := range r.placeholders {
		if marker != "" && strings.Contains(current, marker) {
			return true
		}
	}
	return false
}

func (r *Resolver) upgradeAvatar(ctx context.Context, u *user.User, photo string) {
	if photo == "" || photo == u.ImageURL || !r.needsAvatar(u.ImageURL) {
		return
	}

	if err := r.users.UpdateImageURL(ctx, u.ID, photo); err != nil {
		r.logger.Warn("failed to upgrade avatar", "error", err, "user_id", u.ID)
		return
	}
	u.ImageURL = photo
}
