package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eleven-am/guild-backend/internal/friend"
	"github.com/eleven-am/guild-backend/internal/login"
	"github.com/eleven-am/guild-backend/internal/user"
)

type UserGetter interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type AuthenticateInput struct {
	SessionUserID string
	Provider      string
	Identity      *login.Identity
}

type Service struct {
	users    UserGetter
	resolver *login.Resolver
	linker   *login.Linker
	importer *friend.Importer
	logger   *slog.Logger
}

func NewService(users UserGetter, resolver *login.Resolver, linker *login.Linker, importer *friend.Importer, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		resolver: resolver,
		linker:   linker,
		importer: importer,
		logger:   logger.With("component", "account"),
	}
}

// Authenticate turns a completed provider callback into a local user: it finds
// or creates the account, records the login and imports provider friends.
func (s *Service) Authenticate(ctx context.Context, in AuthenticateInput) (*user.User, error) {
	if in.Identity == nil || in.Identity.Profile.ID == "" {
		return nil, errors.New("authenticate: provider identity is required")
	}
	profile := in.Identity.Profile

	u, err := s.resolver.FindUser(ctx, login.FindUserInput{
		SessionUserID: in.SessionUserID,
		Provider:      in.Provider,
		Profile:       profile,
	})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	created := false
	if u == nil {
		if u, err = s.linker.CreateUser(ctx, profile); err != nil {
			return nil, err
		}
		created = true
	}

	stored, err := s.linker.SaveLogin(ctx, login.SaveLoginInput{
		Provider: in.Provider,
		Profile:  profile,
		Tokens:   in.Identity.Tokens,
		User:     u,
	})
	if err != nil {
		if created {
			if derr := s.linker.DiscardUser(ctx, u.ID); derr != nil {
				s.logger.Warn("failed to discard user after failed login", "error", derr, "user_id", u.ID)
			}
		}
		return nil, fmt.Errorf("save login: %w", err)
	}

	if stored.UserID != u.ID && created {
		// A concurrent first login claimed the identity; adopt its user.
		if err := s.linker.DiscardUser(ctx, u.ID); err != nil {
			s.logger.Warn("failed to discard orphan user", "error", err, "user_id", u.ID)
		}
		if u, err = s.users.GetByID(ctx, stored.UserID); err != nil {
			return nil, fmt.Errorf("load login owner: %w", err)
		}
	}

	if s.importer != nil && len(in.Identity.Friends) > 0 {
		if _, err := s.importer.Import(ctx, in.Provider, u.ID, in.Identity.Friends); err != nil {
			s.logger.Warn("friend import failed", "error", err, "user_id", u.ID, "provider", in.Provider)
		}
	}

	s.logger.Info("user authenticated", "user_id", u.ID, "provider", in.Provider, "created", created)
	return u, nil
}
