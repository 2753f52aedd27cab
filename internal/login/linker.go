package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eleven-am/guild-backend/internal/user"
)

type UserWriter interface {
	Create(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, id string) error
}

type LoginWriter interface {
	Upsert(ctx context.Context, l *Login) (*Login, error)
}

type SaveLoginInput struct {
	Provider string
	Profile  Profile
	Tokens   Tokens
	User     *user.User
}

type Linker struct {
	users  UserWriter
	logins LoginWriter
	logger *slog.Logger
}

func NewLinker(users UserWriter, logins LoginWriter, logger *slog.Logger) *Linker {
	return &Linker{
		users:  users,
		logins: logins,
		logger: logger.With("component", "login_linker"),
	}
}

// CreateUser inserts a new user from a provider profile. Every profile email
// is kept with the verified flag the provider reported.
func (l *Linker) CreateUser(ctx context.Context, profile Profile) (*user.User, error) {
	name := profile.DisplayName
	if name == "" {
		name = profile.Username
	}

	u := &user.User{
		DisplayName: name,
		ImageURL:    profile.FirstPhoto(),
	}
	for _, e := range profile.Emails {
		u.Emails = append(u.Emails, user.Email{Email: e.Value, Verified: e.Verified})
	}

	if err := l.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	l.logger.Info("user created", "user_id", u.ID, "emails", len(u.Emails))
	return u, nil
}

// SaveLogin records the provider identity against in.User, refreshing the
// username, tokens and profile snapshot of an existing row. When the identity
// already belongs to someone else the stored row is returned unchanged and
// the caller decides what to do with it.
func (l *Linker) SaveLogin(ctx context.Context, in SaveLoginInput) (*Login, error) {
	if in.User == nil || in.User.ID == "" {
		return nil, errors.New("save login: user is required")
	}
	if in.Provider == "" || in.Profile.ID == "" {
		return nil, errors.New("save login: provider identity is required")
	}

	stored, err := l.logins.Upsert(ctx, &Login{
		Provider:   in.Provider,
		ProviderID: in.Profile.ID,
		UserID:     in.User.ID,
		Username:   in.Profile.Username,
		Tokens:     in.Tokens,
		Profile:    in.Profile.snapshot(),
	})
	if err != nil {
		return nil, err
	}

	if stored.UserID != in.User.ID {
		l.logger.Warn("login owned by another user",
			"provider", in.Provider,
			"user_id", in.User.ID,
			"owner_id", stored.UserID,
		)
	}
	return stored, nil
}

// DiscardUser removes a user created for a login that another request
// claimed first.
func (l *Linker) DiscardUser(ctx context.Context, userID string) error {
	if err := l.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("discard user %s: %w", userID, err)
	}
	return nil
}
