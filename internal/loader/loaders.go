package loader

import (
	"context"

	"github.com/eleven-am/guild-backend/internal/friend"
	"github.com/eleven-am/guild-backend/internal/login"
	"github.com/eleven-am/guild-backend/internal/user"
	"github.com/labstack/echo/v4"
)

type UserSource interface {
	ListByIDs(ctx context.Context, ids []string) ([]user.User, error)
}

type LoginSource interface {
	ListByUserIDs(ctx context.Context, userIDs []string) ([]login.Login, error)
}

type FriendSource interface {
	ListByUserIDs(ctx context.Context, userIDs []string) ([]friend.Edge, error)
	CountByUserIDs(ctx context.Context, userIDs []string) ([]friend.Count, error)
}

// Loaders holds the entity loaders of one request.
type Loaders struct {
	UsersByID     *Loader[string, *user.User]
	LoginsByUser  *Loader[string, []login.Login]
	FriendsOfUser *Loader[string, []friend.Edge]
	FriendCount   *Loader[string, int64]
}

type Factory struct {
	users   UserSource
	logins  LoginSource
	friends FriendSource
	opts    Options
}

func NewFactory(users UserSource, logins LoginSource, friends FriendSource, opts Options) *Factory {
	return &Factory{
		users:   users,
		logins:  logins,
		friends: friends,
		opts:    opts,
	}
}

// New returns a fresh set of loaders with empty caches.
func (f *Factory) New() *Loaders {
	return &Loaders{
		UsersByID: New("users_by_id", One, func(ctx context.Context, ids []string) ([]*user.User, error) {
			rows, err := f.users.ListByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			return MapOne(ids, rows, func(u user.User) string { return u.ID }), nil
		}, f.opts),

		LoginsByUser: New("logins_by_user", Many, func(ctx context.Context, ids []string) ([][]login.Login, error) {
			rows, err := f.logins.ListByUserIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			return MapMany(ids, rows, func(l login.Login) string { return l.UserID }), nil
		}, f.opts),

		FriendsOfUser: New("friends_of_user", Many, func(ctx context.Context, ids []string) ([][]friend.Edge, error) {
			rows, err := f.friends.ListByUserIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			return MapMany(ids, rows, func(e friend.Edge) string { return e.UserID }), nil
		}, f.opts),

		FriendCount: New("friend_count", Value, func(ctx context.Context, ids []string) ([]int64, error) {
			rows, err := f.friends.CountByUserIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			counts := MapValues(ids, rows,
				func(c friend.Count) string { return c.UserID },
				func(c friend.Count) int64 { return c.Total },
			)
			out := make([]int64, len(counts))
			for i, c := range counts {
				if c != nil {
					out[i] = *c
				}
			}
			return out, nil
		}, f.opts),
	}
}

type contextKey struct{}

func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// For returns the loaders attached to ctx, or nil.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(contextKey{}).(*Loaders)
	return l
}

// Middleware attaches a new Loaders to every request so caches never outlive
// it.
func (f *Factory) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := WithLoaders(c.Request().Context(), f.New())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
