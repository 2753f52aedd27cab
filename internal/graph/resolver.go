package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/guild-backend/internal/dto"
	"github.com/eleven-am/guild-backend/internal/friend"
	"github.com/eleven-am/guild-backend/internal/loader"
	"github.com/eleven-am/guild-backend/internal/login"
	"github.com/eleven-am/guild-backend/internal/node"
	"github.com/eleven-am/guild-backend/internal/shared"
	"github.com/eleven-am/guild-backend/internal/user"
	"github.com/sourcegraph/conc"
)

type UserLister interface {
	List(ctx context.Context) ([]user.User, error)
}

type NonFriendFinder interface {
	NonFriends(ctx context.Context, userID string) ([]string, error)
}

type LoginGetter interface {
	GetByProvider(ctx context.Context, provider, providerID string) (*login.Login, error)
}

// Resolver assembles user views through the request's loaders. A failing
// field is reported in the error list and left empty while its siblings
// still resolve.
type Resolver struct {
	loaders *loader.Factory
	users   UserLister
	friends NonFriendFinder
	logins  LoginGetter
	logger  *slog.Logger
}

func NewResolver(loaders *loader.Factory, users UserLister, friends NonFriendFinder, logins LoginGetter, logger *slog.Logger) *Resolver {
	return &Resolver{
		loaders: loaders,
		users:   users,
		friends: friends,
		logins:  logins,
		logger:  logger.With("component", "graph_resolver"),
	}
}

type query struct {
	loaders *loader.Loaders
	viewer  string
	logger  *slog.Logger

	mu   sync.Mutex
	errs []dto.ValidationError
}

func (r *Resolver) newQuery(ctx context.Context, viewerID string) *query {
	loaders := loader.For(ctx)
	if loaders == nil {
		loaders = r.loaders.New()
	}
	return &query{loaders: loaders, viewer: viewerID, logger: r.logger}
}

func (q *query) fail(path string, err error) {
	q.logger.Warn("field failed", "path", path, "error", err)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = append(q.errs, dto.ValidationError{Field: path, Message: err.Error()})
}

func (q *query) errors() []dto.ValidationError {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.errs
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func summary(u *user.User) dto.UserSummary {
	return dto.UserSummary{
		ID:          node.ToGlobalID(node.KindUser, u.ID),
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		ImageURL:    u.ImageURL,
		LastSeenAt:  formatTime(u.LastSeenAt),
	}
}

func loginResponse(l login.Login) dto.LoginResponse {
	return dto.LoginResponse{
		ID:         node.ToGlobalID(node.KindLogin, node.LoginKey(l.Provider, l.ProviderID)),
		Provider:   l.Provider,
		ProviderID: l.ProviderID,
		Username:   l.Username,
		CreatedAt:  formatTime(l.CreatedAt),
		UpdatedAt:  formatTime(l.UpdatedAt),
	}
}

// user resolves one user with its friends and friend count. Emails and
// logins are only filled in for the viewer's own record.
func (q *query) user(ctx context.Context, path, id string) *dto.UserResponse {
	u, err := q.loaders.UsersByID.Load(ctx, id)
	if err != nil {
		q.fail(path, err)
		return nil
	}
	if u == nil {
		return nil
	}

	var rel relations
	var wg conc.WaitGroup
	wg.Go(func() {
		rel.count, rel.countErr = q.loaders.FriendCount.Load(ctx, u.ID)
	})
	wg.Go(func() {
		rel.edges, rel.edgesErr = q.loaders.FriendsOfUser.Load(ctx, u.ID)
	})
	wg.Wait()

	return q.assemble(ctx, path, u, rel)
}

// relations carries the friend fields of one user, loaded ahead of assembly.
type relations struct {
	count    int64
	countErr error
	edges    []friend.Edge
	edgesErr error
}

func (q *query) assemble(ctx context.Context, path string, u *user.User, rel relations) *dto.UserResponse {
	resp := &dto.UserResponse{
		UserSummary: summary(u),
		CreatedAt:   formatTime(u.CreatedAt),
		Friends:     []dto.UserSummary{},
	}

	if rel.countErr != nil {
		q.fail(path+".friend_count", rel.countErr)
	} else {
		resp.FriendCount = rel.count
	}

	if rel.edgesErr != nil {
		q.fail(path+".friends", rel.edgesErr)
	} else {
		resp.Friends = q.summaries(ctx, path+".friends", friendIDs(rel.edges))
	}

	if q.viewer != "" && q.viewer == u.ID {
		for _, e := range u.Emails {
			resp.Emails = append(resp.Emails, dto.EmailResponse{Email: e.Email, Verified: e.Verified})
		}
		resp.Logins = q.logins(ctx, path+".logins", u.ID)
	}
	return resp
}

func friendIDs(edges []friend.Edge) []string {
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.FriendID
	}
	return ids
}

func (q *query) summaries(ctx context.Context, path string, ids []string) []dto.UserSummary {
	out := make([]dto.UserSummary, 0, len(ids))
	if len(ids) == 0 {
		return out
	}

	users, errs := q.loaders.UsersByID.LoadMany(ctx, ids)
	for i, u := range users {
		if errs != nil && errs[i] != nil {
			q.fail(fmt.Sprintf("%s[%d]", path, i), errs[i])
			continue
		}
		if u != nil {
			out = append(out, summary(u))
		}
	}
	return out
}

func (q *query) logins(ctx context.Context, path, userID string) []dto.LoginResponse {
	rows, err := q.loaders.LoginsByUser.Load(ctx, userID)
	if err != nil {
		q.fail(path, err)
		return nil
	}
	out := make([]dto.LoginResponse, len(rows))
	for i, l := range rows {
		out[i] = loginResponse(l)
	}
	return out
}

func (r *Resolver) User(ctx context.Context, viewerID, id string) (*dto.UserResponse, []dto.ValidationError) {
	q := r.newQuery(ctx, viewerID)
	return q.user(ctx, "user", id), q.errors()
}

// Users resolves every user. Each relation is loaded for the whole list at
// once so the store sees one query per entity type.
func (r *Resolver) Users(ctx context.Context, viewerID string) ([]*dto.UserResponse, []dto.ValidationError) {
	q := r.newQuery(ctx, viewerID)

	users, err := r.users.List(ctx)
	if err != nil {
		q.fail("users", err)
		return nil, q.errors()
	}

	ids := make([]string, len(users))
	for i := range users {
		ids[i] = users[i].ID
		q.loaders.UsersByID.Prime(users[i].ID, &users[i])
	}

	var counts []int64
	var edges [][]friend.Edge
	var countErrs, edgeErrs []error
	var wg conc.WaitGroup
	wg.Go(func() {
		counts, countErrs = q.loaders.FriendCount.LoadMany(ctx, ids)
	})
	wg.Go(func() {
		edges, edgeErrs = q.loaders.FriendsOfUser.LoadMany(ctx, ids)
	})
	wg.Wait()

	seen := make(map[string]struct{})
	var friends []string
	for i := range edges {
		if edgeErrs != nil && edgeErrs[i] != nil {
			continue
		}
		for _, e := range edges[i] {
			if _, ok := seen[e.FriendID]; !ok {
				seen[e.FriendID] = struct{}{}
				friends = append(friends, e.FriendID)
			}
		}
	}
	if len(friends) > 0 {
		// Warms the cache; per-key failures surface again during assembly.
		q.loaders.UsersByID.LoadMany(ctx, friends)
	}

	views := make([]*dto.UserResponse, 0, len(users))
	for i := range users {
		rel := relations{count: counts[i], edges: edges[i]}
		if countErrs != nil {
			rel.countErr = countErrs[i]
		}
		if edgeErrs != nil {
			rel.edgesErr = edgeErrs[i]
		}
		views = append(views, q.assemble(ctx, fmt.Sprintf("users[%d]", i), &users[i], rel))
	}
	return views, q.errors()
}

// NonFriends lists every user other than id and its friends.
func (r *Resolver) NonFriends(ctx context.Context, viewerID, id string) ([]dto.UserSummary, []dto.ValidationError) {
	q := r.newQuery(ctx, viewerID)

	ids, err := r.friends.NonFriends(ctx, id)
	if err != nil {
		q.fail("non_friends", err)
		return nil, q.errors()
	}
	return q.summaries(ctx, "non_friends", ids), q.errors()
}

func (r *Resolver) Logins(ctx context.Context, viewerID string) ([]dto.LoginResponse, []dto.ValidationError) {
	q := r.newQuery(ctx, viewerID)
	return q.logins(ctx, "logins", viewerID), q.errors()
}

// Node looks up any entity by global id. Logins are private to their owner;
// anyone else gets a nil node.
func (r *Resolver) Node(ctx context.Context, viewerID, globalID string) (*dto.NodeResponse, []dto.ValidationError, error) {
	kind, key, err := node.FromGlobalID(globalID)
	if err != nil {
		return nil, nil, err
	}

	q := r.newQuery(ctx, viewerID)
	switch kind {
	case node.KindUser:
		u := q.user(ctx, "node", key)
		if u == nil {
			return nil, q.errors(), nil
		}
		return &dto.NodeResponse{Kind: string(kind), User: u}, q.errors(), nil

	case node.KindLogin:
		provider, providerID, ok := node.SplitLoginKey(key)
		if !ok {
			return nil, nil, node.ErrInvalidID
		}
		l, err := r.logins.GetByProvider(ctx, provider, providerID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, nil
		}
		if err != nil {
			q.fail("node", err)
			return nil, q.errors(), nil
		}
		if viewerID == "" || l.UserID != viewerID {
			return nil, nil, nil
		}
		resp := loginResponse(*l)
		return &dto.NodeResponse{Kind: string(kind), Login: &resp}, nil, nil

	default:
		return nil, nil, node.ErrInvalidID
	}
}
