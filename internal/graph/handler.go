package graph

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/eleven-am/guild-backend/internal/auth"
	"github.com/eleven-am/guild-backend/internal/dto"
	"github.com/eleven-am/guild-backend/internal/friend"
	"github.com/eleven-am/guild-backend/internal/node"
	"github.com/eleven-am/guild-backend/internal/pubsub"
	"github.com/eleven-am/guild-backend/internal/shared"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type LastSeenToucher interface {
	TouchLastSeen(ctx context.Context, id string) (time.Time, error)
}

type FriendLinker interface {
	Link(ctx context.Context, userID, friendID string) (*friend.AddResult, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic pubsub.Topic, payload any) error
}

type Handler struct {
	resolver  *Resolver
	users     LastSeenToucher
	friends   FriendLinker
	publisher Publisher
	streams   *StreamHandler
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewHandler(resolver *Resolver, users LastSeenToucher, friends FriendLinker, publisher Publisher, streams *StreamHandler, logger *slog.Logger) *Handler {
	return &Handler{
		resolver:  resolver,
		users:     users,
		friends:   friends,
		publisher: publisher,
		streams:   streams,
		validate:  newValidator(),
		logger:    logger.With("component", "graph_handler"),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegisterRoutes mounts the query and mutation endpoints. requireAuth guards
// the routes that act on the viewer's own record.
func (h *Handler) RegisterRoutes(g *echo.Group, requireAuth ...echo.MiddlewareFunc) {
	g.GET("/me", h.Me, requireAuth...)
	g.GET("/users", h.Users)
	g.GET("/users/:id", h.User)
	g.GET("/users/:id/non-friends", h.NonFriends)
	g.POST("/users/:id/last-seen", h.TouchLastSeen, requireAuth...)
	g.POST("/friends", h.AddFriend, requireAuth...)
	g.GET("/logins", h.Logins, requireAuth...)
	g.GET("/node/:id", h.Node)
	if h.streams != nil {
		g.GET("/subscriptions/:topic", h.streams.Subscribe)
	}
}

func respond(c echo.Context, data any, errs []dto.ValidationError) error {
	return c.JSON(http.StatusOK, dto.QueryResponse{Data: data, Errors: errs})
}

// fieldErrors turns validator output into per-field errors keyed by json name.
func fieldErrors(err error) []dto.ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []dto.ValidationError{{Field: "input", Message: err.Error()}}
	}
	out := make([]dto.ValidationError, len(verrs))
	for i, fe := range verrs {
		out[i] = dto.ValidationError{Field: fe.Field(), Message: fe.Field() + " failed " + fe.Tag() + " validation"}
	}
	return out
}

// @Summary      Get current user
// @Description  Returns the viewer with friends, friend count, emails and logins
// @Tags         users
// @Produce      json
// @Success      200  {object}  dto.QueryResponse{data=dto.UserResponse}
// @Failure      401  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /me [get]
func (h *Handler) Me(c echo.Context) error {
	viewerID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	u, errs := h.resolver.User(c.Request().Context(), viewerID, viewerID)
	return respond(c, u, errs)
}

// @Summary      Get user
// @Description  Returns a user by id. Emails and logins are only included for the viewer.
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  dto.QueryResponse{data=dto.UserResponse}
// @Router       /users/{id} [get]
func (h *Handler) User(c echo.Context) error {
	ctx := c.Request().Context()
	u, errs := h.resolver.User(ctx, auth.ViewerID(ctx), c.Param("id"))
	return respond(c, u, errs)
}

// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {object}  dto.QueryResponse{data=[]dto.UserResponse}
// @Router       /users [get]
func (h *Handler) Users(c echo.Context) error {
	ctx := c.Request().Context()
	users, errs := h.resolver.Users(ctx, auth.ViewerID(ctx))
	return respond(c, users, errs)
}

// @Summary      List non-friends
// @Description  Returns every user that is neither the given user nor one of their friends
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  dto.QueryResponse{data=[]dto.UserSummary}
// @Router       /users/{id}/non-friends [get]
func (h *Handler) NonFriends(c echo.Context) error {
	ctx := c.Request().Context()
	users, errs := h.resolver.NonFriends(ctx, auth.ViewerID(ctx), c.Param("id"))
	return respond(c, users, errs)
}

// @Summary      List own logins
// @Tags         users
// @Produce      json
// @Success      200  {object}  dto.QueryResponse{data=[]dto.LoginResponse}
// @Failure      401  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /logins [get]
func (h *Handler) Logins(c echo.Context) error {
	viewerID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	logins, errs := h.resolver.Logins(c.Request().Context(), viewerID)
	return respond(c, logins, errs)
}

// @Summary      Get node
// @Description  Looks up a user or login by global id
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "Global ID"
// @Success      200  {object}  dto.QueryResponse{data=dto.NodeResponse}
// @Failure      400  {object}  shared.APIError
// @Router       /node/{id} [get]
func (h *Handler) Node(c echo.Context) error {
	ctx := c.Request().Context()
	n, errs, err := h.resolver.Node(ctx, auth.ViewerID(ctx), c.Param("id"))
	if errors.Is(err, node.ErrInvalidID) {
		return shared.BadRequest("invalid_id", "invalid global id")
	}
	if err != nil {
		h.logger.Error("node lookup failed", "error", err)
		return shared.InternalError("lookup_failed", "failed to look up node")
	}
	return respond(c, n, errs)
}

// @Summary      Touch last seen
// @Description  Sets the viewer's last seen time to now and notifies subscribers
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  dto.QueryResponse{data=dto.LastSeenResponse}
// @Failure      401  {object}  shared.APIError
// @Failure      403  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /users/{id}/last-seen [post]
func (h *Handler) TouchLastSeen(c echo.Context) error {
	viewerID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if id != viewerID {
		return shared.Forbidden("forbidden", "cannot update another user")
	}

	ctx := c.Request().Context()
	seenAt, err := h.users.TouchLastSeen(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return respond(c, nil, nil)
	}
	if err != nil {
		h.logger.Error("failed to touch last seen", "error", err, "user_id", id)
		return respond(c, nil, []dto.ValidationError{{Field: "last_seen_at", Message: "failed to update last seen"}})
	}

	if err := h.publisher.Publish(ctx, pubsub.TopicUserLastSeenAtChanged, pubsub.UserLastSeenAtChanged{
		UserID:     id,
		LastSeenAt: seenAt,
	}); err != nil {
		h.logger.Warn("failed to publish last seen", "error", err, "user_id", id)
	}

	return respond(c, dto.LastSeenResponse{UserID: id, LastSeenAt: formatTime(seenAt)}, nil)
}

// @Summary      Add friend
// @Description  Links two users in both directions. Adding yourself or an existing friend succeeds without changes.
// @Tags         friends
// @Accept       json
// @Produce      json
// @Param        request  body      dto.AddFriendRequest  true  "Friendship"
// @Success      200      {object}  dto.QueryResponse{data=dto.AddFriendResponse}
// @Failure      400      {object}  shared.APIError
// @Failure      401      {object}  shared.APIError
// @Failure      403      {object}  shared.APIError
// @Security     BearerAuth
// @Router       /friends [post]
func (h *Handler) AddFriend(c echo.Context) error {
	viewerID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req dto.AddFriendRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return respond(c, nil, fieldErrors(err))
	}
	if req.UserID != viewerID {
		return shared.Forbidden("forbidden", "cannot add friends for another user")
	}

	added, err := h.friends.Link(c.Request().Context(), req.UserID, req.FriendID)
	if err != nil {
		h.logger.Error("failed to add friend", "error", err, "user_id", req.UserID, "friend_id", req.FriendID)
		return respond(c, nil, []dto.ValidationError{{Field: "friend_id", Message: "failed to add friend"}})
	}
	if added == nil {
		return respond(c, nil, nil)
	}

	return respond(c, dto.AddFriendResponse{
		UserID:   added.UserID,
		FriendID: added.FriendID,
		Created:  added.Created,
	}, nil)
}
