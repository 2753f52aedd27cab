package graph

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/guild-backend/internal/pubsub"
	"github.com/eleven-am/guild-backend/internal/shared"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	sseKeepAliveInterval = 30 * time.Second
	writeWait            = 10 * time.Second
	pongWait             = 60 * time.Second
	pingPeriod           = (pongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic pubsub.Topic, args pubsub.FilterArgs, match pubsub.Predicate) (*pubsub.Subscription, error)
}

// StreamHandler relays broker events to clients over SSE, or over a
// WebSocket when the request asks for an upgrade.
type StreamHandler struct {
	broker    Subscriber
	keepAlive time.Duration
	logger    *slog.Logger
}

func NewStreamHandler(broker Subscriber, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		broker:    broker,
		keepAlive: sseKeepAliveInterval,
		logger:    logger.With("component", "stream_handler"),
	}
}

func parseUserIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// @Summary      Subscribe to events
// @Description  Streams events of a topic as server-sent events, or over a WebSocket when upgraded. userIds limits delivery to events about those users.
// @Tags         subscriptions
// @Produce      text/event-stream
// @Param        topic    path   string  true   "Topic"  Enums(USER_FRIEND_ADDED, USER_LAST_SEEN_AT_CHANGED)
// @Param        userIds  query  string  false  "Comma separated user ids"
// @Success      200  {object}  dto.SubscriptionEvent
// @Failure      404  {object}  shared.APIError
// @Failure      502  {object}  shared.APIError
// @Router       /subscriptions/{topic} [get]
func (s *StreamHandler) Subscribe(c echo.Context) error {
	topic, ok := pubsub.ParseTopic(c.Param("topic"))
	if !ok {
		return shared.NotFound("unknown_topic", "unknown topic: "+c.Param("topic"))
	}
	args := pubsub.FilterArgs{UserIDs: parseUserIDs(c.QueryParam("userIds"))}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	sub, err := s.broker.Subscribe(ctx, topic, args, pubsub.MatchUserIDs)
	if err != nil {
		s.logger.Error("subscribe failed", "error", err, "topic", topic)
		return shared.BadGateway("subscribe_failed", "failed to subscribe")
	}
	defer sub.Close()

	if websocket.IsWebSocketUpgrade(c.Request()) {
		return s.serveWebSocket(ctx, cancel, c, sub)
	}
	return s.serveSSE(ctx, c, sub)
}

type streamEvent struct {
	Topic   pubsub.Topic    `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// pump moves subscription payloads onto a channel until ctx ends or the
// subscription closes.
func pump(ctx context.Context, sub *pubsub.Subscription) (<-chan json.RawMessage, <-chan error) {
	events := make(chan json.RawMessage)
	done := make(chan error, 1)
	go func() {
		defer close(events)
		for {
			payload, err := sub.Next(ctx)
			if err != nil {
				done <- err
				return
			}
			select {
			case events <- payload:
			case <-ctx.Done():
				done <- ctx.Err()
				return
			}
		}
	}()
	return events, done
}

func endOfStream(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, pubsub.ErrSubscriptionClosed) || errors.Is(err, pubsub.ErrBrokerClosed)
}

func (s *StreamHandler) serveSSE(ctx context.Context, c echo.Context, sub *pubsub.Subscription) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	s.logger.Info("subscriber connected (SSE)", "topic", sub.Topic(), "user_ids", sub.Args().UserIDs)
	defer s.logger.Info("subscriber disconnected (SSE)", "topic", sub.Topic())

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	events, done := pump(ctx, sub)
	for {
		select {
		case payload, ok := <-events:
			if !ok {
				if err := <-done; !endOfStream(err) {
					return err
				}
				return nil
			}
			if err := writeSSE(w, sub.Topic(), payload); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return nil
			}
			w.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}

func writeSSE(w *echo.Response, topic pubsub.Topic, payload json.RawMessage) error {
	data, err := json.Marshal(streamEvent{Topic: topic, Payload: payload})
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + topic.String() + "\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func (s *StreamHandler) serveWebSocket(ctx context.Context, cancel context.CancelFunc, c echo.Context, sub *pubsub.Subscription) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return nil
	}
	defer ws.Close()

	s.logger.Info("subscriber connected (WebSocket)", "topic", sub.Topic(), "user_ids", sub.Args().UserIDs)
	defer s.logger.Info("subscriber disconnected (WebSocket)", "topic", sub.Topic())

	// Clients never send anything meaningful; reading only detects the close.
	go func() {
		defer cancel()
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	events, _ := pump(ctx, sub)
	for {
		select {
		case payload, ok := <-events:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return nil
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(streamEvent{Topic: sub.Topic(), Payload: payload}); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}
