package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

var ErrBrokerClosed = errors.New("broker closed")

const DefaultPrefix = "guild:events"

// Broker fans topic events out over Redis pub/sub. Delivery is at most once
// to the subscribers attached at publish time.
type Broker struct {
	redis  *redis.Client
	logger *slog.Logger
	prefix string

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBroker(redisClient *redis.Client, prefix string, logger *slog.Logger) *Broker {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Broker{
		redis:  redisClient,
		logger: logger.With("component", "broker"),
		prefix: prefix,
		subs:   make(map[*Subscription]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *Broker) channel(topic Topic) string {
	return b.prefix + ":" + string(topic)
}

func (b *Broker) Publish(ctx context.Context, topic Topic, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	receivers, err := b.redis.Publish(ctx, b.channel(topic), data).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	b.logger.Debug("published event", "topic", topic, "receivers", receivers)
	return nil
}

// Subscribe attaches a subscriber to topic. The Redis subscription is
// confirmed before Subscribe returns, so every later Publish reaches it. The
// subscription ends when ctx is done, Close is called or the broker closes.
func (b *Broker) Subscribe(ctx context.Context, topic Topic, args FilterArgs, match Predicate) (*Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	b.mu.Unlock()

	subCtx, cancel := context.WithCancel(b.ctx)
	channel := b.channel(topic)

	ps := b.redis.Subscribe(subCtx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := newSubscription(topic, args, match, cancel)
	sub.closeFn = func() {
		_ = ps.Close()
		b.remove(sub)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.finish(ErrBrokerClosed)
		return nil, ErrBrokerClosed
	}
	b.subs[sub] = struct{}{}
	b.wg.Add(1)
	b.mu.Unlock()

	go b.pump(subCtx, ps, sub)
	sub.watch(context.AfterFunc(ctx, func() { sub.finish(nil) }))

	b.logger.Debug("subscribed", "topic", topic, "channel", channel, "user_ids", len(args.UserIDs))
	return sub, nil
}

func (b *Broker) pump(ctx context.Context, ps *redis.PubSub, sub *Subscription) {
	defer b.wg.Done()

	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				sub.finish(nil)
				return
			}
			b.logger.Error("receive event", "error", err, "topic", sub.topic)
			sub.finish(fmt.Errorf("receive %s: %w", sub.topic, err))
			return
		}

		sub.offer(json.RawMessage(msg.Payload))
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

func (b *Broker) SubscriptionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	b.cancel()
	for _, sub := range subs {
		sub.finish(ErrBrokerClosed)
	}
	b.wg.Wait()
	return nil
}
