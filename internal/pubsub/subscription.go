package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var ErrSubscriptionClosed = errors.New("subscription closed")

// Subscription is a live, unbounded sequence of payloads for one subscriber.
// Payloads queue in memory until Next consumes them; nothing is replayed from
// before the subscription was attached.
type Subscription struct {
	topic  Topic
	args   FilterArgs
	match  Predicate
	cancel context.CancelFunc

	mu      sync.Mutex
	queue   []json.RawMessage
	notify  chan struct{}
	closed  bool
	err     error
	done    chan struct{}
	closeFn func()
	unwatch func() bool
}

func newSubscription(topic Topic, args FilterArgs, match Predicate, cancel context.CancelFunc) *Subscription {
	if match == nil {
		match = MatchAll
	}
	return &Subscription{
		topic:  topic,
		args:   args,
		match:  match,
		cancel: cancel,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *Subscription) Topic() Topic {
	return s.topic
}

func (s *Subscription) Args() FilterArgs {
	return s.args
}

func (s *Subscription) offer(payload json.RawMessage) bool {
	if !s.match(payload, s.args) {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, payload)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

// Next blocks until a payload is available, the subscription ends or ctx is
// done.
func (s *Subscription) Next(ctx context.Context) (json.RawMessage, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			payload := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return payload, nil
		}
		if s.closed {
			err := s.err
			s.mu.Unlock()
			if err == nil {
				err = ErrSubscriptionClosed
			}
			return nil, err
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *Subscription) watch(unwatch func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		unwatch()
		return
	}
	s.unwatch = unwatch
}

// Pending reports how many payloads are queued.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Subscription) Close() error {
	s.finish(nil)
	return nil
}

// finish marks the subscription ended. Already queued payloads remain
// readable; Next reports err once they are drained.
func (s *Subscription) finish(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	closeFn := s.closeFn
	unwatch := s.unwatch
	s.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	s.cancel()
	close(s.done)
	if closeFn != nil {
		closeFn()
	}
}
