package friend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eleven-am/guild-backend/internal/pubsub"
	"github.com/tidwall/gjson"
)

// LoginDirectory resolves provider account ids to local user ids.
type LoginDirectory interface {
	UserIDsByProviderIDs(ctx context.Context, provider string, providerIDs []string) (map[string]string, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic pubsub.Topic, payload any) error
}

type ImportResult struct {
	Listed  int
	Matched int
	Added   int
}

type Importer struct {
	store     *Store
	directory LoginDirectory
	publisher Publisher
	logger    *slog.Logger
}

func NewImporter(store *Store, directory LoginDirectory, publisher Publisher, logger *slog.Logger) *Importer {
	return &Importer{
		store:     store,
		directory: directory,
		publisher: publisher,
		logger:    logger.With("component", "friend_importer"),
	}
}

// ParseFriendIDs extracts the provider ids from a friends payload of the form
// {"data":[{"id":"..."}]}, dropping blanks and duplicates.
func ParseFriendIDs(payload json.RawMessage) []string {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return nil
	}

	var ids []string
	seen := make(map[string]struct{})
	gjson.GetBytes(payload, "data.#.id").ForEach(func(_, value gjson.Result) bool {
		id := value.String()
		if id == "" {
			return true
		}
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		return true
	})
	return ids
}

// Import links userID with every provider friend that already has an account
// here. Friends without an account are skipped. Running it again with the
// same payload adds nothing.
func (i *Importer) Import(ctx context.Context, provider, userID string, payload json.RawMessage) (*ImportResult, error) {
	result := &ImportResult{}

	providerIDs := ParseFriendIDs(payload)
	result.Listed = len(providerIDs)
	if userID == "" || len(providerIDs) == 0 {
		return result, nil
	}

	owners, err := i.directory.UserIDsByProviderIDs(ctx, provider, providerIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve %s friends: %w", provider, err)
	}

	for _, providerID := range providerIDs {
		friendID, ok := owners[providerID]
		if !ok || friendID == userID {
			continue
		}
		result.Matched++

		added, err := i.Link(ctx, userID, friendID)
		if err != nil {
			return result, err
		}
		if added != nil && added.Created {
			result.Added++
		}
	}

	i.logger.Info("friends imported",
		"provider", provider,
		"user_id", userID,
		"listed", result.Listed,
		"matched", result.Matched,
		"added", result.Added,
	)
	return result, nil
}

// Link adds a friendship and announces it to both sides when it is new.
// Publishing is best effort and never fails the link.
func (i *Importer) Link(ctx context.Context, userID, friendID string) (*AddResult, error) {
	added, err := i.store.AddFriendToUser(ctx, userID, friendID)
	if err != nil || added == nil || !added.Created {
		return added, err
	}
	i.announce(ctx, userID, friendID)
	return added, nil
}

func (i *Importer) announce(ctx context.Context, userID, friendID string) {
	if i.publisher == nil {
		return
	}
	for _, ev := range []pubsub.UserFriendAdded{
		{UserID: userID, FriendID: friendID},
		{UserID: friendID, FriendID: userID},
	} {
		if err := i.publisher.Publish(ctx, pubsub.TopicUserFriendAdded, ev); err != nil {
			i.logger.Warn("failed to publish friend added", "error", err, "user_id", ev.UserID)
		}
	}
}
