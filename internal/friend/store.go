package friend

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Edge{})
}

// AddFriendToUser links two users in both directions. Empty ids are a no-op
// returning nil; linking a user to itself succeeds without writing anything.
// Existing edges are kept, and Created reports whether any row was new.
func (s *Store) AddFriendToUser(ctx context.Context, userID, friendID string) (*AddResult, error) {
	if userID == "" || friendID == "" {
		return nil, nil
	}

	result := &AddResult{UserID: userID, FriendID: friendID}
	if userID == friendID {
		return result, nil
	}

	now := s.now().UTC()
	edges := []Edge{
		{UserID: userID, FriendID: friendID, CreatedAt: now},
		{UserID: friendID, FriendID: userID, CreatedAt: now},
	}

	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&edges)
	if tx.Error != nil {
		return nil, fmt.Errorf("add friend %s -> %s: %w", userID, friendID, tx.Error)
	}

	result.Created = tx.RowsAffected > 0
	return result, nil
}

func (s *Store) ListByUserIDs(ctx context.Context, userIDs []string) ([]Edge, error) {
	var edges []Edge
	err := s.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at").
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return edges, nil
}

// CountByUserIDs returns one row per user that has friends. Users without
// friends are absent.
func (s *Store) CountByUserIDs(ctx context.Context, userIDs []string) ([]Count, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query, args, err := sq.Select("user_id", "COUNT(*) AS total").
		From("user_friends").
		Where(sq.Eq{"user_id": userIDs}).
		GroupBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build friend count query: %w", err)
	}

	var counts []Count
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count friends: %w", err)
	}
	return counts, nil
}

// NonFriends lists the ids of every user other than userID that userID is
// not friends with, oldest first.
func (s *Store) NonFriends(ctx context.Context, userID string) ([]string, error) {
	query, args, err := sq.Select("users.id").
		From("users").
		LeftJoin("user_friends ON user_friends.friend_id = users.id AND user_friends.user_id = ?", userID).
		Where(sq.NotEq{"users.id": userID}).
		Where(sq.Eq{"user_friends.friend_id": nil}).
		OrderBy("users.created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build non-friends query: %w", err)
	}

	var ids []string
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("list non-friends: %w", err)
	}
	return ids, nil
}
