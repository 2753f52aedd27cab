package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eleven-am/guild-backend/internal/shared"
	"gorm.io/gorm"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&User{}, &Email{})
}

func (s *Store) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = shared.NewID("usr_")
	}
	now := s.now().UTC()
	if u.LastSeenAt.IsZero() {
		u.LastSeenAt = now
	}

	seen := make(map[string]struct{}, len(u.Emails))
	emails := u.Emails[:0]
	for _, e := range u.Emails {
		e.Email = NormalizeEmail(e.Email)
		if e.Email == "" {
			continue
		}
		if _, dup := seen[e.Email]; dup {
			continue
		}
		seen[e.Email] = struct{}{}
		e.UserID = u.ID
		emails = append(emails, e)
	}
	u.Emails = emails

	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Preload("Emails").Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListByIDs returns the users matching ids in no particular order. Missing ids
// are simply absent from the result.
func (s *Store) ListByIDs(ctx context.Context, ids []string) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).
		Preload("Emails").
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users by id: %w", err)
	}
	return users, nil
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).Preload("Emails").Order("created_at").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// FindByVerifiedEmail returns the oldest user holding email with the verified
// flag set. Unverified copies of the address never match.
func (s *Store) FindByVerifiedEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, shared.ErrNotFound
	}

	var u User
	err := s.db.WithContext(ctx).
		Preload("Emails").
		Joins("JOIN user_emails ON user_emails.user_id = users.id").
		Where("user_emails.email = ? AND user_emails.verified = ?", email, true).
		Order("users.created_at").
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateImageURL(ctx context.Context, id, imageURL string) error {
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]any{
		"image_url":  imageURL,
		"updated_at": s.now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TouchLastSeen bumps last_seen_at to the current time and returns it.
func (s *Store) TouchLastSeen(ctx context.Context, id string) (time.Time, error) {
	now := s.now().UTC()
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_seen_at", now)
	if result.Error != nil {
		return time.Time{}, result.Error
	}
	if result.RowsAffected == 0 {
		return time.Time{}, shared.ErrNotFound
	}
	return now, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&Email{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&User{}).Error
	})
}
