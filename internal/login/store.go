package login

import (
	"context"
	"errors"
	"fmt"

	"github.com/eleven-am/guild-backend/internal/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Login{})
}

// Upsert writes l in a single statement keyed by (provider, provider_id).
// An existing row is refreshed only when it already belongs to l.UserID; a
// row owned by another user is left untouched. Either way the stored row is
// returned.
func (s *Store) Upsert(ctx context.Context, l *Login) (*Login, error) {
	db := s.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "tokens", "profile", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "logins", Name: "user_id"}, Value: l.UserID},
		}},
	}).Omit(clause.Associations).Create(l).Error
	if err != nil {
		return nil, fmt.Errorf("upsert login %s/%s: %w", l.Provider, l.ProviderID, err)
	}

	stored, err := s.GetByProvider(ctx, l.Provider, l.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("read login %s/%s: %w", l.Provider, l.ProviderID, err)
	}
	return stored, nil
}

func (s *Store) GetByProvider(ctx context.Context, provider, providerID string) (*Login, error) {
	var l Login
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) ListByUserIDs(ctx context.Context, userIDs []string) ([]Login, error) {
	var logins []Login
	err := s.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at").
		Find(&logins).Error
	if err != nil {
		return nil, fmt.Errorf("list logins by user: %w", err)
	}
	return logins, nil
}

// UserIDsByProviderIDs maps the provider ids that have a login to the user
// owning it. Unknown ids are absent from the result.
func (s *Store) UserIDsByProviderIDs(ctx context.Context, provider string, providerIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(providerIDs))
	if len(providerIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ProviderID string
		UserID     string
	}
	err := s.db.WithContext(ctx).
		Model(&Login{}).
		Select("provider_id", "user_id").
		Where("provider = ? AND provider_id IN ?", provider, providerIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("resolve %s ids: %w", provider, err)
	}

	for _, row := range rows {
		out[row.ProviderID] = row.UserID
	}
	return out, nil
}
