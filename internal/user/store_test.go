package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eleven-am/guild-backend/internal/shared"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestUserDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestStore(t *testing.T) *Store {
	store := NewStore(setupTestUserDB(t))
	if err := store.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	return store
}

func TestStore_Migrate(t *testing.T) {
	db := setupTestUserDB(t)
	store := NewStore(db)

	if err := store.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table'").Scan(&tables)
	for _, want := range []string{"users", "user_emails"} {
		found := false
		for _, table := range tables {
			if table == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s table should exist after migration", want)
		}
	}
}

func TestStore_Create(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		user       *User
		wantEmails int
	}{
		{
			name:       "with id",
			user:       &User{ID: "usr_fixed", DisplayName: "Fixed"},
			wantEmails: 0,
		},
		{
			name: "generated id and normalized emails",
			user: &User{
				DisplayName: "Ada",
				Emails: []Email{
					{Email: " Ada@Example.com ", Verified: true},
					{Email: "ada@example.com"},
					{Email: ""},
					{Email: "lovelace@example.com"},
				},
			},
			wantEmails: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Create(ctx, tt.user); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if tt.user.ID == "" {
				t.Fatal("user ID should be generated if not provided")
			}
			if tt.user.LastSeenAt.IsZero() {
				t.Error("last seen should default to creation time")
			}

			got, err := store.GetByID(ctx, tt.user.ID)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if len(got.Emails) != tt.wantEmails {
				t.Errorf("expected %d emails, got %d", tt.wantEmails, len(got.Emails))
			}
		})
	}
}

func TestStore_GetByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Create(ctx, &User{ID: "usr_getbyid", DisplayName: "GetByID"})

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "existing user", id: "usr_getbyid"},
		{name: "non-existent user", id: "usr_missing", wantErr: shared.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetByID() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetByID() unexpected error = %v", err)
			}
			if got.ID != tt.id {
				t.Errorf("GetByID() got ID = %v, want %v", got.ID, tt.id)
			}
		})
	}
}

func TestStore_ListByIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Create(ctx, &User{ID: "usr_a", Emails: []Email{{Email: "a@example.com"}}})
	store.Create(ctx, &User{ID: "usr_b"})

	users, err := store.ListByIDs(ctx, []string{"usr_b", "usr_missing", "usr_a"})
	if err != nil {
		t.Fatalf("ListByIDs() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.ID == "usr_a" && len(u.Emails) != 1 {
			t.Error("emails should be preloaded")
		}
	}
}

func TestStore_FindByVerifiedEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Create(ctx, &User{ID: "usr_verified", Emails: []Email{{Email: "a@x.com", Verified: true}}})
	store.Create(ctx, &User{ID: "usr_unverified", Emails: []Email{{Email: "b@x.com"}}})

	tests := []struct {
		name    string
		email   string
		wantID  string
		wantErr error
	}{
		{name: "verified match", email: "a@x.com", wantID: "usr_verified"},
		{name: "case insensitive", email: "A@X.com", wantID: "usr_verified"},
		{name: "unverified never matches", email: "b@x.com", wantErr: shared.ErrNotFound},
		{name: "unknown", email: "c@x.com", wantErr: shared.ErrNotFound},
		{name: "empty", email: "", wantErr: shared.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FindByVerifiedEmail(ctx, tt.email)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("expected %s, got %s", tt.wantID, got.ID)
			}
		})
	}
}

func TestStore_UpdateImageURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Create(ctx, &User{ID: "usr_img", ImageURL: "https://cdn.example.com/50x50/a.jpg"})

	if err := store.UpdateImageURL(ctx, "usr_img", "https://cdn.example.com/large/a.jpg"); err != nil {
		t.Fatalf("UpdateImageURL() error = %v", err)
	}
	got, _ := store.GetByID(ctx, "usr_img")
	if got.ImageURL != "https://cdn.example.com/large/a.jpg" {
		t.Errorf("unexpected image url %s", got.ImageURL)
	}

	if err := store.UpdateImageURL(ctx, "usr_missing", "x"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_TouchLastSeen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return created }
	store.Create(ctx, &User{ID: "usr_seen"})

	later := created.Add(time.Hour)
	store.now = func() time.Time { return later }

	seen, err := store.TouchLastSeen(ctx, "usr_seen")
	if err != nil {
		t.Fatalf("TouchLastSeen() error = %v", err)
	}
	if !seen.Equal(later) {
		t.Errorf("expected %v, got %v", later, seen)
	}

	got, _ := store.GetByID(ctx, "usr_seen")
	if !got.LastSeenAt.Equal(later) {
		t.Errorf("stored last seen %v, want %v", got.LastSeenAt, later)
	}

	if _, err := store.TouchLastSeen(ctx, "usr_missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Create(ctx, &User{ID: "usr_gone", Emails: []Email{{Email: "gone@x.com", Verified: true}}})

	if err := store.Delete(ctx, "usr_gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.GetByID(ctx, "usr_gone"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := store.FindByVerifiedEmail(ctx, "gone@x.com"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("emails should be removed with the user, got %v", err)
	}
}
