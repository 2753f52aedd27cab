package login

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eleven-am/guild-backend/internal/shared"
	"github.com/eleven-am/guild-backend/internal/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

func newTestStores(t *testing.T) (*user.Store, *Store) {
	db := setupTestDB(t)
	users := user.NewStore(db)
	if err := users.Migrate(); err != nil {
		t.Fatalf("user migration failed: %v", err)
	}
	logins := NewStore(db)
	if err := logins.Migrate(); err != nil {
		t.Fatalf("login migration failed: %v", err)
	}
	return users, logins
}

func mustCreateUser(t *testing.T, users *user.Store, u *user.User) *user.User {
	t.Helper()
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestStore_Upsert(t *testing.T) {
	users, store := newTestStores(t)
	ctx := context.Background()

	mustCreateUser(t, users, &user.User{ID: "usr_a"})
	mustCreateUser(t, users, &user.User{ID: "usr_b"})

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	got, err := store.Upsert(ctx, &Login{
		Provider:   "facebook",
		ProviderID: "fb-1",
		UserID:     "usr_a",
		Username:   "ada",
		Tokens:     Tokens{AccessToken: "t1"},
		CreatedAt:  first,
		UpdatedAt:  first,
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if got.UserID != "usr_a" || got.Tokens.AccessToken != "t1" {
		t.Fatalf("unexpected login %+v", got)
	}

	t.Run("same owner refreshes", func(t *testing.T) {
		got, err := store.Upsert(ctx, &Login{
			Provider:   "facebook",
			ProviderID: "fb-1",
			UserID:     "usr_a",
			Username:   "ada",
			Tokens:     Tokens{AccessToken: "t2"},
			CreatedAt:  later,
			UpdatedAt:  later,
		})
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if got.Tokens.AccessToken != "t2" {
			t.Errorf("tokens should be refreshed, got %q", got.Tokens.AccessToken)
		}
		if !got.CreatedAt.Equal(first) {
			t.Errorf("created_at changed: %v", got.CreatedAt)
		}
		if !got.UpdatedAt.Equal(later) {
			t.Errorf("updated_at = %v, want %v", got.UpdatedAt, later)
		}
	})

	t.Run("other owner is left untouched", func(t *testing.T) {
		got, err := store.Upsert(ctx, &Login{
			Provider:   "facebook",
			ProviderID: "fb-1",
			UserID:     "usr_b",
			Username:   "intruder",
			Tokens:     Tokens{AccessToken: "t3"},
		})
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if got.UserID != "usr_a" {
			t.Errorf("owner changed to %s", got.UserID)
		}
		if got.Username != "ada" || got.Tokens.AccessToken != "t2" {
			t.Errorf("row should be unchanged, got %+v", got)
		}
	})

	var count int64
	store.db.Model(&Login{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 login row, got %d", count)
	}
}

func TestStore_GetByProvider(t *testing.T) {
	users, store := newTestStores(t)
	ctx := context.Background()

	mustCreateUser(t, users, &user.User{ID: "usr_a"})
	store.Upsert(ctx, &Login{Provider: "github", ProviderID: "42", UserID: "usr_a"})

	tests := []struct {
		name       string
		provider   string
		providerID string
		wantErr    error
	}{
		{name: "existing", provider: "github", providerID: "42"},
		{name: "other provider", provider: "google", providerID: "42", wantErr: shared.ErrNotFound},
		{name: "unknown id", provider: "github", providerID: "43", wantErr: shared.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetByProvider(ctx, tt.provider, tt.providerID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.UserID != "usr_a" {
				t.Errorf("unexpected owner %s", got.UserID)
			}
		})
	}
}

func TestStore_ListByUserIDs(t *testing.T) {
	users, store := newTestStores(t)
	ctx := context.Background()

	mustCreateUser(t, users, &user.User{ID: "usr_a"})
	mustCreateUser(t, users, &user.User{ID: "usr_b"})
	store.Upsert(ctx, &Login{Provider: "github", ProviderID: "1", UserID: "usr_a"})
	store.Upsert(ctx, &Login{Provider: "google", ProviderID: "2", UserID: "usr_a"})
	store.Upsert(ctx, &Login{Provider: "github", ProviderID: "3", UserID: "usr_b"})

	logins, err := store.ListByUserIDs(ctx, []string{"usr_a"})
	if err != nil {
		t.Fatalf("ListByUserIDs() error = %v", err)
	}
	if len(logins) != 2 {
		t.Errorf("expected 2 logins, got %d", len(logins))
	}
}

func TestStore_UserIDsByProviderIDs(t *testing.T) {
	users, store := newTestStores(t)
	ctx := context.Background()

	mustCreateUser(t, users, &user.User{ID: "usr_a"})
	mustCreateUser(t, users, &user.User{ID: "usr_b"})
	store.Upsert(ctx, &Login{Provider: "facebook", ProviderID: "fa", UserID: "usr_a"})
	store.Upsert(ctx, &Login{Provider: "facebook", ProviderID: "fb", UserID: "usr_b"})
	store.Upsert(ctx, &Login{Provider: "github", ProviderID: "fc", UserID: "usr_b"})

	got, err := store.UserIDsByProviderIDs(ctx, "facebook", []string{"fa", "fb", "fc", "fz"})
	if err != nil {
		t.Fatalf("UserIDsByProviderIDs() error = %v", err)
	}
	want := map[string]string{"fa": "usr_a", "fb": "usr_b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s -> %s, want %s", k, got[k], v)
		}
	}

	empty, err := store.UserIDsByProviderIDs(ctx, "facebook", nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty result, got %v, %v", empty, err)
	}
}

func TestTokens_ValueScan(t *testing.T) {
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Tokens{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: expiry}

	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var out Tokens
	if err := out.Scan(v); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if out.AccessToken != "a" || out.RefreshToken != "r" || !out.Expiry.Equal(expiry) {
		t.Errorf("unexpected tokens %+v", out)
	}

	if err := out.Scan(nil); err != nil || out.AccessToken != "" {
		t.Errorf("nil scan should reset tokens, got %+v, %v", out, err)
	}
	if err := out.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
