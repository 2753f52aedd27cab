package login

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/eleven-am/guild-backend/internal/user"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_FindUser(t *testing.T) {
	users, logins := newTestStores(t)
	ctx := context.Background()
	resolver := NewResolver(users, logins, nil, testLogger())

	mustCreateUser(t, users, &user.User{ID: "usr_session", ImageURL: "https://cdn.example.com/session.jpg"})
	mustCreateUser(t, users, &user.User{ID: "usr_login", ImageURL: "https://cdn.example.com/login.jpg"})
	mustCreateUser(t, users, &user.User{
		ID:       "usr_email",
		ImageURL: "https://cdn.example.com/email.jpg",
		Emails:   []user.Email{{Email: "ada@example.com", Verified: true}},
	})
	mustCreateUser(t, users, &user.User{
		ID:       "usr_unverified",
		ImageURL: "https://cdn.example.com/unverified.jpg",
		Emails:   []user.Email{{Email: "bob@example.com"}},
	})
	if _, err := logins.Upsert(ctx, &Login{Provider: "facebook", ProviderID: "fb-login", UserID: "usr_login"}); err != nil {
		t.Fatalf("seed login: %v", err)
	}

	tests := []struct {
		name   string
		input  FindUserInput
		wantID string
	}{
		{
			name: "session beats provider login",
			input: FindUserInput{
				SessionUserID: "usr_session",
				Provider:      "facebook",
				Profile:       Profile{ID: "fb-login"},
			},
			wantID: "usr_session",
		},
		{
			name: "stale session falls through to login",
			input: FindUserInput{
				SessionUserID: "usr_deleted",
				Provider:      "facebook",
				Profile:       Profile{ID: "fb-login"},
			},
			wantID: "usr_login",
		},
		{
			name: "login is scoped to provider",
			input: FindUserInput{
				Provider: "google",
				Profile:  Profile{ID: "fb-login"},
			},
		},
		{
			name: "verified first email",
			input: FindUserInput{
				Provider: "google",
				Profile: Profile{
					ID:     "g-1",
					Emails: []ProfileEmail{{Value: "ADA@example.com", Verified: true}},
				},
			},
			wantID: "usr_email",
		},
		{
			name: "unverified provider email never merges",
			input: FindUserInput{
				Provider: "google",
				Profile: Profile{
					ID:     "g-2",
					Emails: []ProfileEmail{{Value: "ada@example.com", Verified: false}},
				},
			},
		},
		{
			name: "unverified stored email never merges",
			input: FindUserInput{
				Provider: "google",
				Profile: Profile{
					ID:     "g-3",
					Emails: []ProfileEmail{{Value: "bob@example.com", Verified: true}},
				},
			},
		},
		{
			name: "only the first email is considered",
			input: FindUserInput{
				Provider: "google",
				Profile: Profile{
					ID: "g-4",
					Emails: []ProfileEmail{
						{Value: "other@example.com", Verified: false},
						{Value: "ada@example.com", Verified: true},
					},
				},
			},
		},
		{
			name:  "nothing matches",
			input: FindUserInput{Provider: "github", Profile: Profile{ID: "gh-1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.FindUser(ctx, tt.input)
			if err != nil {
				t.Fatalf("FindUser() error = %v", err)
			}
			if tt.wantID == "" {
				if got != nil {
					t.Errorf("expected no user, got %s", got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %s, got nil", tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("expected %s, got %s", tt.wantID, got.ID)
			}
		})
	}
}

func TestResolver_UpgradeAvatar(t *testing.T) {
	users, logins := newTestStores(t)
	ctx := context.Background()
	resolver := NewResolver(users, logins, []string{"50x50", "s64"}, testLogger())

	tests := []struct {
		name    string
		current string
		photo   string
		want    string
	}{
		{name: "placeholder replaced", current: "https://cdn.example.com/50x50/a.jpg", photo: "https://cdn.example.com/large/a.jpg", want: "https://cdn.example.com/large/a.jpg"},
		{name: "second marker replaced", current: "https://cdn.example.com/s64/a.jpg", photo: "https://cdn.example.com/large/a.jpg", want: "https://cdn.example.com/large/a.jpg"},
		{name: "empty replaced", current: "", photo: "https://cdn.example.com/large/b.jpg", want: "https://cdn.example.com/large/b.jpg"},
		{name: "good avatar kept", current: "https://cdn.example.com/large/c.jpg", photo: "https://cdn.example.com/other.jpg", want: "https://cdn.example.com/large/c.jpg"},
		{name: "no photo keeps placeholder", current: "https://cdn.example.com/50x50/d.jpg", photo: "", want: "https://cdn.example.com/50x50/d.jpg"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := "usr_avatar_" + string(rune('a'+i))
			mustCreateUser(t, users, &user.User{ID: id, ImageURL: tt.current})

			profile := Profile{ID: "p"}
			if tt.photo != "" {
				profile.Photos = []ProfilePhoto{{Value: tt.photo}}
			}

			got, err := resolver.FindUser(ctx, FindUserInput{SessionUserID: id, Provider: "facebook", Profile: profile})
			if err != nil {
				t.Fatalf("FindUser() error = %v", err)
			}
			if got.ImageURL != tt.want {
				t.Errorf("returned image %q, want %q", got.ImageURL, tt.want)
			}

			stored, _ := users.GetByID(ctx, id)
			if stored.ImageURL != tt.want {
				t.Errorf("stored image %q, want %q", stored.ImageURL, tt.want)
			}
		})
	}
}

type failingUsers struct {
	UserFinder
	updateErr error
}

func (f failingUsers) UpdateImageURL(context.Context, string, string) error {
	return f.updateErr
}

func TestResolver_AvatarFailureIsBestEffort(t *testing.T) {
	users, logins := newTestStores(t)
	ctx := context.Background()
	mustCreateUser(t, users, &user.User{ID: "usr_fail", ImageURL: "https://cdn.example.com/50x50/x.jpg"})

	resolver := NewResolver(failingUsers{UserFinder: users, updateErr: errors.New("db down")}, logins, nil, testLogger())

	got, err := resolver.FindUser(ctx, FindUserInput{
		SessionUserID: "usr_fail",
		Profile:       Profile{ID: "p", Photos: []ProfilePhoto{{Value: "https://cdn.example.com/large/x.jpg"}}},
	})
	if err != nil {
		t.Fatalf("avatar failure should not fail the login: %v", err)
	}
	if got.ImageURL != "https://cdn.example.com/50x50/x.jpg" {
		t.Errorf("image should be unchanged, got %s", got.ImageURL)
	}
}
