package login

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eleven-am/guild-backend/internal/shared"
	"github.com/eleven-am/guild-backend/internal/user"
	"golang.org/x/oauth2"
)

// Login is one external identity attached to a user. A (provider,
// provider_id) pair belongs to at most one user.
type Login struct {
	Provider   string         `gorm:"primaryKey;size:32" json:"provider"`
	ProviderID string         `gorm:"primaryKey;size:191" json:"provider_id"`
	UserID     string         `gorm:"size:64;not null;index" json:"user_id"`
	User       *user.User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Username   string         `gorm:"size:191" json:"username,omitempty"`
	Tokens     Tokens         `gorm:"type:json" json:"-"`
	Profile    shared.RawJSON `gorm:"type:json" json:"profile,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type Tokens struct {
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	TokenType    string    `json:"tokenType,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

func TokensFromOAuth(tok *oauth2.Token) Tokens {
	if tok == nil {
		return Tokens{}
	}
	return Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
}

func (t Tokens) Value() (driver.Value, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (t *Tokens) Scan(value any) error {
	if value == nil {
		*t = Tokens{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Tokens", value)
	}
	if len(data) == 0 {
		*t = Tokens{}
		return nil
	}
	return json.Unmarshal(data, t)
}

// Profile is the normalized shape every provider maps its user info into.
type Profile struct {
	ID          string
	Username    string
	DisplayName string
	Emails      []ProfileEmail
	Photos      []ProfilePhoto
	Raw         json.RawMessage
}

type ProfileEmail struct {
	Value    string
	Verified bool
}

type ProfilePhoto struct {
	Value string
}

// FirstEmail returns the provider's primary address. Only this address takes
// part in identity resolution.
func (p Profile) FirstEmail() (ProfileEmail, bool) {
	if len(p.Emails) == 0 {
		return ProfileEmail{}, false
	}
	return p.Emails[0], true
}

func (p Profile) FirstPhoto() string {
	if len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0].Value
}

func (p Profile) snapshot() shared.RawJSON {
	if len(p.Raw) > 0 && json.Valid(p.Raw) {
		return shared.RawJSON(p.Raw)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return shared.RawJSON(data)
}
