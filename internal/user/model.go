package user

import (
	"strings"
	"time"
)

type User struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	ImageURL    string    `gorm:"size:512" json:"image_url,omitempty"`
	Emails      []Email   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"emails,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastSeenAt  time.Time `gorm:"not null" json:"last_seen_at"`
}

// Email is one address a user has presented through a provider. The same
// address may appear on several users, but only verified rows take part in
// identity resolution.
type Email struct {
	UserID   string `gorm:"primaryKey;size:64" json:"-"`
	Email    string `gorm:"primaryKey;size:254;index" json:"email"`
	Verified bool   `gorm:"not null;default:false" json:"verified"`
}

func (Email) TableName() string {
	return "user_emails"
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) PrimaryEmail() string {
	if len(u.Emails) == 0 {
		return ""
	}
	return u.Emails[0].Email
}
