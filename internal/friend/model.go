package friend

import (
	"time"

	"github.com/eleven-am/guild-backend/internal/user"
)

// Edge is one direction of a friendship. Friendships are stored in both
// directions.
type Edge struct {
	UserID    string     `gorm:"primaryKey;size:64" json:"user_id"`
	FriendID  string     `gorm:"primaryKey;size:64;index" json:"friend_id"`
	User      *user.User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Friend    *user.User `gorm:"foreignKey:FriendID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Edge) TableName() string {
	return "user_friends"
}

type AddResult struct {
	UserID   string `json:"userId"`
	FriendID string `json:"friendId"`
	Created  bool   `json:"created"`
}

type Count struct {
	UserID string
	Total  int64
}
