package dto

type EmailResponse struct {
	Email    string `json:"email" example:"ada@example.com"`
	Verified bool   `json:"verified" example:"true"`
}

type LoginResponse struct {
	ID         string `json:"id" example:"TG9naW46Z2l0aHViOjQy"`
	Provider   string `json:"provider" example:"github"`
	ProviderID string `json:"provider_id" example:"42"`
	Username   string `json:"username,omitempty" example:"octocat"`
	CreatedAt  string `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt  string `json:"updated_at" example:"2024-01-20T15:45:00Z"`
}

type UserSummary struct {
	ID          string `json:"id" example:"VXNlcjp1c3JfYWJjMTIz"`
	UserID      string `json:"user_id" example:"usr_abc123"`
	DisplayName string `json:"display_name" example:"Ada Lovelace"`
	ImageURL    string `json:"image_url,omitempty" example:"https://example.com/avatar.png"`
	LastSeenAt  string `json:"last_seen_at" example:"2024-01-20T15:45:00Z"`
}

// UserResponse is the full user view. Emails and logins are only present when
// the viewer is the user.
type UserResponse struct {
	UserSummary
	CreatedAt   string          `json:"created_at" example:"2024-01-15T10:30:00Z"`
	Emails      []EmailResponse `json:"emails,omitempty"`
	Logins      []LoginResponse `json:"logins,omitempty"`
	FriendCount int64           `json:"friend_count" example:"12"`
	Friends     []UserSummary   `json:"friends"`
}

type NodeResponse struct {
	Kind  string         `json:"kind" example:"User"`
	User  *UserResponse  `json:"user,omitempty"`
	Login *LoginResponse `json:"login,omitempty"`
}
