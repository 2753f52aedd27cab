package dto

// QueryResponse carries whatever resolved alongside per-field errors. Data is
// null when the whole request failed validation.
type QueryResponse struct {
	Data   any               `json:"data" swaggertype:"object"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type AddFriendRequest struct {
	UserID   string `json:"user_id" validate:"required,max=64" example:"usr_abc123"`
	FriendID string `json:"friend_id" validate:"required,max=64" example:"usr_def456"`
}

type AddFriendResponse struct {
	UserID   string `json:"user_id" example:"usr_abc123"`
	FriendID string `json:"friend_id" example:"usr_def456"`
	Created  bool   `json:"created" example:"true"`
}

type LastSeenResponse struct {
	UserID     string `json:"user_id" example:"usr_abc123"`
	LastSeenAt string `json:"last_seen_at" example:"2024-01-20T15:45:00Z"`
}

type SubscriptionEvent struct {
	Topic   string `json:"topic" example:"USER_FRIEND_ADDED"`
	Payload any    `json:"payload" swaggertype:"object"`
}
