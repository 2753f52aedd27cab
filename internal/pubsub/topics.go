package pubsub

import "time"

type Topic string

const (
	TopicUserFriendAdded       Topic = "USER_FRIEND_ADDED"
	TopicUserLastSeenAtChanged Topic = "USER_LAST_SEEN_AT_CHANGED"
)

var knownTopics = map[Topic]struct{}{
	TopicUserFriendAdded:       {},
	TopicUserLastSeenAtChanged: {},
}

func ParseTopic(s string) (Topic, bool) {
	t := Topic(s)
	_, ok := knownTopics[t]
	return t, ok
}

func (t Topic) String() string {
	return string(t)
}

type UserFriendAdded struct {
	UserID   string `json:"userId"`
	FriendID string `json:"friendId"`
}

type UserLastSeenAtChanged struct {
	UserID     string    `json:"userId"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}
