package pubsub

import (
	"encoding/json"
	"testing"
)

func TestMatchUserIDs(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		args    FilterArgs
		want    bool
	}{
		{name: "no filter", payload: `{"userId":"U1"}`, args: FilterArgs{}, want: true},
		{name: "listed user", payload: `{"userId":"U1"}`, args: FilterArgs{UserIDs: []string{"U1", "U3"}}, want: true},
		{name: "unlisted user", payload: `{"userId":"U2"}`, args: FilterArgs{UserIDs: []string{"U1"}}, want: false},
		{name: "missing userId", payload: `{"friendId":"U1"}`, args: FilterArgs{UserIDs: []string{"U1"}}, want: false},
		{name: "friend id does not count", payload: `{"userId":"U2","friendId":"U1"}`, args: FilterArgs{UserIDs: []string{"U1"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchUserIDs(json.RawMessage(tt.payload), tt.args); got != tt.want {
				t.Errorf("MatchUserIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTopic(t *testing.T) {
	tests := []struct {
		in     string
		wantOK bool
	}{
		{in: "USER_FRIEND_ADDED", wantOK: true},
		{in: "USER_LAST_SEEN_AT_CHANGED", wantOK: true},
		{in: "user_friend_added", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			topic, ok := ParseTopic(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseTopic(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && topic.String() != tt.in {
				t.Errorf("topic = %s, want %s", topic, tt.in)
			}
		})
	}
}

func TestSubscription_OfferAppliesPredicate(t *testing.T) {
	sub := newSubscription(TopicUserFriendAdded, FilterArgs{UserIDs: []string{"U1"}}, MatchUserIDs, func() {})

	if sub.offer(json.RawMessage(`{"userId":"U2"}`)) {
		t.Error("payload for U2 should be filtered")
	}
	if !sub.offer(json.RawMessage(`{"userId":"U1"}`)) {
		t.Error("payload for U1 should be queued")
	}
	if sub.Pending() != 1 {
		t.Errorf("expected 1 pending, got %d", sub.Pending())
	}

	sub.Close()
	if sub.offer(json.RawMessage(`{"userId":"U1"}`)) {
		t.Error("closed subscription should not accept payloads")
	}
}
