package pubsub

import (
	"encoding/json"
	"slices"

	"github.com/tidwall/gjson"
)

// FilterArgs are the arguments a subscriber attached with.
type FilterArgs struct {
	UserIDs []string
}

func (a FilterArgs) Empty() bool {
	return len(a.UserIDs) == 0
}

// Predicate decides whether payload is delivered to a subscriber holding args.
type Predicate func(payload json.RawMessage, args FilterArgs) bool

func MatchAll(json.RawMessage, FilterArgs) bool {
	return true
}

// MatchUserIDs delivers everything to subscribers without user ids and
// otherwise only payloads whose userId is listed.
func MatchUserIDs(payload json.RawMessage, args FilterArgs) bool {
	if args.Empty() {
		return true
	}
	userID := gjson.GetBytes(payload, "userId")
	if !userID.Exists() {
		return false
	}
	return slices.Contains(args.UserIDs, userID.String())
}
