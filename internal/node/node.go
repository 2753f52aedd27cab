package node

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidID = errors.New("invalid global id")

// Kind tags the entity a global id points at.
type Kind string

const (
	KindUser  Kind = "User"
	KindLogin Kind = "Login"
)

func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindLogin:
		return true
	default:
		return false
	}
}

// ToGlobalID encodes kind and key into an opaque id.
func ToGlobalID(kind Kind, key string) string {
	return base64.StdEncoding.EncodeToString([]byte(string(kind) + ":" + key))
}

func FromGlobalID(id string) (Kind, string, error) {
	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return "", "", ErrInvalidID
	}

	kind, key, ok := strings.Cut(string(raw), ":")
	if !ok || key == "" || !Kind(kind).Valid() {
		return "", "", ErrInvalidID
	}
	return Kind(kind), key, nil
}

// LoginKey joins the composite login key for use inside a global id.
func LoginKey(provider, providerID string) string {
	return provider + ":" + providerID
}

func SplitLoginKey(key string) (provider, providerID string, ok bool) {
	provider, providerID, ok = strings.Cut(key, ":")
	if !ok || provider == "" || providerID == "" {
		return "", "", false
	}
	return provider, providerID, true
}
