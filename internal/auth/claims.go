package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the session token payload. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// stateClaims carries the OAuth state round trip.
type stateClaims struct {
	jwt.RegisteredClaims
	RedirectURI string `json:"redirect_uri,omitempty"`
}
