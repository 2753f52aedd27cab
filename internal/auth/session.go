package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	sessionCookieName = "guild_session"
	stateCookieName   = "guild_oauth_state"
	sessionTTL        = 7 * 24 * time.Hour
	stateTTL          = 10 * time.Minute
	issuer            = "guild-backend"
)

var (
	ErrExpiredToken = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidState = errors.New("invalid oauth state")
)

type SessionManager struct {
	key    []byte
	secure bool
	domain string
	now    func() time.Time
}

func NewSessionManager(key []byte, secure bool, domain string) *SessionManager {
	return &SessionManager{
		key:    key,
		secure: secure,
		domain: domain,
		now:    time.Now,
	}
}

func (s *SessionManager) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *SessionManager) parse(token string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredToken
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

// Issue returns a signed session token for userID.
func (s *SessionManager) Issue(userID string) (string, error) {
	now := s.now()
	return s.sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	}})
}

func (s *SessionManager) Validate(token string) (*Claims, error) {
	var claims Claims
	if err := s.parse(strings.TrimPrefix(token, "Bearer "), &claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}

func (s *SessionManager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *SessionManager) Create(c echo.Context, userID string) error {
	token, err := s.Issue(userID)
	if err != nil {
		return err
	}
	c.SetCookie(s.cookie(sessionCookieName, token, int(sessionTTL.Seconds())))
	return nil
}

func (s *SessionManager) Clear(c echo.Context) {
	c.SetCookie(s.cookie(sessionCookieName, "", -1))
}

// UserID returns the user id of a valid session on the request, or "". A
// bearer token takes precedence over the cookie.
func (s *SessionManager) UserID(c echo.Context) string {
	token := ""
	if header := c.Request().Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token = header
	} else if cookie, err := c.Cookie(sessionCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		return ""
	}

	claims, err := s.Validate(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// BeginOAuth issues a signed state for a provider redirect and pins it to the
// browser with a short-lived cookie.
func (s *SessionManager) BeginOAuth(c echo.Context, redirectURI string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate state nonce: %w", err)
	}

	now := s.now()
	state, err := s.sign(&stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        base64.RawURLEncoding.EncodeToString(nonce),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
		RedirectURI: redirectURI,
	})
	if err != nil {
		return "", err
	}

	c.SetCookie(s.cookie(stateCookieName, state, int(stateTTL.Seconds())))
	return state, nil
}

// CompleteOAuth checks the returned state against the cookie set by
// BeginOAuth and yields the redirect it carried.
func (s *SessionManager) CompleteOAuth(c echo.Context, state string) (string, error) {
	cookie, err := c.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != state {
		return "", ErrInvalidState
	}
	c.SetCookie(s.cookie(stateCookieName, "", -1))

	var claims stateClaims
	if err := s.parse(state, &claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return claims.RedirectURI, nil
}
