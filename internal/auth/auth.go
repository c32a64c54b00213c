// Package auth covers password hashing, session tokens and the request
// context that carries the signed-in recruiter.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"recruitai/internal/storage"
)

const (
	CookieName        = "recruitai_session"
	MinPasswordLength = 8
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooLong    = errors.New("password is too long")
)

func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword returns ErrInvalidCredentials when password does not match hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// NewSession issues a session for userID valid for ttl from now.
func NewSession(userID int64, now time.Time, ttl time.Duration) *storage.Session {
	return &storage.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// TokenFromRequest reads the session token from the Authorization header or,
// failing that, the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// SessionCookie builds the cookie for s. A nil session yields a cookie that
// clears it.
func SessionCookie(s *storage.Session) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if s == nil {
		c.MaxAge = -1
		return c
	}
	c.Value = s.Token
	c.Expires = s.ExpiresAt
	return c
}

type contextKey struct{}

func WithUser(ctx context.Context, u *storage.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the signed-in user, or nil.
func UserFromContext(ctx context.Context) *storage.User {
	u, _ := ctx.Value(contextKey{}).(*storage.User)
	return u
}
