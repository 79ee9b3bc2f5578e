package session

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors what the quiz backend puts in its tokens. Student tokens
// carry student_id; admin tokens carry role=admin.
type Claims struct {
	StudentID json.Number `json:"student_id,omitempty"`
	Role      string      `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes token claims without verifying the signature. The
// client never holds the signing key; the backend stays the authority and
// rejects bad tokens with 401.
func Inspect(token string) (*Claims, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ExpiredAt reports whether the exp claim is set and already past. Only
// used for display.
func (c *Claims) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}

// RoleFromToken guesses the role for a token stored without one.
func RoleFromToken(token string) Role {
	c, err := Inspect(token)
	if err == nil && c.Role == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleStudent
}
