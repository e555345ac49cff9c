package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is the minimal identity record attached to a live session.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
}

// Session holds the attributes of an authenticated session. The store that
// issued it is the authority over validity; consumers hold cached copies only.
type Session struct {
	Token          string         `json:"token,omitempty"`
	UserID         uuid.UUID      `json:"user_id"`
	Email          string         `json:"email,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// User returns the identity record associated with the session.
func (s *Session) User() *User {
	if s == nil {
		return nil
	}
	return &User{ID: s.UserID, Email: s.Email}
}

// Expired reports whether the session is past its expiration date.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpirationDate == nil {
		return false
	}
	return now.After(*s.ExpirationDate)
}

// TODO: enable only in development!
func (s Session) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s email=%s iss=%s iat=%s",
		s.UserID,
		s.Email,
		s.Issuer,
		issuedAt,
	)
}
