package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// SessionEvent identifies why a session-change notification fired.
type SessionEvent string

const (
	SessionEventInitial   SessionEvent = "INITIAL_SESSION"
	SessionEventSignedIn  SessionEvent = "SIGNED_IN"
	SessionEventSignedOut SessionEvent = "SIGNED_OUT"
	SessionEventRefreshed SessionEvent = "TOKEN_REFRESHED"
)

// SessionChangeHandler receives session-change notifications in arrival order.
// A nil session means the user is no longer authenticated.
type SessionChangeHandler func(event SessionEvent, session *Session)

// Subscription is a handle to an active session-change registration.
type Subscription interface {
	Unsubscribe()
}

// SessionStore is the authority over the current authentication session.
// Implementations must deliver change notifications in the order the
// underlying session mutations happened.
type SessionStore interface {
	CurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(handler SessionChangeHandler) Subscription
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, redirectTarget string) (*User, error)
	SignOut(ctx context.Context) error
}

// ProfileResolver is the subset of the profile repository the controller
// needs to reconcile a session with its durable profile record.
type ProfileResolver interface {
	GetByUserID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Provision(ctx context.Context, id uuid.UUID) (*Profile, error)
}

// TokenService mints and validates session tokens
type TokenService interface {
	Generate(user *User) (string, error)
	Validate(token string) (*Session, error)
}

// Config holds identity options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetAuthRoute() string
	GetDefaultProtectedRoute() string
	GetRejectedRouteKey() string
	GetLoadingView() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
