package identity

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// TokenSessionStore is a SessionStore backed by the accounts repository and
// signed session tokens. It keeps the active session in memory and fans out
// change notifications to subscribers in the order mutations happen.
type TokenSessionStore struct {
	accounts Accounts
	tokens   TokenService
	logger   Logger
	sink     ActivitySink
	now      func() time.Time

	mu        sync.Mutex
	current   *Session
	expiry    *time.Timer
	handlers  []storeHandler
	handlerID int
}

type storeHandler struct {
	id int
	fn SessionChangeHandler
}

// TokenSessionStoreOption customizes store construction.
type TokenSessionStoreOption func(*TokenSessionStore)

// WithStoreLogger overrides the store logger.
func WithStoreLogger(l Logger) TokenSessionStoreOption {
	return func(s *TokenSessionStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStoreActivitySink sets the sink for sign-in/out and registration events.
func WithStoreActivitySink(sink ActivitySink) TokenSessionStoreOption {
	return func(s *TokenSessionStore) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithStoreClock injects a custom clock (useful for tests).
func WithStoreClock(clock func() time.Time) TokenSessionStoreOption {
	return func(s *TokenSessionStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

var _ SessionStore = (*TokenSessionStore)(nil)

// NewTokenSessionStore builds a store over the given accounts repository and
// token service.
func NewTokenSessionStore(accounts Accounts, tokens TokenService, opts ...TokenSessionStoreOption) *TokenSessionStore {
	s := &TokenSessionStore{
		accounts: accounts,
		tokens:   tokens,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// CurrentSession returns the active session, or nil when anonymous. An
// expired session is treated as absent and torn down as if it had been
// signed out, so subscribers observe the expiry as a change notification.
func (s *TokenSessionStore) CurrentSession(_ context.Context) (*Session, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == nil {
		return nil, nil
	}

	if current.Expired(s.now()) {
		s.expire(current)
		return nil, nil
	}

	return current, nil
}

// OnSessionChange registers a handler for session mutations.
func (s *TokenSessionStore) OnSessionChange(handler SessionChangeHandler) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlerID++
	id := s.handlerID
	s.handlers = append(s.handlers, storeHandler{id: id, fn: handler})

	return subscriptionFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, h := range s.handlers {
			if h.id == id {
				s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
				return
			}
		}
	})
}

// SignInWithPassword verifies the credentials and establishes a session.
func (s *TokenSessionStore) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.recordActivity(ctx, ActivityEvent{
				EventType: ActivityEventSignInFailure,
				Metadata:  map[string]any{"email": email, "error": "account not found"},
			})
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during sign in")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventSignInFailure,
			UserID:    account.ID.String(),
			Metadata:  map[string]any{"email": email, "error": "password mismatch"},
		})
		return nil, ErrInvalidCredentials
	}

	user := account.User()
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	session, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	s.setSession(SessionEventSignedIn, session)

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSignedIn,
		UserID:    account.ID.String(),
	})

	return session, nil
}

// SignUp provisions a credential account. It does not establish a session;
// the caller directs the user through sign-in (redirectTarget is where the
// confirmation flow should land).
func (s *TokenSessionStore) SignUp(ctx context.Context, email, password, redirectTarget string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "unable to hash password").
			WithCode(errors.CodeBadRequest)
	}

	account, err := s.accounts.Register(ctx, &Account{
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		UserID:    account.ID.String(),
		Metadata:  map[string]any{"redirect_target": redirectTarget},
	})

	return account.User(), nil
}

// SignOut invalidates the active session and notifies subscribers. Signing
// out while anonymous is a no-op.
func (s *TokenSessionStore) SignOut(ctx context.Context) error {
	s.mu.Lock()
	hadSession := s.current != nil
	s.mu.Unlock()

	if !hadSession {
		return nil
	}

	s.setSession(SessionEventSignedOut, nil)

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSignedOut,
	})

	return nil
}

// Restore adopts a previously issued token, e.g. from a cookie, and emits a
// signed-in change when it validates.
func (s *TokenSessionStore) Restore(ctx context.Context, token string) (*Session, error) {
	session, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	s.setSession(SessionEventSignedIn, session)
	return session, nil
}

func (s *TokenSessionStore) setSession(event SessionEvent, session *Session) {
	s.mu.Lock()
	s.current = session
	s.stopExpiryLocked()
	if session != nil {
		s.armExpiryLocked(session)
	}
	handlers := make([]storeHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		h.fn(event, session)
	}
}

// armExpiryLocked schedules a teardown for when the session reaches its
// expiration date. Sessions without one never expire locally.
func (s *TokenSessionStore) armExpiryLocked(session *Session) {
	if session.ExpirationDate == nil {
		return
	}

	d := session.ExpirationDate.Sub(s.now())
	if d < 0 {
		d = 0
	}
	s.expiry = time.AfterFunc(d, func() {
		s.expire(session)
	})
}

func (s *TokenSessionStore) stopExpiryLocked() {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
}

// expire tears the session down and notifies subscribers with a signed-out
// change, provided it is still the active one. Runs from the expiry timer
// and from CurrentSession when it observes an already expired session.
func (s *TokenSessionStore) expire(session *Session) {
	s.mu.Lock()
	if s.current != session {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.stopExpiryLocked()
	handlers := make([]storeHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		h.fn(SessionEventSignedOut, nil)
	}

	s.recordActivity(context.Background(), ActivityEvent{
		EventType: ActivityEventSessionExpired,
		UserID:    session.UserID.String(),
	})
}

func (s *TokenSessionStore) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	sink := normalizeActivitySink(s.sink)
	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("session store activity sink error: %v", err)
	}
}
