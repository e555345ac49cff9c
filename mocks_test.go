package identity_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/goliatone/go-router"
	identity "github.com/smartlocal/go-identity"
	"github.com/stretchr/testify/mock"
)

// fakeSessionStore is a scriptable SessionStore. Tests drive session changes
// through Emit and read back what the controller asked of the store.
type fakeSessionStore struct {
	mu sync.Mutex

	session       *identity.Session
	sessionErr    error
	sessionHook   func()
	signOutErr    error
	signOutHook   func()
	signInSession *identity.Session
	signInErr     error
	signInEmails  []string
	signUpUser    *identity.User
	signUpErr     error

	handlers     []identity.SessionChangeHandler
	signOutCalls int
	unsubscribed int
}

func (s *fakeSessionStore) CurrentSession(_ context.Context) (*identity.Session, error) {
	s.mu.Lock()
	session, err := s.session, s.sessionErr
	hook := s.sessionHook
	s.mu.Unlock()

	// Lets tests interleave a session change with the in-flight query.
	if hook != nil {
		hook()
	}
	return session, err
}

func (s *fakeSessionStore) OnSessionChange(handler identity.SessionChangeHandler) identity.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers = append(s.handlers, handler)
	return fakeSubscription(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unsubscribed++
	})
}

func (s *fakeSessionStore) SignInWithPassword(_ context.Context, email, _ string) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signInEmails = append(s.signInEmails, email)
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	return s.signInSession, nil
}

func (s *fakeSessionStore) SignUp(_ context.Context, email, _, _ string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signUpErr != nil {
		return nil, s.signUpErr
	}
	if s.signUpUser != nil {
		return s.signUpUser, nil
	}
	return &identity.User{ID: uuid.New(), Email: email}, nil
}

func (s *fakeSessionStore) SignOut(context.Context) error {
	s.mu.Lock()
	s.signOutCalls++
	hook := s.signOutHook
	err := s.signOutErr
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

// Emit delivers a session change to every registered handler, as the real
// store does after a mutation.
func (s *fakeSessionStore) Emit(event identity.SessionEvent, session *identity.Session) {
	s.mu.Lock()
	handlers := make([]identity.SessionChangeHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		h(event, session)
	}
}

type fakeSubscription func()

func (f fakeSubscription) Unsubscribe() {
	if f != nil {
		f()
	}
}

// MockProfiles implements identity.ProfileResolver
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) GetByUserID(ctx context.Context, id uuid.UUID) (*identity.Profile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*identity.Profile)
	return profile, args.Error(1)
}

func (m *MockProfiles) Provision(ctx context.Context, id uuid.UUID) (*identity.Profile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*identity.Profile)
	return profile, args.Error(1)
}

// MockAccounts overrides the lookup and registration paths the token session
// store uses; the embedded interface covers the rest of the repository surface.
type MockAccounts struct {
	mock.Mock
	identity.Accounts
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*identity.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) Register(ctx context.Context, account *identity.Account) (*identity.Account, error) {
	args := m.Called(ctx, account)
	registered, _ := args.Get(0).(*identity.Account)
	return registered, args.Error(1)
}

// stubConfig implements identity.Config with fixed values.
type stubConfig struct {
	signingKey            string
	tokenExpiration       int
	issuer                string
	audience              []string
	authRoute             string
	defaultProtectedRoute string
	rejectedRouteKey      string
	loadingView           string
}

func newStubConfig() *stubConfig {
	return &stubConfig{
		signingKey:            "test-signing-key",
		tokenExpiration:       24,
		issuer:                "smartlocal",
		authRoute:             "/auth",
		defaultProtectedRoute: "/dashboard",
		rejectedRouteKey:      "rejected_route",
		loadingView:           "loading",
	}
}

func (c *stubConfig) GetSigningKey() string            { return c.signingKey }
func (c *stubConfig) GetTokenExpiration() int          { return c.tokenExpiration }
func (c *stubConfig) GetIssuer() string                { return c.issuer }
func (c *stubConfig) GetAudience() []string            { return c.audience }
func (c *stubConfig) GetAuthRoute() string             { return c.authRoute }
func (c *stubConfig) GetDefaultProtectedRoute() string { return c.defaultProtectedRoute }
func (c *stubConfig) GetRejectedRouteKey() string      { return c.rejectedRouteKey }
func (c *stubConfig) GetLoadingView() string           { return c.loadingView }

// taskQueue is a deterministic resolution scheduler: tasks run only when the
// test drains the queue.
type taskQueue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *taskQueue) Schedule(task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain runs queued tasks, including ones scheduled while draining.
func (q *taskQueue) Drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
		task()
	}
}

// captureSink records every activity event it sees.
type captureSink struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (s *captureSink) Record(_ context.Context, event identity.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Types() []identity.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]identity.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *captureSink) Has(eventType identity.ActivityEventType) bool {
	for _, t := range s.Types() {
		if t == eventType {
			return true
		}
	}
	return false
}

// captureNotifier records guard and controller notices.
type captureNotifier struct {
	mu      sync.Mutex
	notices []identity.Notification
}

func (n *captureNotifier) Notify(_ context.Context, notice identity.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func newSession(userID uuid.UUID, email string) *identity.Session {
	exp := time.Now().Add(time.Hour)
	return &identity.Session{
		Token:          "token-" + userID.String(),
		UserID:         userID,
		Email:          email,
		Issuer:         "smartlocal",
		ExpirationDate: &exp,
	}
}

// MockContext mocks router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
