package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the externally observable state of the Controller at a point
// in time. User is non-nil iff Session is non-nil; Profile is non-nil only
// when User is non-nil and may be transiently nil while provisioning is in
// flight. Consumers must treat the referenced records as read-only.
type Snapshot struct {
	Session   *Session
	User      *User
	Profile   *Profile
	IsLoading bool
}

// Authenticated reports whether the snapshot carries a live session.
func (s Snapshot) Authenticated() bool {
	return s.User != nil && s.Session != nil
}

// ControllerOption customizes controller construction.
type ControllerOption func(*Controller)

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithControllerActivitySink sets the ActivitySink used to publish lifecycle events.
func WithControllerActivitySink(sink ActivitySink) ControllerOption {
	return func(c *Controller) {
		c.sink = normalizeActivitySink(sink)
	}
}

// WithControllerClock injects a custom clock (useful for tests).
func WithControllerClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithResolutionScheduler overrides how profile resolutions are dispatched.
// The default runs each resolution on its own goroutine; tests inject a
// queue to pump resolutions deterministically.
func WithResolutionScheduler(schedule func(task func())) ControllerOption {
	return func(c *Controller) {
		if schedule != nil {
			c.schedule = schedule
		}
	}
}

// Controller owns the process-wide identity snapshot: who is currently
// authenticated and what is their profile. It is the single writer; every
// other component reads the snapshot or subscribes to changes.
//
// Lifecycle: Bootstrapping until Start resolves the initial session exactly
// once, then Authenticated or Anonymous driven purely by session-change
// notifications from the SessionStore.
type Controller struct {
	store    SessionStore
	profiles ProfileResolver
	logger   Logger
	sink     ActivitySink
	schedule func(task func())
	now      func() time.Time

	// dispatchMu serializes state transitions and listener fanout so
	// consumers observe changes in event-arrival order.
	dispatchMu sync.Mutex
	// mu guards snapshot reads; writers hold dispatchMu as well.
	mu   sync.RWMutex
	snap Snapshot

	// generation is bumped on every session-change event. A profile
	// resolution carries the generation of its originating event and is
	// discarded when a newer event has superseded it.
	generation uint64

	started   bool
	closed    bool
	sub       Subscription
	listeners []snapshotListener
	nextID    int
}

type snapshotListener struct {
	id int
	fn func(Snapshot)
}

// NewController returns a controller in the Bootstrapping state. Call Start
// to resolve the initial session and begin observing change notifications.
func NewController(store SessionStore, profiles ProfileResolver, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:    store,
		profiles: profiles,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		schedule: func(task func()) { go task() },
		now:      time.Now,
		snap:     Snapshot{IsLoading: true},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Start subscribes to session-change notifications and queries the store for
// an existing session exactly once. A query failure degrades to Anonymous.
// Bootstrapping is terminal: subsequent behavior is driven only by change
// notifications.
func (c *Controller) Start(ctx context.Context) error {
	c.dispatchMu.Lock()
	if c.closed {
		c.dispatchMu.Unlock()
		return ErrControllerClosed
	}
	if c.started {
		c.dispatchMu.Unlock()
		return ErrControllerStarted
	}
	c.started = true
	gen0 := c.generation
	c.dispatchMu.Unlock()

	// Subscribe before the initial query so a session change racing the
	// bootstrap is never lost; the generation check below keeps the two
	// paths ordered.
	sub := c.store.OnSessionChange(c.handleSessionChange)

	c.dispatchMu.Lock()
	if c.closed {
		c.dispatchMu.Unlock()
		sub.Unsubscribe()
		return ErrControllerClosed
	}
	c.sub = sub
	c.dispatchMu.Unlock()

	session, err := c.store.CurrentSession(ctx)
	if err != nil {
		c.logger.Error("bootstrap session query failed, settling anonymous", "error", err)
		session = nil
	}

	c.dispatchMu.Lock()
	if c.closed {
		c.dispatchMu.Unlock()
		return ErrControllerClosed
	}

	if c.generation != gen0 {
		// A change notification arrived while the query was in flight and
		// already settled the state; the stale bootstrap result is dropped.
		c.setLoadingLocked(false)
		c.dispatchMu.Unlock()
		return nil
	}

	gen := c.applyLocked(session)
	c.dispatchMu.Unlock()

	c.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventBootstrapSettled,
		UserID:    sessionUserID(session),
		Metadata:  map[string]any{"authenticated": session != nil},
	})

	if session != nil {
		c.scheduleResolution(gen, session.UserID)
	}

	return nil
}

// Close tears the controller down: the store subscription is cancelled and
// no state mutation happens afterwards, including from in-flight profile
// resolutions. The last snapshot remains readable.
func (c *Controller) Close() error {
	c.dispatchMu.Lock()
	if c.closed {
		c.dispatchMu.Unlock()
		return nil
	}
	c.closed = true
	sub := c.sub
	c.sub = nil
	c.listeners = nil
	c.dispatchMu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}

	return nil
}

// Snapshot returns the current state. It never blocks on store calls and is
// safe to call at any time, including before Start resolves; callers must
// check IsLoading before treating the state as settled.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Subscribe registers fn to observe every snapshot change, in the order the
// originating events arrived. The returned subscription must be released by
// the caller; Close drops all remaining listeners.
//
// fn runs on the dispatching goroutine with the dispatch lock held and must
// not call back into the controller (Subscribe, Unsubscribe, SignOut, Close);
// hand off to another goroutine when a callback needs to do so.
func (c *Controller) Subscribe(fn func(Snapshot)) Subscription {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, snapshotListener{id: id, fn: fn})

	return subscriptionFunc(func() {
		c.dispatchMu.Lock()
		defer c.dispatchMu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	})
}

// SignOut requests session invalidation from the store and clears local
// state regardless of the outcome (local-first logout). The remote error, if
// any, is returned so user-initiated flows can surface it.
func (c *Controller) SignOut(ctx context.Context) error {
	c.dispatchMu.Lock()
	if c.closed {
		c.dispatchMu.Unlock()
		return ErrControllerClosed
	}
	c.setLoadingLocked(true)
	c.dispatchMu.Unlock()

	err := c.store.SignOut(ctx)

	c.dispatchMu.Lock()
	if !c.closed {
		c.applyLocked(nil)
	}
	c.dispatchMu.Unlock()

	if err != nil {
		c.logger.Error("remote sign out failed, local state cleared", "error", err)
		c.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventSignOutFailure,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return err
	}

	return nil
}

func (c *Controller) handleSessionChange(event SessionEvent, session *Session) {
	c.dispatchMu.Lock()
	if c.closed {
		c.dispatchMu.Unlock()
		return
	}
	gen := c.applyLocked(session)
	c.dispatchMu.Unlock()

	switch event {
	case SessionEventSignedIn:
		c.recordActivity(context.Background(), ActivityEvent{
			EventType: ActivityEventSignedIn,
			UserID:    sessionUserID(session),
		})
	case SessionEventSignedOut:
		c.recordActivity(context.Background(), ActivityEvent{
			EventType: ActivityEventSignedOut,
		})
	}

	if session != nil {
		c.scheduleResolution(gen, session.UserID)
	}
}

// applyLocked re-enters the state decision procedure for a session value:
// non-nil transitions to Authenticated (session/user set synchronously,
// profile resolution scheduled by the caller), nil transitions to Anonymous.
// Callers hold dispatchMu.
func (c *Controller) applyLocked(session *Session) uint64 {
	c.mu.Lock()
	c.generation++
	gen := c.generation

	if session != nil {
		prev := c.snap.User
		c.snap.Session = session
		c.snap.User = session.User()
		// Keep the profile across refreshes of the same user; a different
		// user must never see the previous user's profile.
		if prev == nil || prev.ID != session.UserID {
			c.snap.Profile = nil
		}
	} else {
		c.snap.Session = nil
		c.snap.User = nil
		c.snap.Profile = nil
	}

	c.snap.IsLoading = false
	c.mu.Unlock()

	c.emitLocked()
	return gen
}

func (c *Controller) setLoadingLocked(loading bool) {
	c.mu.Lock()
	if c.snap.IsLoading == loading {
		c.mu.Unlock()
		return
	}
	c.snap.IsLoading = loading
	c.mu.Unlock()
	c.emitLocked()
}

func (c *Controller) emitLocked() {
	snap := c.Snapshot()
	for _, l := range c.listeners {
		l.fn(snap)
	}
}

func (c *Controller) scheduleResolution(gen uint64, userID uuid.UUID) {
	c.schedule(func() {
		c.resolveProfile(context.Background(), gen, userID)
	})
}

// resolveProfile looks the profile up and provisions the default row when —
// and only when — the repository reports not-found. Any other failure is
// logged and leaves the profile unset; loading completion never depends on
// this path.
func (c *Controller) resolveProfile(ctx context.Context, gen uint64, userID uuid.UUID) {
	provisioned := false

	profile, err := c.profiles.GetByUserID(ctx, userID)
	if err != nil && IsProfileNotFound(err) {
		profile, err = c.profiles.Provision(ctx, userID)
		provisioned = true
	}

	if err != nil {
		c.logger.Error("profile resolution failed", "user_id", userID, "error", err)
		c.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventProfileFetchFailure,
			UserID:    userID.String(),
			Metadata:  map[string]any{"error": err.Error()},
		})
		return
	}

	c.adoptProfile(ctx, gen, userID, profile, provisioned)
}

func (c *Controller) adoptProfile(ctx context.Context, gen uint64, userID uuid.UUID, profile *Profile, provisioned bool) {
	c.dispatchMu.Lock()

	if c.closed {
		c.dispatchMu.Unlock()
		return
	}

	stale := gen != c.generation
	if !stale {
		c.mu.RLock()
		stale = c.snap.User == nil || c.snap.User.ID != userID
		c.mu.RUnlock()
	}

	if stale {
		c.dispatchMu.Unlock()
		c.logger.Debug("discarding superseded profile resolution", "user_id", userID)
		c.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventResolutionDiscarded,
			UserID:    userID.String(),
		})
		return
	}

	c.mu.Lock()
	c.snap.Profile = profile
	c.mu.Unlock()
	c.emitLocked()
	c.dispatchMu.Unlock()

	if provisioned {
		c.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventProfileProvisioned,
			UserID:    userID.String(),
			Metadata:  map[string]any{"credits": profile.Credits},
		})
	}
}

func (c *Controller) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = c.now()
	}

	sink := normalizeActivitySink(c.sink)
	if err := sink.Record(ctx, event); err != nil {
		c.logger.Warn("controller activity sink error: %v", err)
	}
}

func sessionUserID(session *Session) string {
	if session == nil {
		return ""
	}
	return session.UserID.String()
}

type subscriptionFunc func()

func (f subscriptionFunc) Unsubscribe() {
	if f != nil {
		f()
	}
}
