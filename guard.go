package identity

import "context"

// GuardDecision is the outcome of evaluating a protected view request.
type GuardDecision int

const (
	// GuardPending means the identity state is not settled yet; render a
	// neutral loading indicator and make no redirect decision.
	GuardPending GuardDecision = iota
	// GuardAllow means the protected content may render.
	GuardAllow
	// GuardRedirect means the user must authenticate first.
	GuardRedirect
)

// GuardResult carries the decision plus, for redirects, the authentication
// entry point and the originally requested path so the auth flow can return
// the user there after success.
type GuardResult struct {
	Decision   GuardDecision
	RedirectTo string
	From       string
}

// AccessGuardOption customizes guard construction.
type AccessGuardOption func(*AccessGuard)

// WithGuardNotifier sets the sink for the "authentication required" notice.
func WithGuardNotifier(n Notifier) AccessGuardOption {
	return func(g *AccessGuard) {
		g.notifier = normalizeNotifier(n)
	}
}

// WithGuardLogger overrides the guard logger.
func WithGuardLogger(l Logger) AccessGuardOption {
	return func(g *AccessGuard) {
		if l != nil {
			g.logger = l
		}
	}
}

// AccessGuard decides whether a protected view may render. It is stateless;
// callers re-evaluate on every snapshot or destination change, so a session
// that expires while a protected view is open triggers the redirect.
type AccessGuard struct {
	authRoute string
	notifier  Notifier
	logger    Logger
}

// NewAccessGuard builds a guard redirecting to the configured auth route.
func NewAccessGuard(cfg Config, opts ...AccessGuardOption) *AccessGuard {
	authRoute := "/auth"
	if cfg != nil && cfg.GetAuthRoute() != "" {
		authRoute = cfg.GetAuthRoute()
	}

	g := &AccessGuard{
		authRoute: authRoute,
		notifier:  noopNotifier{},
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Evaluate maps a snapshot and requested destination to a decision. While the
// snapshot is loading no redirect decision is made, which avoids a flash
// redirect before bootstrap completes.
func (g *AccessGuard) Evaluate(ctx context.Context, snap Snapshot, requestedPath string) GuardResult {
	if snap.IsLoading {
		return GuardResult{Decision: GuardPending}
	}

	if snap.User == nil {
		g.logger.Info("no authenticated user, redirecting to auth", "path", requestedPath)

		if err := g.notifier.Notify(ctx, Notification{
			Title:       "Authentication Required",
			Description: "Please sign in to access this page",
			Severity:    SeverityError,
		}); err != nil {
			g.logger.Warn("guard notifier error: %v", err)
		}

		return GuardResult{
			Decision:   GuardRedirect,
			RedirectTo: g.authRoute,
			From:       requestedPath,
		}
	}

	return GuardResult{Decision: GuardAllow}
}
