package identity

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported lifecycle event categories.
type ActivityEventType string

const (
	ActivityEventBootstrapSettled    ActivityEventType = "identity.bootstrap.settled"
	ActivityEventSignedIn            ActivityEventType = "identity.session.signed_in"
	ActivityEventSignedOut           ActivityEventType = "identity.session.signed_out"
	ActivityEventSessionExpired      ActivityEventType = "identity.session.expired"
	ActivityEventSignInFailure       ActivityEventType = "identity.session.signin_failure"
	ActivityEventSignOutFailure      ActivityEventType = "identity.session.signout_failure"
	ActivityEventAccountRegistered   ActivityEventType = "identity.account.registered"
	ActivityEventProfileProvisioned  ActivityEventType = "identity.profile.provisioned"
	ActivityEventProfileFetchFailure ActivityEventType = "identity.profile.fetch_failure"
	ActivityEventResolutionDiscarded ActivityEventType = "identity.profile.resolution_discarded"
)

// ActivityEvent captures audit-friendly information about a lifecycle action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort; errors are logged and never block the lifecycle.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
