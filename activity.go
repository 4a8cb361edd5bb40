package enroll

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistered          ActivityEventType = "enroll.registered"
	ActivityEventInviteAccepted      ActivityEventType = "enroll.invite.accepted"
	ActivityEventInconsistentState   ActivityEventType = "enroll.inconsistent_state"
	ActivityEventEmailVerified       ActivityEventType = "enroll.email.verified"
	ActivityEventEmailVerifyFailed   ActivityEventType = "enroll.email.verify_failed"
	ActivityEventProfileStatusChange ActivityEventType = "enroll.profile.status.changed"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus ProfileStatus
	ToStatus   ProfileStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// The inconsistent-state event is the hand-off point for the external
// reconciliation process: a credential exists with no profile behind it.
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
