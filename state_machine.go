package enroll

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_PROFILE_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_PROFILE_STATE"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid profile state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from approved,
// which this workflow treats as terminal (revocation is an external admin
// action outside the registry).
var ErrTerminalState = goerrors.New("profile state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor   ActorRef
	Profile *UserProfile
	From    ProfileStatus
	To      ProfileStatus
	Meta    TransitionMetadata
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionHookPhase identifies whether a hook ran before or after persistence.
type TransitionHookPhase string

const (
	HookPhaseBefore TransitionHookPhase = "before_transition"
	HookPhaseAfter  TransitionHookPhase = "after_transition"
)

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// ProfileStateMachine defines lifecycle operations for profiles.
type ProfileStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, profile *UserProfile, target ProfileStatus, opts ...TransitionOption) (*UserProfile, error)
	CurrentStatus(profile *UserProfile) ProfileStatus
}

// HookErrorHandler handles errors surfaced by transition hooks.
type HookErrorHandler func(ctx context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*profileStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *profileStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *profileStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineHookErrorHandler overrides how hook failures are propagated.
func WithStateMachineHookErrorHandler(handler HookErrorHandler) StateMachineOption {
	return func(sm *profileStateMachine) {
		if handler != nil {
			sm.hookErrorHandler = handler
		}
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *profileStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithForceTransition bypasses validation rules (use sparingly).
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithBeforeTransitionHook adds a hook executed before the status update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the status update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// WithApprovedTime overrides the timestamp recorded when entering approved.
func WithApprovedTime(t time.Time) TransitionOption {
	return func(opts *transitionOptions) {
		opts.approvedTime = &t
	}
}

// NewProfileStateMachine returns the default implementation backed by the
// provided repository.
func NewProfileStateMachine(profiles Profiles, opts ...StateMachineOption) ProfileStateMachine {
	sm := &profileStateMachine{
		profiles: profiles,
		transitions: map[ProfileStatus]map[ProfileStatus]struct{}{
			ProfileStatusPending: {
				ProfileStatusApproved: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		hookErrorHandler: func(ctx context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error {
			return defaultHookErrorHandler(ctx, phase, err, tc)
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type profileStateMachine struct {
	profiles         Profiles
	transitions      map[ProfileStatus]map[ProfileStatus]struct{}
	now              func() time.Time
	activitySink     ActivitySink
	logger           Logger
	hookErrorHandler HookErrorHandler
}

type transitionOptions struct {
	metadata     TransitionMetadata
	force        bool
	beforeHooks  []TransitionHook
	afterHooks   []TransitionHook
	approvedTime *time.Time
}

func (o *transitionOptions) cloneMetadata() TransitionMetadata {
	var cloned map[string]any
	if len(o.metadata.Metadata) > 0 {
		cloned = make(map[string]any, len(o.metadata.Metadata))
		for k, v := range o.metadata.Metadata {
			cloned[k] = v
		}
	}

	return TransitionMetadata{
		Reason:   o.metadata.Reason,
		Metadata: cloned,
	}
}

func (sm *profileStateMachine) Transition(ctx context.Context, actor ActorRef, profile *UserProfile, target ProfileStatus, opts ...TransitionOption) (*UserProfile, error) {
	if profile == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "profile is nil",
		})
	}

	profile.EnsureStatus()
	from := profile.Status
	if target == "" {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	if from == target {
		return profile, nil
	}

	options := sm.buildTransitionOptions(opts...)

	if from == ProfileStatusApproved && !options.force {
		return nil, ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if !options.force && !sm.canTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	ctxData := TransitionContext{
		Actor:   actor,
		Profile: profile,
		From:    from,
		To:      target,
		Meta:    options.cloneMetadata(),
	}

	if err := sm.runHooks(ctx, options.beforeHooks, ctxData, HookPhaseBefore); err != nil {
		return nil, err
	}

	statusOpts, approvedAt := sm.buildStatusOptions(target, options)

	updated, err := sm.profiles.UpdateStatus(ctx, profile.ID, target, statusOpts...)
	if err != nil {
		return nil, err
	}

	sm.applyUpdates(profile, updated, target, approvedAt)

	if err := sm.runHooks(ctx, options.afterHooks, ctxData, HookPhaseAfter); err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventProfileStatusChange,
		Actor:      actor,
		UserID:     profile.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   sm.transitionMetadata(ctxData.Meta),
		OccurredAt: sm.now(),
	})

	return profile, nil
}

func (sm *profileStateMachine) CurrentStatus(profile *UserProfile) ProfileStatus {
	if profile == nil {
		return ""
	}
	profile.EnsureStatus()
	return profile.Status
}

func (sm *profileStateMachine) buildTransitionOptions(opts ...TransitionOption) *transitionOptions {
	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

func (sm *profileStateMachine) canTransition(from, to ProfileStatus) bool {
	targets, ok := sm.transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

func (sm *profileStateMachine) buildStatusOptions(target ProfileStatus, options *transitionOptions) ([]StatusUpdateOption, *time.Time) {
	if target != ProfileStatusApproved {
		return nil, nil
	}

	approvedAt := options.approvedTime
	if approvedAt == nil {
		now := sm.now()
		approvedAt = &now
	}

	return []StatusUpdateOption{WithApprovalTime(*approvedAt)}, approvedAt
}

func (sm *profileStateMachine) applyUpdates(profile, updated *UserProfile, target ProfileStatus, approvedAt *time.Time) {
	profile.Status = target
	if approvedAt != nil {
		profile.ApprovedAt = approvedAt
	}
	if updated != nil {
		if updated.ApprovedAt != nil {
			profile.ApprovedAt = updated.ApprovedAt
		}
		if updated.UpdatedAt != nil {
			profile.UpdatedAt = updated.UpdatedAt
		}
	}
}

func (sm *profileStateMachine) runHooks(ctx context.Context, hooks []TransitionHook, data TransitionContext, phase TransitionHookPhase) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, data); err != nil {
			return sm.hookErrorHandler(ctx, phase, err, data)
		}
	}
	return nil
}

func (sm *profileStateMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	out := make(map[string]any, len(meta.Metadata)+1)
	for k, v := range meta.Metadata {
		out[k] = v
	}
	if meta.Reason != "" {
		out["reason"] = meta.Reason
	}
	return out
}

func (sm *profileStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := sm.activitySink.Record(ctx, event); err != nil {
		sm.logger.Error("failed to record transition activity", "error", err)
	}
}

func defaultHookErrorHandler(_ context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error {
	panic(fmt.Sprintf(
		"profile state machine hook failed during %s (%s -> %s): %v; provide WithStateMachineHookErrorHandler to convert hook errors",
		phase, tc.From, tc.To, err,
	))
}
