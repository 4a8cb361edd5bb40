package enroll

import (
	"context"
	"time"
)

// Callback modes issued by the account provider's email links.
const (
	ActionModeVerifyEmail   = "verifyEmail"
	ActionModeResetPassword = "resetPassword"
)

// Default post-action navigation delays, long enough for the status message
// to be read.
const (
	DefaultVerifyRedirectDelay   = 3 * time.Second
	DefaultRegisterRedirectDelay = 2 * time.Second
)

// DefaultVerifyConfirmationRoute is where a verified user lands when the
// callback carried no continue URL.
var DefaultVerifyConfirmationRoute = "/email-verified"

// DefaultResetPasswordRoute is the password-reset entry view the code is
// forwarded to. The redirector never changes the password itself.
var DefaultResetPasswordRoute = "/reset-password"

// ActionRequest is the parsed auth-action callback.
type ActionRequest struct {
	Mode        string `form:"mode" json:"mode"`
	Code        string `form:"oobCode" json:"oobCode"`
	ContinueURL string `form:"continueUrl" json:"continueUrl"`
}

// ActionStatus is the terminal UI state of the action page.
type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusError   ActionStatus = "error"
)

// ActionResult tells the page what to render and where to navigate next.
type ActionResult struct {
	Status   ActionStatus
	Message  string
	Reason   VerifyFailureReason
	Email    string
	Redirect string
	Delay    time.Duration
}

// Redirector handles provider auth-action callbacks: it confirms email
// verification codes, forwards password-reset codes, and rejects unknown
// modes. No retries; the user requests a fresh link out-of-band.
type Redirector struct {
	provider AccountProvider
	sink     ActivitySink
	logger   Logger
	delay    time.Duration
}

// RedirectorOption customizes the redirector.
type RedirectorOption func(*Redirector)

// WithRedirectDelay overrides the post-verification navigation delay.
func WithRedirectDelay(d time.Duration) RedirectorOption {
	return func(r *Redirector) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithRedirectorActivitySink sets the sink receiving verification audit events.
func WithRedirectorActivitySink(sink ActivitySink) RedirectorOption {
	return func(r *Redirector) {
		r.sink = normalizeActivitySink(sink)
	}
}

// WithRedirectorLogger overrides the logger.
func WithRedirectorLogger(l Logger) RedirectorOption {
	return func(r *Redirector) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRedirector(provider AccountProvider, opts ...RedirectorOption) *Redirector {
	r := &Redirector{
		provider: provider,
		sink:     noopActivitySink{},
		logger:   defLogger{},
		delay:    DefaultVerifyRedirectDelay,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Handle dispatches one callback and returns the terminal page state.
func (r *Redirector) Handle(ctx context.Context, req ActionRequest) ActionResult {
	switch req.Mode {
	case ActionModeVerifyEmail:
		return r.verifyEmail(ctx, req)
	case ActionModeResetPassword:
		// forward the code unmodified; the reset view owns the password change
		return ActionResult{
			Status:   ActionStatusSuccess,
			Redirect: DefaultResetPasswordRoute + "?oobCode=" + req.Code,
		}
	default:
		r.logger.Error("unknown auth action mode", "mode", req.Mode)
		return ActionResult{
			Status:  ActionStatusError,
			Reason:  VerifyReasonUnknown,
			Message: "This link is not recognized. Request a new one and try again.",
		}
	}
}

func (r *Redirector) verifyEmail(ctx context.Context, req ActionRequest) ActionResult {
	email, err := r.provider.VerifyEmailCode(ctx, req.Code)
	if err != nil {
		reason := ClassifyVerifyFailure(err)
		r.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventEmailVerifyFailed,
			Metadata: map[string]any{
				"reason": string(reason),
			},
			OccurredAt: time.Now(),
		})
		return ActionResult{
			Status:  ActionStatusError,
			Reason:  reason,
			Message: VerifyFailureMessage(reason),
		}
	}

	r.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Metadata: map[string]any{
			"email": email,
		},
		OccurredAt: time.Now(),
	})

	redirect := req.ContinueURL
	if redirect == "" {
		redirect = DefaultVerifyConfirmationRoute
	}

	return ActionResult{
		Status:   ActionStatusSuccess,
		Message:  "Your email has been verified.",
		Email:    email,
		Redirect: redirect,
		Delay:    r.delay,
	}
}

// ScheduleRedirect arms the result's delayed navigation. Pages call Cancel on
// the returned handle when the user navigates away first.
func (r *Redirector) ScheduleRedirect(ctx context.Context, result ActionResult, navigate NavigationFunc) *ScheduledNavigation {
	if result.Redirect == "" {
		return nil
	}
	return ScheduleNavigation(ctx, result.Delay, result.Redirect, navigate)
}

func (r *Redirector) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := r.sink.Record(ctx, event); err != nil {
		r.logger.Error("failed to record activity event", "error", err)
	}
}
