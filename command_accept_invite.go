package enroll

import (
	"context"
	"crypto/subtle"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// AcceptInviteMessage completes a parish-secretary registration against a
// pending invitation. The email, parish and diocese come from the invitation
// record; the token must match the stored one exactly, case-sensitive, before
// any provider call is made.
type AcceptInviteMessage struct {
	InviteID        string `json:"invite_id"`
	Token           string `json:"token"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	OnResponse      func(outcome *RegistrationOutcome)
}

func (m AcceptInviteMessage) Type() string { return "enroll.invite.accept" }

type AcceptInviteHandler struct {
	repo     RepositoryManager
	provider AccountProvider
	resolver *ResolveInviteHandler
	sink     ActivitySink
	logger   Logger
	now      func() time.Time
}

// AcceptInviteOption customizes the handler.
type AcceptInviteOption func(*AcceptInviteHandler)

// WithAcceptActivitySink sets the sink receiving acceptance audit events.
func WithAcceptActivitySink(sink ActivitySink) AcceptInviteOption {
	return func(h *AcceptInviteHandler) {
		h.sink = normalizeActivitySink(sink)
	}
}

// WithAcceptLogger overrides the handler logger.
func WithAcceptLogger(l Logger) AcceptInviteOption {
	return func(h *AcceptInviteHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithAcceptClock injects a custom clock (useful for tests).
func WithAcceptClock(clock func() time.Time) AcceptInviteOption {
	return func(h *AcceptInviteHandler) {
		if clock != nil {
			h.now = clock
		}
	}
}

func NewAcceptInviteHandler(repo RepositoryManager, provider AccountProvider, opts ...AcceptInviteOption) *AcceptInviteHandler {
	h := &AcceptInviteHandler{
		repo:     repo,
		provider: provider,
		resolver: NewResolveInviteHandler(repo),
		sink:     noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

func (h *AcceptInviteHandler) Execute(ctx context.Context, event AcceptInviteMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during invite acceptance")
	default:
		return h.execute(ctx, event)
	}
}

func (h *AcceptInviteHandler) execute(ctx context.Context, event AcceptInviteMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var resolved *ResolveInviteResponse
	err := h.resolver.Execute(ctx, ResolveInviteMessage{
		InviteID: event.InviteID,
		OnResponse: func(resp *ResolveInviteResponse) {
			resolved = resp
		},
	})
	if err != nil {
		return err
	}

	invite := resolved.Invitation

	if subtle.ConstantTimeCompare([]byte(event.Token), []byte(invite.Token)) != 1 {
		return ErrInviteTokenMismatch.WithMetadata(map[string]any{
			"invite_id": event.InviteID,
		})
	}

	creds := Credentials{
		Name:            event.Name,
		Email:           invite.Email,
		Password:        event.Password,
		ConfirmPassword: event.ConfirmPassword,
	}
	if err := creds.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration input")
	}

	outcome := &RegistrationOutcome{}

	// step 1: credential with the external provider
	uid, err := h.provider.CreateAccount(ctx, invite.Email, event.Password)
	outcome.record(StepCreateAccount, err, h.now())
	if err != nil {
		h.respond(event, outcome)
		return err
	}
	outcome.UserID = uid

	// step 2: profile linked to the invitation's diocese and parish; a valid
	// invite is itself the approval, no pending gate
	profile := &UserProfile{
		ID:      uid,
		Email:   invite.Email,
		Name:    event.Name,
		Role:    RoleParishSecretary,
		Diocese: invite.Diocese,
		Parish:  invite.ParishName,
		Status:  InitialStatusFor(RoleParishSecretary, true),
	}

	created, err := h.repo.Profiles().Create(ctx, profile)
	outcome.record(StepWriteProfile, err, h.now())
	if err != nil {
		h.warnInconsistent(ctx, outcome, invite)
		h.respond(event, outcome)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write profile after account creation").
			WithTextCode(TextCodeInconsistentState).
			WithMetadata(map[string]any{
				"orphaned_credential": uid.String(),
				"invite_id":           event.InviteID,
			})
	}
	outcome.Profile = created

	// step 3: consume the invitation, recording who redeemed it
	err = h.repo.Invitations().Accept(ctx, invite.ID, uid.String(), invite.Email, event.Name)
	outcome.record(StepAcceptInvite, err, h.now())
	if err != nil {
		h.warnInconsistent(ctx, outcome, invite)
		h.respond(event, outcome)
		if IsInvitationConsumed(err) {
			return err
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark invitation accepted").
			WithTextCode(TextCodeInconsistentState).
			WithMetadata(map[string]any{
				"invite_id": event.InviteID,
			})
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventInviteAccepted,
		Actor:     ActorRef{ID: uid.String(), Type: "registrant"},
		UserID:    uid.String(),
		ToStatus:  created.Status,
		Metadata: map[string]any{
			"invite_id": invite.ID.String(),
			"parish":    invite.ParishName,
			"diocese":   invite.Diocese,
		},
		OccurredAt: h.now(),
	})

	h.respond(event, outcome)
	return nil
}

func (h *AcceptInviteHandler) respond(event AcceptInviteMessage, outcome *RegistrationOutcome) {
	if event.OnResponse != nil {
		event.OnResponse(outcome)
	}
}

func (h *AcceptInviteHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("failed to record activity event", "error", err)
	}
}

func (h *AcceptInviteHandler) warnInconsistent(ctx context.Context, outcome *RegistrationOutcome, invite *Invitation) {
	step, stepErr := outcome.FailedStep()
	event := ActivityEvent{
		EventType: ActivityEventInconsistentState,
		UserID:    outcome.UserID.String(),
		Metadata: map[string]any{
			"failed_step": string(step),
			"invite_id":   invite.ID.String(),
			"email":       invite.Email,
		},
		OccurredAt: h.now(),
	}
	if stepErr != nil {
		event.Metadata["error"] = stepErr.Error()
	}

	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("failed to record inconsistent state event", "error", err)
	}
}
