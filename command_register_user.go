package enroll

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RegisterUserMessage carries a self-registration request. The profile is
// written with status pending; an external reviewer approves it later.
type RegisterUserMessage struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            string `json:"role"`
	Diocese         string `json:"diocese"`
	Parish          string `json:"parish"`
	OnResponse      func(outcome *RegistrationOutcome)
}

func (m RegisterUserMessage) Type() string { return "enroll.user.register" }

type RegisterUserHandler struct {
	repo     RepositoryManager
	provider AccountProvider
	sink     ActivitySink
	logger   Logger
	now      func() time.Time
}

// RegisterHandlerOption customizes registration handlers.
type RegisterHandlerOption func(*RegisterUserHandler)

// WithRegisterActivitySink sets the sink receiving registration audit events.
func WithRegisterActivitySink(sink ActivitySink) RegisterHandlerOption {
	return func(h *RegisterUserHandler) {
		h.sink = normalizeActivitySink(sink)
	}
}

// WithRegisterLogger overrides the handler logger.
func WithRegisterLogger(l Logger) RegisterHandlerOption {
	return func(h *RegisterUserHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithRegisterClock injects a custom clock (useful for tests).
func WithRegisterClock(clock func() time.Time) RegisterHandlerOption {
	return func(h *RegisterUserHandler) {
		if clock != nil {
			h.now = clock
		}
	}
}

func NewRegisterUserHandler(repo RepositoryManager, provider AccountProvider, opts ...RegisterHandlerOption) *RegisterUserHandler {
	h := &RegisterUserHandler{
		repo:     repo,
		provider: provider,
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

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during user registration")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// everything local is checked before the first provider call
	creds := Credentials{
		Name:            event.Name,
		Email:           event.Email,
		Password:        event.Password,
		ConfirmPassword: event.ConfirmPassword,
	}
	if err := creds.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration input")
	}

	role, ok := ParseRole(event.Role)
	if !ok {
		return goerrors.New("unknown role for registration", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"role": event.Role})
	}

	if event.Diocese == "" {
		return goerrors.New("diocese is required", goerrors.CategoryValidation)
	}

	outcome := &RegistrationOutcome{}

	// step 1: credential with the external provider; on failure nothing else runs
	uid, err := h.provider.CreateAccount(ctx, event.Email, event.Password)
	outcome.record(StepCreateAccount, err, h.now())
	if err != nil {
		h.respond(event, outcome)
		return err
	}
	outcome.UserID = uid

	// step 2: profile document keyed by the provider id
	profile := &UserProfile{
		ID:      uid,
		Email:   event.Email,
		Name:    event.Name,
		Role:    role,
		Diocese: event.Diocese,
		Parish:  event.Parish,
		Status:  InitialStatusFor(role, false),
	}

	created, err := h.repo.Profiles().Create(ctx, profile)
	outcome.record(StepWriteProfile, err, h.now())
	if err != nil {
		h.warnInconsistent(ctx, outcome, event.Email)
		h.respond(event, outcome)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write profile after account creation").
			WithTextCode(TextCodeInconsistentState).
			WithMetadata(map[string]any{
				"orphaned_credential": uid.String(),
				"email":               event.Email,
			})
	}
	outcome.Profile = created

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegistered,
		Actor:     ActorRef{ID: uid.String(), Type: "registrant"},
		UserID:    uid.String(),
		ToStatus:  created.Status,
		Metadata: map[string]any{
			"role":    created.Role,
			"diocese": created.Diocese,
		},
		OccurredAt: h.now(),
	})

	h.respond(event, outcome)
	return nil
}

func (h *RegisterUserHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("failed to record activity event", "error", err)
	}
}

func (h *RegisterUserHandler) respond(event RegisterUserMessage, outcome *RegistrationOutcome) {
	if event.OnResponse != nil {
		event.OnResponse(outcome)
	}
}

func (h *RegisterUserHandler) warnInconsistent(ctx context.Context, outcome *RegistrationOutcome, email string) {
	step, stepErr := outcome.FailedStep()
	event := ActivityEvent{
		EventType: ActivityEventInconsistentState,
		UserID:    outcome.UserID.String(),
		Metadata: map[string]any{
			"failed_step": string(step),
			"email":       email,
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
