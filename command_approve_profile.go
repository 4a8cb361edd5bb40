package enroll

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ApproveProfileMessage grants a pending registrant full access. Only
// chancery-side tooling issues it; the registration workflow never approves
// its own profiles.
type ApproveProfileMessage struct {
	ProfileID  string `json:"profile_id"`
	ApproverID string `json:"approver_id"`
	Reason     string `json:"reason"`
	OnResponse func(profile *UserProfile)
}

func (m ApproveProfileMessage) Type() string { return "enroll.profile.approve" }

type ApproveProfileHandler struct {
	repo RepositoryManager
	sm   ProfileStateMachine
}

func NewApproveProfileHandler(repo RepositoryManager, opts ...StateMachineOption) *ApproveProfileHandler {
	return &ApproveProfileHandler{
		repo: repo,
		sm:   NewProfileStateMachine(repo.Profiles(), opts...),
	}
}

func (h *ApproveProfileHandler) Execute(ctx context.Context, event ApproveProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during profile approval")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ApproveProfileHandler) execute(ctx context.Context, event ApproveProfileMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	profile, err := h.repo.Profiles().GetByID(ctx, event.ProfileID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrProfileNotFound.WithMetadata(map[string]any{
				"profile_id": event.ProfileID,
			})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve profile for approval")
	}

	opts := []TransitionOption{}
	if event.Reason != "" {
		opts = append(opts, WithTransitionReason(event.Reason))
	}

	approved, err := h.sm.Transition(ctx, ActorRef{ID: event.ApproverID, Type: "approver"}, profile, ProfileStatusApproved, opts...)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(approved)
	}

	return nil
}
