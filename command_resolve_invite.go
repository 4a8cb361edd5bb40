package enroll

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultInviteWindow is how long a pending invitation stays redeemable.
// Invitations grant registration, not a short-lived reset, so the window is
// wider than a verification code's.
var DefaultInviteWindow = "168h"

type ResolveInviteMessage struct {
	InviteID   string `json:"invite_id" doc:"Invitation identifier from the registration link."`
	OnResponse func(resp *ResolveInviteResponse)
}

func (m ResolveInviteMessage) Type() string { return "enroll.invite.resolve" }

// ResolveInviteResponse carries the read-only fields the registration form
// renders: the invited email and parish are not editable by the user.
type ResolveInviteResponse struct {
	Invitation *Invitation
	Email      string
	ParishName string
	Diocese    string
	Token      string
}

type ResolveInviteHandler struct {
	repo   RepositoryManager
	window string
}

func NewResolveInviteHandler(repo RepositoryManager) *ResolveInviteHandler {
	return &ResolveInviteHandler{
		repo:   repo,
		window: DefaultInviteWindow,
	}
}

// WithInviteWindow overrides the redemption window.
func (h *ResolveInviteHandler) WithInviteWindow(pattern string) *ResolveInviteHandler {
	if pattern != "" {
		h.window = pattern
	}
	return h
}

func (h *ResolveInviteHandler) Execute(ctx context.Context, event ResolveInviteMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during invite resolution")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResolveInviteHandler) execute(ctx context.Context, event ResolveInviteMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	invite, err := h.repo.Invitations().GetByID(ctx, event.InviteID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrInvitationNotFound.WithMetadata(map[string]any{
				"invite_id": event.InviteID,
			})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve invitation")
	}

	if !invite.IsPending() {
		return ErrInvitationConsumed.WithMetadata(map[string]any{
			"invite_id": event.InviteID,
			"status":    invite.Status,
		})
	}

	if invite.CreatedAt != nil {
		expired, err := IsOutsideThresholdPeriod(*invite.CreatedAt, h.window)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check invitation window")
		}
		if expired {
			// mark it so the next load short-circuits; best effort
			if merr := h.repo.Invitations().MarkExpired(ctx, invite.ID); merr != nil {
				return goerrors.Wrap(merr, goerrors.CategoryInternal, "failed to expire invitation")
			}
			return ErrInvitationExpired.WithMetadata(map[string]any{
				"invite_id": event.InviteID,
			})
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(&ResolveInviteResponse{
			Invitation: invite,
			Email:      invite.Email,
			ParishName: invite.ParishName,
			Diocese:    invite.Diocese,
			Token:      invite.Token,
		})
	}

	return nil
}
