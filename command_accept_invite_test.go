package enroll_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-enroll"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func acceptMessage(invite *enroll.Invitation) enroll.AcceptInviteMessage {
	return enroll.AcceptInviteMessage{
		InviteID:        invite.ID.String(),
		Token:           invite.Token,
		Name:            "Maria Santos",
		Password:        "Abcdef12",
		ConfirmPassword: "Abcdef12",
	}
}

func TestAcceptInvite(t *testing.T) {
	repo := newStubRepoManager()
	invite := pendingInvitation("secretary@parish.example", "St. Aloysius")
	repo.invitations.byID[invite.ID.String()] = invite

	provider := &MockAccountProvider{}
	sink := &recordingSink{}

	uid := uuid.New()
	provider.On("CreateAccount", mock.Anything, "secretary@parish.example", "Abcdef12").
		Return(uid, nil)

	handler := enroll.NewAcceptInviteHandler(repo, provider,
		enroll.WithAcceptActivitySink(sink),
	)

	var outcome *enroll.RegistrationOutcome
	msg := acceptMessage(invite)
	msg.OnResponse = func(o *enroll.RegistrationOutcome) { outcome = o }

	err := handler.Execute(context.Background(), msg)
	require.NoError(t, err)
	provider.AssertExpectations(t)

	require.NotNil(t, outcome)
	assert.True(t, outcome.Succeeded())

	// the profile inherits email, parish and diocese from the invitation and
	// arrives already approved
	require.Len(t, repo.profiles.created, 1)
	profile := repo.profiles.created[0]
	assert.Equal(t, "secretary@parish.example", profile.Email)
	assert.Equal(t, "St. Aloysius", profile.Parish)
	assert.Equal(t, "Archdiocese of Springfield", profile.Diocese)
	assert.Equal(t, enroll.RoleParishSecretary, profile.Role)
	assert.Equal(t, enroll.ProfileStatusApproved, profile.Status)

	// the invitation is consumed with an audit trail
	require.Len(t, repo.invitations.accepted, 1)
	assert.Equal(t, invite.ID, repo.invitations.accepted[0].ID)
	assert.Equal(t, uid.String(), repo.invitations.accepted[0].UID)
	assert.Equal(t, enroll.InviteStatusAccepted, invite.Status)

	events := sink.EventsOfType(enroll.ActivityEventInviteAccepted)
	require.Len(t, events, 1)
	assert.Equal(t, invite.ID.String(), events[0].Metadata["invite_id"])
}

func TestAcceptInviteTokenMismatchSkipsProvider(t *testing.T) {
	repo := newStubRepoManager()
	invite := pendingInvitation("secretary@parish.example", "St. Aloysius")
	invite.Token = "AbC123"
	repo.invitations.byID[invite.ID.String()] = invite

	provider := &MockAccountProvider{}
	handler := enroll.NewAcceptInviteHandler(repo, provider)

	tests := []string{
		"abc123", // case matters
		"AbC124",
		"",
	}

	for _, token := range tests {
		msg := acceptMessage(invite)
		msg.Token = token

		err := handler.Execute(context.Background(), msg)
		require.Error(t, err, token)
		assert.True(t, enroll.IsInviteTokenMismatch(err), token)
	}

	provider.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, repo.profiles.created)
}

func TestAcceptInviteValidatesAgainstInvitedEmail(t *testing.T) {
	repo := newStubRepoManager()
	invite := pendingInvitation("secretary@parish.example", "St. Aloysius")
	repo.invitations.byID[invite.ID.String()] = invite

	provider := &MockAccountProvider{}
	handler := enroll.NewAcceptInviteHandler(repo, provider)

	msg := acceptMessage(invite)
	msg.Password = "abc"
	msg.ConfirmPassword = "abc"

	err := handler.Execute(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password must be at least 8 characters.")
	provider.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcceptInviteSecondRedemptionFails(t *testing.T) {
	repo := newStubRepoManager()
	invite := pendingInvitation("secretary@parish.example", "St. Aloysius")
	repo.invitations.byID[invite.ID.String()] = invite

	provider := &MockAccountProvider{}
	provider.On("CreateAccount", mock.Anything, "secretary@parish.example", "Abcdef12").
		Return(uuid.New(), nil).Once()

	handler := enroll.NewAcceptInviteHandler(repo, provider)

	require.NoError(t, handler.Execute(context.Background(), acceptMessage(invite)))

	// the second submission finds the invitation consumed before any provider
	// call is made
	err := handler.Execute(context.Background(), acceptMessage(invite))
	require.Error(t, err)
	assert.True(t, enroll.IsInvitationConsumed(err))
	provider.AssertExpectations(t)
}

func TestAcceptInviteLostRaceSurfacesAsConsumed(t *testing.T) {
	repo := newStubRepoManager()
	invite := pendingInvitation("secretary@parish.example", "St. Aloysius")
	repo.invitations.byID[invite.ID.String()] = invite

	// the conditional update matched zero rows: someone else won between the
	// resolve and the accept
	repo.invitations.acceptErr = enroll.ErrInvitationConsumed
	provider := &MockAccountProvider{}
	sink := &recordingSink{}

	uid := uuid.New()
	provider.On("CreateAccount", mock.Anything, "secretary@parish.example", "Abcdef12").
		Return(uid, nil)

	handler := enroll.NewAcceptInviteHandler(repo, provider,
		enroll.WithAcceptActivitySink(sink),
	)

	var outcome *enroll.RegistrationOutcome
	msg := acceptMessage(invite)
	msg.OnResponse = func(o *enroll.RegistrationOutcome) { outcome = o }

	err := handler.Execute(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, enroll.IsInvitationConsumed(err))

	// account and profile were already written: that is an inconsistency the
	// reconciliation process picks up
	require.NotNil(t, outcome)
	assert.True(t, outcome.Inconsistent())

	events := sink.EventsOfType(enroll.ActivityEventInconsistentState)
	require.Len(t, events, 1)
	assert.Equal(t, string(enroll.StepAcceptInvite), events[0].Metadata["failed_step"])
}

func TestAcceptInviteProfileWriteFailure(t *testing.T) {
	repo := newStubRepoManager()
	invite := pendingInvitation("secretary@parish.example", "St. Aloysius")
	repo.invitations.byID[invite.ID.String()] = invite
	repo.profiles.createErr = errors.New("profile store unavailable")

	provider := &MockAccountProvider{}
	sink := &recordingSink{}

	uid := uuid.New()
	provider.On("CreateAccount", mock.Anything, "secretary@parish.example", "Abcdef12").
		Return(uid, nil)

	handler := enroll.NewAcceptInviteHandler(repo, provider,
		enroll.WithAcceptActivitySink(sink),
	)

	err := handler.Execute(context.Background(), acceptMessage(invite))
	require.Error(t, err)
	assert.True(t, enroll.IsInconsistentState(err))

	// the invitation stays pending: a fresh attempt can still redeem it
	assert.Equal(t, enroll.InviteStatusPending, invite.Status)
	assert.Empty(t, repo.invitations.accepted)

	events := sink.EventsOfType(enroll.ActivityEventInconsistentState)
	require.Len(t, events, 1)
	assert.Equal(t, uid.String(), events[0].UserID)
}

func TestAcceptInviteExpiredInvitation(t *testing.T) {
	repo := newStubRepoManager()
	invite := pendingInvitation("secretary@parish.example", "St. Aloysius")
	invite.Status = enroll.InviteStatusExpired
	repo.invitations.byID[invite.ID.String()] = invite

	provider := &MockAccountProvider{}
	handler := enroll.NewAcceptInviteHandler(repo, provider)

	err := handler.Execute(context.Background(), acceptMessage(invite))
	require.Error(t, err)
	assert.True(t, enroll.IsInvitationConsumed(err))
	provider.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
}
