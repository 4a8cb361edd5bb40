package enroll

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvitationNotFound  = "enroll_invitation_not_found"
	TextCodeInvitationConsumed  = "enroll_invitation_consumed"
	TextCodeInvitationExpired   = "enroll_invitation_expired"
	TextCodeTokenMismatch       = "enroll_invite_token_mismatch"
	TextCodeDuplicateEmail      = "enroll_duplicate_email"
	TextCodeWeakCredential      = "enroll_weak_credential"
	TextCodeProviderFailure     = "enroll_provider_failure"
	TextCodeInconsistentState   = "enroll_inconsistent_state"
	TextCodeSelfRegisterClosed  = "enroll_self_register_disabled"
	TextCodeInviteRedeemClosed  = "enroll_invite_redeem_disabled"
	TextCodeVerifyCodeExpired   = "enroll_verify_code_expired"
	TextCodeVerifyCodeInvalid   = "enroll_verify_code_invalid"
	TextCodeVerifyUserDisabled  = "enroll_verify_user_disabled"
	TextCodeProfileNotFound     = "enroll_profile_not_found"
	TextCodeUnknownActionMode   = "enroll_unknown_action_mode"
)

// ErrInvitationNotFound is returned when no invitation matches the identifier.
var ErrInvitationNotFound = goerrors.New("invitation not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeInvitationNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvitationConsumed is returned when the invitation is no longer pending.
var ErrInvitationConsumed = goerrors.New("invitation already used", goerrors.CategoryConflict).
	WithTextCode(TextCodeInvitationConsumed).
	WithCode(goerrors.CodeConflict)

// ErrInvitationExpired is returned when a pending invitation aged past the redemption window.
var ErrInvitationExpired = goerrors.New("invitation expired", goerrors.CategoryConflict).
	WithTextCode(TextCodeInvitationExpired).
	WithCode(goerrors.CodeConflict)

// ErrInviteTokenMismatch is returned when the supplied token does not match
// the invitation's token. Checked locally, before any provider call.
var ErrInviteTokenMismatch = goerrors.New("invitation token does not match", goerrors.CategoryBadInput).
	WithTextCode(TextCodeTokenMismatch).
	WithCode(goerrors.CodeBadRequest)

// ErrDuplicateEmail is returned when the account provider already holds a
// credential for the email.
var ErrDuplicateEmail = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrWeakCredential is returned when the provider rejects the password.
var ErrWeakCredential = goerrors.New("password rejected by account provider", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakCredential).
	WithCode(goerrors.CodeBadRequest)

// ErrProviderFailure wraps opaque account-provider failures.
var ErrProviderFailure = goerrors.New("account provider request failed", goerrors.CategoryOperation).
	WithTextCode(TextCodeProviderFailure).
	WithCode(goerrors.CodeInternal)

// ErrProfileNotFound is returned when no profile exists for a session user.
var ErrProfileNotFound = goerrors.New("user profile not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrSelfRegisterDisabled is returned when the self-registration flow is gated off.
var ErrSelfRegisterDisabled = goerrors.New("self registration is disabled", goerrors.CategoryAuthz).
	WithTextCode(TextCodeSelfRegisterClosed).
	WithCode(goerrors.CodeForbidden)

// ErrInviteRedeemDisabled is returned when invite redemption is gated off.
var ErrInviteRedeemDisabled = goerrors.New("invitation redemption is disabled", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInviteRedeemClosed).
	WithCode(goerrors.CodeForbidden)

// ErrVerifyCodeExpired is returned for verification codes past their window.
var ErrVerifyCodeExpired = goerrors.New("verification code expired", goerrors.CategoryBadInput).
	WithTextCode(TextCodeVerifyCodeExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrVerifyCodeInvalid is returned for codes the provider does not recognize.
var ErrVerifyCodeInvalid = goerrors.New("verification code invalid", goerrors.CategoryBadInput).
	WithTextCode(TextCodeVerifyCodeInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrVerifyUserDisabled is returned when the account behind the code is disabled.
var ErrVerifyUserDisabled = goerrors.New("account is disabled", goerrors.CategoryAuthz).
	WithTextCode(TextCodeVerifyUserDisabled).
	WithCode(goerrors.CodeForbidden)

// ErrUnknownActionMode is returned for callback modes the redirector does not handle.
var ErrUnknownActionMode = goerrors.New("unknown auth action mode", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUnknownActionMode).
	WithCode(goerrors.CodeBadRequest)

// hasTextCode matches rich errors by their text code, surviving wrapping.
func hasTextCode(err error, code string) bool {
	for err != nil {
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			return false
		}
		if richErr.TextCode == code {
			return true
		}
		err = richErr.Source
	}
	return false
}

// IsDuplicateEmail checks provider duplicate-email rejections
func IsDuplicateEmail(err error) bool {
	return hasTextCode(err, TextCodeDuplicateEmail)
}

// IsWeakCredential checks provider weak-password rejections
func IsWeakCredential(err error) bool {
	return hasTextCode(err, TextCodeWeakCredential)
}

// IsInvitationConsumed checks already-used invitation errors
func IsInvitationConsumed(err error) bool {
	return hasTextCode(err, TextCodeInvitationConsumed)
}

// IsInvitationNotFound checks unknown-invitation errors
func IsInvitationNotFound(err error) bool {
	return hasTextCode(err, TextCodeInvitationNotFound)
}

// IsInvitationExpired checks aged-out invitation errors
func IsInvitationExpired(err error) bool {
	return hasTextCode(err, TextCodeInvitationExpired)
}

// IsInviteTokenMismatch checks wrong-token redemption attempts
func IsInviteTokenMismatch(err error) bool {
	return hasTextCode(err, TextCodeTokenMismatch)
}

// IsInconsistentState checks for saga failures that left an orphaned credential
func IsInconsistentState(err error) bool {
	return hasTextCode(err, TextCodeInconsistentState)
}
