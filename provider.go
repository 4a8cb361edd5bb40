package enroll

import (
	"context"

	"github.com/google/uuid"
)

// AccountProvider is the external authentication service boundary. It owns
// credentials and email delivery; this workflow only supplies input and reads
// identifiers or failures back.
//
// CreateAccount errors classify as duplicate-email, weak-credential or an
// opaque provider failure (IsDuplicateEmail, IsWeakCredential).
// VerifyEmailCode errors classify through ClassifyVerifyFailure.
type AccountProvider interface {
	CreateAccount(ctx context.Context, email, password string) (uuid.UUID, error)
	VerifyEmailCode(ctx context.Context, code string) (string, error)
	SessionFromToken(token string) (Session, error)
}

// VerifyFailureReason is the provider's email-verification error classification.
type VerifyFailureReason string

const (
	VerifyReasonExpired  VerifyFailureReason = "expired"
	VerifyReasonInvalid  VerifyFailureReason = "invalid"
	VerifyReasonDisabled VerifyFailureReason = "disabled"
	VerifyReasonUnknown  VerifyFailureReason = "unknown"
)

// ClassifyVerifyFailure buckets a VerifyEmailCode error into the reasons the
// action page knows how to explain.
func ClassifyVerifyFailure(err error) VerifyFailureReason {
	switch {
	case err == nil:
		return ""
	case hasTextCode(err, TextCodeVerifyCodeExpired):
		return VerifyReasonExpired
	case hasTextCode(err, TextCodeVerifyCodeInvalid):
		return VerifyReasonInvalid
	case hasTextCode(err, TextCodeVerifyUserDisabled):
		return VerifyReasonDisabled
	default:
		return VerifyReasonUnknown
	}
}

// VerifyFailureMessage maps a classification onto the message shown on the
// terminal error view.
func VerifyFailureMessage(reason VerifyFailureReason) string {
	switch reason {
	case VerifyReasonExpired:
		return "This verification link has expired. Request a new one from your profile page."
	case VerifyReasonInvalid:
		return "This verification link is invalid or has already been used."
	case VerifyReasonDisabled:
		return "This account has been disabled. Contact your diocese administrator."
	default:
		return "Email verification failed. Request a new link and try again."
	}
}
