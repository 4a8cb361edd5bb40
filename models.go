package enroll

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// InviteStatus tracks the lifecycle of an invitation
type InviteStatus = string

const (
	// InviteStatusPending means the invitation can still be redeemed
	InviteStatusPending InviteStatus = "pending"
	// InviteStatusAccepted means the invitation was consumed by a registration
	InviteStatusAccepted InviteStatus = "accepted"
	// InviteStatusExpired means the invitation can no longer be redeemed
	InviteStatusExpired InviteStatus = "expired"
)

// Invitation is a pre-issued, single-use grant letting one email address
// register as a parish secretary for a named parish.
type Invitation struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string       `bun:"email,notnull" json:"email,omitempty"`
	Token         string       `bun:"token,notnull" json:"token,omitempty"`
	ParishName    string       `bun:"parish_name,notnull" json:"parish_name,omitempty"`
	Diocese       string       `bun:"diocese,notnull" json:"diocese,omitempty"`
	Status        InviteStatus `bun:"status,notnull" json:"status,omitempty"`
	AcceptedBy    string       `bun:"accepted_by" json:"accepted_by,omitempty"`
	AcceptedEmail string       `bun:"accepted_email" json:"accepted_email,omitempty"`
	AcceptedName  string       `bun:"accepted_name" json:"accepted_name,omitempty"`
	AcceptedAt    *time.Time   `bun:"accepted_at,nullzero" json:"accepted_at,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults the status for records created before the column existed
func (i *Invitation) EnsureStatus() {
	if i.Status == "" {
		i.Status = InviteStatusPending
	}
}

// IsPending reports whether the invitation can still be redeemed
func (i *Invitation) IsPending() bool {
	i.EnsureStatus()
	return i.Status == InviteStatusPending
}

// MarkAccepted records the consuming registrant for audit
func (i *Invitation) MarkAccepted(uid, email, name string, at time.Time) *Invitation {
	i.Status = InviteStatusAccepted
	i.AcceptedBy = uid
	i.AcceptedEmail = email
	i.AcceptedName = name
	i.AcceptedAt = &at
	return i
}

// ProfileStatus tracks approval state of a registered profile
type ProfileStatus = string

const (
	// ProfileStatusPending means the profile awaits review
	ProfileStatusPending ProfileStatus = "pending"
	// ProfileStatusApproved means the profile has full access
	ProfileStatusApproved ProfileStatus = "approved"
)

// UserProfile is the profile record written alongside the provider credential.
// The ID is the identifier the account provider returned.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:prf"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string        `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string        `bun:"name,notnull" json:"name,omitempty"`
	Role          Role          `bun:"role,notnull" json:"role,omitempty"`
	Diocese       string        `bun:"diocese,notnull" json:"diocese,omitempty"`
	Parish        string        `bun:"parish" json:"parish,omitempty"`
	Status        ProfileStatus `bun:"status,notnull" json:"status,omitempty"`
	ApprovedAt    *time.Time    `bun:"approved_at,nullzero" json:"approved_at,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults missing status to pending, the safe side of the gate
func (p *UserProfile) EnsureStatus() {
	if p.Status == "" {
		p.Status = ProfileStatusPending
	}
}

// IsApproved reports whether the profile cleared review
func (p *UserProfile) IsApproved() bool {
	p.EnsureStatus()
	return p.Status == ProfileStatusApproved
}

// IsPending reports whether the profile awaits review
func (p *UserProfile) IsPending() bool {
	p.EnsureStatus()
	return p.Status == ProfileStatusPending
}

// Credential is the email/password record owned by the local account
// provider. Real deployments keep credentials inside their managed auth
// service; this table backs the reference provider used in examples and tests.
type Credential struct {
	bun.BaseModel  `bun:"table:credentials,alias:crd"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"password_hash,omitempty"`
	EmailValidated bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	Disabled       bool       `bun:"is_disabled" json:"is_disabled,omitempty"`
	VerifyCode     string     `bun:"verify_code" json:"verify_code,omitempty"`
	VerifySentAt   *time.Time `bun:"verify_sent_at,nullzero" json:"verify_sent_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
