package enroll

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStep names the sequential steps of the registration saga.
// There is no compensating rollback: the credential store and the profile
// store are two systems with no atomic cross-commit.
type RegistrationStep string

const (
	StepCreateAccount RegistrationStep = "create_account"
	StepWriteProfile  RegistrationStep = "write_profile"
	StepAcceptInvite  RegistrationStep = "accept_invite"
)

// StepOutcome records how one saga step ended.
type StepOutcome struct {
	Step RegistrationStep
	Err  error
	At   time.Time
}

// RegistrationOutcome is handed to OnResponse so callers (and the external
// reconciliation process) can see exactly which steps ran.
type RegistrationOutcome struct {
	UserID  uuid.UUID
	Profile *UserProfile
	Steps   []StepOutcome
}

func (o *RegistrationOutcome) record(step RegistrationStep, err error, at time.Time) {
	o.Steps = append(o.Steps, StepOutcome{Step: step, Err: err, At: at})
}

// Succeeded reports whether every recorded step completed.
func (o *RegistrationOutcome) Succeeded() bool {
	if len(o.Steps) == 0 {
		return false
	}
	for _, s := range o.Steps {
		if s.Err != nil {
			return false
		}
	}
	return true
}

// Inconsistent reports whether the saga left an orphaned credential: account
// creation succeeded but a later step failed.
func (o *RegistrationOutcome) Inconsistent() bool {
	var accountCreated bool
	for _, s := range o.Steps {
		switch s.Step {
		case StepCreateAccount:
			accountCreated = s.Err == nil
		default:
			if accountCreated && s.Err != nil {
				return true
			}
		}
	}
	return false
}

// FailedStep returns the first step that errored, if any.
func (o *RegistrationOutcome) FailedStep() (RegistrationStep, error) {
	for _, s := range o.Steps {
		if s.Err != nil {
			return s.Step, s.Err
		}
	}
	return "", nil
}
