package enroll

import (
	"github.com/goliatone/go-router"
)

// Decision is the Approval Gate's verdict for one page render.
type Decision string

const (
	// DecisionUnauthenticated means no session user: redirect to login
	DecisionUnauthenticated Decision = "unauthenticated"
	// DecisionRestricted means the role does not cover the page: access restricted card
	DecisionRestricted Decision = "restricted"
	// DecisionPendingApproval means the role covers the page but the profile awaits review
	DecisionPendingApproval Decision = "pending_approval"
	// DecisionGranted means the protected content renders
	DecisionGranted Decision = "granted"
)

// RoleSet is a page's required-role set.
type RoleSet map[Role]struct{}

// NewRoleSet builds a required-role set.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s RoleSet) Contains(role Role) bool {
	_, ok := s[role]
	return ok
}

// RequiredRolesFor derives the required-role set for a page category straight
// from the policy table, so pages never restate role strings.
func RequiredRolesFor(category PageCategory) RoleSet {
	return NewRoleSet(RolesForCategory(category)...)
}

// Evaluate is the gate itself: a pure function of the session context and the
// page's required roles. It holds no state between renders; every navigation
// re-evaluates from the latest loaded profile.
//
// The role check runs before the status check: a pending user on a page their
// role never covers sees the restricted card, not the awaiting-approval one.
func Evaluate(sc SessionContext, required RoleSet) Decision {
	if !sc.Authenticated() {
		return DecisionUnauthenticated
	}

	profile := sc.Profile
	if profile == nil || !profile.Role.IsValid() {
		return DecisionRestricted
	}

	if !required.Contains(profile.Role) {
		return DecisionRestricted
	}

	if !profile.IsApproved() {
		return DecisionPendingApproval
	}

	return DecisionGranted
}

// EvaluatePage runs the gate against a page category instead of an explicit
// role set.
func EvaluatePage(sc SessionContext, category PageCategory) Decision {
	return Evaluate(sc, RequiredRolesFor(category))
}

// GateView carries what the page renders for a given decision.
type GateView struct {
	Decision Decision
	Contact  string
	Redirect string
}

// ViewFor expands a decision into the render inputs the controller uses.
func ViewFor(sc SessionContext, decision Decision, loginRoute string) GateView {
	view := GateView{Decision: decision}
	switch decision {
	case DecisionUnauthenticated:
		view.Redirect = loginRoute
	case DecisionPendingApproval:
		if sc.Profile != nil {
			view.Contact = ApprovalContact(sc.Profile.Role)
		}
	}
	return view
}

// GateMiddleware guards a route group with the approval gate. The session
// loader resolves the current session and profile for this request; decisions
// other than granted are delegated to the handler so the page can render the
// matching card.
func GateMiddleware(
	category PageCategory,
	loadSession func(c router.Context) SessionContext,
	onDecision func(c router.Context, view GateView) error,
) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			sc := loadSession(c)
			decision := EvaluatePage(sc, category)
			if decision != DecisionGranted {
				return onDecision(c, ViewFor(sc, decision, "/login"))
			}
			c.SetContext(WithSessionContext(c.Context(), sc))
			return hf(c)
		}
	}
}
