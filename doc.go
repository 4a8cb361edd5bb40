// Package enroll implements the registration and approval workflow of a
// diocese/heritage-church information system: invitation redemption,
// self-registration with reviewer approval, role-gated page access, and the
// auth-action callbacks (email verification, password reset) an external
// account provider sends back.
//
// Registration saga:
//   - RegisterUserHandler and AcceptInviteHandler run the strictly sequential
//     account -> profile -> invitation steps. The credential store and the
//     document store are two systems with no atomic cross-commit, so a
//     failure after account creation leaves an orphaned credential; the saga
//     records per-step outcomes and publishes an inconsistent-state activity
//     event for an external reconciliation process instead of rolling back.
//
// Approval gate:
//   - Evaluate is a pure function of (SessionContext, required roles). The
//     per-page required-role sets derive from a single policy table mapping
//     role and status to page categories; pages never restate role strings.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the saga handlers,
//     the redirector, and the profile state machine. Sinks run best-effort
//     (errors are logged) so density of auditing never blocks registration.
package enroll
