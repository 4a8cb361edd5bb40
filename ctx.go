package enroll

import (
	"context"
)

var sessionCtxKey = &contextKey{"session"}
var profileCtxKey = &contextKey{"profile"}

type contextKey struct {
	name string
}

// SessionContext carries the ambient auth state every protected page reads.
// It is passed explicitly so the gate stays a pure function of its inputs.
type SessionContext struct {
	Session Session
	Profile *UserProfile
}

// Authenticated reports whether a session user is present
func (sc SessionContext) Authenticated() bool {
	return sc.Session != nil && sc.Session.GetUserID() != ""
}

// WithSessionContext sets the SessionContext in the given context
func WithSessionContext(ctx context.Context, sc SessionContext) context.Context {
	ctx = context.WithValue(ctx, sessionCtxKey, sc.Session)
	return context.WithValue(ctx, profileCtxKey, sc.Profile)
}

// SessionFromContext finds the SessionContext in the context.
func SessionFromContext(ctx context.Context) (SessionContext, bool) {
	session, ok := ctx.Value(sessionCtxKey).(Session)
	if !ok {
		return SessionContext{}, false
	}
	profile, _ := ctx.Value(profileCtxKey).(*UserProfile)
	return SessionContext{Session: session, Profile: profile}, true
}

// ProfileFromContext finds the loaded profile from the context.
func ProfileFromContext(ctx context.Context) (*UserProfile, bool) {
	raw, ok := ctx.Value(profileCtxKey).(*UserProfile)
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}
