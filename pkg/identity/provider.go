package identity

import "context"

// CancelFunc removes a change listener.
type CancelFunc func()

// Provider is the external identity collaborator. It exposes exactly the
// operations the application depends on: email/password sign-in and
// sign-up, sign-out, and current-user change notifications.
//
// Implementations must invoke change listeners with nil on sign-out and
// with the new user on sign-in; listeners use that to tear down and
// re-open identity-scoped subscriptions.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error

	// CurrentUser returns the signed-in user or nil.
	CurrentUser() *User

	// OnChange registers a listener for auth-state transitions. The
	// listener fires once immediately with the current state.
	OnChange(fn func(*User)) CancelFunc
}
