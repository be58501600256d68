package identity

import "errors"

var (
	ErrUserNotFound      = errors.New("identity: user not found")
	ErrWrongPassword     = errors.New("identity: wrong password")
	ErrEmailAlreadyInUse = errors.New("identity: email already in use")
	ErrNotSignedIn       = errors.New("identity: no user is signed in")
)
