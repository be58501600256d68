package identity

// Role names as stored on the user profile record.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// StatusActive marks a usable account.
const StatusActive = "active"

// DefaultTokenBalance is granted to every new profile at sign-up.
const DefaultTokenBalance int64 = 10000

// User is the authenticated identity threaded through the components.
// A nil *User everywhere means "not signed in".
type User struct {
	ID           string
	Email        string
	Role         string
	Status       string
	TokenBalance int64
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
