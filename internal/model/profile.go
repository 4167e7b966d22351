package model

// Role values issued by the remote API.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsRole reports whether r is a known role.
func IsRole(r string) bool { return r == RoleUser || r == RoleAdmin }

// Profile is the snapshot of the signed-in account kept with the session.
// It is taken at login and never refreshed.
type Profile struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}
