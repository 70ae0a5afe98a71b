package types

// UserType distinguishes the two account roles on the platform.
type UserType string

const (
	UserTypePatient UserType = "patient"
	UserTypeDoctor  UserType = "doctor"
)

// UserProfile is the cached display-name snapshot for a user identity.
// It is populated opportunistically from user_online payloads and from the
// profile resolver, and is never treated as authoritative account data.
type UserProfile struct {
	ID        string   `json:"id" db:"id"`
	FirstName string   `json:"firstName" db:"first_name"`
	LastName  string   `json:"lastName" db:"last_name"`
	UserType  UserType `json:"userType" db:"user_type"`
}

// PlaceholderProfile returns the fallback snapshot used when a sender has no
// cached profile at notification time.
func PlaceholderProfile(id string) *UserProfile {
	return &UserProfile{ID: id, FirstName: "Unknown", LastName: "User"}
}

// RoleGroup returns the per-type broadcast group name for a user identity
// (patient:<id> or doctor:<id>).
func RoleGroup(userType UserType, id string) string {
	if userType == UserTypeDoctor {
		return "doctor:" + id
	}
	return "patient:" + id
}
