package types

// User represents an account managed through the admin panel.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Username is the unique, trimmed login name.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the bcrypt hash of the user's password. It is
	// serialised as "password" to keep the panel's wire format.
	PasswordHash string `json:"password" db:"password"`

	// Role holds the name of the role the user belongs to. It is a copy of
	// Role.Name, not a reference, and is only kept in sync by renames.
	Role string `json:"role" db:"role"`
}

// Identity is what a successful login returns.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Identity strips the credential material from a user record.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}
