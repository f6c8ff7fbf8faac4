package model

import "time"

// Roles recognised by the application.  Every account carries RoleUser
// implicitly; RoleHost is granted through the is_host flag and the
// companion hosts row.
const (
	RoleUser = "user"
	RoleHost = "host"
)

// User represents an account record as stored in the `users` table.
// The json tags are omitted because these structs are used internally by
// the repository layer; handlers build separate response payloads.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name (max 32 chars).
//  Email        – unique email address (max 254 chars).
//  FirstName    – given name (max 80 chars).
//  LastName     – family name (max 80 chars).
//  BirthDate    – optional date of birth; nil when not provided.
//  PasswordHash – bcrypt digest of the password, stored as raw bytes.
//  IsHost       – whether the user currently carries the host role.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64     // users.id
	Username     string     // users.username
	Email        string     // users.email
	FirstName    string     // users.first_name
	LastName     string     // users.last_name
	BirthDate    *time.Time // users.birth_date (nullable)
	PasswordHash []byte     // users.password_hash
	IsHost       bool       // users.is_host
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// Roles derives the capability set from the persisted flags.  The order is
// fixed: "user" always comes first, "host" is appended when the flag is set.
// The slice is rebuilt on every call so it always reflects current state.
func (u *User) Roles() []string {
	roles := []string{RoleUser}
	if u.IsHost {
		roles = append(roles, RoleHost)
	}
	return roles
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// Host is the one-to-one extension row for users who host clubs.  Its
// primary key is the owning user's id; the row exists exactly while the
// user's is_host flag is set.
type Host struct {
	UserID uint64  // hosts.user_id
	Bio    *string // hosts.bio (nullable)
}
