package models

import "time"

type UserRole string

const (
	UserRoleUnassigned UserRole = "Unassigned"
	UserRoleCustomer   UserRole = "Customer"
	UserRoleSeller     UserRole = "Seller"
)

// Valid reports whether r is one of the role-scoped areas.
func (r UserRole) Valid() bool {
	return r == UserRoleCustomer || r == UserRoleSeller
}

type User struct {
	ID string
	// Email is stored lowercased and trimmed.
	Email string
	// PasswordHash is nil for federated accounts that have not set a password.
	PasswordHash []byte
	DisplayName  string
	Role         UserRole
	CreatedAt    time.Time
}

func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

type Session struct {
	ID         string
	UserID     string
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
