package service

import "aurenix/internal/models"

type CredentialState int

const (
	StateNoSession CredentialState = iota
	StateAwaitingPassword
	StateComplete
)

func (s CredentialState) String() string {
	switch s {
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateComplete:
		return "complete"
	default:
		return "no_session"
	}
}

// Identity is the authenticated user as seen by one request. It is a value:
// changes produce a new Identity rather than mutating a shared one.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Role        models.UserRole
	HasPassword bool
	SessionID   string
}

func NewIdentity(user models.User, sessionID string) Identity {
	return Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		HasPassword: user.HasPassword(),
		SessionID:   sessionID,
	}
}

func (i Identity) WithRole(role models.UserRole) Identity {
	i.Role = role
	return i
}

func (i Identity) WithPassword() Identity {
	i.HasPassword = true
	return i
}

func (i Identity) State() CredentialState {
	switch {
	case i.UserID == "":
		return StateNoSession
	case !i.HasPassword:
		return StateAwaitingPassword
	default:
		return StateComplete
	}
}

// LandingPath is where a freshly authenticated identity is sent.
func LandingPath(role models.UserRole) string {
	switch role {
	case models.UserRoleCustomer:
		return "/customer"
	case models.UserRoleSeller:
		return "/seller"
	default:
		return "/aurenix"
	}
}
