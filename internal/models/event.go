package models

import "time"

type AuthEventType string

const (
	AuthEventAccountCreated AuthEventType = "account.created"
	AuthEventLogin          AuthEventType = "login"
	AuthEventLoginFailed    AuthEventType = "login.failed"
	AuthEventRoleChanged    AuthEventType = "role.changed"
	AuthEventPasswordSet    AuthEventType = "password.set"
	AuthEventLogout         AuthEventType = "logout"
)

type AuthEvent struct {
	ID     string
	Type   AuthEventType
	UserID string
	Email  string
	Detail string
	At     time.Time
}
