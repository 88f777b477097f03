package service

import (
	"context"

	"aurenix/internal/models"
)

// UserStore is the slice of the user repository the services need.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) (bool, error)
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
	SetPasswordIfAbsent(ctx context.Context, id string, hash []byte) (bool, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	DeleteByID(ctx context.Context, id string) error
	CountByUser(ctx context.Context, userID string) (int, error)
	DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error
	Touch(ctx context.Context, sessionID string, ip string, userAgent string) error
}

type ProductStore interface {
	List(ctx context.Context, limit int) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error)
	Search(ctx context.Context, term string, limit int) ([]models.Product, error)
}

type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(password string, digest []byte) (bool, error)
	NeedsRehash(digest []byte) bool
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.AuthEvent)
}

type ImageSigner interface {
	URL(ctx context.Context, key string) (string, error)
}
