package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"aurenix/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const usersEmailKey = "users_email_key"

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user and returns it with its creation time. The unique index
// on email decides races between concurrent inserts of the same address.
func (r *UserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, email, password_hash, display_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	if user.Role == "" {
		user.Role = models.UserRoleUnassigned
	}

	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Role,
	).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, usersEmailKey) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT id, email, password_hash, display_name, role, created_at
		FROM users WHERE email = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, email), "find user by email")
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `
		SELECT id, email, password_hash, display_name, role, created_at
		FROM users WHERE id = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, id), "get user")
}

func (r *UserRepository) scanOne(row pgx.Row, op string) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Role,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateRole sets the role and reports whether a row changed. Rows already
// holding role are left untouched.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	const query = `
		UPDATE users SET role = $2 WHERE id = $1 AND role <> $2
	`
	cmd, err := r.db.Exec(ctx, query, id, role)
	if err != nil {
		return false, fmt.Errorf("update role: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	const query = `
		UPDATE users SET password_hash = $2 WHERE id = $1
	`
	cmd, err := r.db.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPasswordIfAbsent stores hash only when the account has no password yet.
func (r *UserRepository) SetPasswordIfAbsent(ctx context.Context, id string, hash []byte) (bool, error) {
	const query = `
		UPDATE users SET password_hash = $2 WHERE id = $1 AND password_hash IS NULL
	`
	cmd, err := r.db.Exec(ctx, query, id, hash)
	if err != nil {
		return false, fmt.Errorf("set password: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}
