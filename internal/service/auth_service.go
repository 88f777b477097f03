package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"aurenix/internal/ids"
	"aurenix/internal/metrics"
	"aurenix/internal/models"
	"aurenix/internal/oauth"
	"aurenix/internal/repository"
)

const MinPasswordLength = 6

type AuthService struct {
	users    UserStore
	hasher   PasswordHasher
	events   EventPublisher
	metrics  *metrics.Metrics
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	hasher PasswordHasher,
	events EventPublisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AuthService {
	if events == nil {
		events = noopPublisher{}
	}
	return &AuthService{
		users:    users,
		hasher:   hasher,
		events:   events,
		metrics:  m,
		validate: validator.New(),
		log:      log,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) validateRegistration(input RegisterInput) error {
	if strings.TrimSpace(input.DisplayName) == "" {
		return &ValidationError{Field: "name", Message: "Please enter your name"}
	}
	if err := s.validate.Var(input.Email, "required,email"); err != nil {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if utf8.RuneCountInString(input.Password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// Register creates a local account. The unique index on email decides
// duplicates; a conflict surfaces as ErrEmailRegistered.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if err := s.validateRegistration(input); err != nil {
		s.metrics.Registration("invalid")
		return models.User{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.Create(ctx, models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: hash,
		DisplayName:  input.DisplayName,
		Role:         models.UserRoleUnassigned,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			s.metrics.Registration("duplicate")
			return models.User{}, ErrEmailRegistered
		}
		s.metrics.Registration("error")
		return models.User{}, err
	}

	s.metrics.Registration("success")
	s.events.Publish(ctx, models.AuthEvent{
		Type:   models.AuthEventAccountCreated,
		UserID: user.ID,
		Email:  user.Email,
		Detail: "local",
	})
	return user, nil
}

// Login checks an email and password pair. Every failure satisfies
// errors.Is(err, ErrInvalidCredentials); the reason is only logged.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, error) {
	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, s.loginFailed(ctx, email, "", ReasonUserNotFound)
		}
		s.metrics.Login("local", "error")
		return models.User{}, err
	}

	if !user.HasPassword() {
		return models.User{}, s.loginFailed(ctx, email, user.ID, ReasonNoLocalCredential)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.metrics.Login("local", "error")
		return models.User{}, fmt.Errorf("verify password for %s: %w", user.ID, err)
	}
	if !ok {
		return models.User{}, s.loginFailed(ctx, email, user.ID, ReasonInvalidCredential)
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	s.metrics.Login("local", "success")
	s.events.Publish(ctx, models.AuthEvent{
		Type:   models.AuthEventLogin,
		UserID: user.ID,
		Email:  user.Email,
		Detail: "local",
	})
	return user, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email, userID string, reason FailureReason) error {
	s.log.Warn().
		Str("email", email).
		Str("user_id", userID).
		Str("reason", string(reason)).
		Msg("local login rejected")
	s.metrics.Login("local", "failure")
	s.events.Publish(ctx, models.AuthEvent{
		Type:   models.AuthEventLoginFailed,
		UserID: userID,
		Email:  email,
		Detail: string(reason),
	})
	return &AuthFailure{Reason: reason}
}

func (s *AuthService) rehash(ctx context.Context, user models.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password rehash failed")
		return
	}
	s.log.Info().Str("user_id", user.ID).Msg("password rehashed")
}

// LoginFederated finds or creates the account for a provider assertion.
// Existing accounts are returned as stored; name and role are never
// overwritten. The bool reports whether an account was created.
func (s *AuthService) LoginFederated(ctx context.Context, assertion oauth.Assertion) (models.User, bool, error) {
	email := normalizeEmail(assertion.Email)
	if email == "" || !assertion.EmailVerified {
		s.log.Warn().
			Str("provider", assertion.Provider).
			Str("subject", assertion.Subject).
			Msg("federated login without verified email")
		s.metrics.Login("google", "failure")
		return models.User{}, false, &AuthFailure{Reason: ReasonUnverifiedEmail}
	}

	name := strings.TrimSpace(assertion.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	created := true
	user, err := s.users.Create(ctx, models.User{
		ID:          ids.New(),
		Email:       email,
		DisplayName: name,
		Role:        models.UserRoleUnassigned,
	})
	if errors.Is(err, repository.ErrEmailTaken) {
		created = false
		user, err = s.users.FindByEmail(ctx, email)
	}
	if err != nil {
		s.metrics.Login("google", "error")
		return models.User{}, false, err
	}

	s.metrics.Login("google", "success")
	if created {
		s.events.Publish(ctx, models.AuthEvent{
			Type:   models.AuthEventAccountCreated,
			UserID: user.ID,
			Email:  user.Email,
			Detail: assertion.Provider,
		})
	}
	s.events.Publish(ctx, models.AuthEvent{
		Type:   models.AuthEventLogin,
		UserID: user.ID,
		Email:  user.Email,
		Detail: assertion.Provider,
	})
	return user, created, nil
}

// CompletePassword gives a federated account its first local password.
func (s *AuthService) CompletePassword(ctx context.Context, identity Identity, password string) (Identity, error) {
	if identity.State() == StateNoSession {
		return identity, ErrNoSession
	}
	if identity.HasPassword {
		return identity, ErrPasswordAlreadySet
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return identity, &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return identity, err
	}

	stored, err := s.users.SetPasswordIfAbsent(ctx, identity.UserID, hash)
	if err != nil {
		return identity, err
	}
	if !stored {
		return identity.WithPassword(), ErrPasswordAlreadySet
	}

	s.metrics.PasswordCompleted()
	s.events.Publish(ctx, models.AuthEvent{
		Type:   models.AuthEventPasswordSet,
		UserID: identity.UserID,
		Email:  identity.Email,
	})
	s.log.Info().Str("user_id", identity.UserID).Msg("local password set")
	return identity.WithPassword(), nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, models.AuthEvent) {}
