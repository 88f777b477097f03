// Package servicetest provides in-memory stores with the semantics of the
// postgres repositories, for tests of the service and HTTP layers.
package servicetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"aurenix/internal/models"
	"aurenix/internal/repository"
	"aurenix/internal/security"
)

// FastArgon2 keeps hashing cheap in tests.
var FastArgon2 = security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// Users mimics the users table, including the unique email index.
type Users struct {
	mu             sync.Mutex
	byID           map[string]models.User
	RoleWriteCount int
	FailCreate     error
	FailLookups    error
}

func NewUsers() *Users {
	return &Users{byID: map[string]models.User{}}
}

func (m *Users) Create(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreate != nil {
		return models.User{}, m.FailCreate
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return models.User{}, repository.ErrEmailTaken
		}
	}
	if user.Role == "" {
		user.Role = models.UserRoleUnassigned
	}
	user.CreatedAt = time.Now()
	m.byID[user.ID] = user
	return user, nil
}

func (m *Users) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLookups != nil {
		return models.User{}, m.FailLookups
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *Users) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLookups != nil {
		return models.User{}, m.FailLookups
	}
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *Users) UpdateRole(_ context.Context, id string, role models.UserRole) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.Role == role {
		return false, nil
	}
	m.RoleWriteCount++
	u.Role = role
	m.byID[id] = u
	return true, nil
}

func (m *Users) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	m.byID[id] = u
	return nil
}

func (m *Users) SetPasswordIfAbsent(_ context.Context, id string, hash []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || len(u.PasswordHash) > 0 {
		return false, nil
	}
	u.PasswordHash = hash
	m.byID[id] = u
	return true, nil
}

func (m *Users) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *Users) Get(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type Sessions struct {
	mu         sync.Mutex
	byID       map[string]models.Session
	TouchCount int
}

func NewSessions() *Sessions {
	return &Sessions{byID: map[string]models.Session{}}
}

func (m *Sessions) Create(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	session.CreatedAt = now
	session.LastSeenAt = now
	m.byID[session.ID] = session
	return nil
}

func (m *Sessions) GetByID(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (m *Sessions) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *Sessions) CountByUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.byID {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *Sessions) DeleteOldestSessions(_ context.Context, userID string, keepLatest int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []models.Session
	for _, s := range m.byID {
		if s.UserID == userID {
			owned = append(owned, s)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID > owned[j].ID })
	for i := keepLatest; i < len(owned); i++ {
		delete(m.byID, owned[i].ID)
	}
	return nil
}

func (m *Sessions) Touch(_ context.Context, sessionID string, _ string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[sessionID]
	if !ok {
		return nil
	}
	s.LastSeenAt = time.Now()
	m.byID[sessionID] = s
	m.TouchCount++
	return nil
}

func (m *Sessions) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok
}

func (m *Sessions) Set(session models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[session.ID] = session
}

// Events records published auth events.
type Events struct {
	mu     sync.Mutex
	events []models.AuthEvent
}

func (r *Events) Publish(_ context.Context, event models.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Events) Types() []models.AuthEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuthEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// Products serves a fixed product list.
type Products struct {
	Items    []models.Product
	Err      error
	Searches []string
}

func (m *Products) List(_ context.Context, limit int) ([]models.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Items) > limit {
		return m.Items[:limit], nil
	}
	return m.Items, nil
}

func (m *Products) ListBySeller(_ context.Context, sellerID string) ([]models.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.Product
	for _, p := range m.Items {
		if p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Products) Search(_ context.Context, term string, limit int) ([]models.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Searches = append(m.Searches, term)
	needle := strings.ToLower(term)
	var out []models.Product
	for _, p := range m.Items {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Signer signs every key except "broken".
type Signer struct{}

func (Signer) URL(_ context.Context, key string) (string, error) {
	if key == "broken" {
		return "", errors.New("cannot sign")
	}
	return "https://img.test/" + key, nil
}

