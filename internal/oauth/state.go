package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"aurenix/internal/security"
)

var ErrInvalidState = errors.New("invalid oauth state")

const (
	stateCookieName = "aurenix_oauth"
	stateKey        = "state"
	stateKeyPrefix  = "oauth:state:"
)

// StateStore binds an OAuth state value to the browser that started the
// handshake (signed cookie) and makes it single use (redis).
type StateStore struct {
	cookies *sessions.CookieStore
	redis   *redis.Client
	ttl     time.Duration
}

// NewStateStore signs and encrypts the state cookie with keys derived from
// secret for this purpose only, never with secret itself.
func NewStateStore(client *redis.Client, secret string, ttl time.Duration, secure bool) (*StateStore, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	hashKey, err := security.DeriveKey(secret, security.PurposeOAuthStateHash, 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := security.DeriveKey(secret, security.PurposeOAuthStateBlock, 32)
	if err != nil {
		return nil, err
	}
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &StateStore{cookies: store, redis: client, ttl: ttl}, nil
}

func (s *StateStore) Issue(w http.ResponseWriter, r *http.Request) (string, error) {
	state, err := security.RandomToken(32)
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(r.Context(), stateKeyPrefix+state, "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}

	sess, _ := s.cookies.Get(r, stateCookieName)
	sess.Values[stateKey] = state
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("save oauth state cookie: %w", err)
	}
	return state, nil
}

// Consume accepts state once, and only from the browser it was issued to.
func (s *StateStore) Consume(w http.ResponseWriter, r *http.Request, state string) error {
	sess, _ := s.cookies.Get(r, stateCookieName)
	expected, _ := sess.Values[stateKey].(string)

	delete(sess.Values, stateKey)
	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)

	if state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return ErrInvalidState
	}
	return s.take(r.Context(), state)
}

func (s *StateStore) take(ctx context.Context, state string) error {
	_, err := s.redis.GetDel(ctx, stateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidState
	}
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	return nil
}
