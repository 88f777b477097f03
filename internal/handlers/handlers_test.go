package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurenix/internal/config"
	"aurenix/internal/metrics"
	"aurenix/internal/middleware"
	"aurenix/internal/models"
	"aurenix/internal/oauth"
	"aurenix/internal/security"
	"aurenix/internal/service"
	"aurenix/internal/service/servicetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct {
	assertions map[string]oauth.Assertion
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.test/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (oauth.Assertion, error) {
	a, ok := p.assertions[code]
	if !ok {
		return oauth.Assertion{}, oauth.ErrExchange
	}
	return a, nil
}

// fakeStates issues sequential states, each accepted once.
type fakeStates struct {
	next   int
	issued map[string]bool
}

func (s *fakeStates) Issue(http.ResponseWriter, *http.Request) (string, error) {
	s.next++
	state := fmt.Sprintf("st-%d", s.next)
	s.issued[state] = true
	return state, nil
}

func (s *fakeStates) Consume(_ http.ResponseWriter, _ *http.Request, state string) error {
	if !s.issued[state] {
		return oauth.ErrInvalidState
	}
	delete(s.issued, state)
	return nil
}

type harness struct {
	t        *testing.T
	engine   *gin.Engine
	users    *servicetest.Users
	sessions *servicetest.Sessions
	products *servicetest.Products
	events   *servicetest.Events
	provider *fakeProvider
	states   *fakeStates
	checks   map[string]Pinger
	cookies  map[string]*http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			SessionSecret: "handler-secret",
			SessionTTL:    time.Hour,
			CookieName:    "aurenix_session",
			MaxSessions:   10,
		},
	}

	users := servicetest.NewUsers()
	sessions := servicetest.NewSessions()
	products := &servicetest.Products{}
	events := &servicetest.Events{}
	m := metrics.New()
	log := zerolog.Nop()

	h := &harness{
		t:        t,
		users:    users,
		sessions: sessions,
		products: products,
		events:   events,
		provider: &fakeProvider{assertions: map[string]oauth.Assertion{}},
		states:   &fakeStates{issued: map[string]bool{}},
		checks:   map[string]Pinger{},
		cookies:  map[string]*http.Cookie{},
	}

	set, err := NewHandlerSet(log, cfg, Dependencies{
		Auth:     service.NewAuthService(users, security.NewHasher(servicetest.FastArgon2), events, m, log),
		Sessions: service.NewSessionManager(sessions, users, cfg.Security, log),
		Roles:    service.NewRoleGate(users, events, m, log),
		Catalog:  service.NewCatalogService(products, servicetest.Signer{}, log),
		OAuth:    h.provider,
		States:   h.states,
		Events:   events,
		Metrics:  m,
		Checks:   h.checks,
	})
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Recovery(log, set.Fail))
	set.Register(engine)
	h.engine = engine
	return h
}

// do sends a request carrying the harness cookie jar and keeps any cookies
// the response sets.
func (h *harness) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range h.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(h.cookies, c.Name)
			continue
		}
		h.cookies[c.Name] = c
	}
	return rec
}

func (h *harness) get(target string) *httptest.ResponseRecorder {
	return h.do(http.MethodGet, target, nil)
}

func (h *harness) post(target string, form url.Values) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, target, form)
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, location, rec.Header().Get("Location"))
}

func (h *harness) register(email, password, name string) *httptest.ResponseRecorder {
	return h.post("/register", url.Values{"email": {email}, "password": {password}, "name": {name}})
}

func (h *harness) login(email, password string) *httptest.ResponseRecorder {
	return h.post("/login", url.Values{"email": {email}, "password": {password}})
}

func (h *harness) userByEmail(email string) models.User {
	h.t.Helper()
	user, err := h.users.FindByEmail(context.Background(), email)
	require.NoError(h.t, err)
	return user
}

func TestRegisterLoginSellerLogout(t *testing.T) {
	h := newHarness(t)

	rec := h.register("a@x.com", "secret1", "Ann")
	assertRedirect(t, rec, "/aurenix")
	require.Contains(t, h.cookies, "aurenix_session")

	rec = h.get("/aurenix")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "How would you like to use Aurenix?")

	assertRedirect(t, h.get("/logout"), "/")
	assert.NotContains(t, h.cookies, "aurenix_session")

	assertRedirect(t, h.login("a@x.com", "secret1"), "/aurenix")

	user := h.userByEmail("a@x.com")
	h.products.Items = []models.Product{
		{ID: "p1", SellerID: user.ID, Name: "Lamp", Price: 12.5, ImageKeys: []string{"lamp.jpg"}},
		{ID: "p2", SellerID: "someone-else", Name: "Chair"},
	}

	rec = h.get("/seller")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lamp")
	assert.Contains(t, rec.Body.String(), "https://img.test/lamp.jpg")
	assert.NotContains(t, rec.Body.String(), "Chair")
	assert.Equal(t, models.UserRoleSeller, h.userByEmail("a@x.com").Role)

	assertRedirect(t, h.get("/logout"), "/")
	assertRedirect(t, h.get("/customer"), "/login")
}

func TestRoleFollowsLastVisitedArea(t *testing.T) {
	h := newHarness(t)
	h.register("a@x.com", "secret1", "Ann")

	assert.Equal(t, http.StatusOK, h.get("/customer").Code)
	assert.Equal(t, models.UserRoleCustomer, h.userByEmail("a@x.com").Role)
	assertRedirect(t, h.get("/aurenix"), "/customer")

	assert.Equal(t, http.StatusOK, h.get("/seller").Code)
	assert.Equal(t, models.UserRoleSeller, h.userByEmail("a@x.com").Role)

	writes := h.users.RoleWriteCount
	assert.Equal(t, http.StatusOK, h.get("/seller").Code)
	assert.Equal(t, writes, h.users.RoleWriteCount)

	h.get("/logout")
	assertRedirect(t, h.login("a@x.com", "secret1"), "/seller")
}

func TestRegisterExistingEmailRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	h.register("a@x.com", "secret1", "Ann")
	h.get("/logout")

	assertRedirect(t, h.register("A@X.com", "secret2", "Other"), "/login")
	assert.Equal(t, 1, h.users.Count())
	assert.NotContains(t, h.cookies, "aurenix_session")
}

func TestRegisterValidationRerendersForm(t *testing.T) {
	h := newHarness(t)

	rec := h.register("a@x.com", "12345", "Ann")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password must be at least 6 characters")
	assert.Contains(t, rec.Body.String(), `value="a@x.com"`)
	assert.Zero(t, h.users.Count())
}

func TestLoginFailureIsUniform(t *testing.T) {
	h := newHarness(t)
	h.register("a@x.com", "secret1", "Ann")
	h.get("/logout")
	h.provider.assertions["code-fed"] = oauth.Assertion{Provider: "google", Email: "fed@x.com", EmailVerified: true, Name: "Fed"}
	h.get("/auth/google")
	h.get("/auth/google/aurenix?state=st-1&code=code-fed")
	h.get("/logout")

	want := "/login?message=Please+enter+valid+email+and+password"
	assertRedirect(t, h.login("a@x.com", "wrong12"), want)
	assertRedirect(t, h.login("nobody@x.com", "secret1"), want)
	assertRedirect(t, h.login("fed@x.com", "secret1"), want)

	rec := h.get(want)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter valid email and password")
}

func TestGoogleSignInAndPasswordCompletion(t *testing.T) {
	h := newHarness(t)
	h.provider.assertions["code-1"] = oauth.Assertion{Provider: "google", Subject: "g-1", Email: "fed@x.com", EmailVerified: true, Name: "Fed"}

	rec := h.get("/auth/google")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://accounts.test/o/oauth2/auth?state=st-1", rec.Header().Get("Location"))

	assertRedirect(t, h.get("/auth/google/aurenix?state=st-1&code=code-1"), "/set-password")
	assert.False(t, h.userByEmail("fed@x.com").HasPassword())

	assertRedirect(t, h.get("/customer"), "/set-password")
	assertRedirect(t, h.get("/seller"), "/set-password")
	assertRedirect(t, h.get("/aurenix"), "/set-password")
	assertRedirect(t, h.get("/search?search=lamp"), "/set-password")
	assert.Equal(t, models.UserRoleUnassigned, h.userByEmail("fed@x.com").Role)

	assert.Equal(t, http.StatusOK, h.get("/set-password").Code)

	rec = h.post("/set-password", url.Values{"password": {"12345"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password must be at least 6 characters")

	assertRedirect(t, h.post("/set-password", url.Values{"password": {"secret1"}}), "/aurenix")
	assertRedirect(t, h.get("/set-password"), "/aurenix")
	assertRedirect(t, h.post("/set-password", url.Values{"password": {"another1"}}), "/aurenix")
	assert.Equal(t, http.StatusOK, h.get("/customer").Code)

	h.get("/logout")
	assertRedirect(t, h.login("fed@x.com", "secret1"), "/customer")

	h.get("/logout")
	h.provider.assertions["code-2"] = h.provider.assertions["code-1"]
	h.get("/auth/google")
	assertRedirect(t, h.get("/auth/google/aurenix?state=st-2&code=code-2"), "/customer")
	assert.Equal(t, 1, h.users.Count())
}

func TestSetPasswordRejectsMalformedForm(t *testing.T) {
	h := newHarness(t)
	h.provider.assertions["code-1"] = oauth.Assertion{Provider: "google", Subject: "g-1", Email: "fed@x.com", EmailVerified: true, Name: "Fed"}
	h.get("/auth/google")
	assertRedirect(t, h.get("/auth/google/aurenix?state=st-1&code=code-1"), "/set-password")

	req := httptest.NewRequest(http.MethodPost, "/set-password", strings.NewReader("not a multipart body"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=missing")
	for _, c := range h.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a new password")
	assert.False(t, h.userByEmail("fed@x.com").HasPassword())
}

func TestSearchProducts(t *testing.T) {
	h := newHarness(t)
	h.register("a@x.com", "secret1", "Ann")
	h.get("/customer")
	h.products.Items = []models.Product{
		{ID: "p1", SellerID: "s1", Name: "Desk Lamp", Price: 12.5, ImageKeys: []string{"lamp.jpg"}},
		{ID: "p2", SellerID: "s1", Name: "Chair"},
	}

	rec := h.get("/search?search=lamp")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Desk Lamp")
	assert.Contains(t, rec.Body.String(), "https://img.test/lamp.jpg")
	assert.NotContains(t, rec.Body.String(), "Chair")
	assert.Equal(t, models.UserRoleCustomer, h.userByEmail("a@x.com").Role)

	rec = h.get("/search")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Desk Lamp")
	assert.Equal(t, []string{"lamp"}, h.products.Searches)

	h.products.Err = errors.New("db down")
	rec = h.get("/search?search=lamp")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGoogleCallbackRejections(t *testing.T) {
	failed := "/login?message=Google+sign-in+failed%2C+please+try+again"

	t.Run("unknown state", func(t *testing.T) {
		h := newHarness(t)
		h.provider.assertions["code-1"] = oauth.Assertion{Email: "fed@x.com", EmailVerified: true}
		assertRedirect(t, h.get("/auth/google/aurenix?state=forged&code=code-1"), failed)
		assert.Zero(t, h.users.Count())
	})

	t.Run("replayed state", func(t *testing.T) {
		h := newHarness(t)
		h.provider.assertions["code-1"] = oauth.Assertion{Email: "fed@x.com", EmailVerified: true}
		h.get("/auth/google")
		assertRedirect(t, h.get("/auth/google/aurenix?state=st-1&code=code-1"), "/set-password")
		h.get("/logout")
		assertRedirect(t, h.get("/auth/google/aurenix?state=st-1&code=code-1"), failed)
	})

	t.Run("provider error", func(t *testing.T) {
		h := newHarness(t)
		assertRedirect(t, h.get("/auth/google/aurenix?error=access_denied"), failed)
	})

	t.Run("bad code", func(t *testing.T) {
		h := newHarness(t)
		h.get("/auth/google")
		assertRedirect(t, h.get("/auth/google/aurenix?state=st-1&code=nope"), failed)
	})

	t.Run("unverified email", func(t *testing.T) {
		h := newHarness(t)
		h.provider.assertions["code-1"] = oauth.Assertion{Email: "fed@x.com"}
		h.get("/auth/google")
		assertRedirect(t, h.get("/auth/google/aurenix?state=st-1&code=code-1"), failed)
		assert.Zero(t, h.users.Count())
	})
}

func TestSessionRequiredRoutes(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/set-password", "/logout", "/aurenix", "/customer", "/seller", "/search?search=lamp"} {
		assertRedirect(t, h.get(path), "/login")
	}

	h.cookies["aurenix_session"] = &http.Cookie{Name: "aurenix_session", Value: "forged"}
	assertRedirect(t, h.get("/customer"), "/login")
}

func TestStorageFailureRendersGenericPage(t *testing.T) {
	h := newHarness(t)
	h.users.FailLookups = errors.New("connection refused")

	rec := h.login("a@x.com", "secret1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong.")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestLogoutPublishesEvent(t *testing.T) {
	h := newHarness(t)
	h.register("a@x.com", "secret1", "Ann")
	h.get("/logout")

	types := h.events.Types()
	require.NotEmpty(t, types)
	assert.Equal(t, models.AuthEventLogout, types[len(types)-1])
}

func TestHomePage(t *testing.T) {
	h := newHarness(t)

	rec := h.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/login"`)

	h.register("a@x.com", "secret1", "Ann")
	rec = h.get("/")
	assert.Contains(t, rec.Body.String(), "Ann")
	assert.Contains(t, rec.Body.String(), `href="/logout"`)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	h.checks["database"] = func(context.Context) error { return nil }
	h.checks["cache"] = func(context.Context) error { return nil }

	rec := h.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"cache":"ok","database":"ok"},"environment":"test"}`, rec.Body.String())

	h.checks["objectstore"] = func(context.Context) error { return errors.New("unreachable") }
	rec = h.get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"objectstore":"error"`)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.login("nobody@x.com", "secret1")

	rec := h.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aurenix_logins_total{method="local",outcome="failure"} 1`)
}
