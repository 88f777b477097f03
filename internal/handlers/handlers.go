package handlers

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"aurenix/internal/config"
	"aurenix/internal/metrics"
	"aurenix/internal/middleware"
	"aurenix/internal/models"
	"aurenix/internal/oauth"
	"aurenix/internal/service"
	"aurenix/internal/web"
)

type Authenticator interface {
	Register(ctx context.Context, input service.RegisterInput) (models.User, error)
	Login(ctx context.Context, email, password string) (models.User, error)
	LoginFederated(ctx context.Context, assertion oauth.Assertion) (models.User, bool, error)
	CompletePassword(ctx context.Context, identity service.Identity, password string) (service.Identity, error)
}

type Sessions interface {
	middleware.SessionResolver
	Establish(ctx context.Context, userID string, meta service.SessionMeta) (string, models.Session, error)
	Destroy(ctx context.Context, token string) error
	TTL() time.Duration
}

type Catalog interface {
	ForCustomer(ctx context.Context) ([]service.ProductView, error)
	ForSeller(ctx context.Context, sellerID string) ([]service.ProductView, error)
	Search(ctx context.Context, term string) ([]service.ProductView, error)
}

type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (oauth.Assertion, error)
}

type OAuthStates interface {
	Issue(w http.ResponseWriter, r *http.Request) (string, error)
	Consume(w http.ResponseWriter, r *http.Request, state string) error
}

// Pinger reports the health of one backing service.
type Pinger func(ctx context.Context) error

type Dependencies struct {
	Auth     Authenticator
	Sessions Sessions
	Roles    middleware.RoleEnterer
	Catalog  Catalog
	OAuth    OAuthProvider
	States   OAuthStates
	Events   service.EventPublisher
	Metrics  *metrics.Metrics
	Checks   map[string]Pinger
}

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	deps      Dependencies
	templates *template.Template
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) (HandlerSet, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return HandlerSet{}, err
	}
	return HandlerSet{
		log:       log,
		cfg:       cfg,
		deps:      deps,
		templates: tmpl,
	}, nil
}

func (h HandlerSet) Register(engine *gin.Engine) {
	engine.SetHTMLTemplate(h.templates)

	engine.GET("/healthz", h.Health)
	if h.deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	site := engine.Group("/")
	site.Use(middleware.LoadSession(h.deps.Sessions, h.cfg.Security.CookieName, h.Fail))
	{
		site.GET("/", h.Home)
		site.GET("/register", h.RegisterPage)
		site.POST("/register", h.SignUp)
		site.GET("/login", h.LoginPage)
		site.POST("/login", h.Login)
		site.GET("/auth/google", h.GoogleStart)
		site.GET("/auth/google/aurenix", h.GoogleCallback)

		session := site.Group("/")
		session.Use(middleware.RequireSession())
		session.GET("/set-password", h.SetPasswordPage)
		session.POST("/set-password", h.SetPassword)
		session.GET("/logout", h.Logout)

		complete := session.Group("/")
		complete.Use(middleware.RequireCredential())
		complete.GET("/aurenix", h.Landing)
		complete.GET("/search", h.Search)
		complete.GET("/customer", middleware.RoleArea(h.deps.Roles, models.UserRoleCustomer, h.Fail), h.CustomerArea)
		complete.GET("/seller", middleware.RoleArea(h.deps.Roles, models.UserRoleSeller, h.Fail), h.SellerArea)
	}
}

const genericFailure = "Something went wrong."

// Fail logs err and answers with the generic failure page.
func (h HandlerSet) Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	h.log.Error().
		Err(err).
		Str("path", c.Request.URL.Path).
		Str("request_id", middleware.RequestIDFrom(c)).
		Msg("request failed")
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{
		"Title":   "Error",
		"Message": genericFailure,
	})
	c.Abort()
}

// page merges the current identity into the template data. Anonymous
// requests get a nil Identity so templates can test for it.
func page(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	if identity, ok := middleware.CurrentIdentity(c); ok {
		data["Identity"] = &identity
	}
	return data
}

func (h HandlerSet) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", page(c, gin.H{"Title": "Home"}))
}
