package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"aurenix/internal/middleware"
	"aurenix/internal/models"
	"aurenix/internal/oauth"
	"aurenix/internal/service"
)

const (
	loginFailedMessage  = "Please enter valid email and password"
	googleFailedMessage = "Google sign-in failed, please try again"
)

type registerForm struct {
	Name     string `form:"name"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

type credentialsForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

type passwordForm struct {
	Password string `form:"password"`
}

func loginRedirect(message string) string {
	return "/login?" + url.Values{"message": []string{message}}.Encode()
}

func (h HandlerSet) setSessionCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cfg.Security.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.deps.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Security.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cfg.Security.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Security.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// startSession opens a session for user and sets the cookie.
func (h HandlerSet) startSession(c *gin.Context, user models.User) error {
	token, _, err := h.deps.Sessions.Establish(c.Request.Context(), user.ID, service.SessionMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		return err
	}
	h.setSessionCookie(c, token)
	return nil
}

func (h HandlerSet) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", page(c, gin.H{
		"Title":       "Register",
		"MinPassword": service.MinPasswordLength,
	}))
}

func (h HandlerSet) SignUp(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "register.html", page(c, gin.H{
			"Title":       "Register",
			"Message":     "Please fill in every field",
			"MinPassword": service.MinPasswordLength,
		}))
		return
	}

	user, err := h.deps.Auth.Register(c.Request.Context(), service.RegisterInput{
		Email:       form.Email,
		Password:    form.Password,
		DisplayName: form.Name,
	})
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			c.HTML(http.StatusBadRequest, "register.html", page(c, gin.H{
				"Title":       "Register",
				"Message":     verr.Message,
				"Name":        form.Name,
				"Email":       form.Email,
				"MinPassword": service.MinPasswordLength,
			}))
		case errors.Is(err, service.ErrEmailRegistered):
			c.Redirect(http.StatusFound, "/login")
		default:
			h.Fail(c, err)
		}
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.Fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, service.LandingPath(user.Role))
}

func (h HandlerSet) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", page(c, gin.H{
		"Title":   "Log in",
		"Message": c.Query("message"),
	}))
}

func (h HandlerSet) Login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusFound, loginRedirect(loginFailedMessage))
		return
	}

	user, err := h.deps.Auth.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.Redirect(http.StatusFound, loginRedirect(loginFailedMessage))
			return
		}
		h.Fail(c, err)
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.Fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, service.LandingPath(user.Role))
}

func (h HandlerSet) GoogleStart(c *gin.Context) {
	state, err := h.deps.States.Issue(c.Writer, c.Request)
	if err != nil {
		h.Fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.deps.OAuth.AuthCodeURL(state))
}

func (h HandlerSet) GoogleCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		h.log.Warn().Str("error", reason).Msg("google sign-in declined")
		c.Redirect(http.StatusFound, loginRedirect(googleFailedMessage))
		return
	}

	if err := h.deps.States.Consume(c.Writer, c.Request, c.Query("state")); err != nil {
		if errors.Is(err, oauth.ErrInvalidState) {
			h.log.Warn().Str("client_ip", c.ClientIP()).Msg("oauth state rejected")
			c.Redirect(http.StatusFound, loginRedirect(googleFailedMessage))
			return
		}
		h.Fail(c, err)
		return
	}

	assertion, err := h.deps.OAuth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.log.Warn().Err(err).Msg("oauth exchange failed")
		c.Redirect(http.StatusFound, loginRedirect(googleFailedMessage))
		return
	}

	user, _, err := h.deps.Auth.LoginFederated(c.Request.Context(), assertion)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.Redirect(http.StatusFound, loginRedirect(googleFailedMessage))
			return
		}
		h.Fail(c, err)
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.Fail(c, err)
		return
	}
	if !user.HasPassword() {
		c.Redirect(http.StatusFound, "/set-password")
		return
	}
	c.Redirect(http.StatusFound, service.LandingPath(user.Role))
}

func (h HandlerSet) SetPasswordPage(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	if identity.HasPassword {
		c.Redirect(http.StatusFound, service.LandingPath(identity.Role))
		return
	}
	c.HTML(http.StatusOK, "set_password.html", page(c, gin.H{
		"Title":       "Set password",
		"MinPassword": service.MinPasswordLength,
	}))
}

func (h HandlerSet) SetPassword(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var form passwordForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Warn().Err(err).Str("user_id", identity.UserID).Msg("set password form rejected")
		c.HTML(http.StatusBadRequest, "set_password.html", page(c, gin.H{
			"Title":       "Set password",
			"Message":     "Please enter a new password",
			"MinPassword": service.MinPasswordLength,
		}))
		return
	}

	updated, err := h.deps.Auth.CompletePassword(c.Request.Context(), identity, form.Password)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			c.HTML(http.StatusBadRequest, "set_password.html", page(c, gin.H{
				"Title":       "Set password",
				"Message":     verr.Message,
				"MinPassword": service.MinPasswordLength,
			}))
		case errors.Is(err, service.ErrPasswordAlreadySet):
			c.Redirect(http.StatusFound, service.LandingPath(identity.Role))
		default:
			h.Fail(c, err)
		}
		return
	}

	middleware.SetIdentity(c, updated)
	c.Redirect(http.StatusFound, service.LandingPath(updated.Role))
}

func (h HandlerSet) Logout(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	token, _ := c.Cookie(h.cfg.Security.CookieName)
	if err := h.deps.Sessions.Destroy(c.Request.Context(), token); err != nil {
		h.Fail(c, err)
		return
	}
	h.clearSessionCookie(c)

	if h.deps.Events != nil {
		h.deps.Events.Publish(c.Request.Context(), models.AuthEvent{
			Type:   models.AuthEventLogout,
			UserID: identity.UserID,
			Email:  identity.Email,
		})
	}
	c.Redirect(http.StatusFound, "/")
}
