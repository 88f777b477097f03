package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurenix/internal/service"
)

const identityKey = "identity"

type SessionResolver interface {
	Resolve(ctx context.Context, token string, meta service.SessionMeta) (service.Identity, error)
}

// LoadSession attaches the identity behind the session cookie, if any.
// Requests without a live session continue anonymously.
func LoadSession(resolver SessionResolver, cookieName string, fail FailureFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), token, service.SessionMeta{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		switch {
		case errors.Is(err, service.ErrNoSession):
		case err != nil:
			fail(c, err)
			return
		default:
			SetIdentity(c, identity)
		}
		c.Next()
	}
}

// RequireSession sends anonymous requests to the login page.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCredential holds accounts without a local password at the
// set-password page.
func RequireCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if ok && identity.State() == service.StateAwaitingPassword {
			c.Redirect(http.StatusFound, "/set-password")
			c.Abort()
			return
		}
		c.Next()
	}
}

func SetIdentity(c *gin.Context, identity service.Identity) {
	c.Set(identityKey, identity)
}

func CurrentIdentity(c *gin.Context) (service.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return service.Identity{}, false
	}
	identity, ok := v.(service.Identity)
	return identity, ok && identity.UserID != ""
}
