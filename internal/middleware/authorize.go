package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurenix/internal/models"
	"aurenix/internal/service"
)

type RoleEnterer interface {
	Enter(ctx context.Context, identity service.Identity, area models.UserRole) (service.Identity, error)
}

// RoleArea puts the request's identity into area's role before the handler
// runs, replacing the identity in the context with the updated value.
func RoleArea(gate RoleEnterer, area models.UserRole, fail FailureFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		updated, err := gate.Enter(c.Request.Context(), identity, area)
		if err != nil {
			fail(c, err)
			return
		}
		SetIdentity(c, updated)
		c.Next()
	}
}
