package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// FailureFunc answers a request that cannot continue because of err.
type FailureFunc func(c *gin.Context, err error)

func Recovery(log zerolog.Logger, fail FailureFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Str("request_id", RequestIDFrom(c)).
					Msg("panic recovered")
				fail(c, fmt.Errorf("panic: %v", r))
			}
		}()
		c.Next()
	}
}
