package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/finware/notify/pkg/errors"
	"github.com/finware/notify/pkg/response"
)

// IntakeTokenHeader names the shared-secret header presented by internal
// event producers (billing, reporting).
const IntakeTokenHeader = "X-Intake-Token"

// IntakeToken guards the internal intake surface with a shared token. An
// empty configured token disables the check (trusted network deployments).
func IntakeToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		presented := c.GetHeader(IntakeTokenHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
