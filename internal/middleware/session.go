package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certready/certready-backend/internal/response"
	"github.com/certready/certready-backend/internal/service"
)

// CheckSingleDeviceSession validates the JWT's JTI against the active session
// in Redis. A mismatch means a newer login replaced this session. Admins are
// exempt so support staff can stay signed in across machines.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		user := GetUser(c)
		if user != nil && user.IsAdmin() {
			c.Next()
			return
		}

		if err := authService.ValidateSession(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
