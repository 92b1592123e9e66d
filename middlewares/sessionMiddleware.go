package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/utils"
)

// SessionMiddleware resolves the `token` header through Redis (Token:<token>
// holds the username). Requests without the header pass through untouched.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(utils.SetUsernameInContext(c.Request.Context(), username))
		c.Next()
	}
}
