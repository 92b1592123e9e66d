package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
	"github.com/stitchline/store_backend/utils"
	"gorm.io/gorm"
)

// RequireAdmin must run after AuthMiddleware and SessionMiddleware. It admits
// a JWT with the admin role claim, or a session whose user has role A.
func RequireAdmin(getDB func() *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if claim := CtxValue(ctx); claim != nil && claim.Role == utils.RoleAdmin {
			c.Next()
			return
		}

		if username, ok := utils.GetUsernameFromContext(ctx); ok && username != "" {
			db := getDB()
			if db == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service not ready"})
				c.Abort()
				return
			}
			user, err := models.GetUserByUsername(ctx, db, username)
			if err != nil && err != utils.ErrorRecordNotFound {
				config.LogError(config.GetLogger(), "middlewares", "RequireAdmin", "GetUserByUsername", username, err)
			}
			if err == nil && user.IsAdmin() {
				ctx = utils.SetUserIdInContext(ctx, user.ID)
				ctx = utils.SetRoleInContext(ctx, utils.RoleAdmin)
				c.Request = c.Request.WithContext(ctx)
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthorized.Error()})
		c.Abort()
	}
}
