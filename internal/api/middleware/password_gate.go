package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const passwordChangeRequiredMessage = "password change required"

// RequirePasswordChangeCompletedMiddleware 阻止未完成改密的账号访问业务接口，guest 不受影响。
// 只看 access token 内的 must_change_password 声明，引导管理员改密后需重新登录。
func RequirePasswordChangeCompletedMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if MustChangePassword(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    passwordChangeRequiredMessage,
				"redirect": "change-password",
			})
			return
		}
		c.Next()
	}
}

// MustChangePassword 报告当前令牌是否仍要求改密。
func MustChangePassword(c *gin.Context) bool {
	return c.GetBool(mustChangeKey)
}
