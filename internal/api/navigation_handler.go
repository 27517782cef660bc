package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobboard/internal/navigation"
)

// Navigation 返回当前会话访问某个视图的判定结果。
// 拒绝不是错误：guest 得到跳转登录的指示，其他角色得到所需角色的提示。
func Navigation(c *gin.Context) {
	view, ok := navigation.ParseView(c.Param("view"))
	if !ok {
		NotFound(c, "unknown view")
		return
	}
	s := sessionFrom(c)
	d := navigation.Authorize(s.Role, view)
	c.JSON(http.StatusOK, gin.H{
		"role":          s.Role,
		"view":          view,
		"allowed":       d.Allowed,
		"target":        d.Target,
		"redirect":      d.Redirect,
		"reason":        d.Reason,
		"required_role": d.RequiredRole,
	})
}
