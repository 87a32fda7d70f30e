package router

import (
	"github.com/fastlog/internal/db"
	"github.com/fastlog/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("fastlog_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.POST("/login", handler.Login)
	r.POST("/logout", handler.Logout)

	a := handler.NewAPI(db.DB)

	// 需要认证的 API 路由
	api := r.Group("/api")
	api.Use(handler.AuthRequired())
	{
		api.POST("/plans", a.CreatePlan)
		api.GET("/plans", a.ListPlans)
		api.GET("/plans/active", a.GetActivePlan)
		api.GET("/plans/:id", a.GetPlan)
		api.GET("/plans/:id/progress", a.GetPlanProgress)
		api.POST("/plans/:id/cancel", a.CancelPlan)
		api.POST("/plans/:id/complete", a.CompletePlan)
		api.PUT("/plans/:id/periods", a.UpdatePlanPeriods)
		api.PUT("/plans/:id", a.UpdatePlanMetadata)

		api.POST("/cycles", a.StartCycle)
		api.POST("/cycles/stop", a.StopCycle)
		api.GET("/cycles", a.ListCycles)
		api.GET("/cycles/active", a.GetActiveCycle)
		api.GET("/cycles/:id", a.GetCycle)
		api.DELETE("/cycles/:id", a.DeleteCycle)

		api.GET("/templates", a.ListTemplates)
		api.POST("/templates", a.CreateTemplate)
		api.GET("/templates/:id", a.GetTemplate)
		api.PUT("/templates/:id", a.UpdateTemplate)
		api.DELETE("/templates/:id", a.DeleteTemplate)
		api.POST("/templates/:id/apply", a.ApplyTemplate)
	}

	return r
}
