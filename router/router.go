package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kennel-portal/auth"
	"kennel-portal/handler"
	"kennel-portal/observability"
)

// Deps 路由依赖的处理器和身份解析器
type Deps struct {
	Agent       *handler.AgentHandler
	Portal      *handler.PortalHandler
	Resolver    *auth.Resolver
	ReadyChecks map[string]observability.HealthCheckFunc
}

// RegisterRoutes 注册项目的所有HTTP路由
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", observability.HealthHandler())
	r.GET("/ready", observability.ReadinessHandler(d.ReadyChecks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", auth.Identify(d.Resolver))
	api.POST("/agent", d.Agent.Chat)
	api.GET("/puppies", d.Portal.ListPuppies)
	api.GET("/litters", d.Portal.ListLitters)

	// 以下接口只返回调用者自己的数据
	mine := api.Group("", auth.RequireCaller())
	mine.GET("/applications", d.Portal.ListApplications)
	mine.GET("/messages", d.Portal.ListMessages)
}
