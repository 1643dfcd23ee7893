package api

import (
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// NewRouter 注册全部路由；metricsHandler 为空时不暴露 /metrics
func NewRouter(mode string, events *EventHandler, sync *SyncHandler, metricsHandler http.Handler) *gin.Engine {
	gin.SetMode(mode)
	r := gin.Default()

	// 注册pprof 方便调试和监测性能问题
	pprof.Register(r)

	r.GET("/api/events", events.ListEvents)
	r.GET("/api/events/:id", events.GetEvent)

	r.POST("/sync", sync.RunHandler)
	r.POST("/sync/sweep", sync.SweepHandler)

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}
	return r
}
