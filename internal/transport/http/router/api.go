package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"technotes-api/internal/core/config"
	"technotes-api/internal/core/logger"
	mdw "technotes-api/internal/transport/http/middleware"
	"technotes-api/internal/transport/http/response"
	"technotes-api/web"
)

const msgNotFound = "404 Not Found"

func NewAPIEngine(l *zap.Logger, ev *logger.EventLog, cfg *config.Config, reg *Registry) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(web.Templates())

	rep := mdw.NewReporter(l, ev)

	// 中间件（顺序有讲究：日志、recover 在最外层，CORS 紧贴业务路由）
	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(l, ev),
		mdw.Recovery(l, rep),
		mdw.Errors(rep),
		mdw.Metrics(),
	)
	lim := cfg.Limits
	if lim.RPS > 0 {
		r.Use(mdw.RateLimitPerIP(rate.Limit(lim.RPS), max(lim.Burst, 1)))
	}
	if lim.MaxConcurrent > 0 {
		r.Use(mdw.ConcurrencyLimit(lim.MaxConcurrent))
	}
	if lim.MaxBodyBytes > 0 {
		r.Use(mdw.MaxBodyBytes(lim.MaxBodyBytes))
	}
	if lim.TimeoutSec > 0 {
		r.Use(mdw.Timeout(time.Duration(lim.TimeoutSec) * time.Second))
	}
	r.Use(mdw.CORS(cfg.CORS.AllowedOrigins))

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 首页 + 静态样式
	index := func(c *gin.Context) { c.HTML(http.StatusOK, "index.html", nil) }
	r.GET("/", index)
	r.GET("/index", index)
	r.GET("/index.html", index)
	r.StaticFileFS("/css/style.css", "css/style.css", http.FS(web.Static()))

	if reg != nil {
		reg.MountAll(&r.RouterGroup)
	}

	r.NoRoute(notFound)
	return r
}

// notFound 按 Accept 协商：HTML 页面 / JSON / 纯文本
func notFound(c *gin.Context) {
	switch c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) {
	case gin.MIMEHTML:
		c.HTML(http.StatusNotFound, "404.html", nil)
	case gin.MIMEJSON:
		c.JSON(http.StatusNotFound, response.Message(msgNotFound))
	default:
		c.String(http.StatusNotFound, msgNotFound)
	}
}
