package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout 给请求 ctx 加超时；超时且未写响应时交给 Errors 按 504 渲染
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			c.Status(http.StatusGatewayTimeout)
			if len(c.Errors) == 0 {
				_ = c.Error(context.DeadlineExceeded)
			}
		}
	}
}
