package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"technotes-api/internal/core/logger"
	"technotes-api/internal/transport/http/response"
)

// Reporter 未分类错误：errLog 一行 + 运维日志带堆栈
type Reporter struct {
	l  *zap.Logger
	ev *logger.EventLog
}

func NewReporter(l *zap.Logger, ev *logger.EventLog) *Reporter {
	return &Reporter{l: l, ev: ev}
}

// PanicError recover 到的值
type PanicError struct{ Value any }

func (e *PanicError) Error() string { return fmt.Sprint(e.Value) }

func errName(err error) string {
	var pe *PanicError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &pe):
		return "PanicError"
	case errors.As(err, &mbe):
		return "PayloadTooLargeError"
	case errors.Is(err, context.DeadlineExceeded):
		return "TimeoutError"
	case errors.Is(err, context.Canceled):
		return "AbortError"
	}
	return "Error"
}

// Event 只写 errLog
func (r *Reporter) Event(c *gin.Context, err error) {
	r.ev.Write(logger.ErrLog, field(errName(err)+": "+err.Error())+"\t"+requestLine(c))
}

func (r *Reporter) Report(c *gin.Context, err error) {
	r.Event(c, err)
	r.l.Error("unhandled error",
		zap.String("rid", RequestIDOf(c)),
		zap.String("method", c.Request.Method),
		zap.String("url", c.Request.URL.RequestURI()),
		zap.Error(err),
		zap.Stack("stack"),
	)
}

// Errors 统一渲染 c.Errors 中最后一个错误
// 已分类的按 response.StatusOf；其余上报，并沿用已设置的 >=400 状态码，否则 500
func Errors(r *Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if st, ok := response.StatusOf(err); ok {
			if !c.Writer.Written() {
				c.JSON(st, response.Error(err))
			}
			return
		}

		r.Report(c, err)
		if c.Writer.Written() {
			return
		}
		c.JSON(response.FallbackStatus(c.Writer.Status()), response.Error(err))
	}
}

// Recovery panic 由 ginzap 打堆栈，再走同一个上报出口
func Recovery(l *zap.Logger, r *Reporter) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, rec any) {
		err := &PanicError{Value: rec}
		r.Event(c, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(err))
	})
}
