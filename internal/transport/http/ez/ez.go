package ez

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"technotes-api/internal/apperr"
)

const msgInvalidBody = "Invalid request body"

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindBody Binder = "body" // 按 Content-Type 选 JSON / 表单（DELETE 也带 body）
	BindNone Binder = "none" // 不绑定
)

// Action I 入参，O 出参
// Handler 返回的错误一律交给 c.Error，由 Errors 中间件统一映射状态码
type Action[I any, O any] struct {
	Method     string // GET | POST | PATCH | PUT | DELETE
	Path       string
	Binder     Binder
	Status     int    // 成功状态码，默认 200
	InvalidMsg string // body 解析失败时返回给客户端的文案
	Handler    func(c *gin.Context, in *I) (O, error)
}

// bind 空 body 视为零值入参，缺字段交给业务层校验
func bind(c *gin.Context, in any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	err := c.ShouldBind(in)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func Register[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		if a.Binder == BindBody {
			if err := bind(c, &in); err != nil {
				var mbe *http.MaxBytesError
				if errors.As(err, &mbe) {
					c.Status(http.StatusRequestEntityTooLarge)
					_ = c.Error(err)
					return
				}
				msg := a.InvalidMsg
				if msg == "" {
					msg = msgInvalidBody
				}
				_ = c.Error(apperr.Wrap(apperr.KindInvalidInput, msg, err))
				return
			}
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			_ = c.Error(err)
			return
		}
		st := a.Status
		if st == 0 {
			st = http.StatusOK
		}
		c.JSON(st, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}
