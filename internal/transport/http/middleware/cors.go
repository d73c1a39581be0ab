package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var ErrNotAllowedByCORS = errors.New("Not allowed by CORS")

// CORS 白名单来源 + credentials；无 Origin 的请求（curl、同源）直接放行
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	h := cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			_, ok := allowed[origin]
			return ok
		},
		AllowMethods:              []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", KeyRequestID},
		ExposeHeaders:             []string{KeyRequestID},
		AllowCredentials:          true,
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	})
	return func(c *gin.Context) {
		// cors 库会放行 Origin == http(s)://Host 的请求，这里只认白名单
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; !ok {
				c.AbortWithStatus(http.StatusForbidden)
				_ = c.Error(ErrNotAllowedByCORS)
				return
			}
		}
		h(c)
	}
}
