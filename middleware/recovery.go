package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Taro2021/springcloud/errcode"
	"github.com/Taro2021/springcloud/httpx"
	"github.com/Taro2021/springcloud/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery 捕获 handler panic，记录堆栈并返回统一的 500 CommonResult，不向客户端暴露堆栈
func Recovery(log *logger.CtxZapLogger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetLogger("gin-error")
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.ErrorCtx(c.Request.Context(), "💥 panic recovered",
					zap.String("error", fmt.Sprint(err)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
					zap.String("stack", string(debug.Stack())),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError,
					httpx.NewResult(errcode.ErrInternal.ResultCode(), errcode.ErrInternal.Message(), nil))
			}
		}()

		c.Next()
	}
}
