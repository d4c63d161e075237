package middleware

import (
	"net/http"

	"github.com/Taro2021/springcloud/logger"
	"github.com/gin-gonic/gin"
)

// UnameFilter 全局过滤器：缺少 uname 查询参数的请求直接返回 406
func UnameFilter(log *logger.CtxZapLogger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}

	return func(c *gin.Context) {
		if _, ok := c.GetQuery("uname"); !ok {
			log.InfoCtx(c.Request.Context(), "用户名为 null")
			c.AbortWithStatus(http.StatusNotAcceptable)
			return
		}
		c.Next()
	}
}
