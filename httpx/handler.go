package httpx

import (
	"github.com/Taro2021/springcloud/errcode"
	"github.com/Taro2021/springcloud/validator"
	"github.com/gin-gonic/gin"
)

// HandlerFunc 泛型 Handler：返回的 CommonResult 原样输出
type HandlerFunc[Req any] func(c *gin.Context, req *Req) (*CommonResult, error)

// Wrap 包装 Handler，自动处理解析、校验、响应
func Wrap[Req any](handler HandlerFunc[Req]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := Parse(c, &req); err != nil {
			HandleError(c, errcode.ErrBadRequest.Wrap(err))
			return
		}

		if v, ok := any(&req).(validator.Validatable); ok {
			if err := validator.ValidateRequest(v); err != nil {
				HandleError(c, err)
				return
			}
		}

		result, err := handler(c, &req)
		if err != nil {
			HandleError(c, err)
			return
		}
		Result(c, result.Code, result.Message, result.Data)
	}
}
