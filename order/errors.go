package order

import (
	"errors"

	"github.com/Taro2021/springcloud/errcode"
)

// ErrOperationFailed 下游返回非 2xx
var ErrOperationFailed = errcode.Register(errcode.New(errcode.ModuleOrder, 1, "order", "error.order.operation_failed", "操作失败").
	WithResultCode(errcode.ResultFailed))

var (
	// ErrDivideByZero test3 的固定异常
	ErrDivideByZero = errors.New("/ by zero")

	// ErrIllegalArgument fallback 演示，id 为 4 时抛出
	ErrIllegalArgument = errors.New("IllegalArgumentException,非法参数异常....")

	// ErrNoRecord fallback 演示，记录不存在时抛出
	ErrNoRecord = errors.New("NullPointerException,该ID没有对应记录,空指针异常")
)
