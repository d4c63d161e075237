package payment

import (
	"errors"

	"github.com/Taro2021/springcloud/errcode"
)

var (
	// ErrInsertFailed 插入失败
	ErrInsertFailed = errcode.Register(errcode.New(errcode.ModulePayment, 1, "payment", "error.payment.insert_failed", "插入失败").
			WithResultCode(errcode.ResultFailed))

	// ErrNotFound 没有对应记录
	ErrNotFound = errcode.Register(errcode.New(errcode.ModulePayment, 2, "payment", "error.payment.not_found", "没有对应记录").
			WithResultCode(errcode.ResultFailed))
)

// ErrNegativeID paymentCircuitBreaker 的业务异常
var ErrNegativeID = errors.New("*****id 不能负数")

func badIDError(raw string, err error) error {
	return errcode.ErrBadRequest.WithMsgf("非法 id: %s", raw).Wrap(err)
}
