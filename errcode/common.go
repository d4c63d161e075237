package errcode

import "net/http"

// CommonResult codes used by the payment and order services
const (
	ResultOK             = 200
	ResultFailed         = 444
	ResultBlocked        = 4444
	ResultFallbackServed = 44444
)

// Module codes
const (
	ModuleCommon  = 10
	ModulePayment = 20
	ModuleOrder   = 30
	ModuleFlow    = 40
)

var (
	// ErrBadRequest invalid request parameters
	ErrBadRequest = Register(New(ModuleCommon, 1, "common", "error.common.bad_request", "参数错误", http.StatusBadRequest))

	// ErrInternal unexpected server error
	ErrInternal = Register(New(ModuleCommon, 2, "common", "error.common.internal", "服务器内部错误", http.StatusInternalServerError))

	// ErrMissingParam a required query parameter is absent
	ErrMissingParam = Register(New(ModuleCommon, 3, "common", "error.common.missing_param", "非法用户", http.StatusNotAcceptable))
)
