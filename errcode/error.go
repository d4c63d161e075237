// Package errcode provides hierarchical error codes for the payment and order services.
//
// Internal code format: MMBBBB (MM = module code, BBBB = business code). The
// result code is what clients see in the CommonResult envelope (200, 444,
// 4444, 44444) and may be shared by several internal codes.
package errcode

import (
	"fmt"
	"net/http"
)

// LayeredError hierarchical error code
type LayeredError struct {
	module     string                 // module name (payment, order, flow)
	code       int                    // complete internal code (MMBBBB)
	resultCode int                    // CommonResult code returned to callers
	msgKey     string                 // message key, e.g. "error.payment.not_found"
	msg        string                 // default message
	httpStatus int                    // HTTP status code
	data       map[string]interface{} // context data
	cause      error                  // original error
}

// New creates a layered error. The result code defaults to the HTTP status.
func New(moduleCode, businessCode int, module, msgKey, msg string, httpStatus ...int) *LayeredError {
	status := http.StatusOK
	if len(httpStatus) > 0 {
		status = httpStatus[0]
	}
	return &LayeredError{
		module:     module,
		code:       moduleCode*10000 + businessCode,
		resultCode: status,
		msgKey:     msgKey,
		msg:        msg,
		httpStatus: status,
		data:       make(map[string]interface{}),
	}
}

func (e *LayeredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Code gets the internal error code
func (e *LayeredError) Code() int {
	return e.code
}

// ResultCode gets the CommonResult code
func (e *LayeredError) ResultCode() int {
	return e.resultCode
}

// Module gets the module name
func (e *LayeredError) Module() string {
	return e.module
}

// MsgKey retrieves the message key
func (e *LayeredError) MsgKey() string {
	return e.msgKey
}

// Message gets the error message without the cause
func (e *LayeredError) Message() string {
	return e.msg
}

// HTTPStatus gets the HTTP status code
func (e *LayeredError) HTTPStatus() int {
	return e.httpStatus
}

// Data retrieves context data
func (e *LayeredError) Data() map[string]interface{} {
	return e.data
}

// Unwrap supports errors.Is / errors.As chains
func (e *LayeredError) Unwrap() error {
	return e.cause
}

// WithMsg replaces the message (returns a new instance)
func (e *LayeredError) WithMsg(msg string) *LayeredError {
	clone := *e
	clone.msg = msg
	return &clone
}

// WithMsgf formats a replacement message (returns a new instance)
func (e *LayeredError) WithMsgf(format string, args ...interface{}) *LayeredError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// WithData adds one context value (returns a new instance)
func (e *LayeredError) WithData(key string, value interface{}) *LayeredError {
	clone := *e
	clone.data = e.cloneData()
	clone.data[key] = value
	return &clone
}

// WithResultCode sets the CommonResult code (returns a new instance)
func (e *LayeredError) WithResultCode(code int) *LayeredError {
	clone := *e
	clone.resultCode = code
	return &clone
}

// WithHTTPStatus sets the HTTP status code (returns a new instance)
func (e *LayeredError) WithHTTPStatus(status int) *LayeredError {
	clone := *e
	clone.httpStatus = status
	return &clone
}

// Wrap wraps the original error (returns a new instance)
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	clone := *e
	clone.cause = cause
	return &clone
}

// Wrapf wraps the original error and formats the message
func (e *LayeredError) Wrapf(cause error, format string, args ...interface{}) *LayeredError {
	if cause == nil {
		return e.WithMsgf(format, args...)
	}
	clone := *e
	clone.cause = cause
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// Is matches by internal code
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	if !ok {
		return false
	}
	return e.code == t.code
}

func (e *LayeredError) cloneData() map[string]interface{} {
	data := make(map[string]interface{}, len(e.data))
	for k, v := range e.data {
		data[k] = v
	}
	return data
}

// String returns a debug representation
func (e *LayeredError) String() string {
	if e.cause != nil {
		return fmt.Sprintf("LayeredError{code:%d, result:%d, module:%s, msg:%s, cause:%v}",
			e.code, e.resultCode, e.module, e.msg, e.cause)
	}
	return fmt.Sprintf("LayeredError{code:%d, result:%d, module:%s, msg:%s}",
		e.code, e.resultCode, e.module, e.msg)
}
