package limiter

import "errors"

var (
	// ErrRateLimited 流控规则拒绝
	ErrRateLimited = errors.New("rate limited")

	// ErrHotKeyBlocked 热点参数规则拒绝
	ErrHotKeyBlocked = errors.New("hot key blocked")

	// ErrStoreClosed 存储已关闭
	ErrStoreClosed = errors.New("store is closed")
)

// ValidationError 配置验证错误
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Resource != "" {
		if e.Err != nil {
			return "limiter config validation failed for resource '" + e.Resource + "': " + e.Err.Error()
		}
		return "limiter config validation failed for resource '" + e.Resource + "." + e.Field + "': " + e.Message
	}

	if e.Field != "" {
		return "limiter config validation failed for field '" + e.Field + "': " + e.Message
	}

	if e.Err != nil {
		return "limiter config validation failed: " + e.Err.Error()
	}

	return "limiter config validation failed"
}

// Unwrap returns the nested validation error
func (e *ValidationError) Unwrap() error {
	return e.Err
}
