package retry

import (
	"fmt"
	"strings"
)

// MultiError 多次尝试失败的错误聚合
type MultiError struct {
	Errors   []error // 每次尝试的错误
	Attempts int     // 尝试次数
}

// Error 返回最后一次的错误信息
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "retry failed: no errors"
	}
	return e.Errors[len(e.Errors)-1].Error()
}

// Unwrap 返回最后一次错误
func (e *MultiError) Unwrap() error {
	return e.LastError()
}

// LastError 返回最后一次的错误
func (e *MultiError) LastError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// AllErrors 返回全部错误的可读描述
func (e *MultiError) AllErrors() string {
	var b strings.Builder
	fmt.Fprintf(&b, "retry failed after %d attempts:", e.Attempts)
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "\n  attempt %d: %v", i+1, err)
	}
	return b.String()
}
