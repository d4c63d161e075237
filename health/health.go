// Package health 聚合各组件的健康检查并通过 /health 暴露
package health

import (
	"context"
	"time"
)

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded" // 部分依赖不可用，核心功能仍有降级兜底
	StatusUnhealthy Status = "unhealthy"
)

// Checker 单个检查项
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc 函数形式的 Checker
type CheckerFunc struct {
	name  string
	check func(ctx context.Context) error
}

// NewChecker 用函数创建 Checker
func NewChecker(name string, check func(ctx context.Context) error) Checker {
	return &CheckerFunc{name: name, check: check}
}

// Name 检查项名称
func (c *CheckerFunc) Name() string { return c.name }

// Check 执行检查
func (c *CheckerFunc) Check(ctx context.Context) error { return c.check(ctx) }

// CheckResult 单个检查项的结果
type CheckResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Response 健康检查响应
type Response struct {
	Status   Status                 `json:"status"`
	Duration time.Duration          `json:"duration"`
	Checks   map[string]CheckResult `json:"checks"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IsHealthy 是否完全健康
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}
