package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Taro2021/springcloud/httpx"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Aggregator 并发执行所有检查项。
// critical 检查失败为 unhealthy，其余失败为 degraded
type Aggregator struct {
	checkers []entry
	timeout  time.Duration
	metadata map[string]interface{}
	mu       sync.RWMutex
}

type entry struct {
	checker  Checker
	critical bool
}

// NewAggregator 创建聚合器，timeout <= 0 时使用 5s
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Aggregator{
		timeout:  timeout,
		metadata: make(map[string]interface{}),
	}
}

// Register 注册关键检查项
func (a *Aggregator) Register(checker Checker) {
	a.add(checker, true)
}

// RegisterOptional 注册非关键检查项，失败时整体为 degraded
func (a *Aggregator) RegisterOptional(checker Checker) {
	a.add(checker, false)
}

func (a *Aggregator) add(checker Checker, critical bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, entry{checker: checker, critical: critical})
}

// SetMetadata 附加到响应中的信息，如服务名、版本
func (a *Aggregator) SetMetadata(key string, value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metadata[key] = value
}

// Check 执行全部检查
func (a *Aggregator) Check(ctx context.Context) *Response {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.mu.RLock()
	entries := append([]entry(nil), a.checkers...)
	metadata := make(map[string]interface{}, len(a.metadata))
	for k, v := range a.metadata {
		metadata[k] = v
	}
	a.mu.RUnlock()

	results := make([]CheckResult, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			results[i] = checkOne(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	resp := &Response{
		Status:   StatusHealthy,
		Checks:   make(map[string]CheckResult, len(results)),
		Metadata: metadata,
	}
	for _, r := range results {
		resp.Checks[r.Name] = r
		switch {
		case r.Status == StatusUnhealthy:
			resp.Status = StatusUnhealthy
		case r.Status == StatusDegraded && resp.Status == StatusHealthy:
			resp.Status = StatusDegraded
		}
	}
	resp.Duration = time.Since(start)
	return resp
}

func checkOne(ctx context.Context, e entry) CheckResult {
	start := time.Now()
	result := CheckResult{Name: e.checker.Name(), Status: StatusHealthy}

	if err := e.checker.Check(ctx); err != nil {
		result.Error = err.Error()
		result.Status = StatusDegraded
		if e.critical {
			result.Status = StatusUnhealthy
		}
	}
	result.Duration = time.Since(start)
	return result
}

// RegisterRoutes 注册 GET /health，unhealthy 时返回 503
func (a *Aggregator) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		resp := a.Check(c.Request.Context())
		status := http.StatusOK
		if resp.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, httpx.NewResult(status, string(resp.Status), resp))
	})
}
