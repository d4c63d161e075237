package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/retry"
)

// config 内部配置结构
type config struct {
	// Client 配置
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
	headers   map[string]string
	logger    *logger.CtxZapLogger

	// Request 配置
	queries      url.Values
	retryOpts    []retry.Option
	retryEnabled bool
	retrySet     bool

	// 钩子
	beforeRequest func(*http.Request) error
	afterResponse func(*Response) error
}

// Option 配置选项类型
type Option func(*config)

// WithBaseURL 设置基础 URL，相对路径的请求会拼接到它后面
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithTimeout 设置单次尝试的超时时间
func WithTimeout(duration time.Duration) Option {
	return func(c *config) {
		c.timeout = duration
	}
}

// WithHeader 设置单个 Header
func WithHeader(key, value string) Option {
	return func(c *config) {
		c.headers[key] = value
	}
}

// WithHeaders 设置多个 Headers
func WithHeaders(headers map[string]string) Option {
	return func(c *config) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithTransport 设置自定义 Transport
func WithTransport(transport http.RoundTripper) Option {
	return func(c *config) {
		c.transport = transport
	}
}

// WithLogger 设置日志
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(c *config) {
		c.logger = log
	}
}

// WithQuery 设置单个 Query 参数
func WithQuery(key, value string) Option {
	return func(c *config) {
		c.queries.Set(key, value)
	}
}

// WithRetry 设置重试选项
func WithRetry(opts ...retry.Option) Option {
	return func(c *config) {
		c.retryEnabled = true
		c.retrySet = true
		c.retryOpts = opts
	}
}

// WithRetryDefaults 使用默认 HTTP 重试策略
func WithRetryDefaults() Option {
	return WithRetry(retry.HTTPDefaults()...)
}

// DisableRetry 禁用重试
func DisableRetry() Option {
	return func(c *config) {
		c.retryEnabled = false
		c.retrySet = true
		c.retryOpts = nil
	}
}

// WithBeforeRequest 设置请求前钩子
func WithBeforeRequest(fn func(*http.Request) error) Option {
	return func(c *config) {
		c.beforeRequest = fn
	}
}

// WithAfterResponse 设置响应后钩子
func WithAfterResponse(fn func(*Response) error) Option {
	return func(c *config) {
		c.afterResponse = fn
	}
}

func newConfig() *config {
	return &config{
		headers: make(map[string]string),
		queries: make(url.Values),
	}
}

func applyOptions(cfg *config, opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
}

// merge 合并配置（Request 级配置覆盖 Client 级配置）
func (c *config) merge(other *config) *config {
	merged := &config{
		baseURL:       c.baseURL,
		timeout:       c.timeout,
		transport:     c.transport,
		headers:       make(map[string]string, len(c.headers)+len(other.headers)),
		logger:        c.logger,
		queries:       make(url.Values),
		retryEnabled:  c.retryEnabled,
		retryOpts:     c.retryOpts,
		beforeRequest: c.beforeRequest,
		afterResponse: c.afterResponse,
	}

	for k, v := range c.headers {
		merged.headers[k] = v
	}
	for k, v := range other.headers {
		merged.headers[k] = v
	}
	for _, qs := range []url.Values{c.queries, other.queries} {
		for k, vs := range qs {
			for _, v := range vs {
				merged.queries.Add(k, v)
			}
		}
	}

	if other.baseURL != "" {
		merged.baseURL = other.baseURL
	}
	if other.timeout > 0 {
		merged.timeout = other.timeout
	}
	if other.retrySet {
		merged.retryEnabled = other.retryEnabled
		merged.retryOpts = other.retryOpts
	}
	if other.beforeRequest != nil {
		merged.beforeRequest = other.beforeRequest
	}
	if other.afterResponse != nil {
		merged.afterResponse = other.afterResponse
	}

	return merged
}
