// Package httpclient 调用下游 HTTP 服务的客户端：baseURL、超时、重试、trace 透传
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/retry"
	"go.uber.org/zap"
)

// TraceHeader 透传给下游的 trace id 请求头
const TraceHeader = "X-Trace-ID"

// Client HTTP client
type Client struct {
	httpClient *http.Client
	config     *config
}

// NewClient 创建 HTTP client
func NewClient(opts ...Option) *Client {
	cfg := newConfig()
	cfg.timeout = 30 * time.Second
	applyOptions(cfg, opts)

	if cfg.transport == nil {
		cfg.transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	if cfg.logger == nil {
		cfg.logger = logger.GetLogger("springcloud")
	}

	return &Client{
		// 超时由每次尝试的 ctx 控制
		httpClient: &http.Client{Transport: cfg.transport},
		config:     cfg,
	}
}

// Do 执行请求。5xx 与 429 按重试策略重试，最终仍失败时返回最后一次响应；
// 只有网络错误等拿不到响应的情况才返回 error
func (c *Client) Do(ctx context.Context, req *Request, opts ...Option) (*Response, error) {
	reqCfg := newConfig()
	applyOptions(reqCfg, opts)
	cfg := c.config.merge(reqCfg)

	if cfg.baseURL != "" && !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		req.URL = strings.TrimRight(cfg.baseURL, "/") + "/" + strings.TrimLeft(req.URL, "/")
	}
	for k, vs := range cfg.queries {
		for _, v := range vs {
			req.Query.Add(k, v)
		}
	}
	for k, v := range cfg.headers {
		if _, exists := req.Headers[k]; !exists {
			req.Headers[k] = v
		}
	}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		if _, exists := req.Headers[TraceHeader]; !exists {
			req.Headers[TraceHeader] = traceID
		}
	}

	var (
		resp     *Response
		err      error
		attempts = 1
	)
	startTime := time.Now()

	attempt := func(ctx context.Context) error {
		resp, err = c.doRequest(ctx, req, cfg)
		if err != nil {
			return err
		}
		if resp.IsServerError() || resp.StatusCode == http.StatusTooManyRequests {
			return resp.Err()
		}
		return nil
	}

	if cfg.retryEnabled {
		err = retry.Do(ctx, attempt, cfg.retryOpts...)
		if n := retry.Attempts(err); n > 0 {
			attempts = n
		}
	} else {
		err = attempt(ctx)
	}

	var statusErr *StatusError
	if err != nil && !(errors.As(err, &statusErr) && resp != nil) {
		cfg.logger.WarnCtx(ctx, "⚠️  [HTTPClient] request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return nil, err
	}

	resp.Duration = time.Since(startTime)
	resp.Attempts = attempts

	cfg.logger.DebugCtx(ctx, "🌐 [HTTPClient] request done",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("attempts", attempts),
		zap.Duration("duration", resp.Duration))

	if cfg.afterResponse != nil {
		if err := cfg.afterResponse(resp); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// doRequest 执行单次请求
func (c *Client) doRequest(ctx context.Context, req *Request, cfg *config) (*Response, error) {
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	httpReq, err := req.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build http request failed: %w", err)
	}

	if cfg.beforeRequest != nil {
		if err := cfg.beforeRequest(httpReq); err != nil {
			return nil, fmt.Errorf("before request hook failed: %w", err)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	resp, err := newResponse(httpResp)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	return resp, nil
}

// Get 发送 GET 请求
func (c *Client) Get(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return c.Do(ctx, NewGetRequest(url), opts...)
}

// PostJSON 发送 JSON Body 的 POST 请求
func (c *Client) PostJSON(ctx context.Context, url string, data any, opts ...Option) (*Response, error) {
	return c.Do(ctx, NewPostRequest(url).WithJSON(data), opts...)
}

// DoWithData 执行请求并反序列化 JSON，非 2xx 返回 *StatusError
func DoWithData[T any](ctx context.Context, client *Client, req *Request, opts ...Option) (*T, error) {
	resp, err := client.Do(ctx, req, opts...)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var result T
	if err := resp.JSON(&result); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	return &result, nil
}

// Get 泛型版本
func Get[T any](ctx context.Context, client *Client, url string, opts ...Option) (*T, error) {
	return DoWithData[T](ctx, client, NewGetRequest(url), opts...)
}

// Post 泛型版本，data 按 JSON 序列化
func Post[T any](ctx context.Context, client *Client, url string, data any, opts ...Option) (*T, error) {
	return DoWithData[T](ctx, client, NewPostRequest(url).WithJSON(data), opts...)
}
