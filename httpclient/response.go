package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Response HTTP 响应封装，Body 已读取完毕
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte

	// 扩展字段
	Duration time.Duration // 请求总耗时（含重试）
	Attempts int           // 尝试次数
}

// IsSuccess 判断响应是否成功（2xx）
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsClientError 判断是否客户端错误（4xx）
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError 判断是否服务端错误（5xx）
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// JSON 反序列化 JSON 响应
func (r *Response) JSON(v any) error {
	if v == nil {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// String 返回响应 Body 字符串
func (r *Response) String() string {
	return string(r.Body)
}

// StatusError 非 2xx 响应，实现 retry.HTTPError
type StatusError struct {
	Code   int
	Status string
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
}

// StatusCode 返回 HTTP 状态码
func (e *StatusError) StatusCode() int {
	return e.Code
}

// Err 非 2xx 时返回 *StatusError
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &StatusError{Code: r.StatusCode, Status: r.Status, Body: r.Body}
}

// newResponse 读取并关闭 http.Response
func newResponse(httpResp *http.Response) (*Response, error) {
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}
