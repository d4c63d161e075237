package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request HTTP 请求封装，Body 缓存为字节以便重试
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values

	body []byte
	err  error
}

// NewRequest 创建新的 Request
func NewRequest(method, urlStr string) *Request {
	return &Request{
		Method:  method,
		URL:     urlStr,
		Headers: make(map[string]string),
		Query:   make(url.Values),
	}
}

// NewGetRequest 创建 GET Request
func NewGetRequest(urlStr string) *Request {
	return NewRequest(http.MethodGet, urlStr)
}

// NewPostRequest 创建 POST Request
func NewPostRequest(urlStr string) *Request {
	return NewRequest(http.MethodPost, urlStr)
}

// WithHeader 设置 Header
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithQuery 设置 Query 参数
func (r *Request) WithQuery(key, value string) *Request {
	r.Query.Set(key, value)
	return r
}

// WithBody 读取并缓存 Body
func (r *Request) WithBody(body io.Reader) *Request {
	if body == nil {
		return r
	}
	data, err := io.ReadAll(body)
	if err != nil {
		r.err = fmt.Errorf("read request body: %w", err)
		return r
	}
	r.body = data
	return r
}

// WithJSON 设置 JSON Body，序列化失败在 Do 时返回
func (r *Request) WithJSON(data any) *Request {
	if data == nil {
		return r
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		r.err = fmt.Errorf("marshal request body: %w", err)
		return r
	}

	r.body = jsonData
	r.Headers["Content-Type"] = "application/json"
	return r
}

// WithForm 设置 Form Body
func (r *Request) WithForm(data map[string]string) *Request {
	if data == nil {
		return r
	}

	form := make(url.Values, len(data))
	for k, v := range data {
		form.Set(k, v)
	}

	r.body = []byte(form.Encode())
	r.Headers["Content-Type"] = "application/x-www-form-urlencoded"
	return r
}

// build 构建 http.Request，每次调用返回新的 Body reader
func (r *Request) build(ctx context.Context) (*http.Request, error) {
	if r.err != nil {
		return nil, r.err
	}

	fullURL := r.URL
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL += sep + r.Query.Encode()
	}

	var body io.Reader
	if len(r.body) > 0 {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, fullURL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
