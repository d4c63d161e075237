package httpclient

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Build(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		wantURL string
		body    string
		ctype   string
	}{
		{
			name:    "query appended",
			req:     NewGetRequest("http://svc/payment/lb").WithQuery("uname", "z3"),
			wantURL: "http://svc/payment/lb?uname=z3",
		},
		{
			name:    "query merged into existing",
			req:     NewGetRequest("http://svc/testHotKey?p1=a").WithQuery("p2", "b"),
			wantURL: "http://svc/testHotKey?p1=a&p2=b",
		},
		{
			name:    "json body",
			req:     NewPostRequest("http://svc/payment/create").WithJSON(map[string]string{"serial": "s"}),
			wantURL: "http://svc/payment/create",
			body:    `{"serial":"s"}`,
			ctype:   "application/json",
		},
		{
			name:    "form body",
			req:     NewPostRequest("http://svc/form").WithForm(map[string]string{"a": "1"}),
			wantURL: "http://svc/form",
			body:    "a=1",
			ctype:   "application/x-www-form-urlencoded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpReq, err := tt.req.build(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, httpReq.URL.String())
			assert.Equal(t, tt.ctype, httpReq.Header.Get("Content-Type"))
			if tt.body != "" {
				data, _ := io.ReadAll(httpReq.Body)
				assert.Equal(t, tt.body, string(data))
			}
		})
	}
}

func TestRequest_BodyReusableAcrossAttempts(t *testing.T) {
	req := NewPostRequest("http://svc/x").WithJSON(map[string]int{"id": 1})

	for i := 0; i < 2; i++ {
		httpReq, err := req.build(context.Background())
		require.NoError(t, err)
		data, _ := io.ReadAll(httpReq.Body)
		assert.Equal(t, `{"id":1}`, string(data))
	}
}

func TestRequest_MarshalErrorSurfacesOnBuild(t *testing.T) {
	req := NewPostRequest("http://svc/x").WithJSON(map[string]any{"ch": make(chan int)})

	_, err := req.build(context.Background())
	assert.ErrorContains(t, err, "marshal request body")

	_, err = NewClient().Do(context.Background(), req)
	assert.Error(t, err)
}

func TestRequest_Method(t *testing.T) {
	assert.Equal(t, http.MethodGet, NewGetRequest("/").Method)
	assert.Equal(t, http.MethodPost, NewPostRequest("/").Method)
}
