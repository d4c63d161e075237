package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/httpclient"
	"github.com/Taro2021/springcloud/httpx"
	"github.com/Taro2021/springcloud/limiter"
	"github.com/Taro2021/springcloud/payment"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const paymentService = "cloud-payment-service"

// startPayment 启动真实的 payment Handler
func startPayment(t *testing.T, port string) *httptest.Server {
	t.Helper()
	breakers, err := breaker.NewManager(breaker.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(breakers.Close)

	svc, err := payment.NewService(payment.NewMemoryRepository(payment.SeedPayments()...), breakers,
		payment.Config{TimeoutSleep: 10 * time.Millisecond}, port, nil)
	require.NoError(t, err)

	r := gin.New()
	payment.NewHandler(svc, nil, payment.Config{}, nil).RegisterRoutes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

type fixture struct {
	router    *gin.Engine
	discovery *governance.StaticDiscovery
	breakers  *breaker.Manager
	svc       *Service
}

func newFixture(t *testing.T, upstreams ...*httptest.Server) *fixture {
	t.Helper()

	addrs := make([]string, 0, len(upstreams))
	for _, ts := range upstreams {
		addrs = append(addrs, strings.TrimPrefix(ts.URL, "http://"))
	}
	discovery, err := governance.NewStaticDiscovery(map[string][]string{paymentService: addrs}, nil)
	require.NoError(t, err)

	limCfg := limiter.DefaultConfig()
	limCfg.Enabled = true
	limCfg.Resources["/test1"] = limiter.FlowRule{Rate: 1, Capacity: 1}
	limCfg.Resources[ResourceByResource] = limiter.FlowRule{Rate: 1, Capacity: 1}
	limCfg.Resources[ResourceCustomerBlock] = limiter.FlowRule{Rate: 1, Capacity: 1}
	limCfg.Params[ResourceHotKey] = limiter.ParamRule{Index: 0, QPS: 1, Burst: 1}
	lim, err := limiter.NewManager(limCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lim.Close() })

	brCfg := breaker.DefaultConfig()
	brCfg.Resources[ResourcePaymentTimeout] = breaker.Policy{Timeout: 50 * time.Millisecond}
	for resource, p := range BreakerPolicies() {
		brCfg.SetDefaultPolicy(resource, p)
	}
	breakers, err := breaker.NewManager(brCfg, breaker.WithAdmission(lim))
	require.NoError(t, err)
	t.Cleanup(breakers.Close)

	selector := governance.NewSelector(discovery, governance.DefaultConfig(), nil)
	client := NewPaymentClient(selector, httpclient.NewClient(httpclient.WithTimeout(time.Second)), Config{}, nil)
	svc, err := NewService(client, breakers, nil)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(svc, lim, nil).RegisterRoutes(r)
	return &fixture{router: r, discovery: discovery, breakers: breakers, svc: svc}
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) httpx.CommonResult {
	t.Helper()
	var result httpx.CommonResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), w.Body.String())
	return result
}

func TestConsumer_CreateAndGet(t *testing.T) {
	f := newFixture(t, startPayment(t, "8001"))

	result := decodeResult(t, f.get("/consumer/payment/create?serial=order-1"))
	assert.Equal(t, 200, result.Code)
	assert.Equal(t, "插入成功, serverPort: 8001", result.Message)

	result = decodeResult(t, f.get("/consumer/payment/get/4"))
	assert.Equal(t, 200, result.Code)
	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order-1", data["serial"])

	result = decodeResult(t, f.get("/consumer/payment/get/99"))
	assert.Equal(t, 444, result.Code)
	assert.Equal(t, "没有对应记录, 查询ID: 99", result.Message)

	w := f.get("/consumer/payment/create")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsumer_GetEntity(t *testing.T) {
	f := newFixture(t, startPayment(t, "8001"))
	result := decodeResult(t, f.get("/consumer/payment/getEntity/1"))
	assert.Equal(t, 200, result.Code)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	f = newFixture(t, broken)
	w := f.get("/consumer/payment/getEntity/1")
	assert.Equal(t, http.StatusOK, w.Code)
	result = decodeResult(t, w)
	assert.Equal(t, 444, result.Code)
	assert.Equal(t, "操作失败", result.Message)
}

func TestConsumer_LoadBalanced(t *testing.T) {
	f := newFixture(t, startPayment(t, "8001"), startPayment(t, "8002"))

	var ports []string
	for i := 0; i < 4; i++ {
		w := f.get("/consumer/payment/lb")
		require.Equal(t, http.StatusOK, w.Code)
		ports = append(ports, w.Body.String())
	}
	// 首次选择下标 1，之后交替
	assert.Equal(t, []string{"8002", "8001", "8002", "8001"}, ports)
}

func TestConsumer_EmptyInstanceSet(t *testing.T) {
	f := newFixture(t)

	w := f.get("/consumer/payment/lb")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = f.get("/consumer/payment/get/1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, httpx.ErrNoInstanceMessage, decodeResult(t, w).Message)
}

func TestConsumer_HystrixFallbacks(t *testing.T) {
	f := newFixture(t, startPayment(t, "8001"))

	w := f.get("/consumer/payment/hystrix/ok/3")
	assert.Contains(t, w.Body.String(), "getPayment_OK 订单 id ：3")

	f = newFixture(t)
	w = f.get("/consumer/payment/hystrix/ok/3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PaymentFallback: getPayment_OK", w.Body.String())

	w = f.get("/consumer/payment/hystrix/ok/x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsumer_HystrixTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()

	f := newFixture(t, slow)
	start := time.Now()
	w := f.get("/consumer/payment/hystrix/timeout/1")
	assert.Equal(t, "支付服务繁忙", w.Body.String())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestConsumer_Nacos(t *testing.T) {
	f := newFixture(t, startPayment(t, "9001"))

	result := decodeResult(t, f.get("/consumer/payment/nacos/2"))
	assert.Equal(t, 200, result.Code)
	assert.Equal(t, "success, serverPort: 9001", result.Message)

	f = newFixture(t)
	result = decodeResult(t, f.get("/consumer/payment/nacos/2"))
	assert.Equal(t, 44444, result.Code)
	assert.Equal(t, "PaymentFallbackService", result.Message)
	assert.Equal(t, map[string]any{"id": float64(2), "serial": "errorSerial"}, result.Data)
}

func TestSentinel_FlowRule(t *testing.T) {
	f := newFixture(t)

	w := f.get("/test1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test1", w.Body.String())

	w = f.get("/test1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	result := decodeResult(t, w)
	assert.Equal(t, 4444, result.Code)
	assert.Equal(t, httpx.BlockedMessage, result.Message)

	// 没有规则的资源不限流
	for i := 0; i < 3; i++ {
		assert.Equal(t, "test2", f.get("/test2").Body.String())
	}
}

func TestSentinel_Test3OpensBreaker(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		w := f.get("/test3")
		assert.Equal(t, http.StatusInternalServerError, w.Code, "call %d", i+1)
	}
	assert.Equal(t, breaker.StateOpen, f.breakers.State(ResourceTest3))

	w := f.get("/test3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test3 fallback method", w.Body.String())
}

func TestSentinel_Test3BusinessErrorSkipsFallback(t *testing.T) {
	f := newFixture(t)
	var fallbackFailures atomic.Int32
	f.breakers.EventBus().Subscribe(breaker.EventListenerFunc(func(e breaker.Event) {
		fallbackFailures.Add(1)
	}), breaker.EventFallbackFailure)

	_, err := f.svc.Test3(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDivideByZero)

	var fbErr *breaker.FallbackError
	assert.False(t, errors.As(err, &fbErr))
	assert.Equal(t, breaker.StateClosed, f.breakers.State(ResourceTest3))

	f.breakers.Close()
	assert.Equal(t, int32(0), fallbackFailures.Load())
}

func TestSentinel_HotKey(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "test hot key", f.get("/testHotKey?p1=a").Body.String())
	assert.Equal(t, "test hot key fallback method", f.get("/testHotKey?p1=a&p2=b").Body.String())
	assert.Equal(t, "test hot key", f.get("/testHotKey?p1=b").Body.String())

	// 没有 p1 时不参与热点判断
	for i := 0; i < 3; i++ {
		assert.Equal(t, "test hot key", f.get("/testHotKey?p2=a").Body.String())
	}
}

func TestSentinel_ByResource(t *testing.T) {
	f := newFixture(t)

	result := decodeResult(t, f.get("/byResource"))
	assert.Equal(t, 200, result.Code)
	assert.Equal(t, "按资源名称限流测试OK", result.Message)

	result = decodeResult(t, f.get("/byResource"))
	assert.Equal(t, 444, result.Code)
	assert.Equal(t, "byResource 服务不可用", result.Message)
}

func TestSentinel_CustomerBlockHandler(t *testing.T) {
	f := newFixture(t)

	result := decodeResult(t, f.get("/limit/customerBlockHandler"))
	assert.Equal(t, 200, result.Code)
	assert.Equal(t, "success", result.Message)
	assert.Equal(t, map[string]any{"id": float64(2022), "serial": "serial106"}, result.Data)

	w := f.get("/limit/customerBlockHandler")
	assert.Equal(t, http.StatusOK, w.Code)
	result = decodeResult(t, w)
	assert.Equal(t, 444, result.Code)
	assert.Equal(t, "global block exception handler2", result.Message)
}

func TestSentinel_Fallback(t *testing.T) {
	f := newFixture(t, startPayment(t, "9003"))

	tests := []struct {
		name    string
		id      string
		code    int
		message string
	}{
		{"record found", "1", 200, "success, serverPort: 9003"},
		{"illegal argument", "4", 444, "兜底异常handlerFallback,exception内容  IllegalArgumentException,非法参数异常...."},
		{"no record", "7", 444, "兜底异常handlerFallback,exception内容  NullPointerException,该ID没有对应记录,空指针异常"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := decodeResult(t, f.get("/fallback/"+tt.id))
			assert.Equal(t, tt.code, result.Code)
			assert.Equal(t, tt.message, result.Message)
			if tt.code == 444 {
				data, ok := result.Data.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "null", data["serial"])
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, paymentService, cfg.PaymentService)
	assert.Equal(t, paymentService, cfg.NacosService)
	assert.NoError(t, cfg.Validate())

	for resource, p := range BreakerPolicies() {
		merged := breaker.DefaultPolicy().Merge(p)
		assert.NoError(t, merged.Validate(), resource)
	}
}
