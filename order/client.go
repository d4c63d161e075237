package order

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/httpclient"
	"github.com/Taro2021/springcloud/httpx"
	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/payment"
	"go.uber.org/zap"
)

// PaymentClient 调用支付服务，每次请求由 Selector 选出目标实例
type PaymentClient struct {
	selector *governance.Selector
	http     *httpclient.Client
	config   Config
	logger   *logger.CtxZapLogger
}

// NewPaymentClient 创建支付服务客户端
func NewPaymentClient(selector *governance.Selector, client *httpclient.Client, cfg Config, log *logger.CtxZapLogger) *PaymentClient {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}
	if client == nil {
		client = httpclient.NewClient(httpclient.WithLogger(log))
	}
	cfg.ApplyDefaults()
	return &PaymentClient{selector: selector, http: client, config: cfg, logger: log}
}

// target 选出 service 的一个实例，空实例集原样返回 governance.ErrEmptyInstanceSet
func (c *PaymentClient) target(ctx context.Context, service string) (httpclient.Option, error) {
	inst, err := c.selector.Pick(ctx, service)
	if err != nil {
		return nil, err
	}
	c.logger.DebugCtx(ctx, "➡️  call payment instance",
		zap.String("service", service),
		zap.String("instance", inst.ID))
	return httpclient.WithBaseURL(inst.BaseURL()), nil
}

// Create POST /payment/create
func (c *PaymentClient) Create(ctx context.Context, p *payment.Payment) (*httpx.CommonResult, error) {
	base, err := c.target(ctx, c.config.PaymentService)
	if err != nil {
		return nil, err
	}
	return httpclient.Post[httpx.CommonResult](ctx, c.http, "/payment/create", p, base)
}

// Get GET /payment/get/:id
func (c *PaymentClient) Get(ctx context.Context, id int64) (*httpx.CommonResult, error) {
	base, err := c.target(ctx, c.config.PaymentService)
	if err != nil {
		return nil, err
	}
	return httpclient.Get[httpx.CommonResult](ctx, c.http, "/payment/get/"+strconv.FormatInt(id, 10), base)
}

// GetEntity GET /payment/get/:id，返回完整响应，由调用方判断状态码
func (c *PaymentClient) GetEntity(ctx context.Context, id int64) (*httpclient.Response, error) {
	base, err := c.target(ctx, c.config.PaymentService)
	if err != nil {
		return nil, err
	}
	return c.http.Get(ctx, "/payment/get/"+strconv.FormatInt(id, 10), base)
}

// LB GET /payment/lb
func (c *PaymentClient) LB(ctx context.Context) (string, error) {
	return c.text(ctx, c.config.PaymentService, "/payment/lb")
}

// HystrixOK GET /payment/hystrix/ok/:id
func (c *PaymentClient) HystrixOK(ctx context.Context, id int64) (string, error) {
	return c.text(ctx, c.config.PaymentService, "/payment/hystrix/ok/"+strconv.FormatInt(id, 10))
}

// HystrixTimeout GET /payment/hystrix/timeout/:id
func (c *PaymentClient) HystrixTimeout(ctx context.Context, id int64) (string, error) {
	return c.text(ctx, c.config.PaymentService, "/payment/hystrix/timeout/"+strconv.FormatInt(id, 10))
}

// Query GET /payment/:id（Nacos provider）
func (c *PaymentClient) Query(ctx context.Context, id int64) (*httpx.CommonResult, error) {
	base, err := c.target(ctx, c.config.NacosService)
	if err != nil {
		return nil, err
	}
	return httpclient.Get[httpx.CommonResult](ctx, c.http, "/payment/"+strconv.FormatInt(id, 10), base)
}

func (c *PaymentClient) text(ctx context.Context, service, path string) (string, error) {
	base, err := c.target(ctx, service)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Get(ctx, path, base)
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", fmt.Errorf("GET %s: %w", path, err)
	}
	return resp.String(), nil
}
