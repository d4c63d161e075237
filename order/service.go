package order

import (
	"context"

	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/errcode"
	"github.com/Taro2021/springcloud/httpx"
	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/payment"
	"go.uber.org/zap"
)

// HotKeyQuery /testHotKey 的查询参数，缺失的参数不参与热点判断
type HotKeyQuery struct {
	P1 *string `form:"p1"`
	P2 *string `form:"p2"`
}

// HotParams 参数顺序 p1, p2
func (q HotKeyQuery) HotParams() []any {
	return []any{optional(q.P1), optional(q.P2)}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// blockKinds Sentinel BlockException 对应的失败类型
var blockKinds = []breaker.FailureKind{
	breaker.FailureBreakerOpen,
	breaker.FailureRateLimited,
	breaker.FailureHotKeyBlocked,
}

// Service 订单业务：所有对支付服务的降级调用都经过 breaker Command
type Service struct {
	client *PaymentClient
	logger *logger.CtxZapLogger

	getCmd      *breaker.Command[int64, httpx.CommonResult]
	timeoutCmd  *breaker.Command[int64, string]
	okCmd       *breaker.Command[int64, string]
	fallbackCmd *breaker.Command[int64, httpx.CommonResult]
	test3Cmd    *breaker.Command[struct{}, string]
	hotKeyCmd   *breaker.Command[HotKeyQuery, string]
}

// NewService 创建服务并绑定 Commands
func NewService(client *PaymentClient, breakers *breaker.Manager, log *logger.CtxZapLogger) (*Service, error) {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}
	s := &Service{client: client, logger: log}

	var err error
	if s.getCmd, err = breaker.NewCommand(breakers, ResourcePaymentGet, s.queryPrimary, s.queryFallback); err != nil {
		return nil, err
	}
	if s.timeoutCmd, err = breaker.NewCommand(breakers, ResourcePaymentTimeout, client.HystrixTimeout, s.timeoutFallback); err != nil {
		return nil, err
	}
	if s.okCmd, err = breaker.NewCommand(breakers, ResourcePaymentOK, client.HystrixOK, s.okFallback); err != nil {
		return nil, err
	}
	if s.fallbackCmd, err = breaker.NewCommand(breakers, ResourceFallback, s.fallbackPrimary, s.handlerFallback); err != nil {
		return nil, err
	}
	if s.test3Cmd, err = breaker.NewCommand(breakers, ResourceTest3, s.test3Primary, s.dealTest3); err != nil {
		return nil, err
	}
	if s.hotKeyCmd, err = breaker.NewCommand(breakers, ResourceHotKey, s.hotKeyPrimary, s.dealTestHotKey); err != nil {
		return nil, err
	}
	// blockHandler 只处理拦截，业务异常原样抛出
	s.test3Cmd.WithFallbackOn(blockKinds...)
	s.hotKeyCmd.WithFallbackOn(blockKinds...)
	return s, nil
}

// Client 支付服务客户端（未加降级的直接调用）
func (s *Service) Client() *PaymentClient {
	return s.client
}

// PaymentQuery order.payment.get：Nacos provider 查询
func (s *Service) PaymentQuery(ctx context.Context, id int64) (httpx.CommonResult, error) {
	return s.getCmd.Execute(ctx, id)
}

// PaymentTimeout order.payment.timeout
func (s *Service) PaymentTimeout(ctx context.Context, id int64) (string, error) {
	return s.timeoutCmd.Execute(ctx, id)
}

// PaymentOK order.payment.ok
func (s *Service) PaymentOK(ctx context.Context, id int64) (string, error) {
	return s.okCmd.Execute(ctx, id)
}

// Fallback order.fallback：业务异常统一走兜底
func (s *Service) Fallback(ctx context.Context, id int64) (httpx.CommonResult, error) {
	return s.fallbackCmd.Execute(ctx, id)
}

// Test3 order.test3：总是失败，熔断打开后返回降级结果
func (s *Service) Test3(ctx context.Context) (string, error) {
	return s.test3Cmd.Execute(ctx, struct{}{})
}

// TestHotKey testHotKey：按 p1 做热点限流
func (s *Service) TestHotKey(ctx context.Context, q HotKeyQuery) (string, error) {
	return s.hotKeyCmd.Execute(ctx, q)
}

func (s *Service) queryPrimary(ctx context.Context, id int64) (httpx.CommonResult, error) {
	result, err := s.client.Query(ctx, id)
	if err != nil {
		return httpx.CommonResult{}, err
	}
	return *result, nil
}

func (s *Service) queryFallback(ctx context.Context, id int64, failure *breaker.Failure) (httpx.CommonResult, error) {
	s.logger.WarnCtx(ctx, "🛟 payment query fallback", zap.Int64("id", id), zap.Stringer("kind", failure.Kind))
	return httpx.NewResult(errcode.ResultFallbackServed, "PaymentFallbackService",
		payment.Payment{ID: id, Serial: "errorSerial"}), nil
}

func (s *Service) timeoutFallback(ctx context.Context, id int64, failure *breaker.Failure) (string, error) {
	s.logger.WarnCtx(ctx, "⏱️  payment timeout fallback", zap.Int64("id", id), zap.Stringer("kind", failure.Kind))
	return "支付服务繁忙", nil
}

func (s *Service) okFallback(ctx context.Context, id int64, failure *breaker.Failure) (string, error) {
	s.logger.WarnCtx(ctx, "🛟 payment ok fallback", zap.Int64("id", id), zap.Stringer("kind", failure.Kind))
	return "PaymentFallback: getPayment_OK", nil
}

func (s *Service) fallbackPrimary(ctx context.Context, id int64) (httpx.CommonResult, error) {
	result, err := s.client.Query(ctx, id)
	if err != nil {
		return httpx.CommonResult{}, err
	}
	if id == 4 {
		return httpx.CommonResult{}, ErrIllegalArgument
	}
	if result.Data == nil {
		return httpx.CommonResult{}, ErrNoRecord
	}
	return *result, nil
}

func (s *Service) handlerFallback(ctx context.Context, id int64, failure *breaker.Failure) (httpx.CommonResult, error) {
	msg := failure.Error()
	if failure.Cause != nil {
		msg = failure.Cause.Error()
	}
	return httpx.NewResult(errcode.ResultFailed, "兜底异常handlerFallback,exception内容  "+msg,
		payment.Payment{ID: id, Serial: "null"}), nil
}

func (s *Service) test3Primary(ctx context.Context, _ struct{}) (string, error) {
	s.logger.InfoCtx(ctx, "测试降级规则，异常比例")
	return "", ErrDivideByZero
}

func (s *Service) dealTest3(ctx context.Context, _ struct{}, failure *breaker.Failure) (string, error) {
	s.logger.DebugCtx(ctx, "test3 blocked", zap.Stringer("kind", failure.Kind))
	return "test3 fallback method", nil
}

func (s *Service) hotKeyPrimary(ctx context.Context, _ HotKeyQuery) (string, error) {
	return "test hot key", nil
}

func (s *Service) dealTestHotKey(ctx context.Context, _ HotKeyQuery, failure *breaker.Failure) (string, error) {
	return "test hot key fallback method", nil
}
