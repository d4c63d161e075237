package payment

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service 支付业务
type Service struct {
	repo   Repository
	config Config
	port   string
	logger *logger.CtxZapLogger

	timeoutCmd *breaker.Command[int64, string]
	circuitCmd *breaker.Command[int64, string]

	execSeq    atomic.Int64
	hystrixSeq atomic.Int64
}

// NewService 创建服务并绑定 hystrix 演示 Commands
func NewService(repo Repository, breakers *breaker.Manager, cfg Config, port string, log *logger.CtxZapLogger) (*Service, error) {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}
	cfg.ApplyDefaults()

	s := &Service{
		repo:   repo,
		config: cfg,
		port:   port,
		logger: log,
	}

	var err error
	s.timeoutCmd, err = breaker.NewCommand(breakers, ResourceTimeout, s.timeoutPrimary, s.timeoutFallback)
	if err != nil {
		return nil, err
	}
	s.circuitCmd, err = breaker.NewCommand(breakers, ResourceCircuit, s.circuitPrimary, s.circuitFallback)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Port 服务端口
func (s *Service) Port() string {
	return s.port
}

// Create 校验并插入，返回影响行数
func (s *Service) Create(ctx context.Context, p *Payment) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	affected, err := s.repo.Create(ctx, p)
	if err != nil {
		return 0, ErrInsertFailed.Wrap(err)
	}
	s.logger.InfoCtx(ctx, "插入结果", zap.Int("affected", affected), zap.Int64("id", p.ID))
	return affected, nil
}

// Get 查询记录，不存在时返回 nil
func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.InfoCtx(ctx, "查询结果", zap.Int64("id", id), zap.Bool("found", p != nil))
	return p, nil
}

// PaymentOK 正常服务
func (s *Service) PaymentOK(id int64) string {
	return fmt.Sprintf("线程id：%s,  getPayment_OK 订单 id ：%d", s.execWorker(), id)
}

// PaymentTimeout 模拟慢调用，ctx 取消时提前返回
func (s *Service) PaymentTimeout(ctx context.Context, id int64) (string, error) {
	return s.slowCall(ctx, id, s.execWorker())
}

// CircuitBreaker id < 0 时失败，否则返回流水号
func (s *Service) CircuitBreaker(id int64) (string, error) {
	return s.circuitCall(id, s.execWorker())
}

// HystrixTimeout payment.timeout Command
func (s *Service) HystrixTimeout(ctx context.Context, id int64) (string, error) {
	return s.timeoutCmd.Execute(ctx, id)
}

// HystrixCircuit payment.circuit Command
func (s *Service) HystrixCircuit(ctx context.Context, id int64) (string, error) {
	return s.circuitCmd.Execute(ctx, id)
}

func (s *Service) timeoutPrimary(ctx context.Context, id int64) (string, error) {
	return s.slowCall(ctx, id, s.hystrixWorker(ResourceTimeout))
}

func (s *Service) timeoutFallback(ctx context.Context, id int64, failure *breaker.Failure) (string, error) {
	s.logger.WarnCtx(ctx, "⏱️  payment.timeout fallback", zap.Stringer("kind", failure.Kind))
	return fmt.Sprintf("线程id：%s,  getPayment_TimeOutHandler 订单 id ：%d", s.hystrixWorker(ResourceTimeout), id), nil
}

func (s *Service) circuitPrimary(ctx context.Context, id int64) (string, error) {
	return s.circuitCall(id, s.hystrixWorker(ResourceCircuit))
}

func (s *Service) circuitFallback(ctx context.Context, id int64, failure *breaker.Failure) (string, error) {
	s.logger.WarnCtx(ctx, "🔌 payment.circuit fallback", zap.Stringer("kind", failure.Kind))
	return fmt.Sprintf("id 不能负数，请稍候再试,(┬＿┬)/~~     id: %d", id), nil
}

func (s *Service) slowCall(ctx context.Context, id int64, worker string) (string, error) {
	timer := time.NewTimer(s.config.TimeoutSleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
	}
	return fmt.Sprintf("线程id：%s,  getPayment_OK 订单 id ：%d", worker, id), nil
}

func (s *Service) circuitCall(id int64, worker string) (string, error) {
	if id < 0 {
		return "", ErrNegativeID
	}
	serial := strings.ReplaceAll(uuid.NewString(), "-", "")
	return worker + "\t" + "调用成功,流水号：" + serial, nil
}

// execWorker 普通请求的工作线程名
func (s *Service) execWorker() string {
	return fmt.Sprintf("http-nio-%s-exec-%d", s.port, s.execSeq.Add(1)%10+1)
}

// hystrixWorker Command 的工作线程名
func (s *Service) hystrixWorker(resource string) string {
	return fmt.Sprintf("hystrix-%s-%d", resource, s.hystrixSeq.Add(1)%10+1)
}
