package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/errcode"
	"github.com/Taro2021/springcloud/logger"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBreakers(t *testing.T) *breaker.Manager {
	t.Helper()
	cfg := breaker.DefaultConfig()
	for resource, p := range BreakerPolicies() {
		cfg.SetDefaultPolicy(resource, p)
	}
	cfg.Resources[ResourceTimeout] = breaker.Policy{Timeout: 30 * time.Millisecond}

	m, err := breaker.NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func newTestService(t *testing.T, seed ...Payment) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository(seed...)
	svc, err := NewService(repo, newBreakers(t), Config{TimeoutSleep: 300 * time.Millisecond}, "8001",
		logger.NewTestLogger("payment").CtxZapLogger)
	require.NoError(t, err)
	return svc, repo
}

func TestPayment_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payment Payment
		wantErr bool
	}{
		{"valid", Payment{Serial: "abc"}, false},
		{"empty serial", Payment{}, true},
		{"serial too long", Payment{Serial: strings.Repeat("x", 201)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payment.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var errs validation.Errors
			require.True(t, errors.As(err, &errs))
			assert.Contains(t, errs, "serial")
		})
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(SeedPayments()...)
	assert.Equal(t, 3, repo.Len())

	p := &Payment{Serial: "new"}
	affected, err := repo.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	assert.Equal(t, int64(4), p.ID, "ids continue after the seed")

	affected, err = repo.Create(ctx, &Payment{ID: 1, Serial: "dup"})
	require.NoError(t, err)
	assert.Equal(t, 0, affected, "duplicate id inserts nothing")

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "28a8c1e3bc2742d8848569891fb42181", got.Serial)

	got, err = repo.GetByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, got)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.GetByID(cancelled, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, &Payment{})
	require.Error(t, err)

	affected, err := svc.Create(ctx, &Payment{Serial: "s-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	p, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "s-1", p.Serial)
}

type failingRepo struct{ Repository }

func (failingRepo) Create(context.Context, *Payment) (int, error) {
	return 0, errors.New("disk full")
}

func TestService_CreateRepositoryError(t *testing.T) {
	svc, err := NewService(failingRepo{}, newBreakers(t), Config{}, "8001", nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), &Payment{Serial: "x"})
	assert.True(t, errors.Is(err, ErrInsertFailed))

	var layered *errcode.LayeredError
	require.True(t, errors.As(err, &layered))
	assert.Equal(t, errcode.ResultFailed, layered.ResultCode())
}

func TestService_PaymentOK(t *testing.T) {
	svc, _ := newTestService(t)
	msg := svc.PaymentOK(31)
	assert.True(t, strings.HasPrefix(msg, "线程id：http-nio-8001-exec-"))
	assert.True(t, strings.HasSuffix(msg, ",  getPayment_OK 订单 id ：31"))
}

func TestService_PaymentTimeoutHonoursContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.PaymentTimeout(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestService_HystrixTimeoutFallback(t *testing.T) {
	svc, _ := newTestService(t)

	msg, err := svc.HystrixTimeout(context.Background(), 7)
	require.NoError(t, err)
	assert.Contains(t, msg, "getPayment_TimeOutHandler 订单 id ：7")
	assert.Contains(t, msg, "hystrix-payment.timeout-")
}

func TestService_CircuitBreaker(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CircuitBreaker(-1)
	assert.ErrorIs(t, err, ErrNegativeID)

	msg, err := svc.CircuitBreaker(1)
	require.NoError(t, err)
	parts := strings.SplitN(msg, "\t", 2)
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[1], "调用成功,流水号："))
	assert.Len(t, strings.TrimPrefix(parts[1], "调用成功,流水号："), 32)
}

func TestService_HystrixCircuitOpens(t *testing.T) {
	ctx := context.Background()
	breakers := newBreakers(t)
	svc, err := NewService(NewMemoryRepository(), breakers, Config{}, "8001", nil)
	require.NoError(t, err)
	fallback := "id 不能负数，请稍候再试,(┬＿┬)/~~     id: "

	msg, err := svc.HystrixCircuit(ctx, 5)
	require.NoError(t, err)
	assert.Contains(t, msg, "调用成功")
	assert.Equal(t, breaker.StateClosed, breakers.State(ResourceCircuit))

	// 10 次请求中失败率 >= 60% 后跳闸
	for i := 0; i < 9; i++ {
		msg, err := svc.HystrixCircuit(ctx, -1)
		require.NoError(t, err)
		assert.Equal(t, fallback+"-1", msg)
	}
	assert.Equal(t, breaker.StateOpen, breakers.State(ResourceCircuit))

	// 打开后正常 id 也走降级
	msg, err = svc.HystrixCircuit(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, fallback+"5", msg)
}
