package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Taro2021/springcloud/errcode"
	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/httpx"
	"github.com/Taro2021/springcloud/limiter"
	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/middleware"
	"github.com/Taro2021/springcloud/payment"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 订单服务 HTTP 接口
type Handler struct {
	svc     *Service
	limiter limiter.Limiter
	logger  *logger.CtxZapLogger
}

// NewHandler 创建 Handler，l 为空时 sentinel 演示接口不限流
func NewHandler(svc *Service, l limiter.Limiter, log *logger.CtxZapLogger) *Handler {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}
	return &Handler{svc: svc, limiter: l, logger: log}
}

type idRequest struct {
	ID int64 `uri:"id"`
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/consumer/payment")
	g.GET("/create", httpx.Wrap(h.create))
	g.GET("/get/:id", httpx.Wrap(h.get))
	g.GET("/getEntity/:id", httpx.Wrap(h.getEntity))
	g.GET("/lb", h.lb)
	g.GET("/hystrix/ok/:id", h.hystrixOK)
	g.GET("/hystrix/timeout/:id", h.hystrixTimeout)
	g.GET("/nacos/:id", httpx.Wrap(h.nacos))

	// sentinel 演示
	r.GET("/test1", h.flow(), h.test1)
	r.GET("/test2", h.flow(), h.test2)
	r.GET("/test3", h.test3)
	r.GET("/testHotKey", h.testHotKey)
	r.GET("/byResource", h.resource(ResourceByResource, blockByResource), h.byResource)
	r.GET("/limit/customerBlockHandler", h.resource(ResourceCustomerBlock, CustomerBlockHandler2), h.customerBlockHandler)
	r.GET("/fallback/:id", httpx.Wrap(h.fallback))
}

// flow 按路由模式限流，被拦截时使用默认响应
func (h *Handler) flow() gin.HandlerFunc {
	if h.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimiter(h.limiter)
}

func (h *Handler) resource(resource string, block func(*gin.Context, error)) gin.HandlerFunc {
	if h.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.Resource(h.limiter, resource, block)
}

func (h *Handler) create(c *gin.Context, p *payment.Payment) (*httpx.CommonResult, error) {
	return h.svc.Client().Create(c.Request.Context(), p)
}

func (h *Handler) get(c *gin.Context, req *idRequest) (*httpx.CommonResult, error) {
	return h.svc.Client().Get(c.Request.Context(), req.ID)
}

// getEntity 检查下游状态码，非 2xx 返回 444 操作失败
func (h *Handler) getEntity(c *gin.Context, req *idRequest) (*httpx.CommonResult, error) {
	resp, err := h.svc.Client().GetEntity(c.Request.Context(), req.ID)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		h.logger.WarnCtx(c.Request.Context(), "payment returned non-2xx", zap.Int("status", resp.StatusCode))
		return nil, ErrOperationFailed
	}

	var result httpx.CommonResult
	if err := resp.JSON(&result); err != nil {
		return nil, errcode.ErrInternal.Wrap(err)
	}
	return &result, nil
}

// lb 没有实例时返回空 body
func (h *Handler) lb(c *gin.Context) {
	ret, err := h.svc.Client().LB(c.Request.Context())
	if errors.Is(err, governance.ErrEmptyInstanceSet) {
		c.String(http.StatusOK, "")
		return
	}
	if err != nil {
		httpx.HandleError(c, err)
		return
	}
	c.String(http.StatusOK, ret)
}

func (h *Handler) hystrixOK(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ret, err := h.svc.PaymentOK(c.Request.Context(), id)
	h.text(c, ret, err)
}

func (h *Handler) hystrixTimeout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ret, err := h.svc.PaymentTimeout(c.Request.Context(), id)
	if err == nil {
		h.logger.InfoCtx(c.Request.Context(), "msg", zap.String("ret", ret))
	}
	h.text(c, ret, err)
}

func (h *Handler) nacos(c *gin.Context, req *idRequest) (*httpx.CommonResult, error) {
	result, err := h.svc.PaymentQuery(c.Request.Context(), req.ID)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *Handler) test1(c *gin.Context) {
	c.String(http.StatusOK, "test1")
}

func (h *Handler) test2(c *gin.Context) {
	c.String(http.StatusOK, "test2")
}

func (h *Handler) test3(c *gin.Context) {
	ret, err := h.svc.Test3(c.Request.Context())
	h.text(c, ret, err)
}

func (h *Handler) testHotKey(c *gin.Context) {
	var q HotKeyQuery
	if p1, ok := c.GetQuery("p1"); ok {
		q.P1 = &p1
	}
	if p2, ok := c.GetQuery("p2"); ok {
		q.P2 = &p2
	}
	ret, err := h.svc.TestHotKey(c.Request.Context(), q)
	h.text(c, ret, err)
}

func (h *Handler) byResource(c *gin.Context) {
	httpx.OK(c, "按资源名称限流测试OK", payment.Payment{ID: 2020, Serial: "serial001"})
}

func (h *Handler) customerBlockHandler(c *gin.Context) {
	httpx.OK(c, "success", payment.Payment{ID: 2022, Serial: "serial106"})
}

func (h *Handler) fallback(c *gin.Context, req *idRequest) (*httpx.CommonResult, error) {
	result, err := h.svc.Fallback(c.Request.Context(), req.ID)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *Handler) text(c *gin.Context, ret string, err error) {
	if err != nil {
		httpx.HandleError(c, err)
		return
	}
	c.String(http.StatusOK, ret)
}

func blockByResource(c *gin.Context, _ error) {
	httpx.Fail(c, "byResource 服务不可用")
}

// CustomerBlockHandler2 全局限流处理
func CustomerBlockHandler2(c *gin.Context, _ error) {
	httpx.Fail(c, "global block exception handler2")
}

// pathID 解析 :id，失败时直接写 400
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.HandleError(c, errcode.ErrBadRequest.WithMsgf("非法 id: %s", c.Param("id")).Wrap(err))
		return 0, false
	}
	return id, true
}
