package payment

import (
	"net/http"
	"strconv"

	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/httpx"
	"github.com/Taro2021/springcloud/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler 支付服务 HTTP 接口
type Handler struct {
	svc       *Service
	discovery governance.ServiceDiscovery
	service   string
	logger    *logger.CtxZapLogger
}

// NewHandler 创建 Handler，discovery 可为空
func NewHandler(svc *Service, discovery governance.ServiceDiscovery, cfg Config, log *logger.CtxZapLogger) *Handler {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}
	cfg.ApplyDefaults()
	return &Handler{svc: svc, discovery: discovery, service: cfg.ServiceName, logger: log}
}

type idRequest struct {
	ID int64 `uri:"id"`
}

// DiscoveryResult /payment/discovery 的返回
type DiscoveryResult struct {
	Services  []string                      `json:"services"`
	Instances []*governance.ServiceInstance `json:"instances"`
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/payment")
	g.POST("/create", httpx.Wrap(h.create))
	g.GET("/get/:id", httpx.Wrap(h.get))
	g.GET("/lb", h.lb)
	g.GET("/discovery", h.discover)
	g.GET("/zk", h.registryInfo("zookeeper"))
	g.GET("/consul", h.registryInfo("consul"))
	g.GET("/hystrix/ok/:id", h.hystrixOK)
	g.GET("/hystrix/timeout/:id", h.hystrixTimeout)
	g.GET("/circuit/:id", h.circuit)
	g.GET("/:id", httpx.Wrap(h.query))
}

func (h *Handler) create(c *gin.Context, p *Payment) (*httpx.CommonResult, error) {
	affected, err := h.svc.Create(c.Request.Context(), p)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInsertFailed
	}
	result := httpx.NewResult(http.StatusOK, "插入成功, serverPort: "+h.svc.Port(), affected)
	return &result, nil
}

func (h *Handler) get(c *gin.Context, req *idRequest) (*httpx.CommonResult, error) {
	p, err := h.svc.Get(c.Request.Context(), req.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound.WithMsgf("没有对应记录, 查询ID: %d", req.ID)
	}
	result := httpx.NewResult(http.StatusOK, "查询成功, serverPort: "+h.svc.Port(), p)
	return &result, nil
}

// query Nacos provider 接口，记录不存在时 data 为 null
func (h *Handler) query(c *gin.Context, req *idRequest) (*httpx.CommonResult, error) {
	p, err := h.svc.Get(c.Request.Context(), req.ID)
	if err != nil {
		return nil, err
	}
	result := httpx.NewResult(http.StatusOK, "success, serverPort: "+h.svc.Port(), p)
	return &result, nil
}

func (h *Handler) lb(c *gin.Context) {
	c.String(http.StatusOK, h.svc.Port())
}

func (h *Handler) registryInfo(registry string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "springcloud with "+registry+": "+h.svc.Port()+"\t"+uuid.NewString())
	}
}

func (h *Handler) discover(c *gin.Context) {
	ctx := c.Request.Context()
	result := DiscoveryResult{Services: []string{}, Instances: []*governance.ServiceInstance{}}
	if h.discovery == nil {
		c.JSON(http.StatusOK, result)
		return
	}

	if lister, ok := h.discovery.(interface{ Services() []string }); ok {
		result.Services = lister.Services()
	} else {
		result.Services = []string{h.service}
	}
	for _, service := range result.Services {
		h.logger.InfoCtx(ctx, "service", zap.String("name", service))
	}

	instances, err := h.discovery.Discover(ctx, h.service)
	if err != nil {
		httpx.HandleError(c, err)
		return
	}
	for _, inst := range instances {
		h.logger.InfoCtx(ctx, "instance",
			zap.String("id", inst.ID),
			zap.String("host", inst.Address),
			zap.Int("port", inst.Port),
			zap.String("uri", inst.BaseURL()))
	}
	result.Instances = instances
	c.JSON(http.StatusOK, result)
}

func (h *Handler) hystrixOK(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ret := h.svc.PaymentOK(id)
	h.logger.InfoCtx(c.Request.Context(), "msg", zap.String("ret", ret))
	c.String(http.StatusOK, ret)
}

func (h *Handler) hystrixTimeout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ret, err := h.svc.HystrixTimeout(c.Request.Context(), id)
	if err != nil {
		httpx.HandleError(c, err)
		return
	}
	h.logger.InfoCtx(c.Request.Context(), "msg", zap.String("ret", ret))
	c.String(http.StatusOK, ret)
}

func (h *Handler) circuit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ret, err := h.svc.HystrixCircuit(c.Request.Context(), id)
	if err != nil {
		httpx.HandleError(c, err)
		return
	}
	h.logger.InfoCtx(c.Request.Context(), "result", zap.String("ret", ret))
	c.String(http.StatusOK, ret)
}

// pathID 解析 :id，失败时直接写 400
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.HandleError(c, badIDError(c.Param("id"), err))
		return 0, false
	}
	return id, true
}
