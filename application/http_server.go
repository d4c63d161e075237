package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Taro2021/springcloud/httpx"
	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/middleware"
	"github.com/Taro2021/springcloud/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// HTTPServer 封装 gin 引擎与 http.Server
type HTTPServer struct {
	engine     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	config     ServerConfig
	logger     *logger.CtxZapLogger
}

// NewHTTPServer 创建 HTTP 服务并按顺序注册中间件：
// otelgin → TraceID → RequestLog → ErrorLogging → HTTPMetrics → UnameFilter → Recovery
func NewHTTPServer(cfg AppConfig, tm *telemetry.Manager, log *logger.CtxZapLogger) (*HTTPServer, error) {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}
	ctx := context.Background()

	gin.SetMode(cfg.Server.Mode)

	// 不使用 gin.Default()，日志与 Recovery 由自定义中间件负责
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	// 🎯 otelgin 必须在 TraceID 之前，TraceID 优先使用 span 的 trace id
	if tm != nil && tm.IsEnabled() {
		engine.Use(otelgin.Middleware(tm.GetConfig().ServiceName,
			otelgin.WithTracerProvider(tm.TracerProvider())))
		log.DebugCtx(ctx, "✅ OpenTelemetry Trace middleware registered",
			zap.String("service_name", tm.GetConfig().ServiceName))
	}

	if t := cfg.Middleware.TraceID; t.Enable {
		traceCfg := middleware.DefaultTraceConfig()
		traceCfg.TraceIDKey = t.TraceIDKey
		traceCfg.TraceIDHeader = t.TraceIDHeader
		traceCfg.EnableResponseHeader = t.EnableResponseHeader
		engine.Use(middleware.TraceID(traceCfg))
	}

	if r := cfg.Middleware.RequestLog; r.Enable {
		engine.Use(middleware.RequestLogWithConfig(middleware.RequestLogConfig{
			SkipPaths: r.SkipPaths,
			Logger:    logger.GetLogger("gin-http"),
		}))
	}

	// HandleError 从 gin.Context 读取该配置
	engine.Use(httpx.ErrorLoggingMiddleware(cfg.ErrorLogging, log))

	if tm != nil && tm.HTTPMetricsEnabled() {
		metrics, err := middleware.NewHTTPMetrics(tm.Meter("springcloud/http"))
		if err != nil {
			return nil, fmt.Errorf("create http metrics: %w", err)
		}
		engine.Use(metrics.Handler())
	}

	if cfg.Server.UnameFilter {
		engine.Use(middleware.UnameFilter(log))
		log.DebugCtx(ctx, "✅ uname filter enabled")
	}

	// Panic 恢复（总是启用）
	engine.Use(middleware.Recovery(logger.GetLogger("gin-error")))

	engine.NoRoute(httpx.NoRouteHandler())
	engine.NoMethod(httpx.NoMethodHandler())

	return &HTTPServer{
		engine: engine,
		config: cfg.Server,
		logger: log,
	}, nil
}

// Engine 获取 gin 引擎（业务层注册路由）
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Start 绑定端口，端口不可用时立即返回错误
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("端口 %d 不可用: %w", s.config.Port, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return nil
}

// Addr 实际监听地址（Port 为 0 时由系统分配）
func (s *HTTPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve 阻塞处理请求，Shutdown 后返回 nil
func (s *HTTPServer) Serve() error {
	if s.httpServer == nil {
		if err := s.Start(); err != nil {
			return err
		}
	}

	s.logger.InfoCtx(context.Background(), "🚀 HTTP server started",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("mode", s.config.Mode))

	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.ErrorCtx(context.Background(), "❌ HTTP server failed", zap.Error(err))
		return fmt.Errorf("HTTP 服务异常退出: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.DebugCtx(ctx, "Shutting down HTTP server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP Server 关闭失败: %w", err)
	}
	s.logger.DebugCtx(ctx, "✅ HTTP server closed")
	return nil
}
