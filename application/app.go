// Package application 负责服务进程的启动与优雅关闭：
// 组装 DI 容器、创建 HTTP 服务、注册路由、维持注册中心心跳
package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/Taro2021/springcloud/config"
	"github.com/Taro2021/springcloud/di"
	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/health"
	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/redis"
	"github.com/Taro2021/springcloud/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Router 业务模块实现此接口注册路由
type Router interface {
	RegisterRoutes(r gin.IRouter)
}

// AppState 应用状态
type AppState int

const (
	StateInit AppState = iota
	StateRunning
	StateStopping
	StateStopped
)

// String 状态字符串表示
func (s AppState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Application 服务进程
type Application struct {
	name     string
	injector *do.RootScope
	loader   *config.Loader
	config   *AppConfig
	logger   *logger.CtxZapLogger
	server   *HTTPServer
	health   *health.Aggregator

	state AppState
	mu    sync.RWMutex
}

// New 创建应用：注册核心 Provider，读取 AppConfig，创建 HTTP 服务
func New(opts di.ConfigOptions) (*Application, error) {
	injector := di.NewInjector(opts)

	app, err := newApplication(opts.AppName, injector)
	if err != nil {
		_ = di.Shutdown(injector)
		return nil, err
	}
	return app, nil
}

func newApplication(name string, injector *do.RootScope) (*Application, error) {
	loader, err := do.Invoke[*config.Loader](injector)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	log, err := do.Invoke[*logger.CtxZapLogger](injector)
	if err != nil {
		return nil, err
	}

	appCfg, err := LoadAppConfig(loader)
	if err != nil {
		return nil, err
	}

	tm, err := do.Invoke[*telemetry.Manager](injector)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	server, err := NewHTTPServer(*appCfg, tm, log)
	if err != nil {
		return nil, err
	}

	agg := health.NewAggregator(appCfg.Server.ShutdownTimeout)
	agg.SetMetadata("service", name)
	agg.RegisterRoutes(server.Engine())

	log.DebugCtx(context.Background(), "✅ 应用初始化完成",
		zap.String("app", name),
		zap.Strings("config_files", loader.LoadedFiles()))

	return &Application{
		name:     name,
		injector: injector,
		loader:   loader,
		config:   appCfg,
		logger:   log,
		server:   server,
		health:   agg,
	}, nil
}

// Name 应用名
func (a *Application) Name() string { return a.name }

// Injector DI 容器，业务层用它获取组件或注册自己的 Provider
func (a *Application) Injector() do.Injector { return a.injector }

// Config 应用配置
func (a *Application) Config() *AppConfig { return a.config }

// Loader 配置加载器
func (a *Application) Loader() *config.Loader { return a.loader }

// Logger 应用日志
func (a *Application) Logger() *logger.CtxZapLogger { return a.logger }

// Engine gin 引擎
func (a *Application) Engine() *gin.Engine { return a.server.Engine() }

// Health 健康检查聚合器，业务层可注册自己的检查项
func (a *Application) Health() *health.Aggregator { return a.health }

// State 当前状态
func (a *Application) State() AppState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Application) setState(s AppState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Register 注册业务路由
func (a *Application) Register(routers ...Router) {
	for _, r := range routers {
		r.RegisterRoutes(a.server.Engine())
	}
}

// Run 启动服务并阻塞，直到 ctx 结束或任一后台任务失败，随后优雅关闭
func (a *Application) Run(ctx context.Context) error {
	if err := di.StartCoreComponents(ctx, a.injector, a.logger); err != nil {
		a.shutdown()
		return err
	}
	if err := a.registerHealthChecks(); err != nil {
		a.shutdown()
		return err
	}
	if err := a.server.Start(); err != nil {
		a.shutdown()
		return err
	}
	a.setState(StateRunning)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Serve)
	g.Go(func() error {
		return di.RegisterService(gctx, a.injector, a.Port())
	})
	g.Go(func() error {
		<-gctx.Done()
		a.setState(StateStopping)
		a.logger.InfoCtx(context.Background(), "🛑 shutting down", zap.String("app", a.name))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.shutdown()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Port 实际监听端口
func (a *Application) Port() int {
	if addr, ok := a.server.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return a.config.Server.Port
}

// Addr 实际监听地址，未启动时为 nil
func (a *Application) Addr() net.Addr {
	return a.server.Addr()
}

// registerHealthChecks redis 为关键依赖，注册中心为非关键依赖
func (a *Application) registerHealthChecks() error {
	redisMgr, err := do.Invoke[*redis.Manager](a.injector)
	if err != nil {
		return err
	}
	if redisMgr != nil {
		a.health.Register(health.NewChecker("redis", redisMgr.Ping))
	}

	registry, err := do.Invoke[*governance.EtcdRegistry](a.injector)
	if err != nil {
		return err
	}
	if registry != nil {
		a.health.RegisterOptional(health.NewChecker("registry", func(context.Context) error {
			if !registry.IsRegistered() {
				return governance.ErrNotRegistered
			}
			return nil
		}))
	}
	return nil
}

func (a *Application) shutdown() {
	if err := di.Shutdown(a.injector); err != nil {
		a.logger.ErrorCtx(context.Background(), "DI container shutdown failed", zap.Error(err))
	}
	a.setState(StateStopped)
}
