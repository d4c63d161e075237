package di

import (
	"context"
	"fmt"

	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/limiter"
	"github.com/Taro2021/springcloud/logger"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

// StartCoreComponents 触发核心组件初始化，配置错误在启动阶段暴露
func StartCoreComponents(ctx context.Context, injector do.Injector, log *logger.CtxZapLogger) error {
	if _, err := do.Invoke[*limiter.Manager](injector); err != nil {
		return fmt.Errorf("limiter: %w", err)
	}
	log.DebugCtx(ctx, "✅ Limiter 组件已就绪")

	if _, err := do.Invoke[*breaker.Manager](injector); err != nil {
		return fmt.Errorf("breaker: %w", err)
	}
	log.DebugCtx(ctx, "✅ Breaker 组件已就绪")

	if _, err := do.Invoke[*governance.Selector](injector); err != nil {
		return fmt.Errorf("selector: %w", err)
	}
	log.DebugCtx(ctx, "✅ Selector 组件已就绪")

	return nil
}

// RegisterService 把本节点注册到 etcd 并保持心跳，ctx 结束时注销。
// discovery.register 未启用时直接等待 ctx 结束
func RegisterService(ctx context.Context, injector do.Injector, port int) error {
	log := injectLogger(injector)

	registry, err := do.Invoke[*governance.EtcdRegistry](injector)
	if err != nil {
		return err
	}
	if registry == nil {
		<-ctx.Done()
		return nil
	}

	cfg, err := do.Invoke[governance.Config](injector)
	if err != nil {
		return err
	}
	info := serviceInfo(cfg.Register, port)

	regCtx, cancel := context.WithTimeout(ctx, registerTimeout)
	err = registry.Register(regCtx, info)
	cancel()
	if err != nil {
		return fmt.Errorf("register %s: %w", info.ServiceName, err)
	}
	log.InfoCtx(ctx, "📡 service registered",
		zap.String("service", info.ServiceName),
		zap.String("instance_id", info.InstanceID),
		zap.String("address", info.GetFullAddress()))

	<-ctx.Done()

	deregCtx, cancel := context.WithTimeout(context.Background(), registerTimeout)
	defer cancel()
	if err := registry.Deregister(deregCtx); err != nil {
		log.WarnCtx(deregCtx, "⚠️  deregister failed", zap.Error(err))
	}
	return nil
}

func serviceInfo(cfg governance.RegisterConfig, port int) *governance.ServiceInfo {
	address := cfg.Address
	if address == "" {
		address = governance.LocalIP()
	}
	return &governance.ServiceInfo{
		ServiceName: cfg.ServiceName,
		Address:     address,
		Port:        port,
		Protocol:    "http",
		Metadata:    cfg.Metadata,
		TTL:         cfg.TTL,
	}
}
