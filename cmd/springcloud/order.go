package main

import (
	"context"

	"github.com/Taro2021/springcloud/application"
	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/di"
	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/health"
	"github.com/Taro2021/springcloud/httpclient"
	"github.com/Taro2021/springcloud/limiter"
	"github.com/Taro2021/springcloud/order"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newOrderCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Run the order consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve("order", opts, setupOrder)
		},
	}
	opts.bind(cmd, "order")
	return cmd
}

func setupOrder(app *application.Application) error {
	injector := app.Injector()

	var cfg order.Config
	if err := app.Loader().UnmarshalKey("order", &cfg); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	do.ProvideValue(injector, di.BreakerPolicies(order.BreakerPolicies()))
	breakers, err := do.Invoke[*breaker.Manager](injector)
	if err != nil {
		return err
	}
	lim, err := do.Invoke[*limiter.Manager](injector)
	if err != nil {
		return err
	}
	selector, err := do.Invoke[*governance.Selector](injector)
	if err != nil {
		return err
	}
	client, err := do.Invoke[*httpclient.Client](injector)
	if err != nil {
		return err
	}

	svc, err := order.NewService(order.NewPaymentClient(selector, client, cfg, app.Logger()), breakers, app.Logger())
	if err != nil {
		return err
	}
	app.Register(order.NewHandler(svc, lim, app.Logger()))
	app.Health().RegisterOptional(health.NewChecker("discovery", func(ctx context.Context) error {
		instances, err := selector.Discovery().Discover(ctx, cfg.PaymentService)
		if err != nil {
			return err
		}
		if len(governance.HealthyOnly(instances)) == 0 {
			return governance.ErrEmptyInstanceSet
		}
		return nil
	}))

	app.Logger().InfoCtx(context.Background(), "🛒 order service ready",
		zap.String("payment_service", cfg.PaymentService),
		zap.Bool("limiter", lim.IsEnabled()))
	return nil
}
