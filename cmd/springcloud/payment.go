package main

import (
	"context"
	"strconv"

	"github.com/Taro2021/springcloud/application"
	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/di"
	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/payment"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPaymentCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Run the payment provider (cloud-payment-service)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve("payment", opts, setupPayment)
		},
	}
	opts.bind(cmd, "payment")
	return cmd
}

func setupPayment(app *application.Application) error {
	injector := app.Injector()

	var cfg payment.Config
	if err := app.Loader().UnmarshalKey("payment", &cfg); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	do.ProvideValue(injector, di.BreakerPolicies(payment.BreakerPolicies()))
	breakers, err := do.Invoke[*breaker.Manager](injector)
	if err != nil {
		return err
	}
	discovery, err := do.Invoke[governance.ServiceDiscovery](injector)
	if err != nil {
		return err
	}

	var seed []payment.Payment
	if cfg.Seed {
		seed = payment.SeedPayments()
	}
	repo := payment.NewMemoryRepository(seed...)

	svc, err := payment.NewService(repo, breakers, cfg, strconv.Itoa(app.Config().Server.Port), app.Logger())
	if err != nil {
		return err
	}
	app.Register(payment.NewHandler(svc, discovery, cfg, app.Logger()))

	app.Logger().InfoCtx(context.Background(), "💳 payment service ready",
		zap.String("service", cfg.ServiceName),
		zap.Int("port", app.Config().Server.Port),
		zap.Int("records", repo.Len()))
	return nil
}
