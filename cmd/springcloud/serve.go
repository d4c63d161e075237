package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Taro2021/springcloud/application"
	"github.com/Taro2021/springcloud/di"
	"github.com/spf13/cobra"
)

// serveFlags 会覆盖配置文件的命令行参数
type serveFlags struct {
	Port      int    `config:"server.port"`
	Discovery string `config:"discovery.type"`
}

type serveOptions struct {
	configDir string
	env       string
	flags     serveFlags
}

func (o *serveOptions) bind(cmd *cobra.Command, app string) {
	cmd.Flags().StringVar(&o.configDir, "config-dir", filepath.Join("configs", app), "Configuration directory")
	cmd.Flags().StringVar(&o.env, "env", "", "Environment overlay (<env>.yaml), defaults to APP_ENV")
	cmd.Flags().IntVar(&o.flags.Port, "port", 0, "HTTP port (overrides server.port)")
	cmd.Flags().StringVar(&o.flags.Discovery, "discovery", "", "Discovery type: static | etcd")
}

func (o *serveOptions) configOptions(app string) di.ConfigOptions {
	return di.ConfigOptions{
		AppName:    app,
		ConfigPath: o.configDir,
		Env:        o.env,
		EnvPrefix:  "APP",
		Flags:      &o.flags,
	}
}

// serve 创建应用、交给 setup 注册路由，然后阻塞到收到 SIGINT/SIGTERM
func serve(app string, opts *serveOptions, setup func(*application.Application) error) error {
	a, err := application.New(opts.configOptions(app))
	if err != nil {
		return err
	}
	if err := setup(a); err != nil {
		_ = di.Shutdown(a.Injector())
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}
