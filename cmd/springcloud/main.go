// springcloud 支付服务（provider）与订单服务（consumer）的启动入口
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "springcloud",
	Short: "Service governance demo: payment provider and order consumer",
	Long: `springcloud runs the payment provider or the order consumer.

The consumer picks payment instances round-robin from static config or etcd,
and guards every remote call with timeout, circuit breaking and fallback.

Examples:
  springcloud payment --port 8001
  springcloud payment --port 8002 --env dev
  springcloud order --discovery etcd`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newPaymentCmd())
	rootCmd.AddCommand(newOrderCmd())
}
