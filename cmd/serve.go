package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zentab/tabagent/internal/config"
	"github.com/zentab/tabagent/internal/observability"
	"github.com/zentab/tabagent/internal/server"
)

// newServeCmd creates the `serve` command, which runs the planning backend
// HTTP service.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the planning backend service (POST /plan, GET /health, GET /providers)",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("server.listen_addr", cmd.Flags().Lookup("listen")); err != nil {
				return err
			}
			return viper.BindPFlag("server.default_provider", cmd.Flags().Lookup("provider"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}

			srv := server.New(cfg.Server, Version, observability.GetLogger())
			return srv.Run(cmd.Context())
		},
	}

	serveCmd.Flags().String("listen", "127.0.0.1:8765", "address to listen on")
	serveCmd.Flags().String("provider", "rule_based", "default planner provider")
	return serveCmd
}
