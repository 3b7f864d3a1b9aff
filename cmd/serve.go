// File: cmd/serve.go
package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/guestpass/internal/api"
	"github.com/xkilldash9x/guestpass/internal/autofill"
	"github.com/xkilldash9x/guestpass/internal/browser"
	"github.com/xkilldash9x/guestpass/internal/jobs"
	"github.com/xkilldash9x/guestpass/internal/observability"
	"go.uber.org/zap"
)

const jobsShutdownTimeout = 30 * time.Second

// newServeCmd creates the `serve` command, the HTTP trigger endpoint.
func newServeCmd(st *rootState) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web page and API that trigger runs",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return st.v.BindPFlag("server.listen_addr", cmd.Flags().Lookup("addr"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.loadConfig()
			if err != nil {
				return err
			}
			logger := observability.GetLogger()
			metrics := observability.NewMetrics()

			form := cfg.Form()
			launcher := browser.NewLauncher(cfg.Browser(), cfg.Timing(), logger)
			runner := autofill.NewRunner(form, cfg.Timing(), launcher, metrics, logger)
			service := jobs.NewService(runner, cfg.Runner(), metrics, logger)

			handlers := api.NewHandlers(logger, service, metrics.Handler(), form.TargetURL)
			server := api.NewServer(cfg.Server(), handlers, logger)

			serveErr := server.ListenAndServe(cmd.Context())

			ctx, cancel := context.WithTimeout(context.Background(), jobsShutdownTimeout)
			defer cancel()
			if err := service.Shutdown(ctx); err != nil {
				logger.Warn("Runs did not stop in time.", zap.Error(err))
			}
			logger.Info("Server stopped.")
			return serveErr
		},
	}

	serveCmd.Flags().String("addr", "127.0.0.1:5000", "Address to listen on")
	return serveCmd
}
