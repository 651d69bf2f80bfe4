package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trustmed/core"
	"trustmed/runner"
	"trustmed/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser bridge",
		Long:  "Starts the HTTP server: the WebSocket bridge on /ws, /healthz and the /api/speech preview.",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if addr != "" {
				settings.Server.ListenAddr = addr
			}
			logger := setupLogger(settings, os.Stderr)

			r, err := runner.New(settings, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			bridge := core.NewExternalEventHandler(r, logger)
			runner.RegisterInputEvents(bridge)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Start(ctx, server.Opts{Addr: settings.Server.ListenAddr, Bridge: bridge, Logger: logger})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultSettingsPath, "path to settings file (.yaml or .json)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.listen_addr")
	return cmd
}
