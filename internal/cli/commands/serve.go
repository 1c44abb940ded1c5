package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rails-api/active-model-serializers-sub000/internal/web/server"
	"github.com/rails-api/active-model-serializers-sub000/pkg/adapter"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		addr  string
		pprof bool
	)

	cmd := &cobra.Command{
		Use:   "serve <fixture.yaml>",
		Short: "Serve fixture records over HTTP",
		Long: `Serve the records of a fixture over HTTP.

Every model type is exposed under its plural name:
  GET /posts?include=author&fields[posts]=title&sort=-id&page[number]=2
  GET /posts/1?adapter=json
  POST /deserialize`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ds, err := a.loadDataset(ctx, args[0])
			if err != nil {
				return err
			}

			store, closer, err := newStore(a.config.Cache, a.logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			renderer := adapter.NewRenderer(ds.Registry, a.config,
				adapter.WithStore(store),
				adapter.WithLogger(a.logger))

			cfg := server.DefaultConfig()
			cfg.Address = addr
			var handlerOpts []server.HandlerOption
			if pprof {
				handlerOpts = append(handlerOpts, server.WithProfiler())
			}
			srv, err := server.New(cfg, server.NewHandler(ds, renderer, a.logger, handlerOpts...), a.logger)
			if err != nil {
				return err
			}
			if err := srv.Listen(); err != nil {
				return err
			}

			cmd.Printf("%s serving %s on %s\n",
				color.GreenString("✓"), color.CyanString(args[0]), color.CyanString(srv.Addr()))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultConfig().Address, "listen address")
	cmd.Flags().BoolVar(&pprof, "pprof", false, "serve pprof endpoints under /debug/pprof")
	return cmd
}
