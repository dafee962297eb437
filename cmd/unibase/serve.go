package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/river-berlin/unibase/internal/cli"
	httpAdapter "github.com/river-berlin/unibase/pkg/adapters/http"
	"github.com/river-berlin/unibase/pkg/adapters/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the project API, scene event streams and Prometheus metrics. With
--mcp-addr the MCP server is exposed over SSE as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		app, err := buildApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}
		mcpAddr, _ := cmd.Flags().GetString("mcp-addr")

		opts := []httpAdapter.Option{
			httpAdapter.WithStreams(app.Streams),
			httpAdapter.WithLogger(app.Logger),
		}
		if app.Config.HTTP.MaxBodySize > 0 {
			opts = append(opts, httpAdapter.WithMaxBodySize(app.Config.HTTP.MaxBodySize))
		}
		if app.Config.HTTP.Metrics {
			opts = append(opts, httpAdapter.WithMetrics(app.Metrics.Handler()))
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(app.Engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			app.Logger.Info("Starting unibase server", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			app.Logger.Info("Shutting down server", "signal", ctx.Signal())
			return srv.Shutdown(shutdownCtx)
		})
		if mcpAddr != "" {
			g.Go(func() error {
				return mcp.NewServer(app.Engine, mcp.WithLogger(app.Logger)).ServeSSE(gctx, mcpAddr)
			})
		}
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to http.addr from the config)")
	serveCmd.Flags().String("mcp-addr", "", "Also serve MCP over SSE on this address")
}
