package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/sw33tLie/intender/internal/bridge"
	"github.com/sw33tLie/intender/internal/server"
	"github.com/sw33tLie/intender/internal/utils"
	"github.com/sw33tLie/intender/pkg/engine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the decision engine and the local browser bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		br := bridge.New()
		eng, err := engine.New(engine.Config{
			ReflectionURL: viper.GetString("reflection.url"),
			Browser:       br,
			Store:         db,
			Log:           utils.Log,
			Metrics:       engine.NewMetrics(prometheus.DefaultRegisterer),
		})
		if err != nil {
			return err
		}

		// The index must be in place before the first event can arrive.
		if err := eng.Reload(ctx); err != nil {
			return err
		}
		unsubscribe := eng.Subscribe()
		defer unsubscribe()

		srv := server.New(eng, br, viper.GetString("server.username"), viper.GetString("server.password"))
		srv.TestMode = viper.GetBool("testmode")
		if srv.TestMode {
			utils.Log.Warn("Test mode enabled: POST /api/test/inactivity is exposed")
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return eng.Run(ctx) })
		g.Go(func() error { return db.Watch(ctx, utils.Log) })
		g.Go(func() error { return srv.Start(ctx, viper.GetString("server.listen")) })
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "HTTP listen address (default from server.listen)")
	serveCmd.Flags().Bool("testmode", false, "Expose the inactivity test hook")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("testmode", serveCmd.Flags().Lookup("testmode"))
}

// contextOrBackground returns cmd's context, which is nil when a command is
// executed outside cobra's ExecuteContext.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
