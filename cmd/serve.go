package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"evote/internal/bootstrap"
	"evote/internal/bootstrap/logging"
	domain "evote/internal/domain/voting"
	"evote/internal/errs"
	transporthttp "evote/internal/transport/http"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the voting API and run the lifecycle scheduler",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}
		withScheduler, _ := cmd.Flags().GetBool("scheduler")

		router := transporthttp.NewRouter(app.Voting, app.Metrics.Handler())
		server := transporthttp.NewServer(addr, router, app.Config.HTTP.ReadTimeout)
		server.BaseContext = func(_ net.Listener) context.Context { return ctx }

		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			logging.Info(ctx, "http server listening", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errs.Wrap(err, "serve http")
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return errs.Wrap(err, "shutdown http server")
			}
			logging.Info(ctx, "http server stopped")
			return nil
		})
		if withScheduler {
			group.Go(func() error {
				return runServeScheduler(groupCtx, app.Scheduler)
			})
		}

		return group.Wait()
	}),
}

type schedulerRunner interface {
	Run(ctx context.Context) error
}

// runServeScheduler runs the scheduler next to the API. A suspended scheduler
// stops closing events but votes and reads keep being served; the suspension
// is logged and left to the operator. Other errors still end the process.
func runServeScheduler(ctx context.Context, scheduler schedulerRunner) error {
	err := scheduler.Run(ctx)
	if errors.Is(err, domain.ErrSchedulerSuspended) {
		logging.Error(ctx, "scheduler suspended, api keeps serving", slog.Any("err", errs.Loggable(err)))
		return nil
	}
	return errs.Wrap(err, "run scheduler")
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to http.addr)")
	serveCmd.Flags().Bool("scheduler", true, "Run the event lifecycle scheduler in-process")
}
