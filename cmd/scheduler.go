package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"evote/internal/bootstrap"
	"evote/internal/bootstrap/logging"
	"evote/internal/errs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Voting event lifecycle commands",
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Close ended events, publish results and notify voters",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))

		once, _ := cmd.Flags().GetBool("once")
		interval, _ := cmd.Flags().GetDuration("interval")
		app.Scheduler.SetInterval(interval)
		if !once {
			return errs.Wrap(app.Scheduler.Run(ctx), "run scheduler")
		}

		result, err := app.Scheduler.TickOnce(ctx)
		if err != nil {
			return errs.Wrap(err, "scheduler tick")
		}
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"scheduler tick due=%d closed=%d already_closed=%d notified=%d notify_failures=%d\n",
			result.Due,
			result.Closed,
			result.AlreadyClosed,
			result.Notified,
			result.NotifyFailures,
		); err != nil {
			return errs.Wrap(err, "write scheduler output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerRunCmd.Flags().Bool("once", false, "Run one tick and exit")
	schedulerRunCmd.Flags().Duration("interval", 0, "Tick interval (defaults to scheduler.interval)")
}
