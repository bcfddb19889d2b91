package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"evote/internal/bootstrap"
	"evote/internal/bootstrap/logging"
	"evote/internal/errs"
)

func withApp(run func(cmd *cobra.Command, app *bootstrap.App) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var app *bootstrap.App
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&app),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		logCtx, err := configureLogger(cmd, ctx, app)
		if err != nil {
			return err
		}
		cmd.SetContext(logCtx)

		if err := run(cmd, app); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

// configureLogger swaps the bootstrap logger for one built from config and flags.
func configureLogger(cmd *cobra.Command, ctx context.Context, app *bootstrap.App) (context.Context, error) {
	level := app.Config.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	format := app.Config.Log.Format
	if logFormat != "" {
		format = logFormat
	}

	logger, err := logging.New(cmd.ErrOrStderr(), level, format)
	if err != nil {
		return nil, errs.Wrap(err, "configure logger")
	}
	return logging.WithLogger(ctx, logger), nil
}
