package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"evote/internal/bootstrap/config"
	"evote/internal/bootstrap/logging"
	"evote/internal/errs"
	"evote/internal/infrastructure/metrics"
	"evote/internal/infrastructure/persistence/gormdb/model"
	"evote/internal/usecase/voting"
)

type App struct {
	Config    config.Config
	DB        *gorm.DB
	Voting    *voting.Service
	Scheduler *voting.Scheduler
	Metrics   *metrics.Recorder
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	if err := model.Migrate(ctx, a.DB); err != nil {
		return errs.Wrap(err, "migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}
