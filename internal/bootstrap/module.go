package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"evote/internal/bootstrap/config"
	"evote/internal/bootstrap/database"
	"evote/internal/bootstrap/logging"
	"evote/internal/errs"
	"evote/internal/infrastructure/biometric"
	cacheinfra "evote/internal/infrastructure/cache"
	"evote/internal/infrastructure/metrics"
	"evote/internal/infrastructure/notify"
	"evote/internal/infrastructure/persistence/gormdb/repository"
	"evote/internal/infrastructure/persistence/gormdb/uow"
	"evote/internal/ports"
	"evote/internal/usecase/voting"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(
		fx.Annotate(
			repository.NewVotingRepository,
			fx.As(new(ports.VotingRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			repository.NewOrgRepository,
			fx.As(new(ports.OrgDirectory)),
		),
	),
	fx.Provide(
		fx.Annotate(
			repository.NewAuditRepository,
			fx.As(new(ports.AuditSink)),
		),
	),
	fx.Provide(
		fx.Annotate(
			uow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewKVCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(metrics.NewRecorder),
	fx.Provide(func(r *metrics.Recorder) ports.Metrics { return r }),
	fx.Provide(func() ports.Clock { return ports.SystemClock{} }),
	fx.Provide(provideOracle),
	fx.Provide(provideGateway),
	fx.Provide(provideNotifier),
	fx.Provide(provideVotingService),
	fx.Provide(provideScheduler),
	fx.Provide(provideApp),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideOracle(cfg config.Config) (ports.BiometricOracle, error) {
	return biometric.NewHTTPOracle(biometric.Config{
		BaseURL: cfg.Biometric.BaseURL,
		APIKey:  cfg.Biometric.APIKey,
		Timeout: cfg.Biometric.Timeout,
	})
}

func provideGateway(oracle ports.BiometricOracle, cfg config.Config, m ports.Metrics) *voting.BiometricGateway {
	return voting.NewBiometricGateway(oracle, voting.BiometricConfig{
		Threshold:   cfg.Biometric.Threshold,
		MaxAttempts: cfg.Biometric.MaxAttempts,
		BaseDelay:   cfg.Biometric.BaseDelay,
	}, m)
}

func provideNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.Notifier, error) {
	if !strings.EqualFold(cfg.Notify.Driver, "nats") {
		return notify.LogNotifier{}, nil
	}

	conn, err := notify.Connect(cfg.Notify.NATSURL, cfg.App.Name)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := conn.Drain(); err != nil {
				return errs.Wrap(err, "drain nats connection")
			}
			return nil
		},
	})
	logging.Info(logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx")),
		"nats notifier configured", slog.String("subject", cfg.Notify.Subject))
	return notify.NewNATSNotifier(conn, cfg.Notify.Subject)
}

type votingParams struct {
	fx.In

	Repo    ports.VotingRepository
	UoW     ports.UnitOfWork
	Org     ports.OrgDirectory
	Gateway *voting.BiometricGateway
	Audit   ports.AuditSink
	Cache   ports.Cache
	Metrics ports.Metrics
	Clock   ports.Clock
}

func provideVotingService(p votingParams) *voting.Service {
	return voting.NewService(voting.Dependencies{
		Repo:    p.Repo,
		UoW:     p.UoW,
		Org:     p.Org,
		Gateway: p.Gateway,
		Audit:   p.Audit,
		Cache:   p.Cache,
		Metrics: p.Metrics,
		Clock:   p.Clock,
	})
}

type schedulerParams struct {
	fx.In

	Config   config.Config
	Repo     ports.VotingRepository
	UoW      ports.UnitOfWork
	Notifier ports.Notifier
	Cache    ports.Cache
	Metrics  ports.Metrics
	Clock    ports.Clock
}

func provideScheduler(p schedulerParams) *voting.Scheduler {
	return voting.NewScheduler(voting.SchedulerDependencies{
		Repo:     p.Repo,
		UoW:      p.UoW,
		Notifier: p.Notifier,
		Cache:    p.Cache,
		Metrics:  p.Metrics,
		Clock:    p.Clock,
	}, voting.SchedulerConfig{
		Interval:               p.Config.Scheduler.Interval,
		TickTimeout:            p.Config.Scheduler.TickTimeout,
		MaxConsecutiveFailures: p.Config.Scheduler.MaxConsecutiveFailures,
		BatchSize:              p.Config.Scheduler.BatchSize,
	})
}

func provideApp(cfg config.Config, db *gorm.DB, svc *voting.Service, scheduler *voting.Scheduler, recorder *metrics.Recorder) *App {
	return &App{
		Config:    cfg,
		DB:        db,
		Voting:    svc,
		Scheduler: scheduler,
		Metrics:   recorder,
	}
}
