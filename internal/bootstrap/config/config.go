package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"evote/internal/bootstrap/logging"
	"evote/internal/errs"
)

const envPrefix = "EVOTE"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Biometric BiometricConfig `mapstructure:"biometric"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Log       LogConfig       `mapstructure:"log"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type HTTPConfig struct {
	Addr        string        `mapstructure:"addr"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type BiometricConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Threshold   float64       `mapstructure:"threshold"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	Interval               time.Duration `mapstructure:"interval"`
	TickTimeout            time.Duration `mapstructure:"tick_timeout"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	BatchSize              int           `mapstructure:"batch_size"`
}

type NotifyConfig struct {
	Driver  string `mapstructure:"driver"`
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("notify_driver", cfg.Notify.Driver),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Biometric.Threshold < 0 || c.Biometric.Threshold > 100 {
		return fmt.Errorf("biometric.threshold must be within [0,100], got %v", c.Biometric.Threshold)
	}
	if c.Biometric.MaxAttempts < 1 {
		return errors.New("biometric.max_attempts must be at least 1")
	}
	if c.Scheduler.Interval <= 0 {
		return errors.New("scheduler.interval must be positive")
	}
	if c.Scheduler.MaxConsecutiveFailures < 1 {
		return errors.New("scheduler.max_consecutive_failures must be at least 1")
	}
	switch strings.ToLower(c.Notify.Driver) {
	case "log", "nats":
	default:
		return fmt.Errorf("unsupported notify.driver %q", c.Notify.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "evote")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".evote/state/evote.sqlite")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("biometric.base_url", "http://127.0.0.1:9090")
	v.SetDefault("biometric.api_key", "")
	v.SetDefault("biometric.threshold", 80)
	v.SetDefault("biometric.max_attempts", 3)
	v.SetDefault("biometric.base_delay", time.Second)
	v.SetDefault("biometric.timeout", 10*time.Second)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.tick_timeout", 30*time.Second)
	v.SetDefault("scheduler.max_consecutive_failures", 5)
	v.SetDefault("scheduler.batch_size", 100)
	v.SetDefault("notify.driver", "log")
	v.SetDefault("notify.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("notify.subject", "evote.results.published")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
