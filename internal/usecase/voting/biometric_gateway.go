package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"evote/internal/bootstrap/logging"
	domain "evote/internal/domain/voting"
	"evote/internal/errs"
	"evote/internal/ports"
)

const (
	defaultMatchThreshold = 80
	defaultMaxAttempts    = 3
	defaultBaseDelay      = time.Second
	backoffMultiplier     = 2
)

type BiometricConfig struct {
	Threshold   float64
	MaxAttempts int
	BaseDelay   time.Duration
}

type Verification struct {
	Matched    bool
	Confidence float64
	Attempts   int
}

// BiometricGateway wraps the external oracle with the retry policy. It never touches
// voter or ballot state.
type BiometricGateway struct {
	oracle  ports.BiometricOracle
	cfg     BiometricConfig
	metrics ports.Metrics
}

func NewBiometricGateway(oracle ports.BiometricOracle, cfg BiometricConfig, metrics ports.Metrics) *BiometricGateway {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultMatchThreshold
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &BiometricGateway{oracle: oracle, cfg: cfg, metrics: metrics}
}

func (g *BiometricGateway) Threshold() float64 {
	return g.cfg.Threshold
}

// Verify compares the reference token with the live photo. Only ErrServiceBusy is
// retried; no-face, multiple-faces and unavailable outcomes return immediately.
// Every returned error wraps domain.ErrVerification.
func (g *BiometricGateway) Verify(ctx context.Context, referenceToken string, livePhotoRef string) (Verification, error) {
	if g.oracle == nil {
		return Verification{}, fmt.Errorf("%w: oracle is not configured", domain.ErrVerification)
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.biometric"))

	attempts := 0
	operation := func() (float64, error) {
		attempts++
		score, err := g.oracle.Compare(ctx, referenceToken, livePhotoRef)
		switch {
		case err == nil:
			g.metrics.ObserveBiometricAttempt("ok")
			return score, nil
		case errors.Is(err, domain.ErrServiceBusy):
			g.metrics.ObserveBiometricAttempt("busy")
			return 0, err
		default:
			g.metrics.ObserveBiometricAttempt("error")
			return 0, backoff.Permanent(err)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.BaseDelay
	policy.Multiplier = backoffMultiplier
	policy.RandomizationFactor = 0
	policy.MaxInterval = g.cfg.BaseDelay << uint(g.cfg.MaxAttempts)

	score, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(g.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Warn(logCtx, "biometric oracle busy, backing off",
				slog.Int("attempt", attempts),
				slog.Duration("retry_in", next),
				slog.Any("err", errs.Loggable(err)),
			)
		}),
	)
	if err != nil {
		if errors.Is(err, domain.ErrServiceBusy) {
			err = errs.Transient(err)
		}
		return Verification{Attempts: attempts}, fmt.Errorf("%w: %w", domain.ErrVerification, err)
	}
	if score < 0 || score > 100 {
		return Verification{Attempts: attempts}, fmt.Errorf("%w: confidence %v out of range", domain.ErrVerification, score)
	}

	return Verification{
		Matched:    score >= g.cfg.Threshold,
		Confidence: score,
		Attempts:   attempts,
	}, nil
}
