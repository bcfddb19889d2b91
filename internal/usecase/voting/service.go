package voting

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"evote/internal/bootstrap/logging"
	"evote/internal/errs"
	"evote/internal/ports"
)

var (
	errRepositoryRequired = errors.New("voting repository is required")
	errUnitOfWorkRequired = errors.New("voting unit of work is required")
	errGatewayRequired    = errors.New("biometric gateway is required")
)

// Dependencies groups the collaborators of Service. Cache, Audit, Metrics, Clock
// and NewID are optional.
type Dependencies struct {
	Repo    ports.VotingRepository
	UoW     ports.UnitOfWork
	Org     ports.OrgDirectory
	Gateway *BiometricGateway
	Audit   ports.AuditSink
	Cache   ports.Cache
	Metrics ports.Metrics
	Clock   ports.Clock
	NewID   func() string
}

// Service hosts the vote-cast coordinator plus event administration and reads.
type Service struct {
	repo        ports.VotingRepository
	uow         ports.UnitOfWork
	org         ports.OrgDirectory
	eligibility *EligibilityResolver
	gateway     *BiometricGateway
	audit       ports.AuditSink
	cache       ports.Cache
	metrics     ports.Metrics
	clock       ports.Clock
	newID       func() string
}

func NewService(deps Dependencies) *Service {
	svc := &Service{
		repo:        deps.Repo,
		uow:         deps.UoW,
		org:         deps.Org,
		eligibility: NewEligibilityResolver(deps.Org),
		gateway:     deps.Gateway,
		audit:       deps.Audit,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		newID:       deps.NewID,
	}
	if svc.metrics == nil {
		svc.metrics = ports.NopMetrics{}
	}
	if svc.clock == nil {
		svc.clock = ports.SystemClock{}
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	return svc
}

func (s *Service) requireCore(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errRepositoryRequired
	}
	if s.uow == nil {
		return errUnitOfWorkRequired
	}
	return nil
}

func (s *Service) recordAttemptBestEffort(ctx context.Context, attempt ports.VoteAttempt) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordAttempt(ctx, attempt); err != nil {
		logging.Warn(ctx, "record vote attempt failed", slog.String("code", attempt.Code), slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		logging.Warn(ctx, "cache set failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if s.repo == nil {
		return errRepositoryRequired
	}
	return s.repo.Ping(ctx)
}
