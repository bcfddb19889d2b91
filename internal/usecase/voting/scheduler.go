package voting

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"evote/internal/bootstrap/logging"
	domain "evote/internal/domain/voting"
	"evote/internal/errs"
	"evote/internal/ports"
)

const (
	defaultSchedulerInterval      = time.Minute
	defaultSchedulerTickTimeout   = 30 * time.Second
	defaultMaxConsecutiveFailures = 5
	defaultCloseBatchSize         = 100

	schedulerHeartbeatKey = "scheduler:last_tick"
)

type SchedulerConfig struct {
	Interval               time.Duration
	TickTimeout            time.Duration
	MaxConsecutiveFailures int
	BatchSize              int
}

type SchedulerDependencies struct {
	Repo     ports.VotingRepository
	UoW      ports.UnitOfWork
	Notifier ports.Notifier
	Cache    ports.Cache
	Metrics  ports.Metrics
	Clock    ports.Clock
}

type TickResult struct {
	Due            int
	Closed         int
	AlreadyClosed  int
	Failed         int
	Notified       int
	NotifyFailures int
}

// Scheduler closes events whose window has ended, publishes their results and
// notifies the voters who cast valid ballots. A single scheduler drives one
// store; concurrent runs stay safe because closing is a conditional update.
type Scheduler struct {
	repo     ports.VotingRepository
	uow      ports.UnitOfWork
	notifier ports.Notifier
	cache    ports.Cache
	metrics  ports.Metrics
	clock    ports.Clock
	cfg      SchedulerConfig

	consecutiveFailures int
}

func NewScheduler(deps SchedulerDependencies, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSchedulerInterval
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = defaultSchedulerTickTimeout
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultCloseBatchSize
	}
	s := &Scheduler{
		repo:     deps.Repo,
		uow:      deps.UoW,
		notifier: deps.Notifier,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		cfg:      cfg,
	}
	if s.metrics == nil {
		s.metrics = ports.NopMetrics{}
	}
	if s.clock == nil {
		s.clock = ports.SystemClock{}
	}
	return s
}

// SetInterval overrides the tick interval before Run starts.
func (s *Scheduler) SetInterval(interval time.Duration) {
	if interval > 0 {
		s.cfg.Interval = interval
	}
}

func (s *Scheduler) ConsecutiveFailures() int {
	return s.consecutiveFailures
}

// Run ticks immediately and then every Interval until ctx is done. It returns
// domain.ErrSchedulerSuspended once MaxConsecutiveFailures ticks fail in a row.
func (s *Scheduler) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.scheduler"))
	logging.Info(logCtx, "scheduler started", slog.Duration("interval", s.cfg.Interval))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.tick(logCtx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			logging.Info(logCtx, "scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// tick runs one bounded TickOnce and applies the failure policy.
func (s *Scheduler) tick(ctx context.Context) error {
	tickCtx, cancel := context.WithTimeout(ctx, s.cfg.TickTimeout)
	defer cancel()

	result, err := s.TickOnce(tickCtx)
	if err == nil {
		s.consecutiveFailures = 0
		s.metrics.ObserveSchedulerTick("ok")
		s.metrics.SetSchedulerConsecutiveFailures(0)
		if result.Due > 0 {
			logging.Info(ctx, "scheduler tick completed",
				slog.Int("due", result.Due),
				slog.Int("closed", result.Closed),
				slog.Int("notified", result.Notified),
				slog.Int("notify_failures", result.NotifyFailures),
			)
		}
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	s.consecutiveFailures++
	s.metrics.ObserveSchedulerTick("error")
	s.metrics.SetSchedulerConsecutiveFailures(s.consecutiveFailures)
	logging.Warn(ctx, "scheduler tick failed",
		slog.Int("consecutive_failures", s.consecutiveFailures),
		slog.Any("err", errs.Loggable(err)),
	)
	if s.consecutiveFailures >= s.cfg.MaxConsecutiveFailures {
		logging.Error(ctx, "scheduler suspended", slog.Int("consecutive_failures", s.consecutiveFailures))
		return errs.Wrapf(domain.ErrSchedulerSuspended, "after %d failed ticks", s.consecutiveFailures)
	}
	return nil
}

// TickOnce closes every event due at the current time. Events closed by an
// earlier or concurrent run are skipped without side effects. A listing failure
// or any close failure makes the tick fail; notification failures do not.
func (s *Scheduler) TickOnce(ctx context.Context) (TickResult, error) {
	if ctx == nil {
		return TickResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return TickResult{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return TickResult{}, errRepositoryRequired
	}
	if s.uow == nil {
		return TickResult{}, errUnitOfWorkRequired
	}

	now := s.clock.Now()
	events, err := s.repo.ListDueForClosing(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return TickResult{}, errs.Transient(errs.Wrap(err, "list events due for closing"))
	}

	result := TickResult{Due: len(events)}
	var closeErr error
	for _, event := range events {
		eventCtx := logging.WithAttrs(ctx, slog.String("event_id", event.EventID))
		view, closed, err := s.closeEvent(eventCtx, event, now)
		if err != nil {
			result.Failed++
			closeErr = errors.Join(closeErr, errs.Wrapf(err, "close event %s", event.EventID))
			logging.Error(eventCtx, "close event failed", slog.Any("err", errs.Loggable(err)))
			continue
		}
		if !closed {
			result.AlreadyClosed++
			continue
		}
		result.Closed++
		logging.Info(eventCtx, "event closed", slog.Int("positions", len(view.Positions)))

		sent, failed := s.notifyVoters(eventCtx, event, view)
		result.Notified += sent
		result.NotifyFailures += failed
	}

	s.writeHeartbeat(ctx, now)
	if closeErr != nil {
		return result, closeErr
	}
	return result, nil
}

// closeEvent runs the close transition, winner computation and result publication
// in one transaction. closed is false when another run got there first.
func (s *Scheduler) closeEvent(ctx context.Context, event domain.Event, now time.Time) (ResultsView, bool, error) {
	if !domain.NeedsClosing(event, now) {
		return ResultsView{}, false, nil
	}
	var winners []domain.Winner
	closed := false
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		changed, err := s.repo.MarkClosed(txCtx, event.EventID, now)
		if err != nil {
			return errs.Wrap(err, "mark closed")
		}
		if !changed {
			return nil
		}
		contestants, err := s.repo.ListContestants(txCtx, event.EventID)
		if err != nil {
			return errs.Wrap(err, "load contestants")
		}
		winners = domain.ComputeWinners(event.EventID, contestants)
		if err := s.repo.SaveResults(txCtx, winners); err != nil {
			return errs.Wrap(err, "save results")
		}
		if err := s.repo.MarkResultsPublic(txCtx, event.EventID); err != nil {
			return errs.Wrap(err, "publish results")
		}
		closed = true
		return nil
	})
	if err != nil {
		return ResultsView{}, false, err
	}
	if !closed {
		return ResultsView{}, false, nil
	}

	closedAt := now
	event.ClosedAt = &closedAt
	view := buildResultsView(event, winners)
	if s.cache != nil {
		if raw, err := json.Marshal(view); err == nil {
			if err := s.cache.Set(ctx, resultsCacheKey(event.EventID), string(raw), 0); err != nil {
				logging.Warn(ctx, "cache results snapshot failed", slog.Any("err", errs.Loggable(err)))
			}
		}
	}
	return view, true, nil
}

// notifyVoters sends one notification per voter holding a valid ballot. Each
// send is independent; failures are logged and counted, never retried here.
func (s *Scheduler) notifyVoters(ctx context.Context, event domain.Event, view ResultsView) (int, int) {
	if s.notifier == nil {
		return 0, 0
	}
	voterIDs, err := s.repo.ListValidVoterIDs(ctx, event.EventID)
	if err != nil {
		logging.Error(ctx, "list voters to notify failed", slog.Any("err", errs.Loggable(err)))
		return 0, 0
	}

	summary := summarizeResults(view)
	eventSummary := ports.EventSummary{EventID: event.EventID, Title: event.Title}
	if view.ClosedAt != nil {
		eventSummary.ClosedAt = *view.ClosedAt
	}

	sent, failed := 0, 0
	for _, voterID := range voterIDs {
		voter, err := s.repo.GetVoter(ctx, voterID)
		if err != nil {
			failed++
			s.metrics.ObserveNotification("error")
			logging.Warn(ctx, "load voter for notification failed", slog.String("voter_id", voterID), slog.Any("err", errs.Loggable(err)))
			continue
		}
		contact := ports.VoterContact{VoterID: voter.VoterID, FullName: voter.FullName, Contact: voter.Contact}
		if err := s.notifier.Notify(ctx, contact, eventSummary, summary); err != nil {
			failed++
			s.metrics.ObserveNotification("error")
			logging.Warn(ctx, "notify voter failed", slog.String("voter_id", voterID), slog.Any("err", errs.Loggable(err)))
			continue
		}
		sent++
		s.metrics.ObserveNotification("ok")
	}
	return sent, failed
}

func (s *Scheduler) writeHeartbeat(ctx context.Context, now time.Time) {
	if s.cache == nil {
		return
	}
	value := strconv.FormatInt(now.UnixMilli(), 10)
	if err := s.cache.Set(ctx, schedulerHeartbeatKey, value, 0); err != nil {
		logging.Warn(ctx, "scheduler heartbeat failed", slog.Any("err", errs.Loggable(err)))
	}
}
