package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"evote/internal/bootstrap/logging"
	domain "evote/internal/domain/voting"
	"evote/internal/errs"
	"evote/internal/ports"
)

type CastVoteInput struct {
	VoterID       string
	EventID       string
	Choices       []domain.Choice
	LivePhotoRef  string
	Lat           *float64
	Lng           *float64
	DeviceID      string
	NetworkOrigin string
}

// CastVoteResult is returned for every outcome. On rejection Code carries the
// reason and the accompanying error wraps the matching domain sentinel.
type CastVoteResult struct {
	Code       domain.Code
	Choices    []domain.Choice
	BallotIDs  []string
	Confidence *float64
	Detail     string
}

type castRequest struct {
	voterID       string
	eventID       string
	choices       []domain.Choice
	livePhotoRef  string
	lat           float64
	lng           float64
	deviceID      string
	networkOrigin string
}

// CastVote runs a single vote attempt end to end. Checks run cheapest first; the
// biometric call and the ballot commit happen only when every policy check passes.
// Once the biometric call starts, caller cancellation no longer aborts the attempt.
func (s *Service) CastVote(ctx context.Context, input CastVoteInput) (CastVoteResult, error) {
	if err := s.requireCore(ctx); err != nil {
		return CastVoteResult{Code: domain.CodeVoteFailed}, err
	}
	if s.gateway == nil {
		return CastVoteResult{Code: domain.CodeVoteFailed}, errGatewayRequired
	}

	req, err := normalizeCastVoteInput(input)
	if err != nil {
		s.metrics.ObserveVoteOutcome(string(domain.CodeInvalidRequest))
		return CastVoteResult{Code: domain.CodeInvalidRequest, Detail: err.Error()}, err
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.cast_vote"),
		slog.String("voter_id", req.voterID),
		slog.String("event_id", req.eventID),
	)
	now := s.clock.Now()

	event, err := s.repo.GetEvent(logCtx, req.eventID)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return s.reject(logCtx, req, err, nil)
		}
		return s.fail(logCtx, req, errs.Wrap(err, "load event"))
	}
	if !domain.IsOpenAt(event, now) {
		status := domain.DeriveStatus(event, now)
		return s.reject(logCtx, req, fmt.Errorf("%w: event is %s", domain.ErrEventNotOpen, status), nil)
	}

	contestants, err := s.repo.ListContestants(logCtx, req.eventID)
	if err != nil {
		return s.fail(logCtx, req, errs.Wrap(err, "load contestants"))
	}
	choices, err := domain.ValidateChoices(req.choices, contestants)
	if err != nil {
		s.metrics.ObserveVoteOutcome(string(domain.CodeInvalidRequest))
		return CastVoteResult{Code: domain.CodeInvalidRequest, Detail: err.Error()}, err
	}
	req.choices = choices

	voter, err := s.repo.GetVoter(logCtx, req.voterID)
	if err != nil {
		if errors.Is(err, domain.ErrVoterNotFound) {
			return s.reject(logCtx, req, err, nil)
		}
		return s.fail(logCtx, req, errs.Wrap(err, "load voter"))
	}
	if slices.Contains(voter.VotedEvents, req.eventID) {
		return s.reject(logCtx, req, domain.ErrAlreadyVoted, nil)
	}

	eligibility, err := s.eligibility.IsEligible(logCtx, voter, event)
	if err != nil {
		return s.fail(logCtx, req, errs.Wrap(err, "resolve eligibility"))
	}
	if !eligibility.Eligible {
		return s.reject(logCtx, req, fmt.Errorf("%w: %s", domain.ErrIneligible, eligibility.Reason), nil)
	}

	inside, err := domain.CheckFence(event.Fence, req.lat, req.lng)
	if err != nil {
		return s.fail(logCtx, req, errs.Wrap(err, "check geofence"))
	}
	if !inside {
		return s.reject(logCtx, req, domain.ErrOutsideFence, nil)
	}

	if !voter.HasBiometricReference() {
		return s.reject(logCtx, req, domain.ErrNoBiometricRef, nil)
	}

	// From here on the attempt runs to a terminal outcome even if the caller goes away.
	workCtx := context.WithoutCancel(logCtx)

	verification, err := s.gateway.Verify(workCtx, voter.BiometricToken, req.livePhotoRef)
	if err != nil {
		return s.reject(workCtx, req, err, nil)
	}
	confidence := verification.Confidence
	logging.Debug(workCtx, "biometric verified",
		slog.Float64("confidence", confidence),
		slog.Int("attempts", verification.Attempts),
		slog.Bool("matched", verification.Matched),
	)
	if !verification.Matched {
		return s.rejectMismatch(workCtx, req, confidence)
	}

	ballots := s.buildBallots(req, confidence, domain.BallotStatusValid, now)
	err = s.uow.WithTx(workCtx, func(txCtx context.Context) error {
		// The biometric call may outlast the window, and the scheduler may have
		// published results meanwhile; counters must not move after that.
		current, err := s.repo.LockEvent(txCtx, req.eventID)
		if err != nil {
			return errs.Wrap(err, "lock event")
		}
		if at := s.clock.Now(); !domain.IsOpenAt(current, at) {
			return fmt.Errorf("%w: event is %s at commit", domain.ErrEventNotOpen, domain.DeriveStatus(current, at))
		}
		voted, err := s.repo.HasParticipated(txCtx, req.voterID, req.eventID)
		if err != nil {
			return errs.Wrap(err, "check participation")
		}
		if voted {
			return domain.ErrDuplicateBallot
		}

		if err := s.repo.InsertBallots(txCtx, ballots); err != nil {
			return errs.Wrap(err, "insert ballots")
		}
		for _, choice := range req.choices {
			if err := s.repo.IncrementVotes(txCtx, choice.ContestantID, 1); err != nil {
				return errs.Wrapf(err, "increment votes for %s", choice.ContestantID)
			}
		}
		if err := s.repo.AddParticipation(txCtx, req.voterID, req.eventID, now); err != nil {
			return errs.Wrap(err, "record participation")
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateBallot):
			return s.rejectDuplicate(workCtx, req, confidence, now)
		case errors.Is(err, domain.ErrEventNotOpen):
			return s.rejectClosedAtCommit(workCtx, req, confidence, err)
		}
		return s.fail(workCtx, req, errs.Transient(errs.Wrap(err, "commit ballots")))
	}

	ids := make([]string, 0, len(ballots))
	for _, ballot := range ballots {
		ids = append(ids, ballot.BallotID)
	}
	s.recordAttemptBestEffort(workCtx, s.attempt(req, domain.CodeOK, "", &confidence, now))
	s.metrics.ObserveVoteOutcome(string(domain.CodeOK))
	logging.Info(workCtx, "vote committed",
		slog.Int("positions", len(req.choices)),
		slog.Float64("confidence", confidence),
	)

	return CastVoteResult{
		Code:       domain.CodeOK,
		Choices:    req.choices,
		BallotIDs:  ids,
		Confidence: &confidence,
	}, nil
}

func normalizeCastVoteInput(input CastVoteInput) (castRequest, error) {
	req := castRequest{
		voterID:       strings.TrimSpace(input.VoterID),
		eventID:       strings.TrimSpace(input.EventID),
		choices:       input.Choices,
		livePhotoRef:  strings.TrimSpace(input.LivePhotoRef),
		deviceID:      strings.TrimSpace(input.DeviceID),
		networkOrigin: strings.TrimSpace(input.NetworkOrigin),
	}
	switch {
	case req.voterID == "":
		return castRequest{}, fmt.Errorf("%w: voter_id is required", domain.ErrInvalidRequest)
	case req.eventID == "":
		return castRequest{}, fmt.Errorf("%w: event_id is required", domain.ErrInvalidRequest)
	case len(req.choices) == 0:
		return castRequest{}, fmt.Errorf("%w: at least one choice is required", domain.ErrInvalidRequest)
	case req.livePhotoRef == "":
		return castRequest{}, fmt.Errorf("%w: live photo is required", domain.ErrInvalidRequest)
	case input.Lat == nil || input.Lng == nil:
		return castRequest{}, fmt.Errorf("%w: location is required", domain.ErrInvalidRequest)
	}
	if err := domain.ValidateCoordinates(*input.Lat, *input.Lng); err != nil {
		return castRequest{}, err
	}
	req.lat = *input.Lat
	req.lng = *input.Lng
	return req, nil
}

// reject records the attempt and returns the rejection. Policy outcomes log at
// info; verification failures and mismatches at warn.
func (s *Service) reject(ctx context.Context, req castRequest, cause error, confidence *float64) (CastVoteResult, error) {
	code := domain.CodeOf(cause)
	s.recordAttemptBestEffort(ctx, s.attempt(req, code, cause.Error(), confidence, s.clock.Now()))
	s.metrics.ObserveVoteOutcome(string(code))
	level := logging.Warn
	if domain.IsPolicyRejection(code) {
		level = logging.Info
	}
	level(ctx, "vote rejected", slog.String("code", string(code)), slog.Any("err", errs.Loggable(cause)))
	return CastVoteResult{Code: code, Confidence: confidence, Detail: cause.Error()}, cause
}

func (s *Service) rejectMismatch(ctx context.Context, req castRequest, confidence float64) (CastVoteResult, error) {
	cause := fmt.Errorf("%w: confidence %.2f below threshold %.2f", domain.ErrFaceMismatch, confidence, s.gateway.Threshold())
	if err := s.insertRejectedBallot(ctx, req, confidence); err != nil {
		return s.fail(ctx, req, errs.Wrap(err, "record rejected ballot"))
	}
	return s.reject(ctx, req, cause, &confidence)
}

// rejectClosedAtCommit covers an event that closed while the biometric call was
// running. The commit was rolled back; the attempt is kept as a rejected row.
func (s *Service) rejectClosedAtCommit(ctx context.Context, req castRequest, confidence float64, cause error) (CastVoteResult, error) {
	if err := s.insertRejectedBallot(ctx, req, confidence); err != nil {
		return s.fail(ctx, req, errs.Wrap(err, "record rejected ballot"))
	}
	return s.reject(ctx, req, cause, &confidence)
}

// insertRejectedBallot writes the single positionless row kept for an attempt
// that reached the biometric stage without committing.
func (s *Service) insertRejectedBallot(ctx context.Context, req castRequest, confidence float64) error {
	row := domain.Ballot{
		BallotID:      s.newID(),
		VoterID:       req.voterID,
		EventID:       req.eventID,
		Lat:           req.lat,
		Lng:           req.lng,
		Confidence:    confidence,
		Status:        domain.BallotStatusRejected,
		DeviceID:      req.deviceID,
		NetworkOrigin: req.networkOrigin,
		CreatedAt:     s.clock.Now(),
	}
	return s.repo.InsertBallots(ctx, []domain.Ballot{row})
}

// rejectDuplicate covers a concurrent attempt that committed first. The losing
// transaction is already rolled back; the attempt is kept as duplicate rows.
func (s *Service) rejectDuplicate(ctx context.Context, req castRequest, confidence float64, now time.Time) (CastVoteResult, error) {
	rows := s.buildBallots(req, confidence, domain.BallotStatusDuplicate, now)
	if err := s.repo.InsertBallots(ctx, rows); err != nil {
		logging.Warn(ctx, "record duplicate ballot failed", slog.Any("err", errs.Loggable(err)))
	}
	return s.reject(ctx, req, fmt.Errorf("%w: concurrent vote committed first", domain.ErrAlreadyVoted), &confidence)
}

func (s *Service) fail(ctx context.Context, req castRequest, cause error) (CastVoteResult, error) {
	err := fmt.Errorf("%w: %w", domain.ErrVoteFailed, errs.WithStack(cause))
	s.recordAttemptBestEffort(ctx, s.attempt(req, domain.CodeVoteFailed, cause.Error(), nil, s.clock.Now()))
	s.metrics.ObserveVoteOutcome(string(domain.CodeVoteFailed))
	logging.Error(ctx, "vote failed", slog.Any("err", errs.Loggable(err)))
	return CastVoteResult{Code: domain.CodeVoteFailed, Detail: cause.Error()}, err
}

func (s *Service) buildBallots(req castRequest, confidence float64, status domain.BallotStatus, now time.Time) []domain.Ballot {
	ballots := make([]domain.Ballot, 0, len(req.choices))
	for _, choice := range req.choices {
		ballots = append(ballots, domain.Ballot{
			BallotID:      s.newID(),
			VoterID:       req.voterID,
			EventID:       req.eventID,
			Position:      choice.Position,
			ContestantID:  choice.ContestantID,
			Lat:           req.lat,
			Lng:           req.lng,
			Confidence:    confidence,
			Status:        status,
			DeviceID:      req.deviceID,
			NetworkOrigin: req.networkOrigin,
			CreatedAt:     now,
		})
	}
	return ballots
}

func (s *Service) attempt(req castRequest, code domain.Code, detail string, confidence *float64, at time.Time) ports.VoteAttempt {
	return ports.VoteAttempt{
		VoterID:       req.voterID,
		EventID:       req.eventID,
		Code:          string(code),
		Detail:        detail,
		Confidence:    confidence,
		DeviceID:      req.deviceID,
		NetworkOrigin: req.networkOrigin,
		AttemptedAt:   at,
	}
}
