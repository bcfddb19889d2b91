package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"evote/internal/bootstrap/logging"
	domain "evote/internal/domain/voting"
	"evote/internal/errs"
	"evote/internal/ports"
)

type ContestantInput struct {
	ContestantID string
	Position     string
	Name         string
}

type CreateEventInput struct {
	EventID     string
	Title       string
	OpensAt     time.Time
	ClosesAt    time.Time
	Fence       domain.Fence
	Eligibility domain.EligibilityFilter
	Contestants []ContestantInput
}

// CreateEvent validates and stores a new event with its contestants. Positions are
// taken from the contestants. Missing IDs are generated.
func (s *Service) CreateEvent(ctx context.Context, input CreateEventInput) (EventView, error) {
	if err := s.requireCore(ctx); err != nil {
		return EventView{}, err
	}

	event, contestants, err := s.prepareEvent(input)
	if err != nil {
		return EventView{}, err
	}
	if !event.ClosesAt.After(s.clock.Now()) {
		return EventView{}, fmt.Errorf("%w: closes_at is already in the past", domain.ErrInvalidEvent)
	}

	if err := s.repo.CreateEvent(ctx, event, contestants); err != nil {
		return EventView{}, errs.Wrap(err, "create event")
	}
	logging.Info(ctx, "event created",
		slog.String("event_id", event.EventID),
		slog.Int("contestants", len(contestants)),
		slog.Time("opens_at", event.OpensAt),
		slog.Time("closes_at", event.ClosesAt),
	)

	return EventView{
		EventID:   event.EventID,
		Title:     event.Title,
		Status:    domain.DeriveStatus(event, s.clock.Now()),
		OpensAt:   event.OpensAt,
		ClosesAt:  event.ClosesAt,
		Positions: event.Positions,
	}, nil
}

func (s *Service) prepareEvent(input CreateEventInput) (domain.Event, []ports.NewContestant, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Event{}, nil, fmt.Errorf("%w: title is required", domain.ErrInvalidEvent)
	}
	if input.OpensAt.IsZero() || input.ClosesAt.IsZero() {
		return domain.Event{}, nil, fmt.Errorf("%w: opens_at and closes_at are required", domain.ErrInvalidEvent)
	}
	if !input.ClosesAt.After(input.OpensAt) {
		return domain.Event{}, nil, fmt.Errorf("%w: closes_at must be after opens_at", domain.ErrInvalidEvent)
	}
	if !input.Fence.OffSiteAllowed {
		if err := domain.ValidateCoordinates(input.Fence.Lat, input.Fence.Lng); err != nil {
			return domain.Event{}, nil, fmt.Errorf("%w: fence center: %w", domain.ErrInvalidEvent, err)
		}
		if input.Fence.RadiusMeters <= 0 {
			return domain.Event{}, nil, fmt.Errorf("%w: fence radius must be positive", domain.ErrInvalidEvent)
		}
	}
	if len(input.Contestants) == 0 {
		return domain.Event{}, nil, fmt.Errorf("%w: at least one contestant is required", domain.ErrInvalidEvent)
	}

	eventID := strings.TrimSpace(input.EventID)
	if eventID == "" {
		eventID = s.newID()
	}

	positions := make(map[string]struct{})
	contestants := make([]ports.NewContestant, 0, len(input.Contestants))
	seenIDs := make(map[string]struct{}, len(input.Contestants))
	for _, c := range input.Contestants {
		position := strings.TrimSpace(c.Position)
		name := strings.TrimSpace(c.Name)
		if position == "" || name == "" {
			return domain.Event{}, nil, fmt.Errorf("%w: contestant requires position and name", domain.ErrInvalidEvent)
		}
		id := strings.TrimSpace(c.ContestantID)
		if id == "" {
			id = s.newID()
		}
		if _, dup := seenIDs[id]; dup {
			return domain.Event{}, nil, fmt.Errorf("%w: duplicate contestant id %q", domain.ErrInvalidEvent, id)
		}
		seenIDs[id] = struct{}{}
		positions[position] = struct{}{}
		contestants = append(contestants, ports.NewContestant{ContestantID: id, Position: position, Name: name})
	}

	positionList := make([]string, 0, len(positions))
	for position := range positions {
		positionList = append(positionList, position)
	}
	sort.Strings(positionList)

	return domain.Event{
		EventID:     eventID,
		Title:       title,
		OpensAt:     input.OpensAt.UTC(),
		ClosesAt:    input.ClosesAt.UTC(),
		Fence:       input.Fence,
		Eligibility: normalizeFilter(input.Eligibility),
		Positions:   positionList,
		Status:      domain.EventStatusScheduled,
	}, contestants, nil
}

func normalizeFilter(filter domain.EligibilityFilter) domain.EligibilityFilter {
	out := domain.EligibilityFilter{Unit: strings.TrimSpace(filter.Unit)}
	for _, id := range filter.SubunitIDs {
		if id = strings.TrimSpace(id); id != "" {
			out.SubunitIDs = append(out.SubunitIDs, id)
		}
	}
	for _, tier := range filter.Tiers {
		if tier = strings.TrimSpace(tier); tier != "" {
			out.Tiers = append(out.Tiers, tier)
		}
	}
	return out
}

func (s *Service) RegisterVoter(ctx context.Context, voter ports.NewVoter) error {
	if err := s.requireCore(ctx); err != nil {
		return err
	}
	voter.VoterID = strings.TrimSpace(voter.VoterID)
	voter.FullName = strings.TrimSpace(voter.FullName)
	if voter.VoterID == "" || voter.FullName == "" {
		return fmt.Errorf("%w: voter_id and full_name are required", domain.ErrInvalidRequest)
	}
	if err := s.repo.CreateVoter(ctx, voter); err != nil {
		return errs.Wrap(err, "create voter")
	}
	return nil
}

// EnrollBiometric stores the reference token later compared against live photos.
func (s *Service) EnrollBiometric(ctx context.Context, voterID string, token string) error {
	if err := s.requireCore(ctx); err != nil {
		return err
	}
	voterID = strings.TrimSpace(voterID)
	token = strings.TrimSpace(token)
	if voterID == "" || token == "" {
		return fmt.Errorf("%w: voter_id and token are required", domain.ErrInvalidRequest)
	}
	if err := s.repo.SetBiometricToken(ctx, voterID, token); err != nil {
		return errs.Wrap(err, "set biometric token")
	}
	logging.Info(ctx, "biometric reference enrolled", slog.String("voter_id", voterID))
	return nil
}

func (s *Service) UpsertSubunit(ctx context.Context, subunit ports.Subunit) error {
	if err := s.requireCore(ctx); err != nil {
		return err
	}
	if s.org == nil {
		return errors.New("org directory is required")
	}
	subunit.SubunitID = strings.TrimSpace(subunit.SubunitID)
	subunit.Name = strings.TrimSpace(subunit.Name)
	if subunit.SubunitID == "" || subunit.Name == "" {
		return fmt.Errorf("%w: subunit id and name are required", domain.ErrInvalidRequest)
	}
	return errs.Wrap(s.org.UpsertSubunit(ctx, subunit), "upsert subunit")
}
