package voting

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"evote/internal/bootstrap/logging"
	domain "evote/internal/domain/voting"
	"evote/internal/errs"
	"evote/internal/ports"
)

const resultsCachePrefix = "event_results:"

type WinnerView struct {
	ContestantID string `json:"contestant_id"`
	Name         string `json:"name"`
	Votes        int64  `json:"votes"`
}

type PositionResultView struct {
	Position string       `json:"position"`
	Winners  []WinnerView `json:"winners"`
}

type ResultsView struct {
	EventID   string               `json:"event_id"`
	Title     string               `json:"title"`
	ClosedAt  *time.Time           `json:"closed_at,omitempty"`
	Positions []PositionResultView `json:"positions"`
}

type EventView struct {
	EventID       string             `json:"event_id"`
	Title         string             `json:"title"`
	Status        domain.EventStatus `json:"status"`
	OpensAt       time.Time          `json:"opens_at"`
	ClosesAt      time.Time          `json:"closes_at"`
	Positions     []string           `json:"positions"`
	ResultsPublic bool               `json:"results_public"`
}

func resultsCacheKey(eventID string) string {
	return resultsCachePrefix + eventID
}

func buildResultsView(event domain.Event, winners []domain.Winner) ResultsView {
	view := ResultsView{EventID: event.EventID, Title: event.Title, ClosedAt: event.ClosedAt}
	index := make(map[string]int)
	for _, winner := range winners {
		i, ok := index[winner.Position]
		if !ok {
			view.Positions = append(view.Positions, PositionResultView{Position: winner.Position})
			i = len(view.Positions) - 1
			index[winner.Position] = i
		}
		view.Positions[i].Winners = append(view.Positions[i].Winners, WinnerView{
			ContestantID: winner.ContestantID,
			Name:         winner.Name,
			Votes:        winner.Votes,
		})
	}
	sort.Slice(view.Positions, func(i, j int) bool {
		return view.Positions[i].Position < view.Positions[j].Position
	})
	return view
}

func summarizeResults(view ResultsView) ports.ResultSummary {
	summary := ports.ResultSummary{Positions: make([]ports.PositionResult, 0, len(view.Positions))}
	for _, position := range view.Positions {
		entry := ports.PositionResult{Position: position.Position}
		for _, winner := range position.Winners {
			entry.Winners = append(entry.Winners, winner.Name)
			entry.Votes = winner.Votes
		}
		summary.Positions = append(summary.Positions, entry)
	}
	return summary
}

// GetEvent returns the event with its status derived from the current time.
func (s *Service) GetEvent(ctx context.Context, eventID string) (EventView, error) {
	if err := s.requireCore(ctx); err != nil {
		return EventView{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return EventView{}, domain.ErrInvalidRequest
	}

	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return EventView{}, errs.Wrap(err, "load event")
	}
	return EventView{
		EventID:       event.EventID,
		Title:         event.Title,
		Status:        domain.DeriveStatus(event, s.clock.Now()),
		OpensAt:       event.OpensAt,
		ClosesAt:      event.ClosesAt,
		Positions:     append([]string(nil), event.Positions...),
		ResultsPublic: event.ResultsPublic,
	}, nil
}

// GetResults serves published results, preferring the snapshot written at close time.
func (s *Service) GetResults(ctx context.Context, eventID string) (ResultsView, error) {
	if err := s.requireCore(ctx); err != nil {
		return ResultsView{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return ResultsView{}, domain.ErrInvalidRequest
	}

	if view, ok := s.cachedResults(ctx, eventID); ok {
		return view, nil
	}

	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return ResultsView{}, errs.Wrap(err, "load event")
	}
	if !event.ResultsPublic {
		return ResultsView{}, domain.ErrResultsNotPublic
	}
	winners, err := s.repo.ListResults(ctx, eventID)
	if err != nil {
		return ResultsView{}, errs.Wrap(err, "load results")
	}

	view := buildResultsView(event, winners)
	if raw, err := json.Marshal(view); err == nil {
		s.setCacheBestEffort(ctx, resultsCacheKey(eventID), string(raw))
	}
	return view, nil
}

func (s *Service) cachedResults(ctx context.Context, eventID string) (ResultsView, bool) {
	if s.cache == nil {
		return ResultsView{}, false
	}
	raw, found, err := s.cache.Get(ctx, resultsCacheKey(eventID))
	if err != nil {
		logging.Warn(ctx, "cache get failed", slog.String("event_id", eventID), slog.Any("err", errs.Loggable(err)))
		return ResultsView{}, false
	}
	if !found {
		return ResultsView{}, false
	}
	var view ResultsView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		logging.Warn(ctx, "cached results are unreadable", slog.String("event_id", eventID), slog.Any("err", errs.Loggable(err)))
		return ResultsView{}, false
	}
	return view, true
}
