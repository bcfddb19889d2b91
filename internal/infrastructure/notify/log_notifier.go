package notify

import (
	"context"
	"log/slog"
	"strings"

	"evote/internal/bootstrap/logging"
	"evote/internal/ports"
)

// LogNotifier writes notifications to the structured log. Used when no broker is configured.
type LogNotifier struct{}

var _ ports.Notifier = LogNotifier{}

func (LogNotifier) Notify(ctx context.Context, voter ports.VoterContact, event ports.EventSummary, result ports.ResultSummary) error {
	winners := make([]string, 0, len(result.Positions))
	for _, position := range result.Positions {
		winners = append(winners, position.Position+"="+strings.Join(position.Winners, "|"))
	}
	logging.Info(ctx, "results notification",
		slog.String("component", "notify.log"),
		slog.String("voter_id", voter.VoterID),
		slog.String("contact", voter.Contact),
		slog.String("event_id", event.EventID),
		slog.String("title", event.Title),
		slog.String("winners", strings.Join(winners, ", ")),
	)
	return nil
}
