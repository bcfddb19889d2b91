package ports

import (
	"context"
	"time"
)

type VoterContact struct {
	VoterID  string
	FullName string
	Contact  string
}

type EventSummary struct {
	EventID  string
	Title    string
	ClosedAt time.Time
}

type PositionResult struct {
	Position string
	Winners  []string
	Votes    int64
}

type ResultSummary struct {
	Positions []PositionResult
}

// Notifier is a fire-and-forget sink. Callers log failures and do not retry in-tick.
type Notifier interface {
	Notify(ctx context.Context, voter VoterContact, event EventSummary, result ResultSummary) error
}
