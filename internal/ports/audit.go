package ports

import (
	"context"
	"time"
)

type VoteAttempt struct {
	VoterID       string
	EventID       string
	Code          string
	Detail        string
	Confidence    *float64
	DeviceID      string
	NetworkOrigin string
	AttemptedAt   time.Time
}

type AuditSink interface {
	RecordAttempt(ctx context.Context, attempt VoteAttempt) error
}
