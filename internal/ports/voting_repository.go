package ports

import (
	"context"
	"time"

	"evote/internal/domain/voting"
)

type NewVoter struct {
	VoterID  string
	FullName string
	Contact  string
	Unit     string
	Subunit  string
	Tier     string
}

type NewContestant struct {
	ContestantID string
	Position     string
	Name         string
}

type VoterRepository interface {
	CreateVoter(ctx context.Context, voter NewVoter) error
	// GetVoter returns the voter with VotedEvents populated.
	GetVoter(ctx context.Context, voterID string) (voting.Voter, error)
	HasParticipated(ctx context.Context, voterID string, eventID string) (bool, error)
	// AddParticipation appends eventID to the voter's voted set. A second append
	// for the same pair fails with voting.ErrDuplicateBallot.
	AddParticipation(ctx context.Context, voterID string, eventID string, at time.Time) error
	SetBiometricToken(ctx context.Context, voterID string, token string) error
}

type EventRepository interface {
	CreateEvent(ctx context.Context, event voting.Event, contestants []NewContestant) error
	GetEvent(ctx context.Context, eventID string) (voting.Event, error)
	// LockEvent reads the event inside the caller's transaction. Where the store has
	// row locks the row stays locked until commit, so closing and ballot commits
	// on one event serialize.
	LockEvent(ctx context.Context, eventID string) (voting.Event, error)
	// ListDueForClosing returns events with closes_at <= now whose persisted status is not closed.
	ListDueForClosing(ctx context.Context, now time.Time, limit int) ([]voting.Event, error)
	// MarkClosed moves a not-yet-closed event to closed. It reports false when
	// another run already closed it.
	MarkClosed(ctx context.Context, eventID string, closedAt time.Time) (bool, error)
	MarkResultsPublic(ctx context.Context, eventID string) error
	SaveResults(ctx context.Context, winners []voting.Winner) error
	ListResults(ctx context.Context, eventID string) ([]voting.Winner, error)
}

type ContestantRepository interface {
	ListContestants(ctx context.Context, eventID string) ([]voting.Contestant, error)
	// IncrementVotes adds delta at the store layer; it never reads the counter first.
	IncrementVotes(ctx context.Context, contestantID string, delta int64) error
}

type BallotFilter struct {
	VoterID      string
	EventID      string
	Position     string
	ContestantID string
	Status       voting.BallotStatus
}

type BallotRepository interface {
	// InsertBallots writes rows as-is. A second valid row for the same
	// (voter, event, position) fails with voting.ErrDuplicateBallot.
	InsertBallots(ctx context.Context, ballots []voting.Ballot) error
	CountBallots(ctx context.Context, filter BallotFilter) (int64, error)
	ListBallots(ctx context.Context, filter BallotFilter) ([]voting.Ballot, error)
	// ListValidVoterIDs returns the distinct voters holding at least one valid ballot in the event.
	ListValidVoterIDs(ctx context.Context, eventID string) ([]string, error)
}

type VotingRepository interface {
	VoterRepository
	EventRepository
	ContestantRepository
	BallotRepository
	Ping(ctx context.Context) error
}
