package model

import (
	"context"

	"gorm.io/gorm"

	"evote/internal/errs"
)

const validBallotIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS idx_ballots_valid_choice ` +
	`ON ballots (voter_id, event_id, position) WHERE status = 'valid'`

// All lists every table owned by the service.
func All() []any {
	return []any{
		&Voter{},
		&VoterParticipation{},
		&VotingEvent{},
		&Contestant{},
		&EventResult{},
		&Ballot{},
		&VoteAttempt{},
		&Subunit{},
		&KVEntry{},
	}
}

// Migrate creates tables plus the one-valid-ballot-per-position index.
func Migrate(ctx context.Context, db *gorm.DB) error {
	conn := db.WithContext(ctx)
	if err := conn.AutoMigrate(All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}
	if err := conn.Exec(validBallotIndexSQL).Error; err != nil {
		return errs.Wrap(err, "create valid ballot index")
	}
	return nil
}
