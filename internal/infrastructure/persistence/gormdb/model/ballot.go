package model

import "time"

// Ballot rows are append-only. The partial unique index on valid rows is created by
// Migrate because struct tags cannot express it portably.
type Ballot struct {
	BallotID      string    `gorm:"column:ballot_id;type:text;primaryKey"`
	VoterID       string    `gorm:"column:voter_id;type:text;not null;index"`
	EventID       string    `gorm:"column:event_id;type:text;not null;index"`
	Position      string    `gorm:"column:position;type:text;not null;default:''"`
	ContestantID  *string   `gorm:"column:contestant_id;type:text;index"`
	Lat           float64   `gorm:"column:lat;not null"`
	Lng           float64   `gorm:"column:lng;not null"`
	Confidence    float64   `gorm:"column:confidence;not null"`
	Status        string    `gorm:"column:status;type:text;not null"`
	DeviceID      string    `gorm:"column:device_id;type:text;not null;default:''"`
	NetworkOrigin string    `gorm:"column:network_origin;type:text;not null;default:''"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
}

func (Ballot) TableName() string {
	return "ballots"
}

type VoteAttempt struct {
	AttemptID     uint64    `gorm:"column:attempt_id;primaryKey;autoIncrement"`
	VoterID       string    `gorm:"column:voter_id;type:text;not null;index"`
	EventID       string    `gorm:"column:event_id;type:text;not null;index"`
	Code          string    `gorm:"column:code;type:text;not null"`
	Detail        string    `gorm:"column:detail;type:text;not null"`
	Confidence    *float64  `gorm:"column:confidence"`
	DeviceID      string    `gorm:"column:device_id;type:text;not null"`
	NetworkOrigin string    `gorm:"column:network_origin;type:text;not null"`
	AttemptedAt   time.Time `gorm:"column:attempted_at;not null"`
}

func (VoteAttempt) TableName() string {
	return "vote_attempts"
}
