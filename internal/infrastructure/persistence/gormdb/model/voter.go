package model

import "time"

type Voter struct {
	VoterID        string    `gorm:"column:voter_id;type:text;primaryKey"`
	FullName       string    `gorm:"column:full_name;type:text;not null"`
	Contact        string    `gorm:"column:contact;type:text;not null"`
	Unit           string    `gorm:"column:unit;type:text;not null;index"`
	Subunit        string    `gorm:"column:subunit;type:text;not null"`
	Tier           string    `gorm:"column:tier;type:text;not null"`
	BiometricToken *string   `gorm:"column:biometric_token;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null"`
}

func (Voter) TableName() string {
	return "voters"
}

// VoterParticipation is one entry of a voter's voted-event set.
type VoterParticipation struct {
	VoterID string    `gorm:"column:voter_id;type:text;primaryKey"`
	EventID string    `gorm:"column:event_id;type:text;primaryKey;index"`
	VotedAt time.Time `gorm:"column:voted_at;not null"`
}

func (VoterParticipation) TableName() string {
	return "voter_participations"
}
