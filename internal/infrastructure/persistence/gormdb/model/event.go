package model

import "time"

type VotingEvent struct {
	EventID          string     `gorm:"column:event_id;type:text;primaryKey"`
	Title            string     `gorm:"column:title;type:text;not null"`
	OpensAt          time.Time  `gorm:"column:opens_at;not null"`
	ClosesAt         time.Time  `gorm:"column:closes_at;not null;index:idx_events_closing,priority:2"`
	FenceLat         float64    `gorm:"column:fence_lat;not null;default:0"`
	FenceLng         float64    `gorm:"column:fence_lng;not null;default:0"`
	FenceRadiusM     float64    `gorm:"column:fence_radius_m;not null;default:0"`
	OffSiteAllowed   bool       `gorm:"column:off_site_allowed;not null;default:false"`
	EligibleUnit     string     `gorm:"column:eligible_unit;type:text;not null;default:''"`
	EligibleSubunits string     `gorm:"column:eligible_subunits_json;type:text;not null;default:'[]'"`
	EligibleTiers    string     `gorm:"column:eligible_tiers_json;type:text;not null;default:'[]'"`
	PositionsJSON    string     `gorm:"column:positions_json;type:text;not null;default:'[]'"`
	Status           string     `gorm:"column:status;type:text;not null;index:idx_events_closing,priority:1"`
	ResultsPublic    bool       `gorm:"column:results_public;not null;default:false"`
	ClosedAt         *time.Time `gorm:"column:closed_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;not null"`
}

func (VotingEvent) TableName() string {
	return "voting_events"
}

type Contestant struct {
	ContestantID string    `gorm:"column:contestant_id;type:text;primaryKey"`
	EventID      string    `gorm:"column:event_id;type:text;not null;index"`
	Position     string    `gorm:"column:position;type:text;not null"`
	Name         string    `gorm:"column:name;type:text;not null"`
	VoteCount    int64     `gorm:"column:vote_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (Contestant) TableName() string {
	return "contestants"
}

type EventResult struct {
	EventID      string `gorm:"column:event_id;type:text;primaryKey"`
	Position     string `gorm:"column:position;type:text;primaryKey"`
	ContestantID string `gorm:"column:contestant_id;type:text;primaryKey"`
	Name         string `gorm:"column:name;type:text;not null"`
	Votes        int64  `gorm:"column:votes;not null"`
}

func (EventResult) TableName() string {
	return "event_results"
}
