package voting

import "time"

type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusOpen      EventStatus = "open"
	EventStatusClosed    EventStatus = "closed"
)

type BallotStatus string

const (
	BallotStatusValid     BallotStatus = "valid"
	BallotStatusDuplicate BallotStatus = "duplicate"
	BallotStatusRejected  BallotStatus = "rejected"
)

type Voter struct {
	VoterID        string
	FullName       string
	Contact        string
	Unit           string
	Subunit        string
	Tier           string
	BiometricToken string
	VotedEvents    []string
}

func (v Voter) HasBiometricReference() bool {
	return v.BiometricToken != ""
}

// Fence is a circular allowed-location constraint. OffSiteAllowed disables the check.
type Fence struct {
	Lat            float64
	Lng            float64
	RadiusMeters   float64
	OffSiteAllowed bool
}

// EligibilityFilter restricts who may vote. Empty fields mean no restriction.
// SubunitIDs are stable org-hierarchy identifiers, not display names.
type EligibilityFilter struct {
	Unit       string
	SubunitIDs []string
	Tiers      []string
}

func (f EligibilityFilter) IsUnrestricted() bool {
	return f.Unit == "" && len(f.SubunitIDs) == 0 && len(f.Tiers) == 0
}

type Event struct {
	EventID       string
	Title         string
	OpensAt       time.Time
	ClosesAt      time.Time
	Fence         Fence
	Eligibility   EligibilityFilter
	Positions     []string
	Status        EventStatus
	ResultsPublic bool
	ClosedAt      *time.Time
}

type Contestant struct {
	ContestantID string
	EventID      string
	Position     string
	Name         string
	VoteCount    int64
}

type Choice struct {
	Position     string
	ContestantID string
}

type Ballot struct {
	BallotID      string
	VoterID       string
	EventID       string
	Position      string
	ContestantID  string
	Lat           float64
	Lng           float64
	Confidence    float64
	Status        BallotStatus
	DeviceID      string
	NetworkOrigin string
	CreatedAt     time.Time
}

type Winner struct {
	EventID      string
	Position     string
	ContestantID string
	Name         string
	Votes        int64
}
