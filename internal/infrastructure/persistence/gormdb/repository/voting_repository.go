package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"evote/internal/domain/voting"
	"evote/internal/errs"
	"evote/internal/infrastructure/persistence/gormdb/model"
	"evote/internal/ports"
)

type VotingRepository struct {
	db *gorm.DB
}

var _ ports.VotingRepository = (*VotingRepository)(nil)

func NewVotingRepository(db *gorm.DB) *VotingRepository {
	return &VotingRepository{db: db}
}

func (r *VotingRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errs.Wrap(err, "ping database")
	}
	return nil
}

func (r *VotingRepository) CreateVoter(ctx context.Context, voter ports.NewVoter) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	row := model.Voter{
		VoterID:   strings.TrimSpace(voter.VoterID),
		FullName:  strings.TrimSpace(voter.FullName),
		Contact:   strings.TrimSpace(voter.Contact),
		Unit:      strings.TrimSpace(voter.Unit),
		Subunit:   strings.TrimSpace(voter.Subunit),
		Tier:      strings.TrimSpace(voter.Tier),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert voter")
	}
	return nil
}

func (r *VotingRepository) GetVoter(ctx context.Context, voterID string) (voting.Voter, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return voting.Voter{}, err
	}

	var row model.Voter
	if err := db.Where("voter_id = ?", strings.TrimSpace(voterID)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return voting.Voter{}, voting.ErrVoterNotFound
		}
		return voting.Voter{}, errs.Wrap(err, "query voter")
	}

	var participations []model.VoterParticipation
	if err := db.Where("voter_id = ?", row.VoterID).Order("voted_at asc").Find(&participations).Error; err != nil {
		return voting.Voter{}, errs.Wrap(err, "query voter participations")
	}

	voter := voting.Voter{
		VoterID:     row.VoterID,
		FullName:    row.FullName,
		Contact:     row.Contact,
		Unit:        row.Unit,
		Subunit:     row.Subunit,
		Tier:        row.Tier,
		VotedEvents: make([]string, 0, len(participations)),
	}
	if row.BiometricToken != nil {
		voter.BiometricToken = *row.BiometricToken
	}
	for _, participation := range participations {
		voter.VotedEvents = append(voter.VotedEvents, participation.EventID)
	}
	return voter, nil
}

func (r *VotingRepository) HasParticipated(ctx context.Context, voterID string, eventID string) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.VoterParticipation{}).
		Where("voter_id = ? AND event_id = ?", voterID, eventID).
		Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "count voter participation")
	}
	return count > 0, nil
}

func (r *VotingRepository) AddParticipation(ctx context.Context, voterID string, eventID string, at time.Time) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.VoterParticipation{
		VoterID: voterID,
		EventID: eventID,
		VotedAt: at.UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return voting.ErrDuplicateBallot
		}
		return errs.Wrap(err, "insert voter participation")
	}
	return nil
}

func (r *VotingRepository) SetBiometricToken(ctx context.Context, voterID string, token string) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	result := db.Model(&model.Voter{}).
		Where("voter_id = ?", voterID).
		Updates(map[string]any{
			"biometric_token": token,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update voter biometric token")
	}
	if result.RowsAffected == 0 {
		return voting.ErrVoterNotFound
	}
	return nil
}

func (r *VotingRepository) CreateEvent(ctx context.Context, event voting.Event, contestants []ports.NewContestant) error {
	if !ports.InTx(ctx) {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.CreateEvent(ports.WithTxContext(ctx, tx), event, contestants)
		})
	}

	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row, err := eventRowFromDomain(event)
	if err != nil {
		return err
	}
	row.CreatedAt = time.Now().UTC()
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert voting event")
	}

	if len(contestants) == 0 {
		return nil
	}
	rows := make([]model.Contestant, 0, len(contestants))
	for _, contestant := range contestants {
		rows = append(rows, model.Contestant{
			ContestantID: contestant.ContestantID,
			EventID:      row.EventID,
			Position:     strings.TrimSpace(contestant.Position),
			Name:         strings.TrimSpace(contestant.Name),
			CreatedAt:    row.CreatedAt,
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return errs.Wrap(err, "insert contestants")
	}
	return nil
}

func (r *VotingRepository) GetEvent(ctx context.Context, eventID string) (voting.Event, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return voting.Event{}, err
	}

	var row model.VotingEvent
	if err := db.Where("event_id = ?", strings.TrimSpace(eventID)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return voting.Event{}, voting.ErrEventNotFound
		}
		return voting.Event{}, errs.Wrap(err, "query voting event")
	}
	return mapEvent(row)
}

func (r *VotingRepository) LockEvent(ctx context.Context, eventID string) (voting.Event, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return voting.Event{}, err
	}

	query := db.Where("event_id = ?", strings.TrimSpace(eventID))
	// sqlite has no row locks; its single writer already serializes the two transactions.
	if db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row model.VotingEvent
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return voting.Event{}, voting.ErrEventNotFound
		}
		return voting.Event{}, errs.Wrap(err, "lock voting event")
	}
	return mapEvent(row)
}

func (r *VotingRepository) ListDueForClosing(ctx context.Context, now time.Time, limit int) ([]voting.Event, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.VotingEvent{}).
		Where("closes_at <= ?", now.UTC()).
		Where("status IN ?", []string{string(voting.EventStatusScheduled), string(voting.EventStatusOpen)}).
		Order("closes_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.VotingEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query events due for closing")
	}

	events := make([]voting.Event, 0, len(rows))
	for _, row := range rows {
		event, err := mapEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *VotingRepository) MarkClosed(ctx context.Context, eventID string, closedAt time.Time) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	closedAt = closedAt.UTC()
	result := db.Model(&model.VotingEvent{}).
		Where("event_id = ? AND status <> ?", eventID, string(voting.EventStatusClosed)).
		Updates(map[string]any{
			"status":    string(voting.EventStatusClosed),
			"closed_at": closedAt,
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "mark event closed")
	}
	return result.RowsAffected > 0, nil
}

func (r *VotingRepository) MarkResultsPublic(ctx context.Context, eventID string) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	if err := db.Model(&model.VotingEvent{}).
		Where("event_id = ?", eventID).
		Update("results_public", true).Error; err != nil {
		return errs.Wrap(err, "mark results public")
	}
	return nil
}

func (r *VotingRepository) SaveResults(ctx context.Context, winners []voting.Winner) error {
	if len(winners) == 0 {
		return nil
	}

	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	rows := make([]model.EventResult, 0, len(winners))
	for _, winner := range winners {
		rows = append(rows, model.EventResult{
			EventID:      winner.EventID,
			Position:     winner.Position,
			ContestantID: winner.ContestantID,
			Name:         winner.Name,
			Votes:        winner.Votes,
		})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return errs.Wrap(err, "insert event results")
	}
	return nil
}

func (r *VotingRepository) ListResults(ctx context.Context, eventID string) ([]voting.Winner, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.EventResult
	if err := db.Where("event_id = ?", eventID).
		Order("position asc").
		Order("contestant_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query event results")
	}

	winners := make([]voting.Winner, 0, len(rows))
	for _, row := range rows {
		winners = append(winners, voting.Winner{
			EventID:      row.EventID,
			Position:     row.Position,
			ContestantID: row.ContestantID,
			Name:         row.Name,
			Votes:        row.Votes,
		})
	}
	return winners, nil
}

func (r *VotingRepository) ListContestants(ctx context.Context, eventID string) ([]voting.Contestant, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Contestant
	if err := db.Where("event_id = ?", eventID).
		Order("position asc").
		Order("contestant_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query contestants")
	}

	items := make([]voting.Contestant, 0, len(rows))
	for _, row := range rows {
		items = append(items, voting.Contestant{
			ContestantID: row.ContestantID,
			EventID:      row.EventID,
			Position:     row.Position,
			Name:         row.Name,
			VoteCount:    row.VoteCount,
		})
	}
	return items, nil
}

func (r *VotingRepository) IncrementVotes(ctx context.Context, contestantID string, delta int64) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	result := db.Model(&model.Contestant{}).
		Where("contestant_id = ?", contestantID).
		Update("vote_count", gorm.Expr("vote_count + ?", delta))
	if result.Error != nil {
		return errs.Wrap(result.Error, "increment contestant votes")
	}
	if result.RowsAffected == 0 {
		return errs.Wrapf(voting.ErrInvalidRequest, "contestant %q not found", contestantID)
	}
	return nil
}

func (r *VotingRepository) InsertBallots(ctx context.Context, ballots []voting.Ballot) error {
	if len(ballots) == 0 {
		return nil
	}

	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	rows := make([]model.Ballot, 0, len(ballots))
	for _, ballot := range ballots {
		rows = append(rows, ballotRowFromDomain(ballot))
	}
	if err := db.Create(&rows).Error; err != nil {
		if isUniqueViolation(err) {
			return voting.ErrDuplicateBallot
		}
		return errs.Wrap(err, "insert ballots")
	}
	return nil
}

func (r *VotingRepository) CountBallots(ctx context.Context, filter ports.BallotFilter) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := applyBallotFilter(db.Model(&model.Ballot{}), filter).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count ballots")
	}
	return count, nil
}

func (r *VotingRepository) ListBallots(ctx context.Context, filter ports.BallotFilter) ([]voting.Ballot, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Ballot
	if err := applyBallotFilter(db.Model(&model.Ballot{}), filter).
		Order("created_at asc").
		Order("ballot_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query ballots")
	}

	items := make([]voting.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapBallot(row))
	}
	return items, nil
}

func (r *VotingRepository) ListValidVoterIDs(ctx context.Context, eventID string) ([]string, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var voterIDs []string
	if err := db.Model(&model.Ballot{}).
		Where("event_id = ? AND status = ?", eventID, string(voting.BallotStatusValid)).
		Distinct().
		Order("voter_id asc").
		Pluck("voter_id", &voterIDs).Error; err != nil {
		return nil, errs.Wrap(err, "query valid voters")
	}
	return voterIDs, nil
}

func applyBallotFilter(query *gorm.DB, filter ports.BallotFilter) *gorm.DB {
	if filter.VoterID != "" {
		query = query.Where("voter_id = ?", filter.VoterID)
	}
	if filter.EventID != "" {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.Position != "" {
		query = query.Where("position = ?", filter.Position)
	}
	if filter.ContestantID != "" {
		query = query.Where("contestant_id = ?", filter.ContestantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	return query
}

func eventRowFromDomain(event voting.Event) (model.VotingEvent, error) {
	subunits, err := encodeStrings(event.Eligibility.SubunitIDs)
	if err != nil {
		return model.VotingEvent{}, err
	}
	tiers, err := encodeStrings(event.Eligibility.Tiers)
	if err != nil {
		return model.VotingEvent{}, err
	}
	positions, err := encodeStrings(event.Positions)
	if err != nil {
		return model.VotingEvent{}, err
	}

	status := event.Status
	if status == "" {
		status = voting.EventStatusScheduled
	}
	return model.VotingEvent{
		EventID:          strings.TrimSpace(event.EventID),
		Title:            strings.TrimSpace(event.Title),
		OpensAt:          event.OpensAt.UTC(),
		ClosesAt:         event.ClosesAt.UTC(),
		FenceLat:         event.Fence.Lat,
		FenceLng:         event.Fence.Lng,
		FenceRadiusM:     event.Fence.RadiusMeters,
		OffSiteAllowed:   event.Fence.OffSiteAllowed,
		EligibleUnit:     strings.TrimSpace(event.Eligibility.Unit),
		EligibleSubunits: subunits,
		EligibleTiers:    tiers,
		PositionsJSON:    positions,
		Status:           string(status),
		ResultsPublic:    event.ResultsPublic,
		ClosedAt:         event.ClosedAt,
	}, nil
}

func mapEvent(row model.VotingEvent) (voting.Event, error) {
	subunits, err := decodeStrings(row.EligibleSubunits)
	if err != nil {
		return voting.Event{}, errs.Wrapf(err, "decode eligible subunits of event %s", row.EventID)
	}
	tiers, err := decodeStrings(row.EligibleTiers)
	if err != nil {
		return voting.Event{}, errs.Wrapf(err, "decode eligible tiers of event %s", row.EventID)
	}
	positions, err := decodeStrings(row.PositionsJSON)
	if err != nil {
		return voting.Event{}, errs.Wrapf(err, "decode positions of event %s", row.EventID)
	}

	return voting.Event{
		EventID:  row.EventID,
		Title:    row.Title,
		OpensAt:  row.OpensAt.UTC(),
		ClosesAt: row.ClosesAt.UTC(),
		Fence: voting.Fence{
			Lat:            row.FenceLat,
			Lng:            row.FenceLng,
			RadiusMeters:   row.FenceRadiusM,
			OffSiteAllowed: row.OffSiteAllowed,
		},
		Eligibility: voting.EligibilityFilter{
			Unit:       row.EligibleUnit,
			SubunitIDs: subunits,
			Tiers:      tiers,
		},
		Positions:     positions,
		Status:        voting.EventStatus(row.Status),
		ResultsPublic: row.ResultsPublic,
		ClosedAt:      row.ClosedAt,
	}, nil
}

func ballotRowFromDomain(ballot voting.Ballot) model.Ballot {
	var contestantID *string
	if ballot.ContestantID != "" {
		id := ballot.ContestantID
		contestantID = &id
	}
	return model.Ballot{
		BallotID:      ballot.BallotID,
		VoterID:       ballot.VoterID,
		EventID:       ballot.EventID,
		Position:      ballot.Position,
		ContestantID:  contestantID,
		Lat:           ballot.Lat,
		Lng:           ballot.Lng,
		Confidence:    ballot.Confidence,
		Status:        string(ballot.Status),
		DeviceID:      ballot.DeviceID,
		NetworkOrigin: ballot.NetworkOrigin,
		CreatedAt:     ballot.CreatedAt.UTC(),
	}
}

func mapBallot(row model.Ballot) voting.Ballot {
	ballot := voting.Ballot{
		BallotID:      row.BallotID,
		VoterID:       row.VoterID,
		EventID:       row.EventID,
		Position:      row.Position,
		Lat:           row.Lat,
		Lng:           row.Lng,
		Confidence:    row.Confidence,
		Status:        voting.BallotStatus(row.Status),
		DeviceID:      row.DeviceID,
		NetworkOrigin: row.NetworkOrigin,
		CreatedAt:     row.CreatedAt,
	}
	if row.ContestantID != nil {
		ballot.ContestantID = *row.ContestantID
	}
	return ballot
}

func encodeStrings(values []string) (string, error) {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return "", errs.Wrap(err, "encode string list")
	}
	return string(raw), nil
}

func decodeStrings(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
